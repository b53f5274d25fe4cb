package providers

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var _ AuthProvider = &JWTAuthProvider{}

// JWTAuthProvider verifies HS256 tokens signed with a shared secret.
type JWTAuthProvider struct {
	secret []byte
}

type jwtClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewJWTAuthProvider creates a new JWTAuthProvider
func NewJWTAuthProvider(secret string) (*JWTAuthProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &JWTAuthProvider{
		secret: []byte(secret),
	}, nil
}

// VerifyToken verifies a signed JWT and returns its claims
func (p *JWTAuthProvider) VerifyToken(_ context.Context, idToken string) (*TokenClaims, error) {
	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error verifying token: %v", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no userId claim")
	}

	return &TokenClaims{
		UID:  claims.UserID,
		Role: claims.Role,
	}, nil
}
