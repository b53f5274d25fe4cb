package spaces

import "context"

// Repository provides access to space metadata. The presence core
// only reads from it at join time; the HTTP API also writes.
type Repository interface {
	Close(ctx context.Context) error
	GetSpace(ctx context.Context, spaceID string) (*Space, error)
	ListSpaces(ctx context.Context) ([]*Space, error)
	CreateSpace(ctx context.Context, space *Space) error
	DeleteSpace(ctx context.Context, spaceID string) error
}
