package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gridspace/gridspace/pkg/api/handlers"
	"github.com/gridspace/gridspace/pkg/api/middleware"
	authproviders "github.com/gridspace/gridspace/pkg/auth/providers"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/spaces"
)

// APIServer serves the space metadata API. The presence core does not
// depend on it; it exists so spaces can be managed out of band.
type APIServer struct {
	server *http.Server
	tls    *TLSConfig
}

type TLSConfig struct {
	CertFile string
	KeyFile  string
}

type NewAPIServerOptions struct {
	Port         int
	TLS          *TLSConfig
	AuthProvider authproviders.AuthProvider
	Repository   spaces.Repository
}

// NewRouter builds the API routes.
func NewRouter(opts NewAPIServerOptions) *mux.Router {
	authMiddleware := middleware.NewAuthMiddleware(opts.AuthProvider)

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	spacesRouter := router.PathPrefix("/spaces").Subrouter()
	spacesRouter.Use(authMiddleware)
	spacesRouter.HandleFunc("", handlers.HandleListSpaces(opts.Repository)).Methods(http.MethodGet)
	spacesRouter.HandleFunc("", handlers.HandleCreateSpace(opts.Repository)).Methods(http.MethodPost)
	spacesRouter.HandleFunc("/{spaceID}", handlers.HandleGetSpace(opts.Repository)).Methods(http.MethodGet)
	spacesRouter.HandleFunc("/{spaceID}", handlers.HandleDeleteSpace(opts.Repository)).Methods(http.MethodDelete)

	return router
}

// NewAPIServer creates a new http.Server for handling API requests
func NewAPIServer(opts NewAPIServerOptions) *APIServer {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: NewRouter(opts),
	}
	return &APIServer{
		server: server,
		tls:    opts.TLS,
	}
}

// Start starts the APIServer
func (s *APIServer) Start() {
	var listenAndServe func() error
	if s.tls != nil {
		log.Info("API server listening on %s with TLS", s.server.Addr)
		listenAndServe = func() error {
			return s.server.ListenAndServeTLS(s.tls.CertFile, s.tls.KeyFile)
		}
	} else {
		log.Info("API server listening on %s", s.server.Addr)
		listenAndServe = s.server.ListenAndServe
	}
	if err := listenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			log.Info("API server closed")
			return
		}
		log.Error("API server error: %v", err)
	}
}

// Stop stops the APIServer
func (s *APIServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
