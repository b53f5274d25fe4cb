package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gridspace/gridspace/pkg/api"
	authproviders "github.com/gridspace/gridspace/pkg/auth/providers"
	"github.com/gridspace/gridspace/pkg/log"
	"github.com/gridspace/gridspace/pkg/network"
	"github.com/gridspace/gridspace/pkg/presence"
	"github.com/gridspace/gridspace/pkg/rooms"
	"github.com/gridspace/gridspace/pkg/spaces"
	"github.com/gridspace/gridspace/pkg/version"
)

func main() {
	wsPort := flag.Int("ws-port", 3001, "WebSocket port to listen on")
	apiPort := flag.Int("api-port", 3000, "HTTP API port to listen on")
	logLevel := flag.String("log-level", "info", "Log level")
	authProviderName := flag.String("auth-provider", "jwt", "Auth provider (jwt or firebase)")
	firebaseProjectID := flag.String("firebase-project-id", "", "Firebase project ID (firebase auth provider)")
	firebaseAPIKey := flag.String("firebase-api-key", "", "Firebase API key (firebase auth provider)")
	sqlitePath := flag.String("sqlite-path", "", "Path to a SQLite database for space metadata")
	flag.Parse()

	parsedLogLevel, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to parse log level: %v", err))
	}

	logger := log.New(os.Stdout, "", log.DefaultLoggerFlag, parsedLogLevel)
	log.SetDefaultLogger(logger)
	log.Info("Log level set to %s", parsedLogLevel)

	log.Info("Starting server version %s", version.Get())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repository, err := newRepository(ctx, *sqlitePath)
	if err != nil {
		panic(fmt.Sprintf("Failed to create space repository: %v", err))
	}
	defer repository.Close(ctx)

	authProvider, err := newAuthProvider(ctx, *authProviderName, *firebaseProjectID, *firebaseAPIKey)
	if err != nil {
		panic(fmt.Sprintf("Failed to create auth provider: %v", err))
	}

	registry := rooms.NewRegistry(rooms.NewRegistryOptions{
		Repository: repository,
	})

	handler := presence.NewHandler(presence.NewHandlerOptions{
		AuthProvider: authProvider,
		Registry:     registry,
	})

	apiServer := api.NewAPIServer(api.NewAPIServerOptions{
		Port:         *apiPort,
		AuthProvider: authProvider,
		Repository:   repository,
	})
	go apiServer.Start()
	defer apiServer.Stop(ctx)

	wsServer := network.NewWSServer(network.NewWSServerOptions{
		Port: *wsPort,
	})
	wsServer.Start(ctx, handler.HandleConnection)
}

func newRepository(ctx context.Context, sqlitePath string) (spaces.Repository, error) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return spaces.NewPostgresRepository(ctx, connStr), nil
	}
	if sqlitePath != "" {
		return spaces.NewSQLiteRepository(ctx, sqlitePath)
	}
	log.Warn("No DATABASE_URL or -sqlite-path set, using in-memory space repository")
	return spaces.NewInMemoryRepository(), nil
}

func newAuthProvider(ctx context.Context, name, firebaseProjectID, firebaseAPIKey string) (authproviders.AuthProvider, error) {
	switch name {
	case "jwt":
		return authproviders.NewJWTAuthProvider(os.Getenv("JWT_SECRET"))
	case "firebase":
		return authproviders.NewFirebaseAuthProvider(ctx, firebaseProjectID, firebaseAPIKey)
	default:
		return nil, fmt.Errorf("unknown auth provider: %s", name)
	}
}
