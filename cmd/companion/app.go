package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Alekaz94/catholic-daily-companion/internal/db"
	"github.com/Alekaz94/catholic-daily-companion/internal/handlers"
	"github.com/Alekaz94/catholic-daily-companion/internal/logger"
	"github.com/Alekaz94/catholic-daily-companion/internal/ratelimit"
	"github.com/Alekaz94/catholic-daily-companion/internal/repository/postgres"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/audit"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/auth"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/entry"
	"github.com/Alekaz94/catholic-daily-companion/internal/service/user"
)

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger  logger.Logger
	limiter *ratelimit.Limiter
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	// Initialize repositories
	storage := postgres.NewStorage(pool)

	// Initialize services
	codec, err := auth.NewCodec(auth.CodecConfig{
		SecretKey: c.SecretKey,
		AccessTTL: c.AccessTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	var verifier auth.AssertionVerifier
	if c.GoogleClientID != "" {
		verifier, err = auth.NewOIDCVerifier(ctx, c.GoogleIssuer, c.GoogleClientID)
		if err != nil {
			return nil, fmt.Errorf("error while creating OIDC verifier. Err: %w", err)
		}
	}

	authService, err := auth.NewService(auth.Config{
		Verifier:        verifier,
		RefreshTokenTTL: c.RefreshTokenTTL,
	}, codec, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}

	userService, err := user.NewService(storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating user service. Err: %w", err)
	}
	entryService, err := entry.NewService(storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating entry service. Err: %w", err)
	}
	auditService, err := audit.NewService(storage, log)
	if err != nil {
		return nil, fmt.Errorf("error while creating audit service. Err: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Config{
		Auth:           ratelimit.TierConfig{Capacity: c.AuthRateCapacity, RefillPerMinute: c.AuthRatePerMinute},
		Standard:       ratelimit.TierConfig{Capacity: c.StandardRateCapacity, RefillPerMinute: c.StandardRatePerMinute},
		SweepInterval:  c.SweepInterval,
		SweepHighWater: c.SweepHighWater,
	})

	// Initialize handlers
	authHandler := handlers.NewAuth(authService, auditService)
	userHandler := handlers.NewUser(userService, auditService)
	entryHandler := handlers.NewEntry(entryService, auditService)
	auditHandler := handlers.NewAudit(auditService)

	mux := handlers.NewRouter(
		authHandler,
		userHandler,
		entryHandler,
		auditHandler,
		authService,
		limiter,
		codec,
		log,
	)

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		limiter:    limiter,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	// Evict idle rate limiter buckets until the server stops
	go s.limiter.Run(srvCtx)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}
		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	// Listen and serve until context is cancelled; then close gracefully connections
	s.logger.Info("Starting server", "address", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
