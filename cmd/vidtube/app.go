package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/vidtube/internal/db"
	"github.com/nkiryanov/vidtube/internal/handlers"
	"github.com/nkiryanov/vidtube/internal/logger"
	"github.com/nkiryanov/vidtube/internal/repository/postgres"
	"github.com/nkiryanov/vidtube/internal/service/auth"
	"github.com/nkiryanov/vidtube/internal/service/auth/tokenmanager"
	"github.com/nkiryanov/vidtube/internal/service/media"
	"github.com/nkiryanov/vidtube/internal/service/user"
)

const shutdownTimeout = 5 * time.Second

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger logger.Logger
	pool   *pgxpool.Pool
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	// Initialize logger
	logger, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		AccessSecret:  c.AccessTokenSecret,
		RefreshSecret: c.RefreshTokenSecret,
		AccessTTL:     c.AccessTokenExpiry,
		RefreshTTL:    c.RefreshTokenExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	uploader, err := media.NewS3Uploader(ctx, media.Config{
		Endpoint:  c.MediaEndpoint,
		Region:    c.MediaRegion,
		Bucket:    c.MediaBucket,
		AccessKey: c.MediaAccessKey,
		SecretKey: c.MediaSecretKey,
		PublicURL: c.MediaPublicURL,
		Prefix:    c.MediaPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating media uploader. Err: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	authService, err := auth.NewService(auth.Config{CookieInsecure: c.CookieInsecure}, tokenManager, storage.User())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	userService := user.NewService(authService.Hasher(), storage, uploader, logger)

	if c.CookieInsecure {
		logger.Warn("Auth cookies are sent without 'Secure' attribute")
	}

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    handlers.NewRouter(authService, userService, logger),
		logger:     logger,
		pool:       pool,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
// Returns nil if server stopped by context
func (s *ServerApp) Run(ctx context.Context) error {
	defer s.pool.Close()

	httpServer := &http.Server{
		Addr:              s.ListenAddr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); errors.Is(err, context.DeadlineExceeded) {
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

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
