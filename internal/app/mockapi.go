package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/mockapi"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/tracing"
)

// MockAPI wires together all dependencies and runs the mock backend.
type MockAPI struct {
	cfg        *config.MockAPIConfig
	logger     *slog.Logger
	server     *mockapi.Server
	httpServer *http.Server
	tracing    func(context.Context) error
}

// NewMockAPI creates the mock backend seeded with the demo data.
func NewMockAPI(cfg *config.MockAPIConfig, logger *slog.Logger) (*MockAPI, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdown, err := tracing.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	opts := mockapi.DefaultOptions()
	opts.Secret = cfg.JWTSecret
	opts.AccessTTL = cfg.AccessTTL
	opts.RefreshTTL = cfg.RefreshTTL
	opts.CORSOrigins = cfg.CORSOrigins
	server := mockapi.NewServer(opts, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("store", func(context.Context) error {
		if len(server.Store().Categories()) == 0 {
			return errors.New("catalog not seeded")
		}
		return nil
	})
	healthHandler.RegisterNonCritical("tokens", func(context.Context) error {
		access, err := server.Tokens().AccessToken(&domain.User{Username: "health", Role: domain.RoleUser})
		if err != nil {
			return err
		}
		_, err = server.Tokens().ValidateAccess(access)
		return err
	})

	// HTTP router.
	router := mockapi.NewRouter(server, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &MockAPI{
		cfg:        cfg,
		logger:     logger,
		server:     server,
		httpServer: httpServer,
		tracing:    shutdown,
	}, nil
}

// Handler returns the root HTTP handler.
func (a *MockAPI) Handler() http.Handler { return a.httpServer.Handler }

// Run starts the HTTP server and blocks until the context is canceled.
func (a *MockAPI) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln until the context is canceled.
func (a *MockAPI) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
		)
		if err := a.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *MockAPI) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.tracing(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}
