package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-be/internal/cart"
	"marketplace-be/internal/catalog"
	"marketplace-be/internal/config"
	"marketplace-be/internal/db"
	"marketplace-be/internal/httpapi"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/middleware"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	initDBFunc = db.NewDatabase
	serveFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.L().Error("server exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.LoadConfig()
	if err := logger.Init(cfg.AppEnv); err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	database, err := initDBFunc(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	limiter := middleware.NewRateLimiter()
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           newServer(cfg, database, limiter),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.L().Info("http server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := serveFunc(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return limiter.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.L().Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.L().Info("bye")
	return nil
}

func newServer(cfg *config.Config, database *sql.DB, limiter *middleware.RateLimiter) http.Handler {
	registry := metrics.NewRegistry()

	cartSvc := cart.NewService(cart.NewRepository(database), registry)
	catalogSvc := catalog.NewService(catalog.NewRepository(database), registry)

	return httpapi.NewRouter(httpapi.Deps{
		Cart:           cartSvc,
		Catalog:        catalogSvc,
		Metrics:        registry,
		Limiter:        limiter,
		JWTSecret:      []byte(cfg.JWTSecret),
		AuthCookieName: cfg.AuthCookieName,
		DefaultLocale:  cfg.DefaultLocale,
		CORSOrigins:    cfg.CORSOrigins,
		Ping:           database.PingContext,
	})
}
