package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/zqurashi8/couples-game-hub/internal/auth"
	"github.com/zqurashi8/couples-game-hub/internal/config"
	"github.com/zqurashi8/couples-game-hub/internal/server"
	"github.com/zqurashi8/couples-game-hub/internal/store"
)

func main() {
	cfg := config.Load()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStore(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("could not connect to store")
	}
	defer st.Close()

	var authSvc *auth.Service
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			logrus.WithError(err).Fatal("could not connect to postgres")
		}
		defer pool.Close()

		authSvc = auth.New(pool, cfg.JWTSecret, cfg.TokenTTL)
		if err := authSvc.EnsureSchema(ctx); err != nil {
			logrus.WithError(err).Fatal("could not prepare auth schema")
		}
	} else {
		logrus.Info("DATABASE_URL not set, auth endpoints disabled")
	}

	srv := server.New(cfg, st, authSvc)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("shutdown failed")
		}
	case err := <-errCh:
		if err != nil {
			logrus.WithError(err).Fatal("server stopped")
		}
	}
}

// buildStore connects to Redis when configured and falls back to the
// in-process store for single-machine play.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.RedisAddr == "" {
		logrus.Info("REDIS_ADDR not set, using in-process store")
		return store.NewMemoryStore(), nil
	}
	return store.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.StorePrefix)
}
