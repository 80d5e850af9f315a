package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/chess-replay/internal/archive"
	appcfg "github.com/park285/chess-replay/internal/config"
	"github.com/park285/chess-replay/internal/httpapi"
	"github.com/park285/chess-replay/internal/msgcat"
	"github.com/park285/chess-replay/internal/obslog"
	"github.com/park285/chess-replay/internal/render"
	"github.com/park285/chess-replay/internal/repository"
	"github.com/park285/chess-replay/internal/store"
)

func main() {
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	catalog, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		log.Fatalf("messages error: %v", err)
	}

	opts := []httpapi.Option{
		httpapi.WithCatalog(catalog),
		httpapi.WithRenderer(render.New(cfg.SquareSize)),
	}

	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		st, err := store.Open(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		cancel()
		if err != nil {
			log.Fatalf("redis init error: %v", err)
		}
		defer st.Close()
		opts = append(opts, httpapi.WithStore(st))
	} else {
		logger.Warn("redis_disabled", zap.String("reason", "REDIS_URL not set"))
	}

	if cfg.ArchiveDir != "" {
		a, err := archive.Open(cfg.ArchiveDir)
		if err != nil {
			log.Fatalf("archive init error: %v", err)
		}
		defer a.Close()
		opts = append(opts, httpapi.WithArchive(a))
	}

	if cfg.DatabaseURL != "" {
		repo, err := repository.NewRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db init error: %v", err)
		}
		defer repo.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = repo.EnsureSchema(ctx)
		cancel()
		if err != nil {
			log.Fatalf("db schema error: %v", err)
		}
		opts = append(opts, httpapi.WithRepository(repo))
	}

	srv := httpapi.NewServer(logger, opts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.HTTPAddr) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http_listen_failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Close(ctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
}
