// Command taskhubd is the task assignment and verification server.
// It opens the SQLite store, seeds the bootstrap admin, and serves the
// JSON API until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kvn/taskhub/internal/api"
	"github.com/kvn/taskhub/internal/directory"
	"github.com/kvn/taskhub/internal/engine"
	"github.com/kvn/taskhub/internal/model"
	"github.com/kvn/taskhub/internal/notify"
	"github.com/kvn/taskhub/internal/store"
)

var configPath = flag.String("config", model.DefaultConfigPath(), "path to config file")

func main() {
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config %s: %v", *configPath, err)
	}
	if cfg.Server.JWTSecret == "" {
		log.Fatalf("server.jwt_secret must be set in %s", *configPath)
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store %s: %v", cfg.DBPath, err)
	}
	defer s.Close()

	sink := notify.NewStoreSink(s)
	dir := directory.New(s, sink)
	eng := engine.New(s, dir, sink)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Password != "" {
		admin, err := dir.EnsureAdmin(ctx, cfg.Admin.Name, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			log.Fatalf("Failed to seed bootstrap admin: %v", err)
		}
		logger.Info("bootstrap admin ready", "email", admin.Email)
	}

	handlers := &api.Handlers{
		Directory: dir,
		Engine:    eng,
		Inbox:     notify.NewInbox(s),
		Store:     s,
		Logger:    logger,
		JWTSecret: cfg.Server.JWTSecret,
		TokenTTL:  time.Duration(cfg.Server.TokenTTLHours) * time.Hour,
	}

	mux := http.NewServeMux()
	handlers.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}

	go func() {
		logger.Info("taskhubd listening", "addr", cfg.Server.Addr, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("err", err))
	}
}
