package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"committer/internal/api"
	"committer/internal/config"
	"committer/internal/logging"
	"committer/internal/middleware"
	"committer/internal/session"
	"committer/internal/watch"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.Path(), "config file")
	repoDir := flag.String("repo", ".", "directory inside the vault repository")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg = config.Default()
	} else if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	s, err := session.Open(*repoDir, cfg, logger.Logger)
	if err != nil {
		logger.Fatal("failed to open repository", zap.Error(err))
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Tell event-stream clients to refetch whenever the vault changes
	events := api.NewNotifier(logger.Logger)
	defer events.Close()
	w, err := watch.New(s.Root(), logger.Logger, cfg.Debounce())
	if err != nil {
		logger.Warn("file watching disabled", zap.Error(err))
	} else {
		defer w.Close()
		go events.Run(ctx, w.Events(), s)
	}

	// Set up router
	mux := http.NewServeMux()
	api.NewRepoHandler(s, logger).WithEvents(events).Register(mux)

	// Apply middleware
	handler := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger(logger),
		middleware.Recover(logger),
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		<-ctx.Done()
		events.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", zap.String("address", addr), zap.String("root", s.Root()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}
