package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/async"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm/gemini"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/export"
	repo "github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
	svc "github.com/joseph-ayodele/pbb-arrears-tracker/internal/server"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := common.LoadConfigFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	// Setup structured logger that outputs messages with variables but no time
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if cfg.LLM.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; batches need an X-Api-Key header")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.Store.DSN,
		MaxConns:        10,
		MinConns:        1,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
		DialTimeout:     3 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close record store", "error", err)
		}
	}()

	if err := repo.HealthCheck(ctx, store, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping record store", "error", err)
		os.Exit(1)
	}

	clients, err := gemini.NewClientPool(gemini.ConfigFrom(cfg), cfg.LLM.ClientCacheSize, logger)
	if err != nil {
		logger.Error("failed to create gemini client pool", "error", err)
		os.Exit(1)
	}
	defer clients.Close()

	processor := core.NewProcessor(logger, nil, store, core.WithInterFileDelay(cfg.Extraction.InterFileDelay))

	tracker, err := async.NewTracker(cfg.Queue.History)
	if err != nil {
		logger.Error("failed to create batch tracker", "error", err)
		os.Exit(1)
	}
	queue, err := async.NewProcessorQueue(processor, logger,
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.BatchTimeout),
		async.WithTracker(tracker),
	)
	if err != nil {
		logger.Error("failed to start batch queue", "error", err)
		os.Exit(1)
	}

	api := svc.NewServer(svc.Deps{
		Store:      store,
		Processor:  processor,
		Queue:      queue,
		Extractors: clients,
		Exporter:   export.NewService(store, cfg.Years(), logger),
		Years:      cfg.Years(),
	}, svc.Options{
		MaxUploadMB:    cfg.Server.MaxUploadMB,
		AllowKeyHeader: cfg.Server.AllowKeyHeader,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC health
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := svc.NewGRPCServer()
	go svc.WatchStoreHealth(ctx, healthServer, store, 15*time.Second, logger)

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("arrearsd listening", "addr", cfg.Server.HTTPAddr,
			"years", cfg.Years().String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	queue.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
}
