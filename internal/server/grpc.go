package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

// ServiceName is the health service name reported alongside the overall "" status.
const ServiceName = "pbb.arrears.v1"

// NewGRPCServer returns a gRPC server carrying only the standard health service.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	gs := grpc.NewServer()
	hs := health.NewServer()
	grpc_health_v1.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return gs, hs
}

// WatchStoreHealth flips ServiceName between SERVING and NOT_SERVING as the
// record store answers pings. It returns when ctx is done.
func WatchStoreHealth(ctx context.Context, hs *health.Server, store repository.RecordStore, interval time.Duration, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		updateStoreHealth(ctx, hs, store, logger)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func updateStoreHealth(ctx context.Context, hs *health.Server, store repository.RecordStore, logger *slog.Logger) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := repository.HealthCheck(ctx, store, 2*time.Second, logger); err != nil {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(ServiceName, status)
}
