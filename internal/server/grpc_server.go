// Package server boots the engine's ambient gRPC surface: health
// checking and reflection only. The candidate/match/limiter operations
// are plain Go methods on engine.Engine, consumed directly by whatever
// process embeds this module — there is no business RPC surface here.
package server

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/oggyb/matchengine/internal/config"
)

// StartGRPCServer boots a gRPC server exposing only the standard health
// and reflection services, for readiness probes and grpcurl debugging.
func StartGRPCServer(cfg *config.Config) (*grpc.Server, error) {
	addr := fmt.Sprintf("%s:%s", cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	reflection.Register(grpcServer)

	go func() {
		_ = grpcServer.Serve(lis)
	}()
	return grpcServer, nil
}
