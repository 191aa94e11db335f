package grpc

import (
	"fmt"
	"net"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter serves the standard gRPC health service so collaborators
// can observe whether the tracker currently reaches its emulator.
type HealthReporter struct {
	listener net.Listener
	server   *gogrpc.Server
	health   *health.Server

	serveErr chan error
	stopOnce sync.Once
}

// ListenHealth binds addr and registers a health service. The overall ("")
// status starts SERVING; named services start NOT_SERVING until reported.
func ListenHealth(addr string, services ...string) (*HealthReporter, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("health address is required")
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on health address %s: %w", addr, err)
	}

	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &HealthReporter{
		listener: listener,
		server:   server,
		health:   healthServer,
		serveErr: make(chan error, 1),
	}, nil
}

// Addr returns the bound listener address.
func (r *HealthReporter) Addr() net.Addr {
	if r == nil || r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Start serves in the background until Stop.
func (r *HealthReporter) Start() {
	if r == nil {
		return
	}
	go func() {
		r.serveErr <- r.server.Serve(r.listener)
	}()
}

// SetServing publishes the status of one named service.
func (r *HealthReporter) SetServing(service string, serving bool) {
	if r == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	r.health.SetServingStatus(service, status)
}

// Stop marks every service NOT_SERVING and stops the server gracefully.
func (r *HealthReporter) Stop() {
	if r == nil {
		return
	}
	r.stopOnce.Do(func() {
		r.health.Shutdown()
		r.server.GracefulStop()
		select {
		case <-r.serveErr:
		default:
		}
	})
}
