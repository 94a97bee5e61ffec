// Package sessionapi exposes a running live.Updater session over HTTP
// (JSON snapshot/zone reads), WebSocket (streamed snapshots), and gRPC
// (health checking for orchestrators).
package sessionapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"gbmwave/internal/live"
)

// Server hosts the HTTP and gRPC listeners for one session.
type Server struct {
	httpAddr string
	grpcAddr string
	updater  *live.Updater
	log      *slog.Logger

	hub *Hub

	httpSrv   *http.Server
	grpcSrv   *grpc.Server
	healthSrv *health.Server
}

// NewServer creates a Server for updater, listening on httpAddr/grpcAddr.
func NewServer(httpAddr, grpcAddr string, updater *live.Updater, log *slog.Logger) *Server {
	return &Server{
		httpAddr: httpAddr,
		grpcAddr: grpcAddr,
		updater:  updater,
		log:      log,
		hub:      NewHub(updater, log),
	}
}

// ListenAndServe starts the HTTP and gRPC listeners and blocks until ctx
// is cancelled or a fatal listener error occurs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go s.hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/zones", s.handleZones)
	mux.HandleFunc("/ws/snapshots", s.hub.HandleWebSocket)

	s.httpSrv = &http.Server{Addr: s.httpAddr, Handler: mux}

	s.healthSrv = health.NewServer()
	s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.grpcSrv = grpc.NewServer()
	healthpb.RegisterHealthServer(s.grpcSrv, s.healthSrv)
	reflection.Register(s.grpcSrv)

	grpcLis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("sessionapi: grpc listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		s.log.Info("http listening", "addr", s.httpAddr)
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http serve: %w", err)
			return
		}
		errCh <- nil
	}()
	go func() {
		s.log.Info("grpc listening", "addr", s.grpcAddr)
		if err := s.grpcSrv.Serve(grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc serve: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP and gRPC servers.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.healthSrv != nil {
		s.healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	}
	if s.grpcSrv != nil {
		stopped := make(chan struct{})
		go func() {
			s.grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			s.grpcSrv.Stop()
		}
	}
	if s.httpSrv != nil {
		return s.httpSrv.Shutdown(ctx)
	}
	return nil
}
