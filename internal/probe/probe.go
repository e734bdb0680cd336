// Package probe exposes the standard gRPC health service so orchestrators can
// check the API without speaking HTTP.
package probe

import (
	"context"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Service is the name reported alongside the overall ("") status.
const Service = "clinic.BookingAPI"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	srv      *grpc.Server
	health   *health.Server
	pinger   Pinger
	logger   *logrus.Logger
	interval time.Duration
}

func New(p Pinger, logger *logrus.Logger, interval time.Duration) *Server {
	s := &Server{
		srv:      grpc.NewServer(),
		health:   health.NewServer(),
		pinger:   p,
		logger:   logger,
		interval: interval,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(Service, st)
}

// Check pings the store once and publishes the result.
func (s *Server) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("probe: store unreachable")
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
	return true
}

// Run checks immediately and then every interval until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.Check(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Check(ctx)
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.WithField("addr", lis.Addr().String()).Info("grpc health probe listening")
	return s.srv.Serve(lis)
}

// Stop reports NOT_SERVING to watchers and drains the server.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
