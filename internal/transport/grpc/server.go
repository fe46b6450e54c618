package grpc

import (
	"context"
	"net"

	"walletdash/internal/bus"
	"walletdash/pkg/logger"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the dashboard core.
const ServiceName = "walletdash.Dashboard"

// Server exposes the standard gRPC health protocol. The dashboard is
// SERVING only while the bus connection is up.
type Server struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
	log    zerolog.Logger
}

func NewServer(addr string, log zerolog.Logger) *Server {
	s := &Server{
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		addr:   addr,
		log:    logger.Component(log, "grpc"),
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.SetBusState(bus.StateDisconnected)
	return s
}

// SetBusState updates the serving status for both the named service and the
// server as a whole.
func (s *Server) SetBusState(state bus.State) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if state == bus.StateConnected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.log.Info().Str("addr", s.addr).Msg("grpc health server listening")
	return s.srv.Serve(lis)
}

func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()
	s.srv.GracefulStop()
	return nil
}
