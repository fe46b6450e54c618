package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"walletdash/internal/service"

	"github.com/rs/zerolog"
)

type Server struct {
	srv *http.Server
	hub *Hub
	log zerolog.Logger
}

func NewServer(addr string, svc service.DashboardService, hub *Hub, log zerolog.Logger) *Server {
	mux := http.NewServeMux()
	h := NewHandler(svc, hub, log)
	h.Register(mux)

	return &Server{
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
			// Correlated actions may wait for the full request timeout.
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		hub: hub,
		log: log,
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	// Hijacked websocket connections are not tracked by Shutdown.
	if s.hub != nil {
		s.hub.Close()
	}
	return s.srv.Shutdown(ctx)
}
