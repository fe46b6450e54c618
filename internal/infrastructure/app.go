package infrastructure

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server is anything App runs: Start blocks until ctx is cancelled, Stop
// releases its resources.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	servers []Server
	log     zerolog.Logger
}

func NewApp(servers []Server, log zerolog.Logger) *App {
	return &App{servers: servers, log: log}
}

func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range a.servers {
		s := srv
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	<-ctx.Done()
	a.log.Info().Int("servers", len(a.servers)).Msg("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range a.servers {
		if err := srv.Stop(stopCtx); err != nil {
			a.log.Warn().Err(err).Msg("server did not stop cleanly")
		}
	}

	return g.Wait()
}
