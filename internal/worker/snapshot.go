package worker

import (
	"context"
	"fmt"

	"walletdash/internal/service"
	"walletdash/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SnapshotWorker periodically re-requests the catalog and, when a wallet is
// selected, its history. It catches up on pushes lost while the broker
// connection was flapping.
type SnapshotWorker struct {
	svc      service.DashboardService
	schedule string
	cron     *cron.Cron
	log      zerolog.Logger
}

func NewSnapshotWorker(svc service.DashboardService, schedule string, log zerolog.Logger) (*SnapshotWorker, error) {
	w := &SnapshotWorker{
		svc:      svc,
		schedule: schedule,
		cron:     cron.New(),
		log:      logger.Component(log, "snapshot-worker"),
	}
	if _, err := w.cron.AddFunc(schedule, func() { w.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("worker: invalid snapshot schedule %q: %w", schedule, err)
	}
	return w, nil
}

// RunOnce performs one refresh round. Nothing is sent while disconnected.
func (w *SnapshotWorker) RunOnce(ctx context.Context) {
	st := w.svc.State()
	if !st.Connected {
		w.log.Debug().Msg("bus disconnected, skipping snapshot refresh")
		return
	}

	if err := w.svc.RefreshCatalog(ctx); err != nil {
		w.log.Warn().Err(err).Msg("catalog refresh failed")
	}
	if st.Selected == "" {
		return
	}
	if err := w.svc.RefetchHistory(ctx); err != nil {
		w.log.Warn().Err(err).Str("wallet", string(st.Selected)).Msg("history refresh failed")
	}
}

// Start implements the infrastructure.Server interface and blocks until ctx
// is cancelled.
func (w *SnapshotWorker) Start(ctx context.Context) error {
	w.cron.Start()
	w.log.Info().Str("schedule", w.schedule).Msg("snapshot worker is running")

	<-ctx.Done()
	return nil
}

// Stop waits for a running refresh to finish.
func (w *SnapshotWorker) Stop(ctx context.Context) error {
	done := w.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
