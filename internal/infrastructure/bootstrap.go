package infrastructure

import (
	"context"
	"fmt"

	"walletdash/internal/bus"
	"walletdash/internal/config"
	"walletdash/internal/correlation"
	"walletdash/internal/repository"
	"walletdash/internal/service"
	"walletdash/internal/session"
	"walletdash/internal/topic"
	transportGRPC "walletdash/internal/transport/grpc"
	transportHTTP "walletdash/internal/transport/http"
	transportNATS "walletdash/internal/transport/nats"
	"walletdash/internal/worker"

	"github.com/rs/zerolog"
)

// Bootstrap initialises all dependencies from config and wires up the application.
// Returns the App, a cleanup function, or an error.
func Bootstrap(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, func(), error) {
	var cleanupFns []func()

	selection, err := newSelectionStore(ctx, cfg, &cleanupFns)
	if err != nil {
		return nil, nil, err
	}

	// ── Core wiring ────────────────────────────────────────────────────────────
	b, err := connectNats(cfg, log)
	if err != nil {
		return nil, runCleanup(cleanupFns), err
	}
	cleanupFns = append(cleanupFns, b.Close)

	topics := topic.New(cfg.TopicPrefix)
	engine := correlation.New(b, cfg.RequestTimeout(), log)
	store := session.NewStore(log)
	dash := service.NewDashboard(b, engine, store, topics, selection, service.Options{
		Email:          cfg.IdentityEmail,
		MinTransfer:    int64(cfg.MinTransfer),
		RequestTimeout: cfg.RequestTimeout(),
	}, log)

	// ── Servers ────────────────────────────────────────────────────────────────
	var servers []Server
	inbound := stateFanout{Dashboard: dash}

	if addr, grpcErr := cfg.GRPCAddr(); grpcErr == nil {
		healthSrv := transportGRPC.NewServer(addr, log)
		inbound.health = healthSrv
		servers = append(servers, healthSrv)
	}

	servers = append(servers, transportNATS.NewHandler(b, inbound, log))

	if addr, apiErr := cfg.ApiAddr(); apiErr == nil {
		hub := transportHTTP.NewHub(log)
		store.OnChange(func(st session.State) { hub.Broadcast("state", st) })
		dash.OnNotice(func(n service.Notice) { hub.Broadcast("notice", n) })
		servers = append(servers, transportHTTP.NewServer(addr, dash, hub, log))
	} else {
		log.Info().Msg(apiErr.Error())
	}

	if cfg.SnapshotEnabled() {
		w, err := worker.NewSnapshotWorker(dash, cfg.SnapshotSchedule, log)
		if err != nil {
			return nil, runCleanup(cleanupFns), err
		}
		servers = append(servers, w)
	}

	return NewApp(servers, log), runCleanup(cleanupFns), nil
}

func newSelectionStore(ctx context.Context, cfg *config.Config, cleanupFns *[]func()) (repository.SelectionStore, error) {
	switch cfg.StoreProvider {
	case config.StoreRedis:
		rdb, err := connectRedis(ctx, cfg.RedisAddr())
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		*cleanupFns = append(*cleanupFns, func() { _ = rdb.Close() })
		return repository.NewRedisSelectionStore(rdb, cfg.IdentityEmail), nil
	case config.StorePostgres:
		db, err := connectPostgres(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		*cleanupFns = append(*cleanupFns, db.Close)
		return repository.NewPostgresSelectionStore(db, cfg.IdentityEmail), nil
	default:
		return repository.NewMemorySelectionStore(), nil
	}
}

// stateFanout forwards connection transitions to the health endpoint as well
// as the dashboard.
type stateFanout struct {
	*service.Dashboard
	health *transportGRPC.Server
}

func (f stateFanout) HandleState(ctx context.Context, s bus.State) {
	f.Dashboard.HandleState(ctx, s)
	if f.health != nil {
		f.health.SetBusState(s)
	}
}

// runCleanup returns a single function that calls all cleanup functions in reverse order.
func runCleanup(fns []func()) func() {
	return func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	}
}
