// Package app wires the shopauth server runtime: config, logging, storage,
// HTTP routes and the periodic refresh-token sweep.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shopauth/cmd/identity"
	"shopauth/cmd/internal/auth/api"
	"shopauth/cmd/internal/auth/session"
	"shopauth/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App is the shopauth server runtime.
type App struct {
	cfg Config
	log Logger

	// nil in in-memory mode
	pool *pgxpool.Pool

	registry *prometheus.Registry
	sessions *session.Service
	auth     *api.Handler
}

// New constructs a fully wired App. Without SHOPAUTH_DATABASE_URL every store
// is in memory and nothing survives a restart.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	hasher, err := NewTokenHasher(cfg)
	if err != nil {
		return nil, err
	}
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	users, store, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	tokens, err := session.NewAccessTokenManager(sessCfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.sessions = session.NewService(sessCfg, store, tokens, hasher,
		session.WithLogger(log),
		session.WithMetrics(session.NewMetrics(a.registry)),
	)

	if err := seedAdmin(ctx, users, pwCfg, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, log); err != nil {
		a.close()
		return nil, err
	}

	a.auth, err = api.NewHandler(log, api.LoadConfigFromEnv(), a.sessions, users, pwCfg)
	if err != nil {
		a.close()
		return nil, err
	}

	log.Info("app.ready",
		"db_enabled", a.pool != nil,
		"token_format", string(sessCfg.TokenFormat),
		"refresh_hmac", hasher.Keyed(),
	)
	return a, nil
}

// openStores decides between Postgres-backed persistence and the in-memory dev stores.
func (a *App) openStores(ctx context.Context) (userStore, session.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.inmemory_store")
		users := identity.NewMemoryStore()
		return users, session.NewMemoryStore(users), nil
	}

	if a.cfg.MigrateOnStart {
		if err := migrate(ctx, a.cfg, a.log); err != nil {
			return nil, nil, err
		}
	}

	pool, err := NewDBPool(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	a.pool = pool

	users, err := identity.NewPostgresStore(pool, identity.WithSchema(a.cfg.DBSchema))
	if err != nil {
		a.close()
		return nil, nil, err
	}
	store, err := session.NewPostgresStore(pool, a.cfg.DBSchema)
	if err != nil {
		a.close()
		return nil, nil, err
	}

	a.log.Info("db.enabled.postgres_store", "schema", a.cfg.DBSchema)
	return users, store, nil
}

// Run starts the HTTP server and the sweeper and blocks until context
// cancellation or a fatal server error.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go runSweeper(sweepCtx, a.sessions, a.cfg.SweepInterval, func() time.Time { return time.Now().UTC() })

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "sweep_interval", a.cfg.SweepInterval.String())

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopSweep()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		a.close()
		return err
	}

	a.close()
	a.log.Info("server.stopped")
	return nil
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
