package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (a *App) registerHTTP(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.ReadinessRequireDB && a.pool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if a.pool != nil {
			if err := PingDB(r.Context(), a.pool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				a.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))

	a.auth.Register(mux)
}

// Handler returns the full middleware-wrapped HTTP handler.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	a.registerHTTP(mux)

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	return WithRequestLogging(h, a.log)
}
