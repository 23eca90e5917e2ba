package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/cors"
)

// WithRequestLogging wraps an http.Handler and logs one line per request.
// The level follows the status class: 5xx error, 4xx warn, the rest info.
func WithRequestLogging(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			status:         http.StatusOK,
		}

		next.ServeHTTP(lrw, r)

		level, result := requestLogMeta(lrw.status)
		log.Log(r.Context(), level, "http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.status,
			"status_class", statusClass(lrw.status),
			"result", result,
			"bytes", lrw.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote", r.RemoteAddr,
		)
	})
}

func requestLogMeta(status int) (slog.Level, string) {
	switch {
	case status >= 500:
		return slog.LevelError, "server_error"
	case status >= 400:
		return slog.LevelWarn, "client_error"
	case status >= 300:
		return slog.LevelInfo, "redirect"
	default:
		return slog.LevelInfo, "success"
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *loggingResponseWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// WithCORS admits browser clients from cfg.CORSAllowedOrigins with
// credentials, so the session cookies travel cross-origin. Requests carrying
// an Origin outside the list are rejected with 403. With no origins
// configured the handler is returned unchanged.
func WithCORS(next http.Handler, cfg Config, log *slog.Logger) http.Handler {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return next
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           cfg.CORSMaxAgeSeconds,
	})
	wrapped := c.Handler(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Origin") != "" && !c.OriginAllowed(r) {
			log.Warn("http.cors.denied", "origin", r.Header.Get("Origin"), "path", r.URL.Path)
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		wrapped.ServeHTTP(w, r)
	})
}

// WithSecurityHeaders sets conservative response headers for an API that
// serves no HTML.
func WithSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}
