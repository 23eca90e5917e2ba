// Package api exposes the session endpoints over HTTP: CSRF minting, login,
// refresh, logout, the current principal and the admin expiry sweep.
//
// Browsers carry every credential in cookies; all responses use the
// {"success": ...} envelope.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"shopauth/cmd/identity"
	"shopauth/cmd/internal/auth/authz"
	"shopauth/cmd/internal/auth/cookies"
	"shopauth/cmd/internal/auth/csrf"
	"shopauth/cmd/internal/auth/session"
	"shopauth/cmd/internal/httpjson"
	"shopauth/cmd/security/password"
)

// Route paths.
const (
	PathCSRF    = "/auth/csrf"
	PathLogin   = "/auth/login"
	PathRefresh = "/auth/refresh"
	PathLogout  = "/auth/logout"
	PathMe      = "/auth/me"
	PathSweep   = "/admin/sessions/sweep"
)

const (
	msgBadRequest         = "Invalid request body."
	msgMissingCredentials = "Email and password are required."
	msgBadCredentials     = "Invalid email or password."
	msgInvalidRefresh     = "Invalid refresh token."
	msgRefreshTimeout     = "Session refresh timed out. Please retry."
	msgUnavailable        = "Service temporarily unavailable."
	msgInternal           = "Internal server error."
	msgMethodNotAllowed   = "Method not allowed."
)

// Handler wires HTTP auth endpoints to the session and identity services.
type Handler struct {
	log *slog.Logger
	cfg Config

	sessions  *session.Service
	users     identity.Directory
	passwords password.Config

	gate *authz.Gate
	csrf *csrf.Guard

	now func() time.Time
}

// NewHandler constructs a Handler. Every mutating route, login included,
// sits behind the CSRF guard; clients fetch a token from PathCSRF first.
func NewHandler(log *slog.Logger, cfg Config, sessions *session.Service, users identity.Directory, passwords password.Config) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("auth: nil session service")
	}
	if users == nil {
		return nil, errors.New("auth: nil user directory")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}

	return &Handler{
		log:       log,
		cfg:       cfg,
		sessions:  sessions,
		users:     users,
		passwords: passwords,
		gate:      authz.NewGate(sessions, users, log),
		csrf:      csrf.NewGuard(cfg.Cookies, log),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Gate returns the authorization gate so other route groups can share it.
func (h *Handler) Gate() *authz.Gate { return h.gate }

// Routes returns the auth routes behind the CSRF guard.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(PathCSRF, h.handleCSRF)
	mux.HandleFunc(PathLogin, h.handleLogin)
	mux.HandleFunc(PathRefresh, h.handleRefresh)
	mux.HandleFunc(PathLogout, h.handleLogout)
	mux.Handle(PathMe, h.gate.Require("")(http.HandlerFunc(h.handleMe)))
	mux.Handle(PathSweep, h.gate.Require(identity.RoleAdmin)(http.HandlerFunc(h.handleSweep)))
	return h.csrf.Middleware(mux)
}

// Register mounts the auth routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	routes := h.Routes()
	mux.Handle("/auth/", routes)
	mux.Handle("/admin/", routes)
}

// ---- handlers ----

func (h *Handler) handleCSRF(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	tok, err := h.ensureCSRF(w, r)
	if err != nil {
		h.log.Error("auth.csrf.issue.fail", "err", err)
		httpjson.Fail(w, http.StatusInternalServerError, msgInternal)
		return
	}
	httpjson.OK(w, http.StatusOK, csrfResponse{CSRFToken: tok})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.Fail(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		httpjson.Fail(w, http.StatusBadRequest, msgMissingCredentials)
		return
	}

	ctx := r.Context()
	creds, err := h.users.CredentialsByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			h.passwords.VerifyUnknown(req.Password)
			httpjson.Fail(w, http.StatusUnauthorized, msgBadCredentials)
			return
		}
		h.log.Error("auth.login.lookup.fail", "err", err)
		httpjson.Fail(w, http.StatusInternalServerError, msgInternal)
		return
	}

	ok, err := h.passwords.Verify(creds.PasswordHash, req.Password)
	if err != nil {
		h.log.Error("auth.login.verify.fail", "err", err, "principal_id", creds.Principal.ID)
	}
	if err != nil || !ok {
		httpjson.Fail(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	issued, err := h.sessions.Login(ctx, creds.Principal, h.now())
	if err != nil {
		h.writeStoreError(w, "auth.login.issue.fail", err)
		return
	}
	h.setSessionCookies(w, issued)
	h.log.Info("auth.login.success", "principal_id", issued.Principal.ID)
	httpjson.OK(w, http.StatusOK, sessionResponse{
		User:            toUserResponse(issued.Principal),
		AccessExpiresAt: issued.AccessExp,
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	raw := cookies.Value(r, cookies.Refresh)
	if raw == "" {
		h.cfg.Cookies.ClearSession(w)
		httpjson.Fail(w, http.StatusUnauthorized, authz.MsgUnauthenticated)
		return
	}

	issued, err := h.sessions.Rotate(r.Context(), raw, h.now())
	if err != nil {
		// The rotation rolled back, so the presented token is still valid
		// and the client keeps its cookies to retry.
		if errors.Is(err, context.DeadlineExceeded) {
			h.log.Warn("auth.refresh.timeout")
			w.Header().Set("Retry-After", "1")
			httpjson.Fail(w, http.StatusServiceUnavailable, msgRefreshTimeout)
			return
		}
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			h.cfg.Cookies.ClearSession(w)
			httpjson.Fail(w, http.StatusUnauthorized, msgInvalidRefresh)
			return
		}
		h.writeStoreError(w, "auth.refresh.fail", err)
		return
	}

	h.setSessionCookies(w, issued)
	httpjson.OK(w, http.StatusOK, sessionResponse{
		User:            toUserResponse(issued.Principal),
		AccessExpiresAt: issued.AccessExp,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	err := h.sessions.Logout(r.Context(), cookies.Value(r, cookies.Refresh))
	h.cfg.Cookies.ClearSession(w)
	if err != nil {
		h.writeStoreError(w, "auth.logout.fail", err)
		return
	}
	httpjson.OK(w, http.StatusOK, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}
	p, ok := authz.PrincipalFromContext(r.Context())
	if !ok {
		httpjson.Fail(w, http.StatusUnauthorized, authz.MsgUnauthenticated)
		return
	}
	httpjson.OK(w, http.StatusOK, toUserResponse(p))
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}
	n, err := h.sessions.CleanupExpired(r.Context(), h.now())
	if err != nil {
		h.writeStoreError(w, "auth.sweep.fail", err)
		return
	}
	httpjson.OK(w, http.StatusOK, sweepResponse{Removed: n})
}

// ---- helpers ----

// ensureCSRF returns the caller's existing CSRF token or mints one.
func (h *Handler) ensureCSRF(w http.ResponseWriter, r *http.Request) (string, error) {
	if tok := cookies.Value(r, cookies.CSRF); tok != "" {
		return tok, nil
	}
	return h.csrf.Issue(w)
}

func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	h.cfg.Cookies.SetAccess(w, issued.AccessToken)
	h.cfg.Cookies.SetRefresh(w, issued.RefreshToken)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, event string, err error) {
	if errors.Is(err, session.ErrTransientStore) {
		h.log.Warn(event, "err", err)
		httpjson.Fail(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	h.log.Error(event, "err", err)
	httpjson.Fail(w, http.StatusInternalServerError, msgInternal)
}

func allowMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	httpjson.Fail(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	return false
}
