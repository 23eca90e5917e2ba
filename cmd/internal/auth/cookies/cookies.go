// Package cookies is the browser wire contract for shopauth sessions.
//
//	access-token   Path=/  HttpOnly      Max-Age=86400
//	refresh-token  Path=/  HttpOnly      Max-Age=2592000
//	csrf-token     Path=/  (readable)    Max-Age=604800
//
// Clearing a cookie repeats its path and flags with Max-Age=0.
package cookies

import (
	"net/http"
	"strings"
	"time"
)

// Cookie names.
const (
	Access  = "access-token"
	Refresh = "refresh-token"
	CSRF    = "csrf-token"
)

// Lifetimes.
const (
	AccessMaxAge  = 24 * time.Hour
	RefreshMaxAge = 30 * 24 * time.Hour
	CSRFMaxAge    = 7 * 24 * time.Hour
)

const path = "/"

// Policy carries the deployment-dependent attributes.
type Policy struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// DefaultPolicy is Secure with SameSite=Lax.
func DefaultPolicy() Policy {
	return Policy{Secure: true, SameSite: http.SameSiteLaxMode}
}

// ParseSameSite maps "lax", "strict" or "none" to http.SameSite.
func ParseSameSite(s string) (http.SameSite, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, true
	case "strict":
		return http.SameSiteStrictMode, true
	case "none":
		return http.SameSiteNoneMode, true
	default:
		return http.SameSiteDefaultMode, false
	}
}

func httpOnly(name string) bool {
	return name != CSRF
}

func (p Policy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   p.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly(name),
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// SetAccess writes the access-token cookie.
func (p Policy) SetAccess(w http.ResponseWriter, value string) {
	http.SetCookie(w, p.cookie(Access, value, int(AccessMaxAge.Seconds())))
}

// SetRefresh writes the refresh-token cookie.
func (p Policy) SetRefresh(w http.ResponseWriter, value string) {
	http.SetCookie(w, p.cookie(Refresh, value, int(RefreshMaxAge.Seconds())))
}

// SetCSRF writes the csrf-token cookie. It is readable by page scripts.
func (p Policy) SetCSRF(w http.ResponseWriter, value string) {
	http.SetCookie(w, p.cookie(CSRF, value, int(CSRFMaxAge.Seconds())))
}

// Clear expires name immediately. net/http serialises MaxAge<0 as Max-Age=0.
func (p Policy) Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, p.cookie(name, "", -1))
}

// ClearSession expires the access and refresh cookies. The CSRF cookie is kept.
func (p Policy) ClearSession(w http.ResponseWriter) {
	p.Clear(w, Access)
	p.Clear(w, Refresh)
}

// Value returns the value of cookie name as sent, or "" when absent.
func Value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
