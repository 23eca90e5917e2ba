package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// prettyHandler renders one key=value line per record for local development.
// Request fields (method, status, duration) are coloured by value.
type prettyHandler struct {
	w      io.Writer
	opts   slog.HandlerOptions
	attrs  []slog.Attr
	groups []string
	color  bool
	mu     *sync.Mutex
}

func newPrettyHandler(w io.Writer, opts *slog.HandlerOptions, color bool) slog.Handler {
	h := &prettyHandler{
		w:     w,
		color: color,
		mu:    &sync.Mutex{},
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString("ts=")
	b.WriteString(applyDim(ts.Format("15:04:05.000"), h.color))
	b.WriteByte(' ')
	b.WriteString("lvl=")
	b.WriteString(levelTag(r.Level, h.color))
	b.WriteByte(' ')
	b.WriteString("msg=")
	b.WriteString(applyBold(r.Message, h.color))

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		frame, _ := frames.Next()
		if frame.File != "" {
			b.WriteByte(' ')
			b.WriteString("src=")
			b.WriteString(applyDim(fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line), h.color))
		}
	}

	for _, a := range h.attrs {
		h.appendAttr(&b, a, "")
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, a, "")
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cp := *h
	cp.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &cp
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if strings.TrimSpace(name) == "" {
		return h
	}
	cp := *h
	cp.groups = append(append([]string{}, h.groups...), name)
	return &cp
}

func (h *prettyHandler) appendAttr(b *strings.Builder, a slog.Attr, parent string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := strings.TrimSpace(a.Key)
	if key == "" {
		return
	}

	fullKey := key
	if parent != "" {
		fullKey = parent + "." + key
	}
	if len(h.groups) > 0 {
		fullKey = strings.Join(h.groups, ".") + "." + fullKey
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, ga, fullKey)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(remapPrettyKey(fullKey))
	b.WriteByte('=')
	b.WriteString(h.prettyValue(fullKey, a.Value))
}

func (h *prettyHandler) prettyValue(key string, v slog.Value) string {
	trimmedKey := strings.TrimSpace(key)

	switch trimmedKey {
	case "method":
		return colorizeHTTPMethod(strings.ToUpper(strings.TrimSpace(v.String())), h.color)
	case "path":
		return paint(strings.TrimSpace(v.String()), ansiCyan, h.color)
	case "status":
		if n, ok := valueToInt64(v); ok {
			return colorizeStatusCode(int(n), h.color)
		}
	case "status_class", "class":
		return colorizeStatusClass(strings.TrimSpace(v.String()), h.color)
	case "duration_ms":
		if n, ok := valueToInt64(v); ok {
			return colorizeDurationMS(n, h.color)
		}
	case "result":
		return colorizeResult(strings.ToLower(strings.TrimSpace(v.String())), h.color)
	}

	plain := valueToString(v)
	return quoteIfNeeded(plain)
}

func remapPrettyKey(k string) string {
	switch k {
	case "status_class":
		return "class"
	case "duration_ms":
		return "duration"
	default:
		return k
	}
}

func valueToString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return fmt.Sprint(v.Any())
	}
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func levelTag(level slog.Level, color bool) string {
	switch {
	case level >= slog.LevelError:
		if color {
			return ansiRed + "[ERROR]" + ansiReset
		}
		return "[ERROR]"
	case level >= slog.LevelWarn:
		if color {
			return ansiYellow + "[WARN]" + ansiReset
		}
		return "[WARN]"
	case level < slog.LevelInfo:
		if color {
			return ansiMagenta + "[DEBUG]" + ansiReset
		}
		return "[DEBUG]"
	default:
		if color {
			return ansiBlue + "[INFO]" + ansiReset
		}
		return "[INFO]"
	}
}

func applyDim(s string, color bool) string { return paint(s, ansiDim, color) }

func applyBold(s string, color bool) string { return paint(s, ansiBright, color) }

const (
	ansiReset   = "\x1b[0m"
	ansiBright  = "\x1b[1m"
	ansiDim     = "\x1b[2m"
	ansiRed     = "\x1b[31m"
	ansiGreen   = "\x1b[32m"
	ansiYellow  = "\x1b[33m"
	ansiBlue    = "\x1b[34m"
	ansiMagenta = "\x1b[35m"
	ansiCyan    = "\x1b[36m"
)

func paint(s, code string, color bool) string {
	if !color || code == "" {
		return s
	}
	return code + s + ansiReset
}

func colorizeHTTPMethod(m string, color bool) string {
	switch m {
	case "GET", "HEAD", "OPTIONS":
		return paint(m, ansiGreen, color)
	case "POST":
		return paint(m, ansiBlue, color)
	case "PUT", "PATCH":
		return paint(m, ansiYellow, color)
	case "DELETE":
		return paint(m, ansiRed, color)
	default:
		return paint(m, ansiMagenta, color)
	}
}

func colorizeStatusCode(code int, color bool) string {
	return paint(strconv.Itoa(code), statusColor(code), color)
}

func colorizeStatusClass(class string, color bool) string {
	switch class {
	case "2xx":
		return paint(class, ansiGreen, color)
	case "3xx":
		return paint(class, ansiCyan, color)
	case "4xx":
		return paint(class, ansiYellow, color)
	case "5xx":
		return paint(class, ansiRed, color)
	default:
		return class
	}
}

func statusColor(code int) string {
	switch {
	case code >= 500:
		return ansiRed
	case code >= 400:
		return ansiYellow
	case code >= 300:
		return ansiCyan
	default:
		return ansiGreen
	}
}

func colorizeDurationMS(ms int64, color bool) string {
	s := strconv.FormatInt(ms, 10) + "ms"
	switch {
	case ms >= 1000:
		return paint(s, ansiRed, color)
	case ms >= 250:
		return paint(s, ansiYellow, color)
	default:
		return paint(s, ansiDim, color)
	}
}

func colorizeResult(result string, color bool) string {
	switch result {
	case "success":
		return paint(result, ansiGreen, color)
	case "redirect":
		return paint(result, ansiCyan, color)
	case "client_error":
		return paint(result, ansiYellow, color)
	case "server_error":
		return paint(result, ansiRed, color)
	default:
		return result
	}
}

func valueToInt64(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		u := v.Uint64()
		if u > 1<<62 {
			return 0, false
		}
		return int64(u), true
	case slog.KindFloat64:
		return int64(v.Float64()), true
	default:
		return 0, false
	}
}

// stripANSI removes SGR escape sequences.
func stripANSI(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b && i+1 < len(s) && s[i+1] == '[' {
			j := i + 2
			for j < len(s) && s[j] != 'm' {
				j++
			}
			i = j
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
