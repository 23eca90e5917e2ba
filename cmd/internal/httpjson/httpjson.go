// Package httpjson writes the {"success": ...} JSON envelope shared by every
// shopauth endpoint and decodes bounded request bodies.
package httpjson

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Envelope is the response body for every JSON endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Write encodes v with status. Responses are never cached.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes {"success": true, "data": data}.
func OK(w http.ResponseWriter, status int, data any) {
	Write(w, status, Envelope{Success: true, Data: data})
}

// Fail writes {"success": false, "error": msg}.
func Fail(w http.ResponseWriter, status int, msg string) {
	Write(w, status, Envelope{Success: false, Error: msg})
}

// Decode reads exactly one JSON value of at most maxBytes into dst.
func Decode(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
