// Package respond writes the JSON envelopes returned by the console's list
// and wizard endpoints:
//
//	{"success": true, "message": "...", "state": {...}}
package respond

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadmin/internal/app/system/limits"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
)

// Envelope is the body of every console API response.
type Envelope struct {
	notify.Outcome
	State any `json:"state,omitempty"`
	Data  any `json:"data,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Outcome writes o and state. Failed outcomes use failStatus.
func Outcome(w http.ResponseWriter, o notify.Outcome, failStatus int, state any) {
	status := http.StatusOK
	if !o.Success {
		status = failStatus
	}
	JSON(w, status, Envelope{Outcome: o, State: state})
}

// Error writes a failed envelope with msg.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Outcome: notify.Fail(msg)})
}

// ErrBadBody is returned by Decode for malformed request bodies.
var ErrBadBody = errors.New("malformed request body")

// Decode reads the request into dst. JSON bodies are decoded directly;
// form bodies are passed to fromForm. Bodies over limits.MaxRequestBody
// are rejected.
func Decode(r *http.Request, dst any, fromForm func(get func(string) string, all func(string) []string)) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, limits.MaxRequestBody)
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
			return ErrBadBody
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return ErrBadBody
	}
	if fromForm != nil {
		fromForm(func(k string) string { return strings.TrimSpace(r.PostForm.Get(k)) },
			func(k string) []string { return r.PostForm[k] })
	}
	return nil
}
