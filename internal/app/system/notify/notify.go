// Package notify carries the {success, message} outcomes that list and wizard
// controllers hand to the UI layer. Rendering toasts is the caller's job;
// this package only delivers outcomes to whoever is listening.
package notify

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/sessions"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Outcome is the result of a controller operation as shown to a user.
type Outcome struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// OK returns a successful Outcome.
func OK(msg string) Outcome { return Outcome{Success: true, Message: msg} }

// Fail returns a failed Outcome.
func Fail(msg string) Outcome { return Outcome{Success: false, Message: msg} }

// Notifier receives outcomes.
type Notifier interface {
	Notify(o Outcome)
}

// Func adapts a function to Notifier.
type Func func(Outcome)

// Notify calls f(o).
func (f Func) Notify(o Outcome) { f(o) }

// Nop discards outcomes.
var Nop Notifier = Func(func(Outcome) {})

// Zap logs outcomes. Failures are logged at warn level.
type Zap struct {
	Log    *zap.Logger
	Source string
}

// Notify implements Notifier.
func (z Zap) Notify(o Outcome) {
	if z.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("source", z.Source),
		zap.Bool("success", o.Success),
		zap.String("message", o.Message),
	}
	if o.Success {
		z.Log.Debug("outcome", fields...)
		return
	}
	z.Log.Warn("outcome", fields...)
}

// Multi fans an outcome out to several notifiers.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(o Outcome) {
	for _, n := range m {
		if n != nil {
			n.Notify(o)
		}
	}
}

// Recorder keeps every outcome it receives. Used by tests and by request
// scoped handlers that return the collected outcomes in their response.
type Recorder struct {
	mu       sync.Mutex
	outcomes []Outcome
}

// Notify implements Notifier.
func (r *Recorder) Notify(o Outcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

// Outcomes returns a copy of the recorded outcomes.
func (r *Recorder) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Last returns the most recent outcome.
func (r *Recorder) Last() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.outcomes) == 0 {
		return Outcome{}, false
	}
	return r.outcomes[len(r.outcomes)-1], true
}

const flashKey = "_outcome"

// Flash stores outcome messages as session flashes so the next page render
// can show them as toasts. Messages are stripped of markup before storage.
type Flash struct {
	Store   sessions.Store
	Session string
	W       http.ResponseWriter
	R       *http.Request
	Log     *zap.Logger
}

var strict = bluemonday.StrictPolicy()

// Notify implements Notifier.
func (f Flash) Notify(o Outcome) {
	if f.Store == nil || o.Message == "" {
		return
	}
	sess, err := f.Store.Get(f.R, f.Session)
	if err != nil && f.Log != nil {
		f.Log.Warn("flash: session decode failed; starting fresh", zap.Error(err))
	}
	kind := "error"
	if o.Success {
		kind = "success"
	}
	sess.AddFlash(kind+":"+strict.Sanitize(o.Message), flashKey)
	if err := sess.Save(f.R, f.W); err != nil && f.Log != nil {
		f.Log.Warn("flash: session save failed", zap.Error(err))
	}
}

// PopFlashes returns and clears pending flash outcomes for the request.
func PopFlashes(store sessions.Store, name string, w http.ResponseWriter, r *http.Request) []Outcome {
	sess, err := store.Get(r, name)
	if err != nil {
		return nil
	}
	raw := sess.Flashes(flashKey)
	if len(raw) == 0 {
		return nil
	}
	_ = sess.Save(r, w)
	out := make([]Outcome, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if msg, ok := strings.CutPrefix(s, "success:"); ok {
			out = append(out, OK(msg))
			continue
		}
		out = append(out, Fail(strings.TrimPrefix(s, "error:")))
	}
	return out
}
