// Package console keeps the per-session server state of the admin console:
// one list controller per (console id, page). Entries idle longer than the
// TTL are dropped by Sweep.
package console

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoConsole is returned when a request carries no console id.
var ErrNoConsole = errors.New("console: no console id")

type key struct {
	console string
	page    string
}

type entry struct {
	once     sync.Once
	value    any
	err      error
	lastUsed time.Time
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*entry
	ttl     time.Duration
	now     func() time.Time
	log     *zap.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry returns a Registry evicting entries idle for longer than ttl.
func NewRegistry(ttl time.Duration, logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: map[key]*entry{},
		ttl:     ttl,
		now:     time.Now,
		log:     logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Get returns the value stored for (consoleID, page), creating it with
// create on first use. create runs once per entry and outside the registry
// lock, so a slow initial fetch only blocks callers of the same entry. A
// failed create is not cached.
func Get[T any](r *Registry, consoleID, page string, create func() (T, error)) (T, error) {
	var zero T
	if consoleID == "" {
		return zero, ErrNoConsole
	}
	k := key{consoleID, page}

	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok {
		e = &entry{}
		r.entries[k] = e
	}
	e.lastUsed = r.now()
	r.mu.Unlock()

	e.once.Do(func() {
		e.value, e.err = create()
	})
	if e.err != nil {
		r.mu.Lock()
		if r.entries[k] == e {
			delete(r.entries, k)
		}
		r.mu.Unlock()
		return zero, e.err
	}
	v, ok := e.value.(T)
	if !ok {
		return zero, errors.New("console: page " + page + " holds a different type")
	}
	return v, nil
}

// Forget drops every entry of consoleID. Called on sign-out.
func (r *Registry) Forget(consoleID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.entries {
		if k.console == consoleID {
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Sweep drops entries idle for longer than the TTL and reports how many
// were removed.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, k)
			n++
		}
	}
	if n > 0 {
		r.log.Debug("console entries evicted", zap.Int("count", n), zap.Int("remaining", len(r.entries)))
	}
	return n
}

// Len is the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
