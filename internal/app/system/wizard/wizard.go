// Package wizard implements the linear multi-step form controller used by
// creation flows. Step 1 creates an entity; later steps edit it by id and are
// unreachable until it exists. Progress is persisted to a ProgressStore so a
// reload resumes on the same step.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"go.uber.org/zap"
)

var (
	// ErrNoSteps is returned when a flow is defined without steps.
	ErrNoSteps = errors.New("wizard: flow needs at least one step")
	// ErrNamespaceTaken is returned when two flows share a key namespace.
	ErrNamespaceTaken = errors.New("wizard: namespace already defined")
	// ErrDuplicateStep is returned when a flow lists the same step twice.
	ErrDuplicateStep = errors.New("wizard: duplicate step id")
	// ErrNoEntity is reported when step 1 succeeds without returning an id.
	ErrNoEntity = errors.New("wizard: first step did not return an entity id")
)

// ProgressStore is durable, session-scoped key/value storage. It must
// survive a full page reload.
type ProgressStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Flow is the definition of one kind of wizard.
type Flow struct {
	Namespace string
	Steps     []string
}

// StepKey is the ProgressStore key holding the current step.
func (f Flow) StepKey() string { return f.Namespace + ".step" }

// EntityKey is the ProgressStore key holding the created entity id.
func (f Flow) EntityKey() string { return f.Namespace + ".entityId" }

func (f Flow) index(step string) int {
	for i, s := range f.Steps {
		if s == step {
			return i
		}
	}
	return -1
}

// Registry holds every flow of the application and keeps their key
// namespaces distinct.
type Registry struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{flows: map[string]Flow{}}
}

// Define registers a flow under namespace with the ordered step ids.
func (r *Registry) Define(namespace string, steps ...string) (Flow, error) {
	if len(steps) == 0 {
		return Flow{}, fmt.Errorf("%w: %q", ErrNoSteps, namespace)
	}
	seen := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		if _, dup := seen[s]; dup {
			return Flow{}, fmt.Errorf("%w: %q in %q", ErrDuplicateStep, s, namespace)
		}
		seen[s] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.flows[namespace]; taken {
		return Flow{}, fmt.Errorf("%w: %q", ErrNamespaceTaken, namespace)
	}
	f := Flow{Namespace: namespace, Steps: append([]string(nil), steps...)}
	r.flows[namespace] = f
	return f, nil
}

// Lookup returns the flow registered under namespace.
func (r *Registry) Lookup(namespace string) (Flow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[namespace]
	return f, ok
}

// StepFunc submits one step. entityID is empty on step 1 before creation;
// step 1 returns the id of the entity it created.
type StepFunc func(ctx context.Context, step, entityID string) (createdID string, err error)

// StepState describes one step for rendering a step indicator.
type StepState struct {
	ID      string `json:"id"`
	Current bool   `json:"current"`
	Enabled bool   `json:"enabled"`
}

// State is a read-only view of a Controller.
type State struct {
	Namespace   string      `json:"namespace"`
	CurrentStep string      `json:"current_step"`
	EntityID    string      `json:"entity_id,omitempty"`
	Steps       []StepState `json:"steps"`
}

// Controller drives one wizard instance. It is safe for concurrent use.
type Controller struct {
	flow     Flow
	store    ProgressStore
	log      *zap.Logger
	notifier notify.Notifier

	mu       sync.Mutex
	current  int
	entityID string
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for ProgressStore failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNotifier sets the notifier that receives Submit outcomes.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// New returns a Controller for flow on its first step. Call ResumeOrStart
// to pick up persisted progress.
func New(flow Flow, store ProgressStore, opts ...Option) (*Controller, error) {
	if len(flow.Steps) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSteps, flow.Namespace)
	}
	c := &Controller{
		flow:     flow,
		store:    store,
		log:      zap.NewNop(),
		notifier: notify.Nop,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ResumeOrStart restores the persisted step when both the step and the
// entity marker are present; otherwise the wizard starts fresh on step 1.
// Store failures count as nothing persisted.
func (c *Controller) ResumeOrStart(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current, c.entityID = 0, ""

	step, okStep, err := c.store.Get(ctx, c.flow.StepKey())
	if err != nil {
		c.storeFailed("get", c.flow.StepKey(), err)
		return c.flow.Steps[0]
	}
	id, okID, err := c.store.Get(ctx, c.flow.EntityKey())
	if err != nil {
		c.storeFailed("get", c.flow.EntityKey(), err)
		return c.flow.Steps[0]
	}
	if !okStep || !okID || id == "" {
		return c.flow.Steps[0]
	}
	idx := c.flow.index(step)
	if idx < 0 {
		c.log.Warn("wizard: persisted step not in flow; starting fresh",
			zap.String("namespace", c.flow.Namespace),
			zap.String("step", step))
		return c.flow.Steps[0]
	}
	c.current, c.entityID = idx, id
	return step
}

// CurrentStep returns the current step id.
func (c *Controller) CurrentStep() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flow.Steps[c.current]
}

// EntityID returns the created entity id, if any.
func (c *Controller) EntityID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entityID, c.entityID != ""
}

// CanGoTo reports whether GoToStep(step) would be allowed.
func (c *Controller) CanGoTo(step string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canGoTo(c.flow.index(step))
}

// GoToStep moves to step. Without an entity only step 1 is reachable;
// anything else is a no-op and reports false.
func (c *Controller) GoToStep(ctx context.Context, step string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.flow.index(step)
	if !c.canGoTo(idx) {
		return false
	}
	if idx == c.current {
		return true
	}
	c.current = idx
	c.persistStep(ctx)
	return true
}

// Advance moves to the next step and persists it. It reports false on the
// last step or before the entity exists.
func (c *Controller) Advance(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.advance(ctx)
}

// OnEntityCreated records the entity created by step 1. Only the first call
// takes effect.
func (c *Controller) OnEntityCreated(ctx context.Context, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entityCreated(ctx, id)
}

// Teardown forgets all progress, in memory and in the store.
func (c *Controller) Teardown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardown(ctx)
}

// Complete ends the wizard after the final step succeeded.
func (c *Controller) Complete(ctx context.Context) {
	c.Teardown(ctx)
}

// Abandon handles back navigation away from the wizard. Progress is cleared
// only when an entity exists, so a fresh "add" flow never resumes a stale
// session. It reports whether anything was cleared.
func (c *Controller) Abandon(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entityID == "" {
		return false
	}
	c.teardown(ctx)
	return true
}

// Submit runs the submit function of the current step and applies the
// success transitions: step 1 records the created entity, the final step
// completes the wizard, every other step advances. A failed submit leaves
// the wizard and the store untouched.
func (c *Controller) Submit(ctx context.Context, fn StepFunc) notify.Outcome {
	c.mu.Lock()
	idx, entity := c.current, c.entityID
	c.mu.Unlock()
	step := c.flow.Steps[idx]

	created, err := fn(ctx, step, entity)
	if err != nil {
		return c.report(notify.Fail(err.Error()))
	}
	return c.report(c.settle(ctx, idx, created))
}

// settle applies the transitions of a successful submit of step idx.
func (c *Controller) settle(ctx context.Context, idx int, created string) notify.Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != idx {
		// Another request moved the wizard while this step was saving.
		return notify.OK("saved")
	}
	if c.entityID == "" {
		if created == "" {
			return notify.Fail(ErrNoEntity.Error())
		}
		c.entityCreated(ctx, created)
	}
	if idx == len(c.flow.Steps)-1 {
		c.teardown(ctx)
		return notify.OK("completed")
	}
	c.advance(ctx)
	return notify.OK("saved")
}

// Snapshot returns the wizard state for rendering.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	steps := make([]StepState, len(c.flow.Steps))
	for i, s := range c.flow.Steps {
		steps[i] = StepState{ID: s, Current: i == c.current, Enabled: c.canGoTo(i)}
	}
	return State{
		Namespace:   c.flow.Namespace,
		CurrentStep: c.flow.Steps[c.current],
		EntityID:    c.entityID,
		Steps:       steps,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| internals; callers hold c.mu                                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (c *Controller) canGoTo(idx int) bool {
	if idx < 0 {
		return false
	}
	return idx == 0 || c.entityID != ""
}

func (c *Controller) advance(ctx context.Context) bool {
	if c.entityID == "" || c.current >= len(c.flow.Steps)-1 {
		return false
	}
	c.current++
	c.persistStep(ctx)
	return true
}

func (c *Controller) entityCreated(ctx context.Context, id string) bool {
	if id == "" || c.entityID != "" {
		return false
	}
	c.entityID = id
	if err := c.store.Set(ctx, c.flow.EntityKey(), id); err != nil {
		c.storeFailed("set", c.flow.EntityKey(), err)
	}
	c.persistStep(ctx)
	return true
}

func (c *Controller) teardown(ctx context.Context) {
	c.current, c.entityID = 0, ""
	for _, k := range []string{c.flow.StepKey(), c.flow.EntityKey()} {
		if err := c.store.Remove(ctx, k); err != nil {
			c.storeFailed("remove", k, err)
		}
	}
}

func (c *Controller) persistStep(ctx context.Context) {
	if err := c.store.Set(ctx, c.flow.StepKey(), c.flow.Steps[c.current]); err != nil {
		c.storeFailed("set", c.flow.StepKey(), err)
	}
}

func (c *Controller) storeFailed(op, key string, err error) {
	c.log.Warn("wizard: progress store failed",
		zap.String("namespace", c.flow.Namespace),
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err))
}

// report runs without c.mu so the notifier may read the controller.
func (c *Controller) report(o notify.Outcome) notify.Outcome {
	c.notifier.Notify(o)
	return o
}
