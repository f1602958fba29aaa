// Package wizardpage mounts a wizard.Flow behind HTTP. The controller is
// rebuilt on every request from the ProgressStore, so a reload or a second
// tab resumes on the persisted step.
package wizardpage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/stratadmin/internal/app/features/shared/respond"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Step saves one step from the request. On the first step entityID is
// empty and the step returns the id it created.
type Step func(ctx context.Context, r *http.Request, entityID string) (createdID string, err error)

// InvalidError is a user-facing validation failure. Any other step error
// is logged and reported generically.
type InvalidError struct{ Msg string }

func (e *InvalidError) Error() string { return e.Msg }

// Invalid returns an InvalidError with a formatted message.
func Invalid(format string, args ...any) error {
	return &InvalidError{Msg: fmt.Sprintf(format, args...)}
}

// Wizard binds a Flow to its step handlers.
type Wizard struct {
	Flow     wizard.Flow
	Progress func(w http.ResponseWriter, r *http.Request) wizard.ProgressStore
	Steps    map[string]Step
	// Load returns data shown alongside the state, such as the entity being
	// edited and the choices for the current step. Optional.
	Load func(ctx context.Context, step, entityID string) (any, error)
	// Flash, when set, receives the outcome of a completed wizard so the
	// page the user lands on can show it.
	Flash func(w http.ResponseWriter, r *http.Request) notify.Notifier
	// CompletedMessage is the flash text for a completed wizard.
	CompletedMessage string
	Audit *auditlog.Logger
	Log   *zap.Logger
}

// Routes returns the wizard endpoints.
func (wz *Wizard) Routes() chi.Router {
	if wz.Log == nil {
		wz.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Get("/", wz.serveState)
	r.Post("/steps/{step}", wz.submit)
	r.Post("/goto/{step}", wz.goTo)
	r.Post("/abandon", wz.abandon)
	return r
}

func (wz *Wizard) controller(ctx context.Context, w http.ResponseWriter, r *http.Request, extra ...notify.Notifier) (*wizard.Controller, error) {
	n := notify.Multi{notify.Zap{Log: wz.Log, Source: wz.Flow.Namespace}}
	n = append(n, extra...)
	c, err := wizard.New(wz.Flow, wz.Progress(w, r), wizard.WithLogger(wz.Log), wizard.WithNotifier(n))
	if err != nil {
		return nil, err
	}
	c.ResumeOrStart(ctx)
	return c, nil
}

type stateData struct {
	Completed bool   `json:"completed,omitempty"`
	EntityID  string `json:"entity_id,omitempty"`
	View      any    `json:"view,omitempty"`
}

func (wz *Wizard) load(ctx context.Context, c *wizard.Controller) any {
	if wz.Load == nil {
		return nil
	}
	id, _ := c.EntityID()
	v, err := wz.Load(ctx, c.CurrentStep(), id)
	if err != nil {
		wz.Log.Warn("wizard load failed",
			zap.String("wizard", wz.Flow.Namespace),
			zap.String("entity", id),
			zap.Error(err))
		return nil
	}
	return v
}

func (wz *Wizard) serveState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), wz.Log, wz.Flow.Namespace+" state")
	defer cancel()
	c, err := wz.controller(ctx, w, r)
	if err != nil {
		wz.fail(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Outcome: notify.OK(""),
		State:   c.Snapshot(),
		Data:    stateData{View: wz.load(ctx, c)},
	})
}

// submit saves the step named in the URL, which must be the current step.
func (wz *Wizard) submit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), wz.Log, wz.Flow.Namespace+" step")
	defer cancel()

	var extra []notify.Notifier
	if wz.Flash != nil {
		extra = append(extra, completionOnly{n: wz.Flash(w, r), msg: wz.CompletedMessage})
	}
	c, err := wz.controller(ctx, w, r, extra...)
	if err != nil {
		wz.fail(w, err)
		return
	}
	step := chi.URLParam(r, "step")
	if step != c.CurrentStep() {
		respond.Outcome(w, notify.Fail(fmt.Sprintf("step %q is not the current step", step)), http.StatusConflict, c.Snapshot())
		return
	}
	fn, ok := wz.Steps[step]
	if !ok {
		wz.fail(w, fmt.Errorf("no handler for step %q", step))
		return
	}

	var entity string
	o := c.Submit(ctx, func(ctx context.Context, step, entityID string) (string, error) {
		created, err := fn(ctx, r, entityID)
		var inv *InvalidError
		if err != nil && !errors.As(err, &inv) {
			wz.Log.Error("wizard step failed",
				zap.String("wizard", wz.Flow.Namespace),
				zap.String("step", step),
				zap.Error(err))
			return "", errors.New("could not save this step, please try again")
		}
		entity = entityID
		if entity == "" {
			entity = created
		}
		return created, err
	})

	data := stateData{EntityID: entity, Completed: o.Success && o.Message == "completed"}
	if o.Success && !data.Completed {
		data.View = wz.load(ctx, c)
	}
	status := http.StatusOK
	if !o.Success {
		status = http.StatusUnprocessableEntity
	}
	respond.JSON(w, status, respond.Envelope{Outcome: o, State: c.Snapshot(), Data: data})
}

func (wz *Wizard) goTo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), wz.Log, wz.Flow.Namespace+" goto")
	defer cancel()
	c, err := wz.controller(ctx, w, r)
	if err != nil {
		wz.fail(w, err)
		return
	}
	step := chi.URLParam(r, "step")
	if !c.GoToStep(ctx, step) {
		respond.Outcome(w, notify.Fail(fmt.Sprintf("step %q is not reachable yet", step)), http.StatusConflict, c.Snapshot())
		return
	}
	respond.JSON(w, http.StatusOK, respond.Envelope{
		Outcome: notify.OK(""),
		State:   c.Snapshot(),
		Data:    stateData{View: wz.load(ctx, c)},
	})
}

// abandon handles the back button: progress is cleared only when an entity
// was created.
func (wz *Wizard) abandon(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), wz.Log, wz.Flow.Namespace+" abandon")
	defer cancel()
	c, err := wz.controller(ctx, w, r)
	if err != nil {
		wz.fail(w, err)
		return
	}
	id, _ := c.EntityID()
	if c.Abandon(ctx) {
		wz.Audit.WizardAbandoned(ctx, r, wz.Flow.Namespace, id)
	}
	respond.Outcome(w, notify.OK(""), http.StatusOK, c.Snapshot())
}

func (wz *Wizard) fail(w http.ResponseWriter, err error) {
	wz.Log.Error("wizard unavailable", zap.String("wizard", wz.Flow.Namespace), zap.Error(err))
	respond.Error(w, http.StatusInternalServerError, "wizard unavailable")
}

// completionOnly forwards the final "completed" outcome as msg.
type completionOnly struct {
	n   notify.Notifier
	msg string
}

func (c completionOnly) Notify(o notify.Outcome) {
	if c.n == nil || !o.Success || o.Message != "completed" {
		return
	}
	if c.msg != "" {
		o.Message = c.msg
	}
	c.n.Notify(o)
}
