// Package pageenv bundles what every console feature needs to mount its
// list and wizard pages.
package pageenv

import (
	"net/http"

	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"go.uber.org/zap"
)

type Env struct {
	Registry        *console.Registry
	DefaultPageSize int
	Policy          *permissions.Policy
	Flows           *wizard.Registry
	Progress        func(w http.ResponseWriter, r *http.Request) wizard.ProgressStore
	Flash           func(w http.ResponseWriter, r *http.Request) notify.Notifier
	Flashes         func(w http.ResponseWriter, r *http.Request) []notify.Outcome
	Audit           *auditlog.Logger
	Log             *zap.Logger
}

// View wraps next with a view capability check for module.
func (e Env) View(module string) func(http.Handler) http.Handler {
	return e.Policy.RequireCapability(module, permissions.View)
}

func (e Env) Create(module string) func(http.Handler) http.Handler {
	return e.Policy.RequireCapability(module, permissions.Create)
}

func (e Env) Edit(module string) func(http.Handler) http.Handler {
	return e.Policy.RequireCapability(module, permissions.Edit)
}

// Named returns the logger scoped to a feature.
func (e Env) Named(name string) *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log.Named(name)
}
