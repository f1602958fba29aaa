// internal/app/system/workers/consolesweep.go
package workers

import (
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is anything that can drop idle state and report how much it
// removed.
type Sweeper interface {
	Sweep() int
}

// ConsoleSweep is a background worker that evicts idle console controllers
// on a cron schedule.
type ConsoleSweep struct {
	target Sweeper
	log    *zap.Logger
	spec   string
	cron   *cron.Cron

	mu      sync.Mutex
	started bool
}

// NewConsoleSweep creates the worker. spec is a standard five-field cron
// expression or a descriptor such as "@every 1m".
func NewConsoleSweep(target Sweeper, logger *zap.Logger, spec string) *ConsoleSweep {
	return &ConsoleSweep{
		target: target,
		log:    logger,
		spec:   spec,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the sweep and starts the scheduler.
func (w *ConsoleSweep) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if _, err := w.cron.AddFunc(w.spec, w.RunOnce); err != nil {
		return fmt.Errorf("schedule console sweep %q: %w", w.spec, err)
	}
	w.cron.Start()
	w.started = true
	w.log.Info("console sweep worker started", zap.String("spec", w.spec))
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (w *ConsoleSweep) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	<-w.cron.Stop().Done()
	w.started = false
	w.log.Info("console sweep worker stopped")
}

// RunOnce performs a single sweep.
func (w *ConsoleSweep) RunOnce() {
	if n := w.target.Sweep(); n > 0 {
		w.log.Info("evicted idle console controllers", zap.Int("count", n))
	}
}
