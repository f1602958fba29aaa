// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalemusser/stratadmin/internal/app/system/console"
	"github.com/dalemusser/stratadmin/internal/app/system/permissions"
	"github.com/dalemusser/stratadmin/internal/app/system/ratelimit"
	"github.com/dalemusser/stratadmin/internal/app/system/timeouts"
	"github.com/dalemusser/stratadmin/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services is the process-wide state built once in Startup and shared by
// BuildHandler and Shutdown.
type services struct {
	registry *console.Registry
	policy   *permissions.Policy
	limiter  *ratelimit.LoginLimiter
	sweep    *workers.ConsoleSweep
}

var (
	svcMu sync.Mutex
	svc   *services
)

func currentServices() *services {
	svcMu.Lock()
	defer svcMu.Unlock()
	return svc
}

func (s *services) stop() {
	if s.sweep != nil {
		s.sweep.Stop()
	}
}

// sweepers runs several cleanups as one scheduled job.
type sweepers []func() int

func (s sweepers) Sweep() int {
	n := 0
	for _, f := range s {
		n += f()
	}
	return n
}

// Startup applies the store deadlines, loads the capability policy and
// starts the idle console sweep.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	policy, err := permissions.LoadPolicy(appCfg.PermissionPolicy)
	if err != nil {
		return err
	}

	s, err := newServices(appCfg, policy, logger)
	if err != nil {
		return err
	}
	if err := s.sweep.Start(); err != nil {
		return err
	}

	svcMu.Lock()
	svc = s
	svcMu.Unlock()
	return nil
}

func newServices(appCfg AppConfig, policy *permissions.Policy, logger *zap.Logger) (*services, error) {
	if policy == nil {
		return nil, fmt.Errorf("no permission policy")
	}
	registry := console.NewRegistry(appCfg.ConsoleIdleTTL, logger.Named("console"))
	limiter := ratelimit.NewLoginLimiterWithConfig(
		appCfg.LoginIPLimit, appCfg.LoginWindow,
		appCfg.LoginEmailLimit, appCfg.LoginWindow,
	)
	sweep := workers.NewConsoleSweep(
		sweepers{registry.Sweep, limiter.Prune},
		logger.Named("sweep"),
		appCfg.ConsoleSweepSpec,
	)
	return &services{registry: registry, policy: policy, limiter: limiter, sweep: sweep}, nil
}
