// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"

	accountsfeature "github.com/dalemusser/stratadmin/internal/app/features/accounts"
	adminsfeature "github.com/dalemusser/stratadmin/internal/app/features/admins"
	auditlogfeature "github.com/dalemusser/stratadmin/internal/app/features/auditlog"
	companiesfeature "github.com/dalemusser/stratadmin/internal/app/features/companies"
	feedbackfeature "github.com/dalemusser/stratadmin/internal/app/features/feedback"
	healthfeature "github.com/dalemusser/stratadmin/internal/app/features/health"
	loginfeature "github.com/dalemusser/stratadmin/internal/app/features/login"
	logoutfeature "github.com/dalemusser/stratadmin/internal/app/features/logout"
	modulesfeature "github.com/dalemusser/stratadmin/internal/app/features/modules"
	profilefeature "github.com/dalemusser/stratadmin/internal/app/features/profile"
	"github.com/dalemusser/stratadmin/internal/app/features/shared/pageenv"
	usersfeature "github.com/dalemusser/stratadmin/internal/app/features/users"
	"github.com/dalemusser/stratadmin/internal/app/store/audit"
	"github.com/dalemusser/stratadmin/internal/app/system/auditlog"
	"github.com/dalemusser/stratadmin/internal/app/system/auth"
	"github.com/dalemusser/stratadmin/internal/app/system/notify"
	"github.com/dalemusser/stratadmin/internal/app/system/progress"
	"github.com/dalemusser/stratadmin/internal/app/system/wizard"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the session manager and the
// shared page environment, then mounts every console feature behind its
// capability checks.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	s := currentServices()
	if s == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase
	auditLog := auditlog.New(audit.New(db), logger.Named("audit"), auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	env := pageenv.Env{
		Registry:        s.registry,
		DefaultPageSize: appCfg.DefaultPageSize,
		Policy:          s.policy,
		Flows:           wizard.NewRegistry(),
		Progress:        progressSelector(appCfg.ProgressBackend, sessionMgr, deps),
		Flash: func(w http.ResponseWriter, r *http.Request) notify.Notifier {
			return notify.Flash{Store: sessionMgr.Store(), Session: sessionMgr.Name(), W: w, R: r, Log: logger}
		},
		Flashes: func(w http.ResponseWriter, r *http.Request) []notify.Outcome {
			return notify.PopFlashes(sessionMgr.Store(), sessionMgr.Name(), w, r)
		},
		Audit: auditLog,
		Log:   logger,
	}

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, s.registry, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Authentication
	loginHandler := loginfeature.NewHandler(db, sessionMgr, s.policy, s.limiter, auditLog, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, s.registry, auditLog, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	profileHandler := profilefeature.NewHandler(db, auditLog, logger)
	r.Mount("/profile", profilefeature.Routes(profileHandler, sessionMgr))

	// Everything below needs a console session.
	var mountErr error
	r.Group(func(pr chi.Router) {
		pr.Use(sessionMgr.RequireSignedIn)

		accounts, err := accountsfeature.Routes(accountsfeature.NewHandler(db, auditLog, logger), env)
		if err != nil {
			mountErr = err
			return
		}
		pr.Mount("/accounts", accounts)

		companies, err := companiesfeature.Routes(companiesfeature.NewHandler(db, auditLog, logger), env)
		if err != nil {
			mountErr = err
			return
		}
		pr.Mount("/companies", companies)

		pr.Mount("/users", usersfeature.Routes(usersfeature.NewHandler(db, auditLog, logger), env))
		pr.Mount("/admins", adminsfeature.Routes(adminsfeature.NewHandler(db, logger), env))
		pr.Mount("/modules", modulesfeature.Routes(modulesfeature.NewHandler(db, auditLog, logger), env))
		pr.Mount("/feedback", feedbackfeature.Routes(feedbackfeature.NewHandler(db, logger), env))
		pr.Mount("/logs", auditlogfeature.Routes(auditlogfeature.NewHandler(db, logger), env))
	})
	if mountErr != nil {
		logger.Error("feature mount failed", zap.Error(mountErr))
		return nil, mountErr
	}

	return r, nil
}

// progressSelector returns where a request's wizard progress lives. The
// session backend keeps it in the signed cookie; the mongo backend keys it
// by user so it follows the user across devices.
func progressSelector(backend string, sm *auth.SessionManager, deps DBDeps) func(http.ResponseWriter, *http.Request) wizard.ProgressStore {
	if backend == ProgressMongo {
		store := progress.NewMongoStore(deps.MongoDatabase)
		return func(w http.ResponseWriter, r *http.Request) wizard.ProgressStore {
			scope := ""
			if u, ok := auth.CurrentUser(r); ok {
				scope = u.ID
			}
			return store.For(scope)
		}
	}
	return func(w http.ResponseWriter, r *http.Request) wizard.ProgressStore {
		return progress.NewSession(sm.Store(), sm.Name(), w, r)
	}
}
