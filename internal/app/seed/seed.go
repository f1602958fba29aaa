// Package seed fills a database with a superadmin and demo data for local
// development. Every operation can be re-run: existing records are skipped.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountstore "github.com/dalemusser/stratadmin/internal/app/store/accounts"
	companystore "github.com/dalemusser/stratadmin/internal/app/store/companies"
	feedbackstore "github.com/dalemusser/stratadmin/internal/app/store/feedback"
	modulestore "github.com/dalemusser/stratadmin/internal/app/store/modules"
	userstore "github.com/dalemusser/stratadmin/internal/app/store/users"
	"github.com/dalemusser/stratadmin/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Seeder struct {
	Users     *userstore.Store
	Companies *companystore.Store
	Accounts  *accountstore.Store
	Modules   *modulestore.Store
	Feedback  *feedbackstore.Store
	Log       *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		Users:     userstore.New(db),
		Companies: companystore.New(db),
		Accounts:  accountstore.New(db),
		Modules:   modulestore.New(db),
		Feedback:  feedbackstore.New(db),
		Log:       logger,
	}
}

// Report counts what a run inserted and what already existed.
type Report struct {
	Created map[string]int
	Skipped map[string]int
}

func newReport() Report {
	return Report{Created: map[string]int{}, Skipped: map[string]int{}}
}

func (r Report) created(kind string) { r.Created[kind]++ }
func (r Report) skipped(kind string) { r.Skipped[kind]++ }

// SuperAdmin creates the superadmin, or promotes and re-keys an existing
// user with the same email.
func (s *Seeder) SuperAdmin(ctx context.Context, name, email, password string) (models.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return s.Users.Create(ctx, models.User{
			FullName: name,
			Email:    email,
			Role:     models.RoleSuperAdmin,
			Status:   models.StatusActive,
		}, password)
	}
	if err != nil {
		return models.User{}, err
	}
	if err := s.Users.SetRole(ctx, u.ID, models.RoleSuperAdmin); err != nil {
		return models.User{}, err
	}
	if err := s.Users.SetStatus(ctx, u.ID, models.StatusActive); err != nil {
		return models.User{}, err
	}
	if password != "" {
		if err := s.Users.SetPassword(ctx, u.ID, password); err != nil {
			return models.User{}, err
		}
	}
	s.Log.Info("existing user promoted to superadmin", zap.String("email", u.Email))
	updated, err := s.Users.GetByID(ctx, u.ID)
	if err != nil {
		return models.User{}, err
	}
	return *updated, nil
}

// DemoOptions sizes the demo data set.
type DemoOptions struct {
	Companies          int
	AccountsPerCompany int
	Feedback           int
	// Password of the demo admin and support users.
	StaffPassword string
	// Now anchors the feedback dates; zero means time.Now.
	Now time.Time
}

var demoModules = []models.Module{
	{Key: "reading", Name: "Reading", Description: "Guided reading levels"},
	{Key: "math", Name: "Math", Description: "Number sense and arithmetic"},
	{Key: "science", Name: "Science", Description: "Lab simulations"},
	{Key: "coding", Name: "Coding", Description: "Block-based programming"},
}

var deviceTypes = []string{models.DeviceIOS, models.DeviceAndroid, models.DeviceWeb}

var feedbackMessages = []string{
	"The new lesson layout is much easier to follow.",
	"App froze when switching between modules.",
	"Please add a dark mode.",
	"Progress did not sync after reconnecting.",
	"Great update, loading is faster now.",
}

// Demo inserts modules, staff users, companies with accounts, and feedback.
func (s *Seeder) Demo(ctx context.Context, opts DemoOptions) (Report, error) {
	rep := newReport()
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	var moduleIDs []primitive.ObjectID
	for _, m := range demoModules {
		created, err := s.Modules.Create(ctx, m)
		switch {
		case errors.Is(err, modulestore.ErrDuplicateKey):
			rep.skipped("modules")
		case err != nil:
			return rep, fmt.Errorf("seed module %s: %w", m.Key, err)
		default:
			rep.created("modules")
			moduleIDs = append(moduleIDs, created.ID)
		}
	}

	staff := []models.User{
		{FullName: "Demo Admin", Email: "admin@demo.local", Role: models.RoleAdmin},
		{FullName: "Demo Support", Email: "support@demo.local", Role: models.RoleSupport},
	}
	for _, u := range staff {
		_, err := s.Users.Create(ctx, u, opts.StaffPassword)
		switch {
		case errors.Is(err, userstore.ErrDuplicateEmail):
			rep.skipped("users")
		case err != nil:
			return rep, fmt.Errorf("seed user %s: %w", u.Email, err)
		default:
			rep.created("users")
		}
	}

	for i := 1; i <= opts.Companies; i++ {
		c, err := s.Companies.Create(ctx, models.Company{
			Name:       fmt.Sprintf("Demo Company %02d", i),
			Website:    fmt.Sprintf("https://company%02d.demo.local", i),
			DeviceType: deviceTypes[i%len(deviceTypes)],
			Status:     models.StatusActive,
		})
		if errors.Is(err, companystore.ErrDuplicateCompany) {
			rep.skipped("companies")
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("seed company %d: %w", i, err)
		}
		rep.created("companies")

		for j := 1; j <= opts.AccountsPerCompany; j++ {
			if err := s.demoAccount(ctx, rep, c, i, j, moduleIDs); err != nil {
				return rep, err
			}
		}
	}

	for i := 0; i < opts.Feedback; i++ {
		_, err := s.Feedback.Create(ctx, models.Feedback{
			UserName:   fmt.Sprintf("Demo User %d", i%7+1),
			Message:    feedbackMessages[i%len(feedbackMessages)],
			DeviceType: deviceTypes[i%len(deviceTypes)],
			AppVersion: fmt.Sprintf("2.%d.0", i%4),
			CreatedAt:  now.Add(-time.Duration(i) * 6 * time.Hour),
		})
		if err != nil {
			return rep, fmt.Errorf("seed feedback: %w", err)
		}
		rep.created("feedback")
	}

	s.Log.Info("demo data seeded", zap.Any("created", rep.Created), zap.Any("skipped", rep.Skipped))
	return rep, nil
}

func (s *Seeder) demoAccount(ctx context.Context, rep Report, c models.Company, i, j int, moduleIDs []primitive.ObjectID) error {
	status := models.StatusActive
	if j%4 == 0 {
		status = models.StatusInactive
	}
	companyID := c.ID
	a, err := s.Accounts.Create(ctx, models.Account{
		Name:      fmt.Sprintf("Account %02d-%02d", i, j),
		Email:     fmt.Sprintf("account%02d%02d@demo.local", i, j),
		Status:    status,
		CompanyID: &companyID,
		Address:   models.Address{City: "Columbia", Country: "US"},
	})
	if errors.Is(err, accountstore.ErrDuplicateEmail) {
		rep.skipped("accounts")
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed account %s: %w", c.Name, err)
	}
	rep.created("accounts")

	if len(moduleIDs) > 0 {
		n := j%len(moduleIDs) + 1
		if err := s.Accounts.SetModules(ctx, a.ID, moduleIDs[:n]); err != nil {
			return fmt.Errorf("assign modules to %s: %w", a.Email, err)
		}
	}
	return nil
}
