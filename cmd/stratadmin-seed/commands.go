package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dalemusser/stratadmin/internal/app/seed"
	"github.com/dalemusser/stratadmin/internal/app/system/indexes"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type globalOptions struct {
	mongoURI string
	database string
	timeout  time.Duration
	verbose  bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}
	cmd := &cobra.Command{
		Use:           "stratadmin-seed",
		Short:         "Seed a stratadmin database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.mongoURI, "mongo-uri", envOr("STRATADMIN_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.PersistentFlags().StringVar(&g.database, "database", envOr("STRATADMIN_MONGO_DATABASE", "stratadmin"), "MongoDB database name")
	cmd.PersistentFlags().DurationVar(&g.timeout, "timeout", 2*time.Minute, "Overall deadline")
	cmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Log each step")

	cmd.AddCommand(newSuperAdminCommand(g), newDemoCommand(g))
	return cmd
}

// run connects, ensures indexes so duplicate checks hold, and hands the
// seeder to fn.
func (g *globalOptions) run(ctx context.Context, fn func(context.Context, *seed.Seeder) error) error {
	logger := zap.NewNop()
	if g.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(g.mongoURI))
	if err != nil {
		return fmt.Errorf("connect MongoDB: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	db := client.Database(g.database)
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}
	return fn(ctx, seed.New(db, logger))
}

func newSuperAdminCommand(g *globalOptions) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "superadmin",
		Short: "Create or promote the superadmin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("STRATADMIN_SEED_PASSWORD")
			}
			return g.run(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
				u, err := s.SuperAdmin(ctx, name, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s (%s)\n", u.Email, u.ID.Hex())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Super Admin", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Sign-in email")
	cmd.Flags().StringVar(&password, "password", "", "Password (or STRATADMIN_SEED_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newDemoCommand(g *globalOptions) *cobra.Command {
	opts := seed.DemoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Insert demo modules, staff users, companies, accounts and feedback",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Companies < 0 || opts.AccountsPerCompany < 0 || opts.Feedback < 0 {
				return fmt.Errorf("counts must not be negative")
			}
			return g.run(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
				rep, err := s.Demo(ctx, opts)
				if err != nil {
					return err
				}
				printReport(cmd, rep)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&opts.Companies, "companies", 12, "Number of companies")
	cmd.Flags().IntVar(&opts.AccountsPerCompany, "accounts", 8, "Accounts per company")
	cmd.Flags().IntVar(&opts.Feedback, "feedback", 60, "Feedback entries")
	cmd.Flags().StringVar(&opts.StaffPassword, "staff-password", "changeme123", "Password of the demo admin and support users")
	return cmd
}

func printReport(cmd *cobra.Command, rep seed.Report) {
	kinds := make([]string, 0, len(rep.Created)+len(rep.Skipped))
	seen := map[string]bool{}
	for _, m := range []map[string]int{rep.Created, rep.Skipped} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	sort.Strings(kinds)
	out := cmd.OutOrStdout()
	for _, k := range kinds {
		fmt.Fprintf(out, "%-10s created %4d  skipped %4d\n", k, rep.Created[k], rep.Skipped[k])
	}
}
