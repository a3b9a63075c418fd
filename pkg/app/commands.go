package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/migration"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

// MigrateCommands returns migrate, migrate:rollback and migrate:status over
// the registered migration set.
func MigrateCommands(open Opener) []*cobra.Command {
	runner := func(cmd *cobra.Command) (*migration.Runner, error) {
		db, err := open(cmd.Context())
		if err != nil {
			return nil, err
		}
		return migration.New(db, migration.WithOutput(cmd.OutOrStdout())), nil
	}

	return []*cobra.Command{
		{
			Use:   "migrate",
			Short: "Run all pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				_, err = r.Run(cmd.Context())
				return err
			},
		},
		{
			Use:   "migrate:rollback",
			Short: "Roll back the last batch of migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				ran, err := r.Rollback(cmd.Context())
				if err == nil && len(ran) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to roll back.")
				}
				return err
			},
		},
		{
			Use:   "migrate:status",
			Short: "Show which migrations have run",
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, err := runner(cmd)
				if err != nil {
					return err
				}
				return r.PrintStatus()
			},
		},
	}
}

// SeedCommand runs seed against the opened database.
func SeedCommand(open Opener, seed func(ctx context.Context, db *gorm.DB, out io.Writer) error) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Run the database seeders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Running seeders...")
			return seed(cmd.Context(), db, cmd.OutOrStdout())
		},
	}
}

// RouteListCommand prints the routes register adds to a fresh router.
func RouteListCommand(register func(r *router.Router) error) *cobra.Command {
	return &cobra.Command{
		Use:   "route:list",
		Short: "List the registered routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := router.New()
			if err := register(r); err != nil {
				return err
			}

			infos := r.Routes()
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No routes registered.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tNAME")
			for _, ri := range infos {
				fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
			}
			return w.Flush()
		},
	}
}
