// Package app builds the command-line entry point of a project: a cobra
// root command, signal-aware execution and the built-in database and route
// commands.
//
//	app.New("anfisa", "Ice cream catalog").
//	    Command(app.MigrateCommands(openDB)...).
//	    Command(app.SeedCommand(openDB, seeders.RunAll)).
//	    Command(serveCmd).
//	    Run()
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Opener returns a ready database connection.
type Opener func(ctx context.Context) (*gorm.DB, error)

type Application struct {
	root *cobra.Command
}

func New(name, short string) *Application {
	return &Application{root: &cobra.Command{
		Use:           name,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}}
}

// Command adds sub-commands.
func (a *Application) Command(cmds ...*cobra.Command) *Application {
	a.root.AddCommand(cmds...)
	return a
}

// Root exposes the cobra root for flags and tests.
func (a *Application) Root() *cobra.Command { return a.root }

// Execute runs the command named by args. The context passed to commands is
// cancelled on SIGINT or SIGTERM.
func (a *Application) Execute(ctx context.Context, args []string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// cobra keeps the first context a subcommand ran with; reset it so a
	// later Execute does not hand out one already cancelled.
	setContext(ctx, a.root)
	a.root.SetArgs(args)
	return a.root.ExecuteContext(ctx)
}

func setContext(ctx context.Context, c *cobra.Command) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(ctx, sub)
	}
}

// Run executes os.Args and exits non-zero on error.
func (a *Application) Run() {
	if err := a.Execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
