package app

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	_ "github.com/anfisaforfriends/anfisa/database/migrations"
	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

func run(t *testing.T, a *Application, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a.Root().SetOut(&out)
	err := a.Execute(context.Background(), args)
	return out.String(), err
}

func TestMigrateThenStatus(t *testing.T) {
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	open := func(context.Context) (*gorm.DB, error) { return db, nil }

	a := New("anfisa", "test").Command(MigrateCommands(open)...)

	out, err := run(t, a, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrated:  20240301000001_create_catalog_tables")

	out, err = run(t, a, "migrate:status")
	require.NoError(t, err)
	assert.Regexp(t, `20240301000000_create_users_table\s+Ran\s+1`, out)

	out, err = run(t, a, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to migrate.")
}

func TestExecuteTwiceGetsLiveContext(t *testing.T) {
	var errs []error
	a := New("anfisa", "test").Command(&cobra.Command{
		Use: "ctx-check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			errs = append(errs, cmd.Context().Err())
			return nil
		},
	})

	_, err := run(t, a, "ctx-check")
	require.NoError(t, err)
	_, err = run(t, a, "ctx-check")
	require.NoError(t, err)

	assert.Equal(t, []error{nil, nil}, errs)
}

func TestSeedCommand(t *testing.T) {
	called := false
	a := New("anfisa", "test").Command(SeedCommand(
		func(context.Context) (*gorm.DB, error) { return nil, nil },
		func(_ context.Context, _ *gorm.DB, out io.Writer) error {
			called = true
			_, err := io.WriteString(out, "seeded\n")
			return err
		},
	))

	out, err := run(t, a, "seed")
	require.NoError(t, err)
	assert.True(t, called)
	assert.Contains(t, out, "seeded")
}

func TestRouteList(t *testing.T) {
	a := New("anfisa", "test").Command(RouteListCommand(func(r *router.Router) error {
		r.Get("/api/home", "storefront.home", func(http.ResponseWriter, *http.Request) {})
		return nil
	}))

	out, err := run(t, a, "route:list")
	require.NoError(t, err)
	assert.Regexp(t, `GET\s+/api/home\s+storefront.home`, out)
}

func TestUnknownCommand(t *testing.T) {
	a := New("anfisa", "test").Command(&cobra.Command{Use: "serve", RunE: func(*cobra.Command, []string) error { return nil }})
	_, err := run(t, a, "melt")
	assert.ErrorContains(t, err, `unknown command "melt"`)
}
