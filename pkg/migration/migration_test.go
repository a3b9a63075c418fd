package migration

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/database"
)

type flavor struct {
	ID    uint
	Title string
}

type createFlavors struct{}

func (createFlavors) Up(db *gorm.DB) error   { return db.AutoMigrate(&flavor{}) }
func (createFlavors) Down(db *gorm.DB) error { return db.Migrator().DropTable(&flavor{}) }

type addIndex struct{}

func (addIndex) Up(db *gorm.DB) error {
	return db.Exec("CREATE INDEX idx_flavors_title ON flavors (title)").Error
}
func (addIndex) Down(db *gorm.DB) error {
	return db.Exec("DROP INDEX idx_flavors_title").Error
}

func newRunner(t *testing.T, set *Set) (*Runner, *gorm.DB) {
	t.Helper()
	dir := t.TempDir()
	db, err := database.Open("sqlite", filepath.Join(dir, "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	return NewWithSet(db, set,
		WithOutput(&bytes.Buffer{}),
		WithLockFile(filepath.Join(dir, "migrate.lock")),
	), db
}

func TestRunAndRollback(t *testing.T) {
	set := &Set{}
	set.Add("20240102000000_add_index", addIndex{})
	set.Add("20240101000000_create_flavors", createFlavors{})

	r, db := newRunner(t, set)
	ctx := context.Background()

	ran, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240101000000_create_flavors", "20240102000000_add_index"}, ran)
	assert.True(t, db.Migrator().HasTable(&flavor{}))

	ran, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ran)

	status, err := r.Status()
	require.NoError(t, err)
	require.Len(t, status, 2)
	assert.True(t, status[0].Ran)
	assert.Equal(t, 1, status[1].Batch)

	reverted, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_add_index", "20240101000000_create_flavors"}, reverted)
	assert.False(t, db.Migrator().HasTable(&flavor{}))

	reverted, err = r.Rollback(ctx)
	require.NoError(t, err)
	assert.Empty(t, reverted)
}

func TestRollbackOnlyLastBatch(t *testing.T) {
	set := &Set{}
	set.Add("20240101000000_create_flavors", createFlavors{})

	r, db := newRunner(t, set)
	ctx := context.Background()

	_, err := r.Run(ctx)
	require.NoError(t, err)

	set.Add("20240102000000_add_index", addIndex{})
	_, err = r.Run(ctx)
	require.NoError(t, err)

	reverted, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"20240102000000_add_index"}, reverted)
	assert.True(t, db.Migrator().HasTable(&flavor{}))
}

func TestDuplicateNamePanics(t *testing.T) {
	set := &Set{}
	set.Add("x", createFlavors{})
	assert.Panics(t, func() { set.Add("x", createFlavors{}) })
}

func TestDefaultLockIsPerDatabase(t *testing.T) {
	open := func(path string) *gorm.DB {
		db, err := database.Open("sqlite", path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = database.Close(db) })
		return db
	}
	dir := t.TempDir()
	a := open(filepath.Join(dir, "a.db"))
	b := open(filepath.Join(dir, "b.db"))
	again := open(filepath.Join(dir, "a.db"))

	assert.NotEqual(t, New(a).LockPath(), New(b).LockPath())
	assert.Equal(t, New(a).LockPath(), New(again).LockPath())
	assert.Equal(t, filepath.Join(dir, "x.lock"), New(a, WithLockFile(filepath.Join(dir, "x.lock"))).LockPath())
}
