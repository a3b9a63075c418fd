// Package migration applies versioned schema changes and records them in
// the anfisa_migrations table, grouped in batches so the latest batch can be
// rolled back.
//
//	func init() {
//	    migration.Register("20240301000000_create_catalog_tables", &CreateCatalogTables{})
//	}
//
// Runners serialize on a file lock keyed by the database they target, so two
// `anfisa migrate` processes against one database never interleave.
package migration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/gofrs/flock"
	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
)

type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "anfisa_migrations" }

type entry struct {
	name string
	m    Migration
}

// Set is an ordered collection of named migrations.
type Set struct {
	mu      sync.Mutex
	entries []entry
}

// Add registers m under name. Names sort chronologically, so prefix them
// with a timestamp. A duplicate name panics.
func (s *Set) Add(name string, m Migration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.name == name {
			panic(fmt.Sprintf("migration: %q registered twice", name))
		}
	}
	s.entries = append(s.entries, entry{name: name, m: m})
}

func (s *Set) sorted() []entry {
	s.mu.Lock()
	out := append([]entry(nil), s.entries...)
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Default holds the migrations registered with Register.
var Default = &Set{}

func Register(name string, m Migration) { Default.Add(name, m) }

// Status is the state of one migration.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

type Runner struct {
	db       *gorm.DB
	set      *Set
	out      io.Writer
	lockPath string
}

type Option func(*Runner)

// WithOutput sends progress lines to w instead of stdout.
func WithOutput(w io.Writer) Option { return func(r *Runner) { r.out = w } }

// WithLockFile overrides the lock file location.
func WithLockFile(path string) Option { return func(r *Runner) { r.lockPath = path } }

// New returns a Runner for the Default set.
func New(db *gorm.DB, opts ...Option) *Runner {
	return NewWithSet(db, Default, opts...)
}

func NewWithSet(db *gorm.DB, set *Set, opts ...Option) *Runner {
	r := &Runner{
		db:       db,
		set:      set,
		out:      os.Stdout,
		lockPath: defaultLockPath(db),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// defaultLockPath names a lock file in the temp dir after the database's
// dialect and DSN.
func defaultLockPath(db *gorm.DB) string {
	sum := sha256.Sum256([]byte(db.Dialector.Name() + "|" + database.DSN(db)))
	return filepath.Join(os.TempDir(), "anfisa-migrate-"+hex.EncodeToString(sum[:8])+".lock")
}

// LockPath is the file the runner locks while it works.
func (r *Runner) LockPath() string { return r.lockPath }

func (r *Runner) lock(ctx context.Context) (func(), error) {
	fl := flock.New(r.lockPath)
	ok, err := fl.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("migration: lock %s: %w", r.lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("migration: lock %s: not acquired", r.lockPath)
	}
	return func() { _ = fl.Unlock() }, nil
}

func (r *Runner) ensureTable() error {
	if err := r.db.AutoMigrate(&record{}); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}
	return nil
}

func (r *Runner) applied() (map[string]record, error) {
	var rows []record
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load applied: %w", err)
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

func (r *Runner) lastBatch() (int, error) {
	var last struct{ Max int }
	err := r.db.Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&last).Error
	return last.Max, err
}

// Run applies every pending migration as one new batch and returns the
// names it applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.applied()
	if err != nil {
		return nil, err
	}

	var pending []entry
	for _, e := range r.set.sorted() {
		if _, ok := done[e.name]; !ok {
			pending = append(pending, e)
		}
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil, nil
	}

	last, err := r.lastBatch()
	if err != nil {
		return nil, fmt.Errorf("migration: last batch: %w", err)
	}
	batch := last + 1

	var ran []string
	for _, e := range pending {
		fmt.Fprintf(r.out, "  Migrating: %s\n", e.name)

		db := r.db.WithContext(ctx)
		if err := e.m.Up(db); err != nil {
			return ran, fmt.Errorf("migration: %s up: %w", e.name, err)
		}
		if err := db.Create(&record{Name: e.name, Batch: batch}).Error; err != nil {
			return ran, fmt.Errorf("migration: record %s: %w", e.name, err)
		}
		ran = append(ran, e.name)
		fmt.Fprintf(r.out, "  Migrated:  %s\n", e.name)
	}

	logger.Info("migration: done", "ran", len(ran), "batch", batch)
	return ran, nil
}

// Rollback reverts the most recent batch in reverse order and returns the
// names it reverted.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	unlock, err := r.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	last, err := r.lastBatch()
	if err != nil {
		return nil, fmt.Errorf("migration: last batch: %w", err)
	}
	if last == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil, nil
	}

	var rows []record
	if err := r.db.Where("batch = ?", last).Order("name desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("migration: load batch %d: %w", last, err)
	}

	known := map[string]Migration{}
	for _, e := range r.set.sorted() {
		known[e.name] = e.m
	}

	var reverted []string
	for _, row := range rows {
		m, ok := known[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: not registered", row.Name)
		}

		fmt.Fprintf(r.out, "  Rolling back: %s\n", row.Name)
		db := r.db.WithContext(ctx)
		if err := m.Down(db); err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		if err := db.Delete(&record{}, row.ID).Error; err != nil {
			return reverted, fmt.Errorf("migration: forget %s: %w", row.Name, err)
		}
		reverted = append(reverted, row.Name)
		fmt.Fprintf(r.out, "  Rolled back:  %s\n", row.Name)
	}

	logger.Info("migration: rolled back", "count", len(reverted), "batch", last)
	return reverted, nil
}

// Status reports every registered migration in order.
func (r *Runner) Status() ([]Status, error) {
	if err := r.ensureTable(); err != nil {
		return nil, err
	}
	done, err := r.applied()
	if err != nil {
		return nil, err
	}

	var out []Status
	for _, e := range r.set.sorted() {
		row, ok := done[e.name]
		out = append(out, Status{Name: e.name, Ran: ok, Batch: row.Batch})
	}
	return out, nil
}

// PrintStatus writes Status as an aligned table.
func (r *Runner) PrintStatus() error {
	rows, err := r.Status()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MIGRATION\tSTATUS\tBATCH")
	for _, s := range rows {
		if s.Ran {
			fmt.Fprintf(tw, "%s\tRan\t%d\n", s.Name, s.Batch)
		} else {
			fmt.Fprintf(tw, "%s\tPending\t-\n", s.Name)
		}
	}
	return tw.Flush()
}
