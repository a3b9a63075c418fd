// Package orm is a thin, chainable layer over gorm used by the repositories.
package orm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/database"
)

// ErrNotFound is returned by First when no row matches.
var ErrNotFound = errors.New("orm: record not found")

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page     int   `json:"page"`
	Limit    int   `json:"limit"`
	Total    int64 `json:"total"`
	LastPage int   `json:"last_page"`
}

type preload struct {
	assoc string
	args  []any
}

// Query wraps a *gorm.DB. Preloads are held back until rows are loaded so
// that counting never triggers them.
type Query struct {
	db       *gorm.DB
	preloads []preload
}

// DB starts a query on the global connection.
func DB() *Query {
	return &Query{db: database.DB}
}

// On starts a query on db.
func On(db *gorm.DB) *Query {
	return &Query{db: db}
}

func (q *Query) with(db *gorm.DB) *Query {
	return &Query{db: db, preloads: q.preloads}
}

func (q *Query) WithContext(ctx context.Context) *Query {
	return q.with(q.db.WithContext(ctx))
}

func (q *Query) Model(v any) *Query {
	return q.with(q.db.Model(v))
}

func (q *Query) Where(query any, args ...any) *Query {
	return q.with(q.db.Where(query, args...))
}

func (q *Query) Joins(query string, args ...any) *Query {
	return q.with(q.db.Joins(query, args...))
}

func (q *Query) Order(v any) *Query {
	return q.with(q.db.Order(v))
}

func (q *Query) Preload(assoc string, args ...any) *Query {
	next := make([]preload, len(q.preloads), len(q.preloads)+1)
	copy(next, q.preloads)
	return &Query{db: q.db, preloads: append(next, preload{assoc, args})}
}

func (q *Query) loader() *gorm.DB {
	db := q.db
	for _, p := range q.preloads {
		db = db.Preload(p.assoc, p.args...)
	}
	return db
}

// Search adds a case-insensitive "contains" match of term over columns,
// OR-ed together. An empty term or column list leaves the query unchanged.
func (q *Query) Search(term string, columns ...string) *Query {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return q
	}

	like := "%" + escapeLike(strings.ToLower(term)) + "%"
	clauses := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		clauses[i] = fmt.Sprintf("LOWER(%s) LIKE ? ESCAPE '!'", c)
		args[i] = like
	}
	return q.with(q.db.Where(strings.Join(clauses, " OR "), args...))
}

// escapeLike escapes LIKE wildcards with '!', which no supported dialect
// treats specially inside a string literal.
func escapeLike(s string) string {
	return strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(s)
}

// Get loads every matching row into dest.
func (q *Query) Get(dest any) error {
	return q.loader().Find(dest).Error
}

// First loads the first matching row, translating gorm's not-found error.
func (q *Query) First(dest any) error {
	err := q.loader().First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (q *Query) Count() (int64, error) {
	var n int64
	err := q.db.Count(&n).Error
	return n, err
}

// Paginate counts all matches, then loads page (1-based) of size limit into
// dest. Out-of-range values are clamped.
func (q *Query) Paginate(page, limit int, dest any) (Pagination, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page < 1 {
		page = 1
	}

	var total int64
	if err := q.db.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return Pagination{}, err
	}

	lastPage := int((total + int64(limit) - 1) / int64(limit))
	if lastPage < 1 {
		lastPage = 1
	}

	if err := q.loader().Offset((page - 1) * limit).Limit(limit).Find(dest).Error; err != nil {
		return Pagination{}, err
	}

	return Pagination{Page: page, Limit: limit, Total: total, LastPage: lastPage}, nil
}

// Cache serves dest from the cache under key, loading and storing it on a miss.
func (q *Query) Cache(ctx context.Context, key string, ttl time.Duration, dest any) error {
	if cache.Get(ctx, key, dest) {
		return nil
	}
	if err := q.loader().Find(dest).Error; err != nil {
		return err
	}
	_ = cache.Set(ctx, key, dest, ttl)
	return nil
}

// Raw exposes the wrapped handle for cases the wrapper does not cover.
func (q *Query) Raw() *gorm.DB { return q.db }
