package admin

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

// ErrNotFound is returned by a Source when the addressed row is missing.
var ErrNotFound = errors.New("admin: object not found")

type Kind int

const (
	Text Kind = iota
	TextArea
	Bool
	Int
	ForeignKey
	ManyToMany
)

// Field describes one editable attribute of a model.
type Field struct {
	Name      string
	Label     string
	Kind      Kind
	Required  bool
	MaxLength int
	Help      string
	// Default is the initial value on the add form and for new inline rows.
	Default any
}

func (f Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	s := strings.ReplaceAll(f.Name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Values holds field values by name. The Go type depends on Kind:
// Text and TextArea string, Bool bool, Int int, ForeignKey *uint,
// ManyToMany []uint.
type Values map[string]any

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Record is one row as the admin sees it.
type Record struct {
	ID     uint
	String string
	Values Values
	// Labels holds display text for ForeignKey and ManyToMany values.
	Labels map[string]string
}

type Choice struct {
	Value uint
	Label string
}

type Meta struct {
	// Name is the URL segment, e.g. "icecream".
	Name          string
	Verbose       string
	VerbosePlural string
}

// Query is a changelist request. Filters maps a field name to the raw
// query-string value: an id for ForeignKey, "1" or "0" for Bool.
type Query struct {
	Search       string
	SearchFields []string
	Filters      map[string]string
	Page         int
	Limit        int
}

// Source adapts one model to the admin.
type Source interface {
	Meta() Meta
	Fields() []Field
	List(ctx context.Context, q Query) ([]Record, orm.Pagination, error)
	Get(ctx context.Context, id uint) (Record, error)
	Create(ctx context.Context, v Values) (Record, error)
	Update(ctx context.Context, id uint, v Values) (Record, error)
	Delete(ctx context.Context, id uint) error
	Choices(ctx context.Context, field string) ([]Choice, error)
}

// FieldErrors is returned by a Source when values fail validation. The key
// NonFieldErrors holds messages not tied to one field.
type FieldErrors map[string]string

const NonFieldErrors = "__all__"

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e[k]
	}
	return "admin: invalid values: " + strings.Join(parts, "; ")
}

func fieldByName(src Source, name string) (Field, bool) {
	for _, f := range src.Fields() {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
