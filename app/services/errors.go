package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError carries per-field messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func fieldError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// notFound maps the orm sentinel to the service one and passes anything
// else through.
func notFound(err error) error {
	if errors.Is(err, orm.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

const (
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
)

func uniqueMsg(model, field string) string {
	return model + " with this " + field + " already exists."
}
