// Package repositories is the persistence layer for the app models. Every
// method takes a context and returns orm.ErrNotFound for missing rows.
package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

// crud holds the operations every catalog repository shares.
type crud[T any] struct {
	db *gorm.DB
}

func (r crud[T]) query(ctx context.Context) *orm.Query {
	var zero T
	return orm.On(r.db).WithContext(ctx).Model(&zero)
}

func (r crud[T]) FindByID(ctx context.Context, id uint) (T, error) {
	var row T
	err := r.query(ctx).Where("id = ?", id).First(&row)
	return row, err
}

// FindByIDs returns the rows that exist among ids, ordered by id.
func (r crud[T]) FindByIDs(ctx context.Context, ids []uint) ([]T, error) {
	var rows []T
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.query(ctx).Where("id IN ?", ids).Order("id").Get(&rows)
	return rows, err
}

func (r crud[T]) Exists(ctx context.Context, id uint) (bool, error) {
	n, err := r.query(ctx).Where("id = ?", id).Count()
	return n > 0, err
}

// Delete removes the row and reports orm.ErrNotFound when nothing matched.
func (r crud[T]) Delete(ctx context.Context, id uint) error {
	var zero T
	res := r.db.WithContext(ctx).Delete(&zero, id)
	if res.Error != nil {
		return fmt.Errorf("repositories: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return orm.ErrNotFound
	}
	return nil
}

// Create inserts row without touching associations.
func (r crud[T]) Create(ctx context.Context, row *T) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error
}

// Save writes every column of row without touching associations.
func (r crud[T]) Save(ctx context.Context, row *T) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(row).Error
}

func (r crud[T]) Count(ctx context.Context) (int64, error) {
	return r.query(ctx).Count()
}

// ListOptions narrows a listing. Zero values mean "no filter".
type ListOptions struct {
	Search string
	// SearchFields overrides the repository's default search columns.
	SearchFields []string
	Published    *bool
	CategoryID   uint
	OnMain       *bool
	// VisibleCategory keeps only ice creams whose category is published.
	VisibleCategory bool
	Page            int
	Limit           int
}

func (o ListOptions) apply(q *orm.Query, searchColumns ...string) *orm.Query {
	if len(o.SearchFields) > 0 {
		searchColumns = o.SearchFields
	}
	q = q.Search(o.Search, searchColumns...)
	if o.Published != nil {
		q = q.Where("is_published = ?", *o.Published)
	}
	return q
}
