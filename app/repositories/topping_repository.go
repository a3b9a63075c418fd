package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type ToppingRepository struct {
	crud[models.Topping]
}

func NewToppingRepository(db *gorm.DB) *ToppingRepository {
	return &ToppingRepository{crud[models.Topping]{db: db}}
}

func (r *ToppingRepository) SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	n, err := r.query(ctx).Where("slug = ? AND id <> ?", slug, exceptID).Count()
	return n > 0, err
}

func (r *ToppingRepository) List(ctx context.Context, opts ListOptions) ([]models.Topping, orm.Pagination, error) {
	var rows []models.Topping
	q := opts.apply(r.query(ctx), "title", "slug").Order("title")
	p, err := q.Paginate(opts.Page, opts.Limit, &rows)
	return rows, p, err
}

func (r *ToppingRepository) All(ctx context.Context) ([]models.Topping, error) {
	var rows []models.Topping
	err := r.query(ctx).Order("title").Get(&rows)
	return rows, err
}
