package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type CategoryRepository struct {
	crud[models.Category]
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{crud[models.Category]{db: db}}
}

func (r *CategoryRepository) FindBySlug(ctx context.Context, slug string) (models.Category, error) {
	var c models.Category
	err := r.query(ctx).Where("slug = ?", slug).First(&c)
	return c, err
}

// SlugTaken reports whether another category (not exceptID) uses slug.
func (r *CategoryRepository) SlugTaken(ctx context.Context, slug string, exceptID uint) (bool, error) {
	n, err := r.query(ctx).Where("slug = ? AND id <> ?", slug, exceptID).Count()
	return n > 0, err
}

// List orders by output_order, then title.
func (r *CategoryRepository) List(ctx context.Context, opts ListOptions) ([]models.Category, orm.Pagination, error) {
	var rows []models.Category
	q := opts.apply(r.query(ctx), "title", "slug").Order("output_order").Order("title")
	p, err := q.Paginate(opts.Page, opts.Limit, &rows)
	return rows, p, err
}

// All returns every category in display order; used for form choices.
func (r *CategoryRepository) All(ctx context.Context) ([]models.Category, error) {
	var rows []models.Category
	err := r.query(ctx).Order("output_order").Order("title").Get(&rows)
	return rows, err
}

// IceCreams returns the ice creams of category id ordered by title, with
// their wrapper and toppings.
func (r *CategoryRepository) IceCreams(ctx context.Context, id uint, onlyPublished bool) ([]models.IceCream, error) {
	var rows []models.IceCream
	q := orm.On(r.db).WithContext(ctx).Model(&models.IceCream{}).
		Where("category_id = ?", id).
		Preload("Wrapper").
		Preload("Toppings").
		Order("title")
	if onlyPublished {
		q = q.Where("is_published = ?", true)
	}
	err := q.Get(&rows)
	return rows, err
}
