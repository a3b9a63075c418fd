package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type IceCreamRepository struct {
	crud[models.IceCream]
}

func NewIceCreamRepository(db *gorm.DB) *IceCreamRepository {
	return &IceCreamRepository{crud[models.IceCream]{db: db}}
}

func (r *IceCreamRepository) withRelations(ctx context.Context) *orm.Query {
	return r.query(ctx).Preload("Category").Preload("Wrapper").Preload("Toppings")
}

// Get loads one ice cream with category, wrapper and toppings.
func (r *IceCreamRepository) Get(ctx context.Context, id uint) (models.IceCream, error) {
	var ic models.IceCream
	err := r.withRelations(ctx).Where("ice_creams.id = ?", id).First(&ic)
	return ic, err
}

func (r *IceCreamRepository) List(ctx context.Context, opts ListOptions) ([]models.IceCream, orm.Pagination, error) {
	var rows []models.IceCream
	q := opts.apply(r.withRelations(ctx), "title")
	if opts.CategoryID != 0 {
		q = q.Where("category_id = ?", opts.CategoryID)
	}
	if opts.OnMain != nil {
		q = q.Where("is_on_main = ?", *opts.OnMain)
	}
	if opts.VisibleCategory {
		q = q.Where("category_id IN (SELECT id FROM categories WHERE is_published = ?)", true)
	}
	p, err := q.Order("title").Order("id").Paginate(opts.Page, opts.Limit, &rows)
	return rows, p, err
}

// Featured returns published, on-main ice creams whose category is also
// published, ordered by category output_order then title.
func (r *IceCreamRepository) Featured(ctx context.Context) ([]models.IceCream, error) {
	var rows []models.IceCream
	err := r.query(ctx).
		Joins("JOIN categories ON categories.id = ice_creams.category_id").
		Where("ice_creams.is_published = ? AND ice_creams.is_on_main = ? AND categories.is_published = ?", true, true, true).
		Preload("Category").Preload("Wrapper").Preload("Toppings").
		Order("categories.output_order").Order("ice_creams.title").
		Get(&rows)
	return rows, err
}

// CreateWithToppings inserts ic and links toppings in one transaction.
func (r *IceCreamRepository) CreateWithToppings(ctx context.Context, ic *models.IceCream, toppings []models.Topping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(ic).Error; err != nil {
			return err
		}
		return replaceToppings(tx, ic, toppings)
	})
}

// SaveWithToppings updates every column of ic and replaces its toppings.
func (r *IceCreamRepository) SaveWithToppings(ctx context.Context, ic *models.IceCream, toppings []models.Topping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(ic).Error; err != nil {
			return err
		}
		return replaceToppings(tx, ic, toppings)
	})
}

func replaceToppings(tx *gorm.DB, ic *models.IceCream, toppings []models.Topping) error {
	assoc := tx.Model(ic).Association("Toppings")
	var err error
	if len(toppings) == 0 {
		err = assoc.Clear()
	} else {
		err = assoc.Replace(toppings)
	}
	if err != nil {
		return fmt.Errorf("repositories: replace toppings: %w", err)
	}
	ic.Toppings = toppings
	return nil
}
