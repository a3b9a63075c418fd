package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type WrapperRepository struct {
	crud[models.Wrapper]
}

func NewWrapperRepository(db *gorm.DB) *WrapperRepository {
	return &WrapperRepository{crud[models.Wrapper]{db: db}}
}

func (r *WrapperRepository) List(ctx context.Context, opts ListOptions) ([]models.Wrapper, orm.Pagination, error) {
	var rows []models.Wrapper
	q := opts.apply(r.query(ctx), "title").Preload("IceCream").Order("title")
	p, err := q.Paginate(opts.Page, opts.Limit, &rows)
	return rows, p, err
}

func (r *WrapperRepository) All(ctx context.Context) ([]models.Wrapper, error) {
	var rows []models.Wrapper
	err := r.query(ctx).Order("title").Get(&rows)
	return rows, err
}

// InUse reports whether an ice cream other than exceptIceCreamID already
// uses wrapper id.
func (r *WrapperRepository) InUse(ctx context.Context, id, exceptIceCreamID uint) (bool, error) {
	n, err := orm.On(r.db).WithContext(ctx).Model(&models.IceCream{}).
		Where("wrapper_id = ? AND id <> ?", id, exceptIceCreamID).
		Count()
	return n > 0, err
}
