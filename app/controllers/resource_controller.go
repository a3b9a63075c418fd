package controllers

import (
	"context"

	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

// CRUD is the service shape shared by the catalog entities.
type CRUD[T, In any] interface {
	Get(ctx context.Context, id uint) (T, error)
	List(ctx context.Context, opts repositories.ListOptions) ([]T, orm.Pagination, error)
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id uint, in In) (T, error)
	Delete(ctx context.Context, id uint) error
}

// ResourceController exposes index, show, store, update and destroy for
// one entity.
type ResourceController[T, In any] struct {
	service CRUD[T, In]
	// filters adds entity-specific list filters.
	filters func(c *ctx.Context, opts *repositories.ListOptions)
}

func NewResourceController[T, In any](service CRUD[T, In]) *ResourceController[T, In] {
	return &ResourceController[T, In]{service: service}
}

func (h *ResourceController[T, In]) Index(c *ctx.Context) {
	opts := listOptions(c)
	if h.filters != nil {
		h.filters(c, &opts)
	}
	items, p, err := h.service.List(c.Context(), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.Paginated(items, p)
}

func (h *ResourceController[T, In]) Show(c *ctx.Context) {
	id, ok := id(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(item)
}

func (h *ResourceController[T, In]) Store(c *ctx.Context) {
	var in In
	if !c.BindJSON(&in) {
		return
	}
	item, err := h.service.Create(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(item)
}

// Update replaces every field of the entity.
func (h *ResourceController[T, In]) Update(c *ctx.Context) {
	id, ok := id(c)
	if !ok {
		return
	}
	var in In
	if !c.BindJSON(&in) {
		return
	}
	item, err := h.service.Update(c.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(item)
}

func (h *ResourceController[T, In]) Destroy(c *ctx.Context) {
	id, ok := id(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.NoContent()
}
