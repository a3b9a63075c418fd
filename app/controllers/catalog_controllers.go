package controllers

import (
	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
)

type (
	CategoryController = ResourceController[models.Category, services.CategoryInput]
	ToppingController  = ResourceController[models.Topping, services.ToppingInput]
	WrapperController  = ResourceController[models.Wrapper, services.WrapperInput]
	IceCreamController = ResourceController[models.IceCream, services.IceCreamInput]
)

func NewCategoryController(s *services.CategoryService) *CategoryController {
	return NewResourceController[models.Category, services.CategoryInput](s)
}

func NewToppingController(s *services.ToppingService) *ToppingController {
	return NewResourceController[models.Topping, services.ToppingInput](s)
}

func NewWrapperController(s *services.WrapperService) *WrapperController {
	return NewResourceController[models.Wrapper, services.WrapperInput](s)
}

// NewIceCreamController also filters the index by ?category= and ?on_main=.
func NewIceCreamController(s *services.IceCreamService) *IceCreamController {
	h := NewResourceController[models.IceCream, services.IceCreamInput](s)
	h.filters = func(c *ctx.Context, opts *repositories.ListOptions) {
		if id := c.QueryInt("category", 0); id > 0 {
			opts.CategoryID = uint(id)
		}
		if v, ok := c.QueryBool("on_main"); ok {
			opts.OnMain = &v
		}
	}
	return h
}
