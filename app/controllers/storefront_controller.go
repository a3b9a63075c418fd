package controllers

import (
	"github.com/anfisaforfriends/anfisa/app/resources"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
)

// StorefrontController serves the public, published-only reads.
type StorefrontController struct {
	catalog *services.Catalog
}

func NewStorefrontController(catalog *services.Catalog) *StorefrontController {
	return &StorefrontController{catalog: catalog}
}

// Home lists the featured ice creams.
func (s *StorefrontController) Home(c *ctx.Context) {
	items, err := s.catalog.IceCreams.Featured(c.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resources.IceCream.Many(items))
}

func (s *StorefrontController) Categories(c *ctx.Context) {
	opts := listOptions(c)
	published := true
	opts.Published = &published

	items, p, err := s.catalog.Categories.List(c.Context(), opts)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(resources.Category.Page(items, p))
}

// Category shows a published category with its published ice creams.
func (s *StorefrontController) Category(c *ctx.Context) {
	cat, err := s.catalog.Categories.BySlug(c.Context(), c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	if !cat.IsPublished {
		c.NotFound()
		return
	}

	items, err := s.catalog.Categories.IceCreams(c.Context(), cat.ID, true)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]any{
		"category":   resources.Category.One(cat),
		"ice_creams": resources.IceCream.Many(items),
	})
}
