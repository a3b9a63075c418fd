// Package resources holds the public JSON shapes of the catalog.
package resources

import (
	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/collection"
	"github.com/anfisaforfriends/anfisa/pkg/resource"
)

var Category resource.Transformer[models.Category] = func(c models.Category) resource.Map {
	return resource.Map{
		"id":           c.ID,
		"title":        c.Title,
		"slug":         c.Slug,
		"output_order": c.OutputOrder,
	}
}

// IceCream hides publication flags; the storefront only lists published rows.
var IceCream resource.Transformer[models.IceCream] = func(ic models.IceCream) resource.Map {
	toppings := collection.Map(
		collection.Filter(ic.Toppings, func(t models.Topping) bool { return t.IsPublished }),
		func(t models.Topping) string { return t.Title },
	)
	return resource.Map{
		"id":          ic.ID,
		"title":       ic.Title,
		"description": ic.Description,
		"toppings":    toppings,
		"is_on_main":  ic.IsOnMain,
		"wrapper":     resource.When(ic.Wrapper != nil, func() any { return ic.Wrapper.Title }),
		"category": resource.When(ic.Category != nil, func() any {
			return resource.Map{"title": ic.Category.Title, "slug": ic.Category.Slug}
		}),
	}
}
