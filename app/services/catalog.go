// Package services holds the catalog and account business rules: input
// validation, defaults, uniqueness checks and change events. Controllers,
// the admin site, GraphQL and jobs all go through it.
package services

import (
	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/pkg/event"
)

type Catalog struct {
	Categories *CategoryService
	Toppings   *ToppingService
	Wrappers   *WrapperService
	IceCreams  *IceCreamService
}

// NewCatalog wires the catalog services on db. bus may be nil.
func NewCatalog(db *gorm.DB, bus *event.Bus) *Catalog {
	n := notifier{bus: bus}
	categories := repositories.NewCategoryRepository(db)
	toppings := repositories.NewToppingRepository(db)
	wrappers := repositories.NewWrapperRepository(db)
	iceCreams := repositories.NewIceCreamRepository(db)

	return &Catalog{
		Categories: NewCategoryService(categories, n),
		Toppings:   NewToppingService(toppings, n),
		Wrappers:   NewWrapperService(wrappers, n),
		IceCreams:  NewIceCreamService(iceCreams, categories, wrappers, toppings, n),
	}
}
