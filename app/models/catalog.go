package models

import "time"

// Publishable is embedded by every catalog entity.
type Publishable struct {
	IsPublished bool      `gorm:"not null" json:"is_published"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}

// Category groups ice creams on the storefront. Deleting a category deletes
// its ice creams.
type Category struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Publishable
	Title       string     `gorm:"size:256;not null" json:"title"`
	Slug        string     `gorm:"size:64;not null;uniqueIndex" json:"slug"`
	OutputOrder int        `gorm:"size:16;not null" json:"output_order"`
	IceCreams   []IceCream `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE;" json:"ice_creams,omitempty"`
}

func (c Category) String() string { return c.Title }

type Topping struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Publishable
	Title string `gorm:"size:256;not null" json:"title"`
	Slug  string `gorm:"size:64;not null;uniqueIndex" json:"slug"`
}

func (t Topping) String() string { return t.Title }

// Wrapper is the packaging an ice cream is sold in. At most one ice cream
// uses a given wrapper.
type Wrapper struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Publishable
	Title    string    `gorm:"size:256;not null" json:"title"`
	IceCream *IceCream `gorm:"foreignKey:WrapperID;constraint:OnDelete:SET NULL;" json:"ice_cream,omitempty"`
}

func (w Wrapper) String() string { return w.Title }

type IceCream struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Publishable
	Title       string `gorm:"size:256;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	// WrapperID is unique among non-null values. The catalog migration
	// builds that index per dialect.
	WrapperID  *uint     `json:"wrapper_id"`
	Wrapper    *Wrapper  `gorm:"constraint:OnDelete:SET NULL;" json:"wrapper,omitempty"`
	CategoryID uint      `gorm:"not null;index" json:"category_id"`
	Category   *Category `gorm:"constraint:OnDelete:CASCADE;" json:"category,omitempty"`
	Toppings   []Topping `gorm:"many2many:ice_cream_toppings;constraint:OnDelete:CASCADE;" json:"toppings"`
	IsOnMain   bool      `gorm:"not null" json:"is_on_main"`
}

func (i IceCream) String() string { return i.Title }

// CatalogModels lists the catalog entities in dependency order.
func CatalogModels() []any {
	return []any{&Category{}, &Topping{}, &Wrapper{}, &IceCream{}}
}
