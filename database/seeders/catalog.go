package seeders

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anfisaforfriends/anfisa/app/models"
)

//go:embed fixtures/catalog.yaml
var catalogYAML []byte

func init() {
	Register("catalog", SeedCatalog)
}

type catalogFixture struct {
	Categories []struct {
		Title       string `yaml:"title"`
		Slug        string `yaml:"slug"`
		OutputOrder *int   `yaml:"output_order"`
		Published   *bool  `yaml:"published"`
	} `yaml:"categories"`
	Toppings []struct {
		Title     string `yaml:"title"`
		Slug      string `yaml:"slug"`
		Published *bool  `yaml:"published"`
	} `yaml:"toppings"`
	Wrappers []struct {
		Title     string `yaml:"title"`
		Published *bool  `yaml:"published"`
	} `yaml:"wrappers"`
	IceCreams []struct {
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Category    string   `yaml:"category"`
		Wrapper     string   `yaml:"wrapper"`
		Toppings    []string `yaml:"toppings"`
		OnMain      bool     `yaml:"on_main"`
		Published   *bool    `yaml:"published"`
	} `yaml:"ice_creams"`
}

func published(p *bool) bool { return p == nil || *p }

// SeedCatalog loads fixtures/catalog.yaml. Categories and toppings are
// matched by slug, wrappers and ice creams by title, so existing rows are
// left alone.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	var fx catalogFixture
	if err := yaml.Unmarshal(catalogYAML, &fx); err != nil {
		return fmt.Errorf("parse fixtures: %w", err)
	}
	return seedFixture(ctx, db, fx)
}

func seedFixture(ctx context.Context, db *gorm.DB, fx catalogFixture) error {
	db = db.WithContext(ctx)
	now := time.Now()

	categories := map[string]*models.Category{}
	for _, c := range fx.Categories {
		order := 100
		if c.OutputOrder != nil {
			order = *c.OutputOrder
		}
		row := models.Category{
			Publishable: models.Publishable{IsPublished: published(c.Published), CreatedAt: now},
			Title:       c.Title,
			Slug:        c.Slug,
			OutputOrder: order,
		}
		if err := db.Where(models.Category{Slug: c.Slug}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("category %s: %w", c.Slug, err)
		}
		categories[c.Slug] = &row
	}

	toppings := map[string]models.Topping{}
	for _, t := range fx.Toppings {
		row := models.Topping{
			Publishable: models.Publishable{IsPublished: published(t.Published), CreatedAt: now},
			Title:       t.Title,
			Slug:        t.Slug,
		}
		if err := db.Where(models.Topping{Slug: t.Slug}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("topping %s: %w", t.Slug, err)
		}
		toppings[t.Slug] = row
	}

	wrappers := map[string]*models.Wrapper{}
	for _, w := range fx.Wrappers {
		row := models.Wrapper{
			Publishable: models.Publishable{IsPublished: published(w.Published), CreatedAt: now},
			Title:       w.Title,
		}
		if err := db.Where(models.Wrapper{Title: w.Title}).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("wrapper %s: %w", w.Title, err)
		}
		wrappers[w.Title] = &row
	}

	for _, ic := range fx.IceCreams {
		cat, ok := categories[ic.Category]
		if !ok {
			return fmt.Errorf("ice cream %q: unknown category %q", ic.Title, ic.Category)
		}

		var existing int64
		if err := db.Model(&models.IceCream{}).Where("title = ?", ic.Title).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		row := models.IceCream{
			Publishable: models.Publishable{IsPublished: published(ic.Published), CreatedAt: now},
			Title:       ic.Title,
			Description: ic.Description,
			CategoryID:  cat.ID,
			IsOnMain:    ic.OnMain,
		}
		if ic.Wrapper != "" {
			w, ok := wrappers[ic.Wrapper]
			if !ok {
				return fmt.Errorf("ice cream %q: unknown wrapper %q", ic.Title, ic.Wrapper)
			}
			row.WrapperID = &w.ID
		}
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("ice cream %s: %w", ic.Title, err)
		}

		var tops []models.Topping
		for _, slug := range ic.Toppings {
			t, ok := toppings[slug]
			if !ok {
				return fmt.Errorf("ice cream %q: unknown topping %q", ic.Title, slug)
			}
			tops = append(tops, t)
		}
		if len(tops) > 0 {
			if err := db.Model(&row).Association("Toppings").Append(tops); err != nil {
				return fmt.Errorf("ice cream %s toppings: %w", ic.Title, err)
			}
		}
	}
	return nil
}
