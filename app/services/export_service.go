package services

import (
	"context"
	"fmt"
	"time"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/collection"
)

// Snapshot is the JSON document written by catalog exports.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Categories  []SnapshotCategory `json:"categories"`
	Toppings    []SnapshotTopping  `json:"toppings"`
	Wrappers    []SnapshotWrapper  `json:"wrappers"`
}

type SnapshotCategory struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	Slug        string             `json:"slug"`
	OutputOrder int                `json:"output_order"`
	IsPublished bool               `json:"is_published"`
	IceCreams   []SnapshotIceCream `json:"ice_creams"`
}

type SnapshotIceCream struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Wrapper     *string  `json:"wrapper"`
	Toppings    []string `json:"toppings"`
	IsPublished bool     `json:"is_published"`
	IsOnMain    bool     `json:"is_on_main"`
}

type SnapshotTopping struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	IsPublished bool   `json:"is_published"`
}

type SnapshotWrapper struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	IsPublished bool   `json:"is_published"`
}

// Snapshot reads the whole catalog, published or not.
func (c *Catalog) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{GeneratedAt: time.Now().UTC()}

	cats, err := c.Categories.All(ctx)
	if err != nil {
		return snap, fmt.Errorf("snapshot: categories: %w", err)
	}
	for _, cat := range cats {
		ices, err := c.Categories.IceCreams(ctx, cat.ID, false)
		if err != nil {
			return snap, fmt.Errorf("snapshot: ice creams of %s: %w", cat.Slug, err)
		}
		sc := SnapshotCategory{
			ID: cat.ID, Title: cat.Title, Slug: cat.Slug,
			OutputOrder: cat.OutputOrder, IsPublished: cat.IsPublished,
			IceCreams: make([]SnapshotIceCream, 0, len(ices)),
		}
		for _, ic := range ices {
			si := SnapshotIceCream{
				ID: ic.ID, Title: ic.Title, Description: ic.Description,
				IsPublished: ic.IsPublished, IsOnMain: ic.IsOnMain,
				Toppings: collection.Map(ic.Toppings, func(t models.Topping) string { return t.Slug }),
			}
			if ic.Wrapper != nil {
				title := ic.Wrapper.Title
				si.Wrapper = &title
			}
			sc.IceCreams = append(sc.IceCreams, si)
		}
		snap.Categories = append(snap.Categories, sc)
	}

	tops, err := c.Toppings.All(ctx)
	if err != nil {
		return snap, fmt.Errorf("snapshot: toppings: %w", err)
	}
	for _, t := range tops {
		snap.Toppings = append(snap.Toppings, SnapshotTopping{ID: t.ID, Title: t.Title, Slug: t.Slug, IsPublished: t.IsPublished})
	}

	wraps, err := c.Wrappers.All(ctx)
	if err != nil {
		return snap, fmt.Errorf("snapshot: wrappers: %w", err)
	}
	for _, w := range wraps {
		snap.Wrappers = append(snap.Wrappers, SnapshotWrapper{ID: w.ID, Title: w.Title, IsPublished: w.IsPublished})
	}
	return snap, nil
}
