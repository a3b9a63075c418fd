package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/services"
	site "github.com/anfisaforfriends/anfisa/pkg/admin"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

// iceCreamKeys maps service input keys to form field names.
var iceCreamKeys = map[string]string{
	"category_id": "category",
	"wrapper_id":  "wrapper",
}

type IceCreamSource struct {
	svc     *services.IceCreamService
	catalog *services.Catalog
}

func (IceCreamSource) Meta() site.Meta {
	return site.Meta{Name: "icecream", Verbose: "ice cream", VerbosePlural: "ice creams"}
}

func (IceCreamSource) Fields() []site.Field {
	return []site.Field{
		{Name: "title", Kind: site.Text, Required: true, MaxLength: 256},
		{Name: "description", Kind: site.TextArea, Required: true},
		{Name: "category", Kind: site.ForeignKey, Required: true},
		{Name: "wrapper", Kind: site.ForeignKey},
		{Name: "toppings", Kind: site.ManyToMany},
		publishedField,
		{Name: "is_on_main", Label: "On main", Kind: site.Bool, Default: false},
	}
}

func iceCreamRecord(ic models.IceCream) site.Record {
	category := ic.CategoryID
	toppings := make([]uint, len(ic.Toppings))
	titles := make([]string, len(ic.Toppings))
	for i, t := range ic.Toppings {
		toppings[i], titles[i] = t.ID, t.Title
	}

	rec := site.Record{
		ID:     ic.ID,
		String: ic.String(),
		Values: site.Values{
			"title":        ic.Title,
			"description":  ic.Description,
			"category":     &category,
			"wrapper":      ic.WrapperID,
			"toppings":     toppings,
			"is_published": ic.IsPublished,
			"is_on_main":   ic.IsOnMain,
		},
		Labels: map[string]string{"toppings": strings.Join(titles, ", ")},
	}
	if ic.Category != nil {
		rec.Labels["category"] = ic.Category.String()
	}
	if ic.Wrapper != nil {
		rec.Labels["wrapper"] = ic.Wrapper.String()
	}
	return rec
}

func (s IceCreamSource) List(ctx context.Context, q site.Query) ([]site.Record, orm.Pagination, error) {
	opts := listOptions(q)
	opts.CategoryID = uintFilter(q, "category")
	opts.OnMain = boolFilter(q, "is_on_main")

	rows, p, err := s.svc.List(ctx, opts)
	if err != nil {
		return nil, p, err
	}
	out := make([]site.Record, len(rows))
	for i, ic := range rows {
		out[i] = iceCreamRecord(ic)
	}
	return out, p, nil
}

func (s IceCreamSource) Get(ctx context.Context, id uint) (site.Record, error) {
	ic, err := s.svc.Get(ctx, id)
	if err != nil {
		return site.Record{}, adminErr(err, iceCreamKeys)
	}
	return iceCreamRecord(ic), nil
}

func iceCreamInput(v site.Values) services.IceCreamInput {
	in := services.IceCreamInput{
		Title:       str(v, "title"),
		Description: str(v, "description"),
		WrapperID:   fk(v, "wrapper"),
		ToppingIDs:  ids(v, "toppings"),
		IsPublished: flag(v, "is_published"),
	}
	if id := fk(v, "category"); id != nil {
		in.CategoryID = *id
	}
	if on := flag(v, "is_on_main"); on != nil {
		in.IsOnMain = *on
	}
	return in
}

// Create and Update reload the row so labels reflect the new relations.
func (s IceCreamSource) Create(ctx context.Context, v site.Values) (site.Record, error) {
	ic, err := s.svc.Create(ctx, iceCreamInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, iceCreamKeys)
	}
	return s.Get(ctx, ic.ID)
}

func (s IceCreamSource) Update(ctx context.Context, id uint, v site.Values) (site.Record, error) {
	if _, err := s.svc.Update(ctx, id, iceCreamInput(v)); err != nil {
		return site.Record{}, adminErr(err, iceCreamKeys)
	}
	return s.Get(ctx, id)
}

func (s IceCreamSource) Delete(ctx context.Context, id uint) error {
	return adminErr(s.svc.Delete(ctx, id), iceCreamKeys)
}

func (s IceCreamSource) Choices(ctx context.Context, field string) ([]site.Choice, error) {
	switch field {
	case "category":
		rows, err := s.catalog.Categories.All(ctx)
		return choices(rows, func(c models.Category) uint { return c.ID }), err
	case "wrapper":
		rows, err := s.catalog.Wrappers.All(ctx)
		return choices(rows, func(w models.Wrapper) uint { return w.ID }), err
	case "toppings":
		rows, err := s.catalog.Toppings.All(ctx)
		return choices(rows, func(t models.Topping) uint { return t.ID }), err
	}
	return nil, fmt.Errorf("admin: ice cream has no choices for %q", field)
}

func choices[T fmt.Stringer](rows []T, id func(T) uint) []site.Choice {
	out := make([]site.Choice, len(rows))
	for i, r := range rows {
		out[i] = site.Choice{Value: id(r), Label: r.String()}
	}
	return out
}
