package admin

import (
	"context"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	site "github.com/anfisaforfriends/anfisa/pkg/admin"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

var publishedField = site.Field{Name: "is_published", Label: "Published", Kind: site.Bool, Default: true}

func listOptions(q site.Query) repositories.ListOptions {
	return repositories.ListOptions{
		Search:       q.Search,
		SearchFields: q.SearchFields,
		Published:    boolFilter(q, "is_published"),
		Page:         q.Page,
		Limit:        q.Limit,
	}
}

type CategorySource struct {
	svc *services.CategoryService
}

func (CategorySource) Meta() site.Meta {
	return site.Meta{Name: "category", Verbose: "category", VerbosePlural: "categories"}
}

func (CategorySource) Fields() []site.Field {
	return []site.Field{
		{Name: "title", Kind: site.Text, Required: true, MaxLength: 256},
		{Name: "slug", Kind: site.Text, Required: true, MaxLength: 64,
			Help: "Letters, digits, hyphens and underscores only"},
		{Name: "output_order", Label: "Output order", Kind: site.Int, Default: services.DefaultOutputOrder},
		publishedField,
	}
}

func categoryRecord(c models.Category) site.Record {
	return site.Record{
		ID:     c.ID,
		String: c.String(),
		Values: site.Values{
			"title":        c.Title,
			"slug":         c.Slug,
			"output_order": c.OutputOrder,
			"is_published": c.IsPublished,
		},
	}
}

func (s CategorySource) List(ctx context.Context, q site.Query) ([]site.Record, orm.Pagination, error) {
	rows, p, err := s.svc.List(ctx, listOptions(q))
	if err != nil {
		return nil, p, err
	}
	out := make([]site.Record, len(rows))
	for i, c := range rows {
		out[i] = categoryRecord(c)
	}
	return out, p, nil
}

func (s CategorySource) Get(ctx context.Context, id uint) (site.Record, error) {
	c, err := s.svc.Get(ctx, id)
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return categoryRecord(c), nil
}

func categoryInput(v site.Values) services.CategoryInput {
	return services.CategoryInput{
		Title:       str(v, "title"),
		Slug:        str(v, "slug"),
		OutputOrder: num(v, "output_order"),
		IsPublished: flag(v, "is_published"),
	}
}

func (s CategorySource) Create(ctx context.Context, v site.Values) (site.Record, error) {
	c, err := s.svc.Create(ctx, categoryInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return categoryRecord(c), nil
}

func (s CategorySource) Update(ctx context.Context, id uint, v site.Values) (site.Record, error) {
	c, err := s.svc.Update(ctx, id, categoryInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return categoryRecord(c), nil
}

func (s CategorySource) Delete(ctx context.Context, id uint) error {
	return adminErr(s.svc.Delete(ctx, id), nil)
}

func (CategorySource) Choices(context.Context, string) ([]site.Choice, error) { return nil, nil }

type ToppingSource struct {
	svc *services.ToppingService
}

func (ToppingSource) Meta() site.Meta {
	return site.Meta{Name: "topping", Verbose: "topping", VerbosePlural: "toppings"}
}

func (ToppingSource) Fields() []site.Field {
	return []site.Field{
		{Name: "title", Kind: site.Text, Required: true, MaxLength: 256},
		{Name: "slug", Kind: site.Text, Required: true, MaxLength: 64},
		publishedField,
	}
}

func toppingRecord(t models.Topping) site.Record {
	return site.Record{
		ID:     t.ID,
		String: t.String(),
		Values: site.Values{"title": t.Title, "slug": t.Slug, "is_published": t.IsPublished},
	}
}

func (s ToppingSource) List(ctx context.Context, q site.Query) ([]site.Record, orm.Pagination, error) {
	rows, p, err := s.svc.List(ctx, listOptions(q))
	if err != nil {
		return nil, p, err
	}
	out := make([]site.Record, len(rows))
	for i, t := range rows {
		out[i] = toppingRecord(t)
	}
	return out, p, nil
}

func (s ToppingSource) Get(ctx context.Context, id uint) (site.Record, error) {
	t, err := s.svc.Get(ctx, id)
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return toppingRecord(t), nil
}

func toppingInput(v site.Values) services.ToppingInput {
	return services.ToppingInput{Title: str(v, "title"), Slug: str(v, "slug"), IsPublished: flag(v, "is_published")}
}

func (s ToppingSource) Create(ctx context.Context, v site.Values) (site.Record, error) {
	t, err := s.svc.Create(ctx, toppingInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return toppingRecord(t), nil
}

func (s ToppingSource) Update(ctx context.Context, id uint, v site.Values) (site.Record, error) {
	t, err := s.svc.Update(ctx, id, toppingInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return toppingRecord(t), nil
}

func (s ToppingSource) Delete(ctx context.Context, id uint) error {
	return adminErr(s.svc.Delete(ctx, id), nil)
}

func (ToppingSource) Choices(context.Context, string) ([]site.Choice, error) { return nil, nil }

type WrapperSource struct {
	svc *services.WrapperService
}

func (WrapperSource) Meta() site.Meta {
	return site.Meta{Name: "wrapper", Verbose: "wrapper", VerbosePlural: "wrappers"}
}

func (WrapperSource) Fields() []site.Field {
	return []site.Field{
		{Name: "title", Kind: site.Text, Required: true, MaxLength: 256, Help: services.WrapperTitleHelp},
		publishedField,
	}
}

func wrapperRecord(w models.Wrapper) site.Record {
	return site.Record{
		ID:     w.ID,
		String: w.String(),
		Values: site.Values{"title": w.Title, "is_published": w.IsPublished},
	}
}

func (s WrapperSource) List(ctx context.Context, q site.Query) ([]site.Record, orm.Pagination, error) {
	rows, p, err := s.svc.List(ctx, listOptions(q))
	if err != nil {
		return nil, p, err
	}
	out := make([]site.Record, len(rows))
	for i, w := range rows {
		out[i] = wrapperRecord(w)
	}
	return out, p, nil
}

func (s WrapperSource) Get(ctx context.Context, id uint) (site.Record, error) {
	w, err := s.svc.Get(ctx, id)
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return wrapperRecord(w), nil
}

func wrapperInput(v site.Values) services.WrapperInput {
	return services.WrapperInput{Title: str(v, "title"), IsPublished: flag(v, "is_published")}
}

func (s WrapperSource) Create(ctx context.Context, v site.Values) (site.Record, error) {
	w, err := s.svc.Create(ctx, wrapperInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return wrapperRecord(w), nil
}

func (s WrapperSource) Update(ctx context.Context, id uint, v site.Values) (site.Record, error) {
	w, err := s.svc.Update(ctx, id, wrapperInput(v))
	if err != nil {
		return site.Record{}, adminErr(err, nil)
	}
	return wrapperRecord(w), nil
}

func (s WrapperSource) Delete(ctx context.Context, id uint) error {
	return adminErr(s.svc.Delete(ctx, id), nil)
}

func (WrapperSource) Choices(context.Context, string) ([]site.Choice, error) { return nil, nil }
