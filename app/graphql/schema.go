// Package graphql exposes the published catalog as a read-only GraphQL
// schema.
//
//	{ categories { title slug iceCreams { title wrapper { title } } } }
//	{ iceCreams(onMain: true, search: "plombir") { title category { slug } } }
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/collection"
	gql "github.com/anfisaforfriends/anfisa/pkg/graphql"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type resolver struct {
	catalog *services.Catalog
}

// NewSchema builds the catalog schema. Only published rows are visible.
func NewSchema(catalog *services.Catalog) (graphql.Schema, error) {
	r := &resolver{catalog: catalog}

	topping := graphql.NewObject(graphql.ObjectConfig{
		Name: "Topping",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"title": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"slug":  &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	wrapper := graphql.NewObject(graphql.ObjectConfig{
		Name: "Wrapper",
		Fields: graphql.Fields{
			"id":    &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"title": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	category := graphql.NewObject(graphql.ObjectConfig{
		Name: "Category",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"slug":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"outputOrder": &graphql.Field{Type: graphql.NewNonNull(graphql.Int), Resolve: field(func(c models.Category) any { return c.OutputOrder })},
		},
	})

	iceCream := graphql.NewObject(graphql.ObjectConfig{
		Name: "IceCream",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"title":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"isOnMain":    &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean), Resolve: field(func(ic models.IceCream) any { return ic.IsOnMain })},
			"category":    &graphql.Field{Type: category, Resolve: field(func(ic models.IceCream) any { return nilIfNone(ic.Category) })},
			"wrapper":     &graphql.Field{Type: wrapper, Resolve: field(func(ic models.IceCream) any { return nilIfNone(ic.Wrapper) })},
			"toppings": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(topping))),
				Resolve: field(func(ic models.IceCream) any {
					return collection.Filter(ic.Toppings, func(t models.Topping) bool { return t.IsPublished })
				}),
			},
		},
	})

	category.AddFieldConfig("iceCreams", &graphql.Field{
		Type:    graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(iceCream))),
		Resolve: r.categoryIceCreams,
	})

	page := graphql.FieldConfigArgument{
		"page":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 1},
		"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: orm.DefaultLimit},
	}
	withPage := func(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
		for k, v := range page {
			extra[k] = v
		}
		return extra
	}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"categories": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(category)),
				Args:    withPage(graphql.FieldConfigArgument{}),
				Resolve: r.categories,
			},
			"category": &graphql.Field{
				Type: category,
				Args: graphql.FieldConfigArgument{
					"slug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: r.category,
			},
			"iceCreams": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(iceCream)),
				Args: withPage(graphql.FieldConfigArgument{
					"onMain":   &graphql.ArgumentConfig{Type: graphql.Boolean},
					"category": &graphql.ArgumentConfig{Type: graphql.String, Description: "Category slug."},
					"search":   &graphql.ArgumentConfig{Type: graphql.String},
				}),
				Resolve: r.iceCreams,
			},
			"toppings": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(topping)),
				Args:    withPage(graphql.FieldConfigArgument{}),
				Resolve: r.toppings,
			},
			"wrappers": &graphql.Field{
				Type:    graphql.NewList(graphql.NewNonNull(wrapper)),
				Args:    withPage(graphql.FieldConfigArgument{}),
				Resolve: r.wrappers,
			},
		},
	})

	return gql.NewSchema(query)
}

// field resolves a value from a typed source. The default resolver only
// matches json tags, which differ from the camelCase field names.
func field[T any](get func(T) any) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (any, error) {
		switch src := p.Source.(type) {
		case T:
			return get(src), nil
		case *T:
			if src == nil {
				return nil, nil
			}
			return get(*src), nil
		}
		return nil, nil
	}
}

func nilIfNone[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func published() repositories.ListOptions {
	yes := true
	return repositories.ListOptions{Published: &yes}
}

func paged(p graphql.ResolveParams) repositories.ListOptions {
	opts := published()
	opts.Page, _ = p.Args["page"].(int)
	opts.Limit, _ = p.Args["limit"].(int)
	return opts
}

func (r *resolver) categories(p graphql.ResolveParams) (any, error) {
	rows, _, err := r.catalog.Categories.List(p.Context, paged(p))
	return rows, err
}

func (r *resolver) category(p graphql.ResolveParams) (any, error) {
	slug, _ := p.Args["slug"].(string)
	c, err := r.publishedCategory(p, slug)
	if err != nil || c == nil {
		return nil, err
	}
	return *c, nil
}

// publishedCategory returns nil without error for unknown or hidden slugs.
func (r *resolver) publishedCategory(p graphql.ResolveParams, slug string) (*models.Category, error) {
	c, err := r.catalog.Categories.BySlug(p.Context, slug)
	if errors.Is(err, services.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !c.IsPublished {
		return nil, nil
	}
	return &c, nil
}

func (r *resolver) categoryIceCreams(p graphql.ResolveParams) (any, error) {
	var c models.Category
	switch src := p.Source.(type) {
	case models.Category:
		c = src
	case *models.Category:
		c = *src
	default:
		return nil, nil
	}
	return r.catalog.Categories.IceCreams(p.Context, c.ID, true)
}

func (r *resolver) iceCreams(p graphql.ResolveParams) (any, error) {
	opts := paged(p)
	opts.VisibleCategory = true
	opts.Search, _ = p.Args["search"].(string)
	if v, ok := p.Args["onMain"].(bool); ok {
		opts.OnMain = &v
	}
	if slug, ok := p.Args["category"].(string); ok && slug != "" {
		c, err := r.publishedCategory(p, slug)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return []models.IceCream{}, nil
		}
		opts.CategoryID = c.ID
	}
	rows, _, err := r.catalog.IceCreams.List(p.Context, opts)
	return rows, err
}

func (r *resolver) toppings(p graphql.ResolveParams) (any, error) {
	rows, _, err := r.catalog.Toppings.List(p.Context, paged(p))
	return rows, err
}

func (r *resolver) wrappers(p graphql.ResolveParams) (any, error) {
	rows, _, err := r.catalog.Wrappers.List(p.Context, paged(p))
	return rows, err
}
