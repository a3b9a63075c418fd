package routes

import (
	"fmt"

	"github.com/anfisaforfriends/anfisa/app/admin"
	"github.com/anfisaforfriends/anfisa/app/controllers"
	"github.com/anfisaforfriends/anfisa/app/graphql"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	gql "github.com/anfisaforfriends/anfisa/pkg/graphql"
	"github.com/anfisaforfriends/anfisa/pkg/metrics"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

// AdminPrefix is where the admin site is mounted.
const AdminPrefix = "/admin"

// RegisterWeb mounts the admin site, GraphQL, live updates and the
// operational endpoints.
func RegisterWeb(r *router.Router, d Deps) error {
	r.Get("/metrics", "metrics", metrics.Handler())
	r.Get("/healthz", "health", ctx.Wrap(controllers.NewHealthController(d.DB).Check))

	schema, err := graphql.NewSchema(d.Catalog)
	if err != nil {
		return fmt.Errorf("routes: graphql schema: %w", err)
	}
	h := gql.Handler(schema)
	r.Get("/graphql", "graphql.get", h)
	r.Post("/graphql", "graphql.post", h)

	if d.Live != nil {
		r.Handle("/ws/catalog", "catalog.live", d.Live)
	}

	site, err := admin.NewSite(d.Catalog, d.Auth)
	if err != nil {
		return err
	}
	return site.Mount(r, AdminPrefix)
}

// Register mounts everything.
func Register(r *router.Router, d Deps) error {
	RegisterAPI(r, d)
	return RegisterWeb(r, d)
}
