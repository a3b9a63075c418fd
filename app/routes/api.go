// Package routes registers every HTTP endpoint of the application.
package routes

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/controllers"
	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
	"github.com/anfisaforfriends/anfisa/pkg/middleware"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
	"github.com/anfisaforfriends/anfisa/pkg/rbac"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

// Deps is what the handlers need. Without Queue and Disks there is no
// export endpoint; without Live or Feed there is no live stream.
type Deps struct {
	DB      *gorm.DB
	Catalog *services.Catalog
	Auth    *services.AuthService
	Queue   *queue.Manager
	Disks   jobs.DiskResolver
	// Live serves /ws/catalog.
	Live http.Handler
	// Feed serves /api/catalog/events as server-sent events.
	Feed http.Handler
}

type crud interface {
	Index(c *ctx.Context)
	Show(c *ctx.Context)
	Store(c *ctx.Context)
	Update(c *ctx.Context)
	Destroy(c *ctx.Context)
}

func resource(g *router.Group, path, name string, h crud) {
	g.Get(path, name+".index", ctx.Wrap(h.Index))
	g.Post(path, name+".store", ctx.Wrap(h.Store))
	g.Get(path+"/{id}", name+".show", ctx.Wrap(h.Show))
	g.Put(path+"/{id}", name+".update", ctx.Wrap(h.Update))
	g.Delete(path+"/{id}", name+".destroy", ctx.Wrap(h.Destroy))
}

// RegisterAPI mounts the JSON API under /api.
func RegisterAPI(r *router.Router, d Deps) {
	api := r.Group("/api")

	authController := controllers.NewAuthController(d.Auth)
	api.Post("/login", "auth.login", ctx.Wrap(authController.Login))
	api.Get("/me", "auth.me", ctx.Wrap(authController.Me), middleware.Auth)

	storefront := controllers.NewStorefrontController(d.Catalog)
	api.Get("/home", "storefront.home", ctx.Wrap(storefront.Home))
	api.Get("/categories", "storefront.categories", ctx.Wrap(storefront.Categories))
	api.Get("/categories/{slug}", "storefront.category", ctx.Wrap(storefront.Category))
	if d.Feed != nil {
		api.Get("/catalog/events", "catalog.events", d.Feed.ServeHTTP)
	}

	staff := api.Group("/admin", middleware.Auth, rbac.HasRole(rbac.RoleAdmin, rbac.RoleStaff))
	resource(staff, "/categories", "categories", controllers.NewCategoryController(d.Catalog.Categories))
	resource(staff, "/toppings", "toppings", controllers.NewToppingController(d.Catalog.Toppings))
	resource(staff, "/wrappers", "wrappers", controllers.NewWrapperController(d.Catalog.Wrappers))
	resource(staff, "/ice-creams", "ice_creams", controllers.NewIceCreamController(d.Catalog.IceCreams))

	if d.Queue != nil && d.Disks != nil {
		exports := controllers.NewExportController(d.Queue, d.Disks)
		staff.Post("/exports", "exports.store", ctx.Wrap(exports.Store))
	}
}
