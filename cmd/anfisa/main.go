// Command anfisa runs the ice cream catalog: the web server, its workers
// and the maintenance commands.
//
//	anfisa migrate
//	anfisa seed
//	anfisa user:create --email anfisa@example.com --password ... --role admin
//	anfisa serve
package main

import (
	"context"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/config"
	_ "github.com/anfisaforfriends/anfisa/database/migrations"
	"github.com/anfisaforfriends/anfisa/database/seeders"
	"github.com/anfisaforfriends/anfisa/internal/kernel"
	"github.com/anfisaforfriends/anfisa/pkg/app"
	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

func main() {
	app.New("anfisa", "Ice cream catalog with a generated admin site").
		Command(app.MigrateCommands(openDB)...).
		Command(
			app.SeedCommand(openDB, seeders.RunAll),
			app.RouteListCommand(routeList),
			serveCmd(),
			queueWorkCmd(),
			scheduleListCmd(),
			scheduleRunCmd(),
			userCreateCmd(),
			catalogExportCmd(),
		).
		Run()
}

// openDB loads config and connects without booting the rest of the kernel.
func openDB(context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	return database.DB, nil
}

// routeList registers the routes on a kernel with no connections.
func routeList(r *router.Router) error {
	return kernel.New(nil, jobs.DefaultDisks).Routes(r)
}
