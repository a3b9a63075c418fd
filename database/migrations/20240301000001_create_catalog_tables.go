package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/pkg/migration"
)

func init() {
	migration.Register("20240301000001_create_catalog_tables", &CreateCatalogTables{})
}

// CreateCatalogTables migrates all catalog models in one call so gorm sees
// both sides of every relation and emits the ON DELETE clauses.
type CreateCatalogTables struct{}

func (m *CreateCatalogTables) Up(db *gorm.DB) error {
	if err := db.AutoMigrate(models.CatalogModels()...); err != nil {
		return err
	}
	if db.Migrator().HasIndex(&models.IceCream{}, wrapperIndex) {
		return nil
	}
	if err := db.Exec(wrapperIndexSQL(db.Dialector.Name())).Error; err != nil {
		return fmt.Errorf("create %s: %w", wrapperIndex, err)
	}
	return nil
}

const wrapperIndex = "idx_ice_creams_wrapper_id"

// wrapperIndexSQL keeps at most one ice cream per wrapper while letting any
// number of them have none. SQL Server counts NULLs as equal in a unique
// index, so it gets a filtered index; MySQL has no partial indexes but
// already allows repeated NULLs.
func wrapperIndexSQL(dialect string) string {
	stmt := "CREATE UNIQUE INDEX " + wrapperIndex + " ON ice_creams (wrapper_id)"
	if dialect == "sqlserver" {
		stmt += " WHERE wrapper_id IS NOT NULL"
	}
	return stmt
}

func (m *CreateCatalogTables) Down(db *gorm.DB) error {
	return db.Migrator().DropTable("ice_cream_toppings", &models.IceCream{}, &models.Wrapper{}, &models.Topping{}, &models.Category{})
}
