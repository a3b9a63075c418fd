package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anfisaforfriends/anfisa/app/models"
	"github.com/anfisaforfriends/anfisa/internal/testutil"
)

func pub() models.Publishable {
	return models.Publishable{IsPublished: true, CreatedAt: time.Now()}
}

func TestDeletingCategoryCascades(t *testing.T) {
	db := testutil.NewDB(t)

	cat := models.Category{Publishable: pub(), Title: "Classic", Slug: "classic", OutputOrder: 100}
	require.NoError(t, db.Create(&cat).Error)
	top := models.Topping{Publishable: pub(), Title: "Nuts", Slug: "nuts"}
	require.NoError(t, db.Create(&top).Error)

	ice := models.IceCream{Publishable: pub(), Title: "Plombir", Description: "Soviet classic", CategoryID: cat.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&ice).Error)
	require.NoError(t, db.Model(&ice).Association("Toppings").Append(&top))

	require.NoError(t, db.Delete(&cat).Error)

	err := db.First(&models.IceCream{}, ice.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var links int64
	db.Table("ice_cream_toppings").Count(&links)
	assert.Zero(t, links)
	assert.NoError(t, db.First(&models.Topping{}, top.ID).Error, "toppings survive")
}

func TestDeletingWrapperClearsReference(t *testing.T) {
	db := testutil.NewDB(t)

	cat := models.Category{Publishable: pub(), Title: "Classic", Slug: "classic", OutputOrder: 100}
	require.NoError(t, db.Create(&cat).Error)
	w := models.Wrapper{Publishable: pub(), Title: "Waffle cone"}
	require.NoError(t, db.Create(&w).Error)

	ice := models.IceCream{Publishable: pub(), Title: "Plombir", Description: "-", CategoryID: cat.ID, WrapperID: &w.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&ice).Error)

	require.NoError(t, db.Delete(&w).Error)

	var got models.IceCream
	require.NoError(t, db.First(&got, ice.ID).Error)
	assert.Nil(t, got.WrapperID)
}

func TestWrapperIsOneToOne(t *testing.T) {
	db := testutil.NewDB(t)

	cat := models.Category{Publishable: pub(), Title: "Classic", Slug: "classic", OutputOrder: 100}
	require.NoError(t, db.Create(&cat).Error)
	w := models.Wrapper{Publishable: pub(), Title: "Cup"}
	require.NoError(t, db.Create(&w).Error)

	a := models.IceCream{Publishable: pub(), Title: "A", Description: "-", CategoryID: cat.ID, WrapperID: &w.ID}
	require.NoError(t, db.Omit(clause.Associations).Create(&a).Error)
	b := models.IceCream{Publishable: pub(), Title: "B", Description: "-", CategoryID: cat.ID, WrapperID: &w.ID}
	err := db.Omit(clause.Associations).Create(&b).Error
	assert.Error(t, err)

	assert.True(t, db.Migrator().HasIndex(&models.IceCream{}, "idx_ice_creams_wrapper_id"))
	for _, title := range []string{"No wrapper 1", "No wrapper 2"} {
		bare := models.IceCream{Publishable: pub(), Title: title, Description: "-", CategoryID: cat.ID}
		require.NoError(t, db.Omit(clause.Associations).Create(&bare).Error, "wrapper is optional")
	}
}

func TestDuplicateSlugRejectedByDatabase(t *testing.T) {
	db := testutil.NewDB(t)

	require.NoError(t, db.Create(&models.Category{Publishable: pub(), Title: "A", Slug: "same", OutputOrder: 1}).Error)
	err := db.Create(&models.Category{Publishable: pub(), Title: "B", Slug: "same", OutputOrder: 2}).Error
	assert.Error(t, err)
}

func TestIceCreamNeedsCategory(t *testing.T) {
	db := testutil.NewDB(t)

	err := db.Omit(clause.Associations).Create(&models.IceCream{Publishable: pub(), Title: "Orphan", Description: "-", CategoryID: 999}).Error
	assert.Error(t, err)
}
