package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/internal/testutil"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/event"
)

type recorder struct {
	mu     sync.Mutex
	events []CatalogChanged
}

func (r *recorder) handle(_ context.Context, e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.(CatalogChanged))
}

func newCatalog(t *testing.T) (*Catalog, *recorder) {
	t.Helper()
	cache.Use(cache.NewMemoryStore())
	bus := event.New(nil)
	rec := &recorder{}
	bus.Listen(CatalogChangedEvent, rec.handle)
	return NewCatalog(testutil.NewDB(t), bus), rec
}

func ptr[T any](v T) *T { return &v }

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
	return verr.Fields
}

func mustCategory(t *testing.T, c *Catalog, slug string) uint {
	t.Helper()
	cat, err := c.Categories.Create(context.Background(), CategoryInput{Title: strings.ToUpper(slug), Slug: slug})
	require.NoError(t, err)
	return cat.ID
}

func TestCategoryCreate_Defaults(t *testing.T) {
	c, rec := newCatalog(t)

	cat, err := c.Categories.Create(context.Background(), CategoryInput{Title: "  Classic ", Slug: "classic"})
	require.NoError(t, err)

	assert.Equal(t, "Classic", cat.Title)
	assert.True(t, cat.IsPublished)
	assert.Equal(t, DefaultOutputOrder, cat.OutputOrder)
	assert.False(t, cat.CreatedAt.IsZero())
	assert.Equal(t, []CatalogChanged{{Entity: EntityCategory, Action: ActionCreated, ID: cat.ID, Title: "Classic"}}, rec.events)
}

func TestCategoryCreate_DuplicateSlugFailsValidation(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	_, err := c.Categories.Create(ctx, CategoryInput{Title: "A", Slug: "same"})
	require.NoError(t, err)

	_, err = c.Categories.Create(ctx, CategoryInput{Title: "B", Slug: "same"})
	assert.Equal(t, map[string]string{"slug": "Category with this Slug already exists."}, fieldErrors(t, err))

	cats, _, err := c.Categories.List(ctx, repositories.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, cats, 1)
}

func TestCategoryCreate_FieldRules(t *testing.T) {
	c, _ := newCatalog(t)

	_, err := c.Categories.Create(context.Background(), CategoryInput{
		Title:       strings.Repeat("x", 257),
		Slug:        "not a slug!",
		OutputOrder: ptr(40000),
	})
	fields := fieldErrors(t, err)
	assert.Equal(t, "Ensure this value has at most 256 characters (it has 257).", fields["title"])
	assert.Contains(t, fields["slug"], "valid slug")
	assert.Contains(t, fields["output_order"], "32767")
}

func TestCategoryUpdate_KeepsOwnSlug(t *testing.T) {
	c, rec := newCatalog(t)
	ctx := context.Background()
	id := mustCategory(t, c, "classic")

	in := CategoryInput{Title: "Classics", Slug: "classic", OutputOrder: ptr(5), IsPublished: ptr(false)}
	cat, err := c.Categories.Update(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, "Classics", cat.Title)
	assert.Equal(t, 5, cat.OutputOrder)
	assert.False(t, cat.IsPublished)
	assert.Equal(t, ActionUpdated, rec.events[len(rec.events)-1].Action)

	_, err = c.Categories.Update(ctx, 9999, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletingCategoryDeletesItsIceCreams(t *testing.T) {
	c, rec := newCatalog(t)
	ctx := context.Background()
	catID := mustCategory(t, c, "classic")

	ic, err := c.IceCreams.Create(ctx, IceCreamInput{Title: "Plombir", Description: "Creamy", CategoryID: catID})
	require.NoError(t, err)
	assert.Equal(t, "classic", ic.Category.Slug)

	require.NoError(t, c.Categories.Delete(ctx, catID))

	_, err = c.IceCreams.Get(ctx, ic.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, ActionDeleted, rec.events[len(rec.events)-1].Action)
	assert.ErrorIs(t, c.Categories.Delete(ctx, catID), ErrNotFound)
}

func TestDeletingWrapperKeepsIceCream(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	catID := mustCategory(t, c, "classic")

	w, err := c.Wrappers.Create(ctx, WrapperInput{Title: "Waffle cone"})
	require.NoError(t, err)
	ic, err := c.IceCreams.Create(ctx, IceCreamInput{Title: "Plombir", Description: "Creamy", CategoryID: catID, WrapperID: &w.ID})
	require.NoError(t, err)
	require.NotNil(t, ic.Wrapper)

	require.NoError(t, c.Wrappers.Delete(ctx, w.ID))

	got, err := c.IceCreams.Get(ctx, ic.ID)
	require.NoError(t, err)
	assert.Nil(t, got.WrapperID)
	assert.Nil(t, got.Wrapper)
}

func TestIceCream_WrapperIsExclusive(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	catID := mustCategory(t, c, "classic")
	w, err := c.Wrappers.Create(ctx, WrapperInput{Title: "Cup"})
	require.NoError(t, err)

	first, err := c.IceCreams.Create(ctx, IceCreamInput{Title: "A", Description: "a", CategoryID: catID, WrapperID: &w.ID})
	require.NoError(t, err)

	_, err = c.IceCreams.Create(ctx, IceCreamInput{Title: "B", Description: "b", CategoryID: catID, WrapperID: &w.ID})
	assert.Equal(t, "Ice cream with this Wrapper already exists.", fieldErrors(t, err)["wrapper_id"])

	_, err = c.IceCreams.Update(ctx, first.ID, IceCreamInputFrom(first))
	assert.NoError(t, err, "an ice cream may keep its own wrapper")
}

func TestIceCream_InvalidReferences(t *testing.T) {
	c, _ := newCatalog(t)

	_, err := c.IceCreams.Create(context.Background(), IceCreamInput{
		Title:      "Ghost",
		CategoryID: 42,
		WrapperID:  ptr(uint(7)),
		ToppingIDs: []uint{3},
	})
	fields := fieldErrors(t, err)
	assert.Equal(t, "This field is required.", fields["description"])
	assert.Equal(t, msgInvalidChoice, fields["category_id"])
	assert.Equal(t, msgInvalidChoice, fields["wrapper_id"])
	assert.Equal(t, "Select a valid choice. 3 is not one of the available choices.", fields["toppings"])
}

func TestIceCream_UpdateReplacesToppings(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	catID := mustCategory(t, c, "classic")

	nuts, err := c.Toppings.Create(ctx, ToppingInput{Title: "Nuts", Slug: "nuts"})
	require.NoError(t, err)
	syrup, err := c.Toppings.Create(ctx, ToppingInput{Title: "Syrup", Slug: "syrup"})
	require.NoError(t, err)

	ic, err := c.IceCreams.Create(ctx, IceCreamInput{Title: "Sundae", Description: "d", CategoryID: catID, ToppingIDs: []uint{nuts.ID, nuts.ID}})
	require.NoError(t, err)
	require.Len(t, ic.Toppings, 1)

	in := IceCreamInputFrom(ic)
	in.ToppingIDs = []uint{syrup.ID}
	in.IsOnMain = true
	ic, err = c.IceCreams.Update(ctx, ic.ID, in)
	require.NoError(t, err)
	require.Len(t, ic.Toppings, 1)
	assert.Equal(t, "syrup", ic.Toppings[0].Slug)
	assert.True(t, ic.IsOnMain)

	in.ToppingIDs = nil
	ic, err = c.IceCreams.Update(ctx, ic.ID, in)
	require.NoError(t, err)
	assert.Empty(t, ic.Toppings)
}

func TestIceCream_ListFilters(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	classic := mustCategory(t, c, "classic")
	sorbets := mustCategory(t, c, "sorbets")

	for _, in := range []IceCreamInput{
		{Title: "Vanilla", Description: "-", CategoryID: classic, IsOnMain: true},
		{Title: "Chocolate", Description: "-", CategoryID: classic},
		{Title: "Lemon", Description: "-", CategoryID: sorbets, IsOnMain: true},
	} {
		_, err := c.IceCreams.Create(ctx, in)
		require.NoError(t, err)
	}

	rows, p, err := c.IceCreams.List(ctx, repositories.ListOptions{CategoryID: classic})
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.Total)
	assert.Equal(t, "Chocolate", rows[0].Title)

	rows, _, err = c.IceCreams.List(ctx, repositories.ListOptions{Search: "LEM"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "sorbets", rows[0].Category.Slug)

	rows, _, err = c.IceCreams.List(ctx, repositories.ListOptions{OnMain: ptr(true), Limit: 1, Page: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Vanilla", rows[0].Title)
}

func TestFeatured(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	first, err := c.Categories.Create(ctx, CategoryInput{Title: "First", Slug: "first", OutputOrder: ptr(1)})
	require.NoError(t, err)
	second, err := c.Categories.Create(ctx, CategoryInput{Title: "Second", Slug: "second", OutputOrder: ptr(2)})
	require.NoError(t, err)
	hidden, err := c.Categories.Create(ctx, CategoryInput{Title: "Hidden", Slug: "hidden", IsPublished: ptr(false)})
	require.NoError(t, err)

	for _, in := range []IceCreamInput{
		{Title: "Zebra", Description: "-", CategoryID: first.ID, IsOnMain: true},
		{Title: "Apple", Description: "-", CategoryID: second.ID, IsOnMain: true},
		{Title: "Banana", Description: "-", CategoryID: first.ID, IsOnMain: true},
		{Title: "Draft", Description: "-", CategoryID: first.ID, IsOnMain: true, IsPublished: ptr(false)},
		{Title: "Plain", Description: "-", CategoryID: first.ID},
		{Title: "Secret", Description: "-", CategoryID: hidden.ID, IsOnMain: true},
	} {
		_, err := c.IceCreams.Create(ctx, in)
		require.NoError(t, err)
	}

	rows, err := c.IceCreams.Featured(ctx)
	require.NoError(t, err)
	var titles []string
	for _, r := range rows {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"Banana", "Zebra", "Apple"}, titles)

	_, err = c.IceCreams.Create(ctx, IceCreamInput{Title: "Aardvark", Description: "-", CategoryID: first.ID, IsOnMain: true})
	require.NoError(t, err)
	rows, err = c.IceCreams.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "served from cache until forgotten")

	require.NoError(t, cache.Forget(ctx, FeaturedCacheKey))
	rows, err = c.IceCreams.Featured(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestTopping_DuplicateSlug(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	_, err := c.Toppings.Create(ctx, ToppingInput{Title: "Nuts", Slug: "nuts"})
	require.NoError(t, err)
	_, err = c.Toppings.Create(ctx, ToppingInput{Title: "More nuts", Slug: "nuts"})
	assert.Equal(t, "Topping with this Slug already exists.", fieldErrors(t, err)["slug"])
}

func TestSnapshot(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	catID := mustCategory(t, c, "classic")
	w, err := c.Wrappers.Create(ctx, WrapperInput{Title: "Cone"})
	require.NoError(t, err)
	nuts, err := c.Toppings.Create(ctx, ToppingInput{Title: "Nuts", Slug: "nuts"})
	require.NoError(t, err)
	_, err = c.IceCreams.Create(ctx, IceCreamInput{
		Title: "Plombir", Description: "-", CategoryID: catID, WrapperID: &w.ID, ToppingIDs: []uint{nuts.ID},
	})
	require.NoError(t, err)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Categories, 1)
	require.Len(t, snap.Categories[0].IceCreams, 1)
	ic := snap.Categories[0].IceCreams[0]
	assert.Equal(t, "Cone", *ic.Wrapper)
	assert.Equal(t, []string{"nuts"}, ic.Toppings)
	assert.Len(t, snap.Toppings, 1)
	assert.Len(t, snap.Wrappers, 1)
}
