package admin

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/internal/testutil"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/router"
)

type harness struct {
	catalog *services.Catalog
	srv     *httptest.Server
	client  *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cache.Use(cache.NewMemoryStore())
	db := testutil.NewDB(t)
	catalog := services.NewCatalog(db, nil)
	users := repositories.NewUserRepository(db)

	_, err := services.NewUserService(users).Create(context.Background(), services.UserInput{
		Name: "Anfisa", Email: "anfisa@example.com", Password: "plombir-1954", Role: "staff",
	})
	require.NoError(t, err)

	s, err := NewSite(catalog, services.NewAuthService(users))
	require.NoError(t, err)
	r := router.New()
	require.NoError(t, s.Mount(r, "/admin"))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	jar, _ := cookiejar.New(nil)
	h := &harness{catalog: catalog, srv: srv, client: &http.Client{Jar: jar}}
	h.login(t)
	return h
}

var tokenRe = regexp.MustCompile(`name="csrfmiddlewaretoken" value="([0-9a-f]+)"`)

func (h *harness) get(t *testing.T, path string) string {
	t.Helper()
	resp, err := h.client.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode, path)
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func (h *harness) post(t *testing.T, path string, form url.Values) string {
	t.Helper()
	m := tokenRe.FindStringSubmatch(h.get(t, path))
	require.Len(t, m, 2)
	form.Set("csrfmiddlewaretoken", m[1])

	resp, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func (h *harness) login(t *testing.T) {
	body := h.post(t, "/admin/login/", url.Values{
		"username": {"anfisa@example.com"},
		"password": {"plombir-1954"},
	})
	require.Contains(t, body, "Site administration")
}

func TestDescriptorsRegister(t *testing.T) {
	ic := IceCreamAdmin()
	assert.Equal(t, []string{"title"}, ic.ListDisplayLinks)
	assert.Equal(t, "Not set", ic.EmptyValueDisplay)
	assert.Equal(t, []string{"toppings"}, ic.FilterHorizontal)

	cat := CategoryAdmin(IceCreamSource{})
	require.Len(t, cat.Inlines, 1)
	assert.Equal(t, 0, cat.Inlines[0].Extra)
	assert.Equal(t, "category", cat.Inlines[0].FKName)
}

func TestCategoryChangePageShowsIceCreamInline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cat, err := h.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Classic", Slug: "classic"})
	require.NoError(t, err)
	ic, err := h.catalog.IceCreams.Create(ctx, services.IceCreamInput{
		Title: "Plombir", Description: "Creamy vanilla", CategoryID: cat.ID,
	})
	require.NoError(t, err)

	body := h.get(t, fmt.Sprintf("/admin/category/%d/change/", cat.ID))
	assert.Contains(t, body, fmt.Sprintf(`<a href="/admin/icecream/%d/change/">Plombir</a>`, ic.ID))
	assert.Contains(t, body, `name="icecream-TOTAL_FORMS" value="1"`)
	assert.Contains(t, body, "Creamy vanilla")
}

func TestIceCreamChangelist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cat, err := h.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Sorbets", Slug: "sorbets"})
	require.NoError(t, err)
	_, err = h.catalog.IceCreams.Create(ctx, services.IceCreamInput{
		Title: "Lemon ice", Description: "Tart", CategoryID: cat.ID,
	})
	require.NoError(t, err)

	body := h.get(t, "/admin/icecream/")
	assert.Contains(t, body, "Lemon ice")
	assert.Contains(t, body, "Not set", "missing wrapper uses the empty value")
	assert.Contains(t, body, `name="form-0-category"`)

	body = h.get(t, "/admin/icecream/?q=plombir")
	assert.NotContains(t, body, "Lemon ice")
}

func TestIceCreamFormErrorsUseFieldNames(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cat, err := h.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Classic", Slug: "classic"})
	require.NoError(t, err)
	w, err := h.catalog.Wrappers.Create(ctx, services.WrapperInput{Title: "Waffle cone"})
	require.NoError(t, err)
	_, err = h.catalog.IceCreams.Create(ctx, services.IceCreamInput{
		Title: "Plombir", Description: "Vanilla", CategoryID: cat.ID, WrapperID: &w.ID,
	})
	require.NoError(t, err)

	body := h.post(t, "/admin/icecream/add/", url.Values{
		"title":       {"Second"},
		"description": {"Also vanilla"},
		"category":    {fmt.Sprint(cat.ID)},
		"wrapper":     {fmt.Sprint(w.ID)},
	})
	assert.Contains(t, body, "Ice cream with this Wrapper already exists.")

	_, p, err := h.catalog.IceCreams.List(ctx, repositories.ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, p.Total)
}

func TestAddCategoryThroughAdmin(t *testing.T) {
	h := newHarness(t)

	body := h.post(t, "/admin/category/add/", url.Values{
		"title":        {"Seasonal"},
		"slug":         {"seasonal"},
		"output_order": {"30"},
	})
	assert.Contains(t, body, "The category “Seasonal” was added successfully.")

	cat, err := h.catalog.Categories.BySlug(context.Background(), "seasonal")
	require.NoError(t, err)
	assert.Equal(t, 30, cat.OutputOrder)
	assert.False(t, cat.IsPublished, "unchecked box means unpublished")

	body = h.post(t, "/admin/category/add/", url.Values{"title": {"Again"}, "slug": {"seasonal"}})
	assert.Contains(t, body, "Category with this Slug already exists.")
}
