package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/config"
	"github.com/anfisaforfriends/anfisa/internal/testutil"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/event"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
	"github.com/anfisaforfriends/anfisa/pkg/router"
	"github.com/anfisaforfriends/anfisa/pkg/storage"
	"github.com/anfisaforfriends/anfisa/pkg/testkit"
)

type envelope struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type app struct {
	catalog *services.Catalog
	changes *testkit.GenericFuncMocker
	queue   *queue.Manager
	disk    *storage.LocalDisk
	handler http.Handler
}

func newApp(t *testing.T) *app {
	t.Helper()
	config.Set("JWT_SECRET", "routes-test")
	cache.Use(cache.NewMemoryStore())

	db := testutil.NewDB(t)
	users := repositories.NewUserRepository(db)
	userSvc := services.NewUserService(users)
	ctx := context.Background()
	for _, u := range []services.UserInput{
		{Name: "Anfisa", Email: "staff@example.com", Password: "plombir-1954", Role: "staff"},
		{Name: "Guest", Email: "guest@example.com", Password: "plombir-1954", Role: "user"},
	} {
		_, err := userSvc.Create(ctx, u)
		require.NoError(t, err)
	}

	bus := event.New(nil)
	changes := testkit.NewFuncMocker(services.CatalogChangedEvent)
	bus.Listen(services.CatalogChangedEvent, func(_ context.Context, e event.Event) {
		payload, _ := json.Marshal(e)
		_ = changes.Intercept(payload)
	})

	a := &app{
		catalog: services.NewCatalog(db, bus),
		changes: changes,
		queue:   queue.NewManager(queue.NewMemoryDriver(10)),
		disk:    storage.NewLocalDisk(t.TempDir(), "http://localhost/storage"),
	}
	disks := func(name string) (storage.Disk, error) {
		if name == "" || name == "local" {
			return a.disk, nil
		}
		return nil, errors.New("no such disk")
	}
	jobs.Register(a.queue, a.catalog, disks)

	r := router.New()
	require.NoError(t, Register(r, Deps{
		DB:      db,
		Catalog: a.catalog,
		Auth:    services.NewAuthService(users),
		Queue:   a.queue,
		Disks:   disks,
	}))
	a.handler = r
	return a
}

func (a *app) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (a *app) token(t *testing.T, email string) string {
	t.Helper()
	rec, env := a.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": email, "password": "plombir-1954",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.Token)
	return data.Token
}

func TestLogin(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": "staff@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := a.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "password")

	tok := a.token(t, "staff@example.com")
	rec, env = a.do(t, http.MethodGet, "/api/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"email":"staff@example.com"`)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = a.do(t, http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffCRUDRequiresRole(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodGet, "/api/admin/categories", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/admin/categories", a.token(t, "guest@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCategoryCRUD(t *testing.T) {
	a := newApp(t)
	tok := a.token(t, "staff@example.com")

	rec, env := a.do(t, http.MethodPost, "/api/admin/categories", tok, map[string]any{
		"title": "Sorbets", "slug": "sorbets",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID          uint `json:"id"`
		OutputOrder int  `json:"output_order"`
		IsPublished bool `json:"is_published"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, services.DefaultOutputOrder, created.OutputOrder)
	assert.True(t, created.IsPublished)

	rec, env = a.do(t, http.MethodPost, "/api/admin/categories", tok, map[string]any{
		"title": "Again", "slug": "sorbets",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Category with this Slug already exists.", env.Errors["slug"])

	rec, env = a.do(t, http.MethodPost, "/api/admin/categories", tok, map[string]any{
		"title": "Bad", "slug": "not a slug",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "slug")

	path := "/api/admin/categories/" + itoa(created.ID)
	rec, env = a.do(t, http.MethodPut, path, tok, map[string]any{
		"title": "Fruit sorbets", "slug": "sorbets", "output_order": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"title":"Fruit sorbets"`)

	rec, env = a.do(t, http.MethodGet, "/api/admin/categories?q=fruit", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"total":1`)

	rec, _ = a.do(t, http.MethodDelete, path, tok, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = a.do(t, http.MethodGet, path, tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/api/admin/categories/abc", tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIceCreamFilters(t *testing.T) {
	a := newApp(t)
	tok := a.token(t, "staff@example.com")
	ctx := context.Background()

	classic, err := a.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Classic", Slug: "classic"})
	require.NoError(t, err)
	fruit, err := a.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Fruit", Slug: "fruit"})
	require.NoError(t, err)
	for _, in := range []services.IceCreamInput{
		{Title: "Plombir", Description: "Creamy", CategoryID: classic.ID, IsOnMain: true},
		{Title: "Eskimo", Description: "On a stick", CategoryID: classic.ID},
		{Title: "Mango", Description: "Sorbet", CategoryID: fruit.ID, IsOnMain: true},
	} {
		_, err := a.catalog.IceCreams.Create(ctx, in)
		require.NoError(t, err)
	}

	_, env := a.do(t, http.MethodGet, "/api/admin/ice-creams?category="+itoa(classic.ID)+"&on_main=true", tok, nil)
	var page struct {
		Items []struct {
			Title string `json:"title"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Plombir", page.Items[0].Title)

	rec, env := a.do(t, http.MethodPost, "/api/admin/ice-creams", tok, map[string]any{
		"title": "Ghost", "description": "No category", "category_id": 999,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Errors, "category_id")
}

func TestStorefront(t *testing.T) {
	a := newApp(t)
	ctx := context.Background()
	no := false

	classic, err := a.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Classic", Slug: "classic"})
	require.NoError(t, err)
	_, err = a.catalog.Categories.Create(ctx, services.CategoryInput{Title: "Hidden", Slug: "hidden", IsPublished: &no})
	require.NoError(t, err)
	_, err = a.catalog.IceCreams.Create(ctx, services.IceCreamInput{
		Title: "Plombir", Description: "Creamy", CategoryID: classic.ID, IsOnMain: true,
	})
	require.NoError(t, err)

	rec, env := a.do(t, http.MethodGet, "/api/home", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"title":"Plombir"`)
	assert.NotContains(t, string(env.Data), "is_published")

	_, env = a.do(t, http.MethodGet, "/api/categories", "", nil)
	assert.Contains(t, string(env.Data), `"slug":"classic"`)
	assert.NotContains(t, string(env.Data), `"slug":"hidden"`)

	rec, env = a.do(t, http.MethodGet, "/api/categories/classic", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"ice_creams":[{`)

	rec, _ = a.do(t, http.MethodGet, "/api/categories/hidden", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = a.do(t, http.MethodGet, "/api/categories/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportIsQueued(t *testing.T) {
	a := newApp(t)
	tok := a.token(t, "staff@example.com")

	rec, env := a.do(t, http.MethodPost, "/api/admin/exports", tok, map[string]string{"disk": "ftp"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Unknown storage disk.", env.Errors["disk"])

	rec, env = a.do(t, http.MethodPost, "/api/admin/exports", tok, nil)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var out struct {
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))

	ran, err := a.queue.RunNext(context.Background())
	require.NoError(t, err)
	require.True(t, ran)

	ok, err := a.disk.Exists(context.Background(), out.Path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOperationalEndpoints(t *testing.T) {
	a := newApp(t)

	rec, env := a.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"database":"up"`)

	rec, _ = a.do(t, http.MethodPost, "/graphql", "", map[string]string{"query": "{ categories { slug } }"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/admin/", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestRouteNames(t *testing.T) {
	r := router.New()
	require.NoError(t, Register(r, Deps{Catalog: services.NewCatalog(nil, nil), Auth: services.NewAuthService(nil)}))

	for _, name := range []string{"auth.login", "storefront.category", "ice_creams.update", "admin:index", "graphql.post"} {
		_, ok := r.Path(name)
		assert.True(t, ok, name)
	}
	_, ok := r.Path("exports.store")
	assert.False(t, ok, "exports need a queue")

	url, err := r.URL("storefront.category", map[string]string{"slug": "sorbets"})
	require.NoError(t, err)
	assert.Equal(t, "/api/categories/sorbets", url)
}

func itoa(n uint) string { return strconv.FormatUint(uint64(n), 10) }
