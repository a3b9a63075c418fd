package kernel

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/internal/testutil"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/reqid"
	"github.com/anfisaforfriends/anfisa/pkg/storage"
)

func newKernel(t *testing.T) *Kernel {
	t.Helper()
	cache.Use(cache.NewMemoryStore())
	k := New(testutil.NewDB(t), func(string) (storage.Disk, error) {
		return nil, errors.New("no disks in tests")
	})
	t.Cleanup(k.Pool.Shutdown)
	return k
}

func TestHandlerStack(t *testing.T) {
	k := newKernel(t)
	_, err := k.Catalog.Categories.Create(context.Background(), services.CategoryInput{Title: "Classic", Slug: "classic"})
	require.NoError(t, err)

	h, err := k.Handler()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set(reqid.Header, "scoop-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "scoop-42", rec.Header().Get(reqid.Header))
	assert.Contains(t, rec.Body.String(), `"slug":"classic"`)
}

func TestCatalogChangesReachEventFeed(t *testing.T) {
	k := newKernel(t)
	h, err := k.Handler()
	require.NoError(t, err)
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/catalog/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool { return k.Feed.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = k.Catalog.Toppings.Create(context.Background(), services.ToppingInput{Title: "Nuts", Slug: "nuts"})
	require.NoError(t, err)

	body := bufio.NewReader(resp.Body)
	_, err = body.ReadString('\n')
	require.NoError(t, err)
	data, err := body.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"entity":"topping"`)
	assert.Contains(t, data, `"action":"created"`)
}

func TestScheduleRegistersExport(t *testing.T) {
	k := newKernel(t)
	require.NoError(t, k.schedule())
	assert.Equal(t, []string{"catalog.export  [cron 0 3 * * *]"}, k.Scheduler.List())
}

func TestExportJobIsRegistered(t *testing.T) {
	k := newKernel(t)
	assert.Contains(t, k.Queue.Registered(), "catalog.export")
}
