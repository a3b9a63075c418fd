package queue_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
)

var handled atomic.Int32

type greetJob struct {
	Name string `json:"name"`
}

func (greetJob) JobName() string { return "greet" }

func (j *greetJob) Handle(context.Context) error {
	if j.Name == "" {
		return errors.New("no name")
	}
	handled.Add(1)
	return nil
}

type flakyJob struct {
	FailTimes int32 `json:"fail_times"`
}

var flakyCalls atomic.Int32

func (j *flakyJob) Handle(context.Context) error {
	if flakyCalls.Add(1) <= j.FailTimes {
		return errors.New("melted")
	}
	return nil
}

func newManager() *queue.Manager {
	m := queue.NewManager(queue.NewMemoryDriver(16))
	m.SetBackoff(func(int) time.Duration { return time.Millisecond })
	m.Register("greet", func() queue.Job { return &greetJob{} })
	m.Register("*queue_test.flakyJob", func() queue.Job { return &flakyJob{} })
	return m
}

func TestDispatchAndRunNext(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	before := handled.Load()

	require.NoError(t, m.Dispatch(ctx, &greetJob{Name: "Anfisa"}))

	ran, err := m.RunNext(ctx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, before+1, handled.Load())
	assert.Empty(t, m.Failed())
}

func TestRetryThenSucceed(t *testing.T) {
	m := newManager()
	m.SetMaxAttempts(3)
	flakyCalls.Store(0)
	ctx := context.Background()

	require.NoError(t, m.Dispatch(ctx, &flakyJob{FailTimes: 2}))
	_, err := m.RunNext(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(3), flakyCalls.Load())
	assert.Empty(t, m.Failed())
}

func TestExhaustedJobIsPersisted(t *testing.T) {
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&queue.FailedJobRecord{}))

	store := queue.NewDBStore(db)
	m := newManager()
	m.SetMaxAttempts(2)
	m.UseStore(store)
	ctx := context.Background()

	require.NoError(t, m.Dispatch(ctx, &greetJob{}))
	_, err = m.RunNext(ctx)
	require.NoError(t, err)

	failed := m.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "greet", failed[0].Name)
	assert.Equal(t, 2, failed[0].Attempts)

	rows, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "no name", rows[0].Error)
	assert.JSONEq(t, `{"name":""}`, rows[0].Payload)
}

type orphanJob struct{}

func (orphanJob) Handle(context.Context) error { return nil }

func TestUnknownJob(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	require.NoError(t, m.Dispatch(ctx, orphanJob{}))
	_, err := m.RunNext(ctx)
	assert.ErrorIs(t, err, queue.ErrUnknownJob)
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	ctx := context.Background()

	require.NoError(t, d.Push(ctx, []byte("a")))
	assert.Error(t, d.Push(ctx, []byte("b")))
	assert.Equal(t, 1, d.Len())
}

func TestWorkersStopOnCancel(t *testing.T) {
	m := newManager()
	ctx, cancel := context.WithCancel(context.Background())
	before := handled.Load()

	wg := m.Work(ctx, 2)
	var dispatch sync.WaitGroup
	for i := 0; i < 5; i++ {
		dispatch.Add(1)
		go func() {
			defer dispatch.Done()
			_ = m.Dispatch(context.Background(), &greetJob{Name: "x"})
		}()
	}
	dispatch.Wait()

	assert.Eventually(t, func() bool { return handled.Load() == before+5 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestDispatchAfter(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	before := handled.Load()

	require.NoError(t, m.DispatchAfter(ctx, &greetJob{Name: "later"}, 20*time.Millisecond))

	popCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ran, err := m.RunNext(popCtx)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, before+1, handled.Load())
}
