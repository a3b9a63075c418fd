package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anfisaforfriends/anfisa/pkg/workerpool"
)

type scooped struct{ Flavor string }

func (scooped) EventName() string { return "scooped" }

func TestFire_SyncInOrder(t *testing.T) {
	b := New(nil)

	var got []string
	b.Listen("scooped", func(_ context.Context, e Event) { got = append(got, "a:"+e.(scooped).Flavor) })
	b.Listen("scooped", func(_ context.Context, e Event) { got = append(got, "b:"+e.(scooped).Flavor) })
	b.Listen("other", func(context.Context, Event) { got = append(got, "wrong") })

	b.Fire(context.Background(), scooped{Flavor: "mint"})

	assert.Equal(t, []string{"a:mint", "b:mint"}, got)
}

func TestFire_AsyncOnPool(t *testing.T) {
	pool := workerpool.New(2, 8)
	defer pool.Shutdown()
	b := New(pool)

	var wg sync.WaitGroup
	wg.Add(1)
	var ctxErr error
	b.ListenAsync("scooped", func(ctx context.Context, _ Event) {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		ctxErr = ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	b.Fire(ctx, scooped{})
	cancel()

	wg.Wait()
	assert.NoError(t, ctxErr, "async listeners must outlive the request context")
}

func TestFire_PanicIsContained(t *testing.T) {
	b := New(nil)
	reached := false
	b.Listen("scooped", func(context.Context, Event) { panic("drip") })
	b.Listen("scooped", func(context.Context, Event) { reached = true })

	assert.NotPanics(t, func() { b.Fire(context.Background(), scooped{}) })
	assert.True(t, reached)
}

func TestFlush(t *testing.T) {
	b := New(nil)
	called := false
	b.Listen("scooped", func(context.Context, Event) { called = true })
	b.Flush()

	b.Fire(context.Background(), scooped{})
	assert.False(t, called)
}
