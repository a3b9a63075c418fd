package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/workerpool"
)

func TestPool_SubmitAndExecute(t *testing.T) {
	pool := workerpool.New(4, 0)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		if err := pool.SubmitWait(context.Background(), func() {
			defer wg.Done()
			count.Add(1)
		}); err != nil {
			t.Fatalf("SubmitWait: %v", err)
		}
	}
	wg.Wait()

	if got := count.Load(); got != n {
		t.Errorf("expected %d tasks to run, got %d", n, got)
	}
}

func TestPool_ErrPoolFull(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	started := make(chan struct{})
	release := make(chan struct{})
	_ = pool.Submit(func() {
		close(started)
		<-release
	})
	<-started

	if err := pool.Submit(func() {}); err != nil {
		t.Fatalf("queue slot should be free: %v", err)
	}
	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolFull) {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}
	close(release)
}

func TestPool_SubmitWaitHonoursContext(t *testing.T) {
	pool := workerpool.New(1, 1)
	release := make(chan struct{})
	defer func() {
		close(release)
		pool.Shutdown()
	}()

	started := make(chan struct{})
	_ = pool.Submit(func() { close(started); <-release })
	<-started
	_ = pool.Submit(func() {})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.SubmitWait(ctx, func() {}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestPool_ShutdownDrainsAndRejects(t *testing.T) {
	pool := workerpool.New(2, 10)

	var count atomic.Int32
	for i := 0; i < 10; i++ {
		_ = pool.Submit(func() {
			time.Sleep(time.Millisecond)
			count.Add(1)
		})
	}
	pool.Shutdown()
	pool.Shutdown()

	if got := count.Load(); got != 10 {
		t.Errorf("expected queued tasks to finish, got %d", got)
	}
	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPool_PanicDoesNotKillWorker(t *testing.T) {
	pool := workerpool.New(1, 2)
	defer pool.Shutdown()

	done := make(chan struct{})
	_ = pool.Submit(func() { panic("boom") })
	_ = pool.Submit(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker died after panic")
	}
}
