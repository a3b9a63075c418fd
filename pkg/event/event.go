// Package event dispatches named events to in-process listeners.
//
// Listen handlers run inline inside Fire, in registration order.
// ListenAsync handlers run on a bounded worker pool after Fire returns;
// when the pool is saturated the delivery is dropped and logged.
package event

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/workerpool"
)

type Event interface {
	EventName() string
}

type Handler func(ctx context.Context, e Event)

type Bus struct {
	mu    sync.RWMutex
	sync  map[string][]Handler
	async map[string][]Handler
	pool  *workerpool.Pool
}

// New returns a bus whose async listeners run on pool. A nil pool makes
// async listeners run inline like sync ones.
func New(pool *workerpool.Pool) *Bus {
	return &Bus{
		sync:  map[string][]Handler{},
		async: map[string][]Handler{},
		pool:  pool,
	}
}

func (b *Bus) Listen(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync[name] = append(b.sync[name], h)
}

func (b *Bus) ListenAsync(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.async[name] = append(b.async[name], h)
}

// Fire delivers e to every listener of e.EventName(). Async listeners get a
// context that is not cancelled with the request.
func (b *Bus) Fire(ctx context.Context, e Event) {
	name := e.EventName()

	b.mu.RLock()
	syncHs := append([]Handler(nil), b.sync[name]...)
	asyncHs := append([]Handler(nil), b.async[name]...)
	pool := b.pool
	b.mu.RUnlock()

	for _, h := range syncHs {
		call(ctx, name, h, e)
	}

	detached := context.WithoutCancel(ctx)
	for _, h := range asyncHs {
		if pool == nil {
			call(detached, name, h, e)
			continue
		}
		err := pool.Submit(func() { call(detached, name, h, e) })
		if err != nil {
			level := logger.WithCtx(ctx).Warn
			if errors.Is(err, workerpool.ErrPoolClosed) {
				level = logger.WithCtx(ctx).Debug
			}
			level("event: async delivery dropped", "event", name, "error", err)
		}
	}
}

// Flush removes every listener.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sync = map[string][]Handler{}
	b.async = map[string][]Handler{}
}

func call(ctx context.Context, name string, h Handler, e Event) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCtx(ctx).Error("event: listener panicked",
				"event", name,
				"error", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
		}
	}()
	h(ctx, e)
}
