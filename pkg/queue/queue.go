// Package queue runs background jobs with retries.
//
//	type ExportCatalog struct{ Disk string }
//	func (ExportCatalog) JobName() string { return "catalog.export" }
//	func (j ExportCatalog) Handle(ctx context.Context) error { ... }
//
//	queue.Register("catalog.export", func() queue.Job { return &ExportCatalog{} })
//	queue.Dispatch(ctx, ExportCatalog{Disk: "local"})
//
// Jobs travel as JSON, so every field a job needs must be exported.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/metrics"
)

type Job interface {
	Handle(ctx context.Context) error
}

// Named lets a job choose its wire name. Without it the Go type name is used.
type Named interface {
	JobName() string
}

// Driver stores serialized jobs. Pop blocks until a job arrives or ctx ends;
// it may return (nil, nil) on an idle timeout.
type Driver interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver can hold a job back natively.
type DelayedDriver interface {
	PushDelayed(ctx context.Context, payload []byte, delay time.Duration) error
}

// ErrUnknownJob is returned for payloads whose name was never registered.
var ErrUnknownJob = errors.New("queue: unknown job")

// FailedJob is a job that exhausted its attempts.
type FailedJob struct {
	Name     string
	Payload  json.RawMessage
	Err      string
	Attempts int
	FailedAt time.Time
}

type envelope struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// Manager owns a driver, the job registry and the failure log.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	store    FailedStore

	maxAttempts int
	backoff     func(attempt int) time.Duration
}

func NewManager(d Driver) *Manager {
	return &Manager{
		driver:      d,
		registry:    map[string]func() Job{},
		maxAttempts: 3,
		backoff:     func(attempt int) time.Duration { return time.Duration(attempt) * time.Second },
	}
}

var defaultManager = NewManager(NewMemoryDriver(1000))

// Default returns the process-wide manager.
func Default() *Manager { return defaultManager }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// SetMaxAttempts sets how many times a job runs before it is recorded as failed.
func (m *Manager) SetMaxAttempts(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 1 {
		n = 1
	}
	m.maxAttempts = n
}

// SetBackoff sets the wait before retry attempt+1.
func (m *Manager) SetBackoff(fn func(attempt int) time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = fn
}

// UseStore persists failures in addition to the in-memory log.
func (m *Manager) UseStore(s FailedStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store = s
}

func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

// Registered lists the job names this manager can decode.
func (m *Manager) Registered() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.registry))
	for name := range m.registry {
		out = append(out, name)
	}
	return out
}

func nameOf(job Job) string {
	if n, ok := job.(Named); ok {
		return n.JobName()
	}
	return fmt.Sprintf("%T", job)
}

func encode(job Job) ([]byte, error) {
	name := nameOf(job)
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal %s: %w", name, err)
	}
	return json.Marshal(envelope{Name: name, Payload: payload})
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

func (m *Manager) Dispatch(ctx context.Context, job Job) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(ctx, raw)
}

// DispatchAfter queues job once delay has passed. Drivers without native
// delay support get a timer goroutine, which does not survive a restart.
func (m *Manager) DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}

	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(ctx, raw, delay)
	}

	time.AfterFunc(delay, func() {
		if err := d.Push(context.Background(), raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "error", err)
		}
	})
	return nil
}

// Work starts n workers that stop when ctx is cancelled. The returned
// WaitGroup completes once every worker has returned.
func (m *Manager) Work(ctx context.Context, n int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.loop(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	return &wg
}

func (m *Manager) loop(ctx context.Context) {
	for ctx.Err() == nil {
		if _, err := m.RunNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			if !errors.Is(err, ErrUnknownJob) {
				logger.Warn("queue: pop failed", "error", err)
				select {
				case <-ctx.Done():
				case <-time.After(500 * time.Millisecond):
				}
			}
		}
	}
}

// RunNext pops one job and runs it with retries. It reports false when the
// driver returned nothing.
func (m *Manager) RunNext(ctx context.Context) (bool, error) {
	raw, err := m.currentDriver().Pop(ctx)
	if err != nil {
		return false, err
	}
	if raw == nil {
		return false, nil
	}
	return true, m.process(ctx, raw)
}

func (m *Manager) process(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return nil
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Name]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job", "name", env.Name)
		return fmt.Errorf("%w: %s", ErrUnknownJob, env.Name)
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: bad payload", "name", env.Name, "error", err)
		return nil
	}

	m.runWithRetry(ctx, env, job)
	return nil
}

func (m *Manager) runWithRetry(ctx context.Context, env envelope, job Job) {
	m.mu.RLock()
	attempts, backoff := m.maxAttempts, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = job.Handle(ctx)
		if lastErr == nil {
			metrics.RecordQueueJob(env.Name, "success", start)
			logger.Info("queue: job processed", "name", env.Name, "attempt", attempt)
			return
		}

		logger.Warn("queue: job failed", "name", env.Name, "attempt", attempt, "error", lastErr)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = errors.Join(lastErr, ctx.Err())
			attempt = attempts
		case <-time.After(backoff(attempt)):
		}
	}

	metrics.RecordQueueJob(env.Name, "failed", start)
	m.recordFailure(ctx, FailedJob{
		Name:     env.Name,
		Payload:  env.Payload,
		Err:      lastErr.Error(),
		Attempts: attempts,
		FailedAt: time.Now(),
	})
}

func (m *Manager) recordFailure(ctx context.Context, f FailedJob) {
	m.mu.Lock()
	m.failed = append(m.failed, f)
	store := m.store
	m.mu.Unlock()

	logger.Error("queue: job exhausted attempts", "name", f.Name, "error", f.Err)

	if store != nil {
		if err := store.Save(context.WithoutCancel(ctx), f); err != nil {
			logger.Error("queue: persist failed job", "name", f.Name, "error", err)
		}
	}
}

// Failed returns the failures seen by this process.
func (m *Manager) Failed() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]FailedJob(nil), m.failed...)
}

func Register(name string, factory func() Job)    { defaultManager.Register(name, factory) }
func Dispatch(ctx context.Context, job Job) error { return defaultManager.Dispatch(ctx, job) }
func SetDriver(d Driver)                          { defaultManager.SetDriver(d) }
func UseStore(s FailedStore)                      { defaultManager.UseStore(s) }

func DispatchAfter(ctx context.Context, job Job, delay time.Duration) error {
	return defaultManager.DispatchAfter(ctx, job, delay)
}
