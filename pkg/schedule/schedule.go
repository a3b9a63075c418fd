// Package schedule runs recurring tasks from inside the server process.
//
//	s := schedule.New()
//	s.Daily().At("03:00").Name("catalog.export").Run(exportCatalog)
//	s.Every(5).Minutes().WithoutOverlapping().Run(warmCache)
//	s.Cron("*/15 9-18 * * 1-5").Run(task)
//	go s.Start(ctx)
package schedule

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
)

type Task func(ctx context.Context) error

type entry struct {
	id        string
	interval  time.Duration
	cron      *cronSpec
	cronExpr  string
	task      Task
	noOverlap bool

	mu      sync.Mutex
	lastRun time.Time
	running bool
}

func (e *entry) describe() string {
	if e.cron != nil {
		return "cron " + e.cronExpr
	}
	return "every " + e.interval.String()
}

type Scheduler struct {
	mu      sync.Mutex
	entries []*entry
	wg      sync.WaitGroup
	tick    time.Duration
}

func New() *Scheduler {
	return &Scheduler{tick: time.Second}
}

// Builder configures one entry until Run registers it.
type Builder struct {
	s   *Scheduler
	e   *entry
	err error
}

type Frequency struct {
	s *Scheduler
	n int
}

func (s *Scheduler) Every(n int) *Frequency { return &Frequency{s: s, n: n} }

func (f *Frequency) build(unit time.Duration) *Builder {
	b := &Builder{s: f.s, e: &entry{interval: time.Duration(f.n) * unit}}
	if f.n <= 0 {
		b.err = fmt.Errorf("schedule: interval must be positive, got %d", f.n)
	}
	return b
}

func (f *Frequency) Seconds() *Builder { return f.build(time.Second) }
func (f *Frequency) Minutes() *Builder { return f.build(time.Minute) }
func (f *Frequency) Hours() *Builder   { return f.build(time.Hour) }

func (s *Scheduler) EveryMinute() *Builder { return s.Cron("* * * * *") }
func (s *Scheduler) Hourly() *Builder      { return s.Cron("0 * * * *") }
func (s *Scheduler) Daily() *Builder       { return s.Cron("0 0 * * *") }

// Cron uses a five-field expression: minute hour day-of-month month
// day-of-week. Fields accept *, n, a-b, */n, a-b/n and comma lists.
func (s *Scheduler) Cron(expr string) *Builder {
	spec, err := parseCron(expr)
	return &Builder{s: s, e: &entry{cron: spec, cronExpr: expr}, err: err}
}

// At pins a Daily entry to HH:MM.
func (b *Builder) At(hhmm string) *Builder {
	h, m, ok := strings.Cut(hhmm, ":")
	hour, herr := strconv.Atoi(h)
	min, merr := strconv.Atoi(m)
	if !ok || herr != nil || merr != nil || hour < 0 || hour > 23 || min < 0 || min > 59 {
		b.err = fmt.Errorf("schedule: bad time %q", hhmm)
		return b
	}
	expr := fmt.Sprintf("%d %d * * *", min, hour)
	spec, err := parseCron(expr)
	b.e.cron, b.e.cronExpr, b.err = spec, expr, err
	return b
}

func (b *Builder) Name(id string) *Builder {
	b.e.id = id
	return b
}

// WithoutOverlapping skips a run while the previous one is still going.
func (b *Builder) WithoutOverlapping() *Builder {
	b.e.noOverlap = true
	return b
}

// Run registers the entry.
func (b *Builder) Run(task Task) error {
	if b.err != nil {
		return b.err
	}
	b.e.task = task

	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if b.e.id == "" {
		b.e.id = fmt.Sprintf("task-%d", len(b.s.entries)+1)
	}
	b.s.entries = append(b.s.entries, b.e)
	return nil
}

// List describes the registered entries for `anfisa schedule:list`.
func (s *Scheduler) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, fmt.Sprintf("%s  [%s]", e.id, e.describe()))
	}
	return out
}

// Start dispatches due entries until ctx is cancelled, then waits for
// running tasks.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	logger.Info("schedule: started", "entries", len(s.List()))

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			logger.Info("schedule: stopped")
			return
		case now := <-ticker.C:
			s.Tick(ctx, now)
		}
	}
}

// Tick runs every entry due at now. Cron entries fire at most once per
// minute; interval entries fire on their first tick and then every interval.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	current := append([]*entry(nil), s.entries...)
	s.mu.Unlock()

	for _, e := range current {
		if e.due(now) {
			s.dispatch(ctx, e, now)
		}
	}
}

// Wait blocks until dispatched tasks have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (e *entry) due(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cron != nil {
		minute := now.Truncate(time.Minute)
		return e.cron.matches(now) && !e.lastRun.Truncate(time.Minute).Equal(minute)
	}
	return e.lastRun.IsZero() || now.Sub(e.lastRun) >= e.interval
}

func (s *Scheduler) dispatch(ctx context.Context, e *entry, now time.Time) {
	e.mu.Lock()
	if e.noOverlap && e.running {
		e.mu.Unlock()
		logger.Warn("schedule: skipping overlapping run", "id", e.id)
		return
	}
	e.running = true
	e.lastRun = now
	e.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			e.mu.Lock()
			e.running = false
			e.mu.Unlock()
			if rec := recover(); rec != nil {
				logger.Error("schedule: task panicked", "id", e.id, "panic", fmt.Sprint(rec))
			}
		}()

		start := time.Now()
		if err := e.task(ctx); err != nil {
			logger.Error("schedule: task failed", "id", e.id, "error", err)
			return
		}
		logger.Info("schedule: task done", "id", e.id, "duration", time.Since(start).String())
	}()
}
