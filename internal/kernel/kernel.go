// Package kernel assembles the application: connections, services, the
// event bus, background machinery and the HTTP handler. Commands boot one
// Kernel and use the parts they need.
package kernel

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/anfisaforfriends/anfisa/app/jobs"
	"github.com/anfisaforfriends/anfisa/app/listeners"
	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/routes"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/config"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/event"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/metrics"
	"github.com/anfisaforfriends/anfisa/pkg/middleware"
	"github.com/anfisaforfriends/anfisa/pkg/queue"
	"github.com/anfisaforfriends/anfisa/pkg/reqid"
	"github.com/anfisaforfriends/anfisa/pkg/router"
	"github.com/anfisaforfriends/anfisa/pkg/schedule"
	"github.com/anfisaforfriends/anfisa/pkg/sse"
	"github.com/anfisaforfriends/anfisa/pkg/storage"
	"github.com/anfisaforfriends/anfisa/pkg/workerpool"
	"github.com/anfisaforfriends/anfisa/pkg/ws"
)

const (
	listenerWorkers = 4
	listenerQueue   = 256
	rateLimit       = 200
)

type Kernel struct {
	DB        *gorm.DB
	Bus       *event.Bus
	Pool      *workerpool.Pool
	Hub       *ws.Hub
	Feed      *sse.Broker
	Queue     *queue.Manager
	Scheduler *schedule.Scheduler
	Disks     jobs.DiskResolver

	Catalog *services.Catalog
	Auth    *services.AuthService
	Users   *services.UserService

	// Delayed promotes delayed jobs when the queue runs on Redis.
	Delayed func(ctx context.Context)
}

// Boot loads configuration, opens every connection and wires the kernel.
// A Redis outage degrades cache and queue to memory; a database or storage
// failure is fatal.
func Boot(ctx context.Context) (*Kernel, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := logger.AttachMongo(config.LogMongoURI(), config.LogMongoDatabase(), config.LogMongoCollection()); err != nil {
		logger.Warn("logger: mongo sink disabled", "error", err)
	}
	if err := database.Connect(); err != nil {
		return nil, err
	}
	if err := cache.Connect(); err != nil {
		logger.Warn("cache: falling back to memory", "error", err)
	}
	if err := storage.Connect(ctx); err != nil {
		return nil, err
	}

	k := New(database.DB, jobs.DefaultDisks)
	if rs, ok := cache.Default().(*cache.RedisStore); ok {
		d := queue.NewRedisDriver(rs.Client())
		k.Queue.SetDriver(d)
		k.Delayed = d.PromoteDelayed
	}
	if err := k.schedule(); err != nil {
		return nil, err
	}
	return k, nil
}

// New wires services, events and the in-memory queue around db.
func New(db *gorm.DB, disks jobs.DiskResolver) *Kernel {
	pool := workerpool.New(listenerWorkers, listenerQueue)
	bus := event.New(pool)
	hub := ws.NewHub()
	feed := sse.NewBroker(services.CatalogChangedEvent)
	listeners.Register(bus, hub, feed)

	users := repositories.NewUserRepository(db)
	k := &Kernel{
		DB:        db,
		Bus:       bus,
		Pool:      pool,
		Hub:       hub,
		Feed:      feed,
		Queue:     queue.NewManager(queue.NewMemoryDriver(1000)),
		Scheduler: schedule.New(),
		Disks:     disks,
		Catalog:   services.NewCatalog(db, bus),
		Auth:      services.NewAuthService(users),
		Users:     services.NewUserService(users),
	}
	k.Queue.UseStore(queue.NewDBStore(db))
	if n, err := strconv.Atoi(config.Get("QUEUE_TRIES", "3")); err == nil {
		k.Queue.SetMaxAttempts(n)
	}
	jobs.Register(k.Queue, k.Catalog, disks)
	return k
}

// schedule registers the recurring tasks.
func (k *Kernel) schedule() error {
	return k.Scheduler.Daily().
		At(config.Get("EXPORT_AT", "03:00")).
		Name(jobs.ExportCatalogName).
		WithoutOverlapping().
		Run(func(ctx context.Context) error {
			return k.Queue.Dispatch(ctx, jobs.NewExportCatalog(""))
		})
}

// Routes registers every endpoint on r.
func (k *Kernel) Routes(r *router.Router) error {
	return routes.Register(r, routes.Deps{
		DB:      k.DB,
		Catalog: k.Catalog,
		Auth:    k.Auth,
		Queue:   k.Queue,
		Disks:   k.Disks,
		Live:    k.Hub,
		Feed:    k.Feed,
	})
}

// Handler builds the HTTP handler with the global middleware stack,
// outermost first: metrics, panic recovery, request id, access log, CORS,
// rate limiting.
func (k *Kernel) Handler() (http.Handler, error) {
	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(rateLimit, time.Minute),
	)
	if err := k.Routes(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Close stops the listener pool and releases connections.
func (k *Kernel) Close() {
	k.Pool.Shutdown()
	if err := database.Close(k.DB); err != nil {
		logger.Warn("database: close", "error", err)
	}
	logger.Close()
}
