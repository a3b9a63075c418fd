// Package listeners reacts to catalog changes.
package listeners

import (
	"context"
	"encoding/json"

	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/cache"
	"github.com/anfisaforfriends/anfisa/pkg/event"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/metrics"
)

// Broadcaster pushes a message to live clients: the websocket hub and the
// server-sent events broker.
type Broadcaster interface {
	Broadcast(msg []byte) bool
}

// Register attaches the catalog listeners to bus.
func Register(bus *event.Bus, live ...Broadcaster) {
	bus.Listen(services.CatalogChangedEvent, ForgetFeatured)
	bus.Listen(services.CatalogChangedEvent, CountChange)
	bus.ListenAsync(services.CatalogChangedEvent, Audit)
	if len(live) > 0 {
		bus.ListenAsync(services.CatalogChangedEvent, Broadcast(live...))
	}
}

// ForgetFeatured drops the cached homepage list.
func ForgetFeatured(ctx context.Context, _ event.Event) {
	if err := cache.Forget(ctx, services.FeaturedCacheKey); err != nil {
		logger.WithCtx(ctx).Warn("listeners: forget featured", "error", err)
	}
}

func CountChange(_ context.Context, e event.Event) {
	c := e.(services.CatalogChanged)
	metrics.RecordCatalogChange(c.Entity, c.Action)
}

func Audit(ctx context.Context, e event.Event) {
	c := e.(services.CatalogChanged)
	logger.WithCtx(ctx).Info("catalog changed",
		"entity", c.Entity,
		"action", c.Action,
		"id", c.ID,
		"title", c.Title,
	)
}

// Broadcast encodes the change once and hands it to every outlet.
func Broadcast(live ...Broadcaster) event.Handler {
	return func(ctx context.Context, e event.Event) {
		msg, err := json.Marshal(struct {
			Type string `json:"type"`
			services.CatalogChanged
		}{Type: services.CatalogChangedEvent, CatalogChanged: e.(services.CatalogChanged)})
		if err != nil {
			logger.WithCtx(ctx).Error("listeners: encode broadcast", "error", err)
			return
		}
		for _, b := range live {
			b.Broadcast(msg)
		}
	}
}
