package services

import (
	"context"

	"github.com/anfisaforfriends/anfisa/pkg/event"
)

const (
	EntityCategory = "category"
	EntityTopping  = "topping"
	EntityWrapper  = "wrapper"
	EntityIceCream = "ice_cream"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// CatalogChanged is fired after any catalog write commits.
type CatalogChanged struct {
	Entity string `json:"entity"`
	Action string `json:"action"`
	ID     uint   `json:"id"`
	Title  string `json:"title,omitempty"`
}

const CatalogChangedEvent = "catalog.changed"

func (CatalogChanged) EventName() string { return CatalogChangedEvent }

// notifier fires events on an optional bus.
type notifier struct {
	bus *event.Bus
}

func (n notifier) changed(ctx context.Context, entity, action string, id uint, title string) {
	if n.bus == nil {
		return
	}
	n.bus.Fire(ctx, CatalogChanged{Entity: entity, Action: action, ID: id, Title: title})
}
