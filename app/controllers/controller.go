// Package controllers holds the JSON API handlers. Each handler binds input,
// calls a service and writes the standard envelope through pkg/ctx.
package controllers

import (
	"errors"
	"net/http"

	"github.com/anfisaforfriends/anfisa/app/repositories"
	"github.com/anfisaforfriends/anfisa/app/services"
	"github.com/anfisaforfriends/anfisa/pkg/ctx"
)

// fail maps service errors onto the envelope.
func fail(c *ctx.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.ValidationError(verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		c.NotFound()
	default:
		c.Log().Error("request failed", "error", err)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}

// listOptions reads q, published, page and limit.
func listOptions(c *ctx.Context) repositories.ListOptions {
	opts := repositories.ListOptions{
		Search: c.Query("q"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	}
	if v, ok := c.QueryBool("published"); ok {
		opts.Published = &v
	}
	return opts
}

func id(c *ctx.Context) (uint, bool) {
	n, ok := c.ParamUint("id")
	if !ok {
		c.NotFound()
	}
	return n, ok
}
