// Package ctx bundles the request and response writer into a single handler
// argument with helpers for params, binding and the JSON envelope.
//
//	router.Get("/categories/{slug}", "categories.show", ctx.Wrap(func(c *ctx.Context) {
//	    c.Success(map[string]any{"slug": c.Param("slug")})
//	}))
package ctx

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/anfisaforfriends/anfisa/pkg/bind"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/orm"
	"github.com/anfisaforfriends/anfisa/pkg/response"
	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

type HandlerFunc func(c *Context)

// Wrap adapts h to http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(&Context{W: w, R: r})
	}
}

type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	status int
}

func (c *Context) Context() context.Context { return c.R.Context() }

// Log returns the request-scoped logger.
func (c *Context) Log() *slog.Logger { return logger.WithCtx(c.R.Context()) }

func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// ParamUint parses a numeric path parameter. ok is false for anything that
// is not a positive integer.
func (c *Context) ParamUint(key string) (uint, bool) {
	n, err := strconv.ParseUint(c.Param(key), 10, 0)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryInt returns the integer query value, or def when absent or malformed.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// QueryBool parses "1/0/true/false". ok is false when absent or malformed.
func (c *Context) QueryBool(key string) (value, ok bool) {
	raw := c.Query(key)
	if raw == "" {
		return false, false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return b, true
}

// BindJSON decodes and validates the body into dest. On failure it writes a
// 400 or 422 response and returns false.
//
//	var in services.CategoryInput
//	if !c.BindJSON(&in) {
//	    return
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

func (c *Context) JSON(code int, data any) {
	c.status = code
	response.JSON(c.W, code, data)
}

func (c *Context) Success(data any)  { c.JSON(http.StatusOK, data) }
func (c *Context) Created(data any)  { c.JSON(http.StatusCreated, data) }
func (c *Context) Accepted(data any) { c.JSON(http.StatusAccepted, data) }

func (c *Context) NoContent() {
	c.status = http.StatusNoContent
	response.NoContent(c.W)
}

func (c *Context) Paginated(data any, p orm.Pagination) {
	c.status = http.StatusOK
	response.Paginated(c.W, data, p)
}

func (c *Context) Error(code int, message string) {
	c.status = code
	response.Error(c.W, code, message)
}

func (c *Context) ValidationError(errs map[string]string) {
	c.status = http.StatusUnprocessableEntity
	response.ValidationError(c.W, errs)
}

func (c *Context) NotFound() {
	c.Error(http.StatusNotFound, "Not found")
}

func (c *Context) Unauthorized() {
	c.Error(http.StatusUnauthorized, "Unauthorized")
}

// WrittenStatus is the status written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
