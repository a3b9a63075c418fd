// Package session provides cookie-identified sessions stored in pkg/cache.
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//
//	sess := session.FromCtx(r)
//	sess.Set("user_id", 42)
//	_ = sess.Save(r.Context(), w) // before writing the body
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/anfisaforfriends/anfisa/pkg/cache"
)

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "anfisa_session",
		TTL:        2 * time.Hour,
		Path:       "/",
	}
}

type ctxKey struct{}

const flashPrefix = "_flash_"

// Session is the per-request handle. It is not safe for concurrent use.
type Session struct {
	id      string
	data    map[string]any
	opts    Options
	changed bool
}

func newID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func storeKey(id string) string { return "session:" + id }

func (s *Session) ID() string { return s.id }

func (s *Session) Set(key string, value any) {
	s.data[key] = value
	s.changed = true
}

func (s *Session) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *Session) GetString(key string) (string, bool) {
	v, ok := s.data[key].(string)
	return v, ok
}

// GetUint handles values that round-tripped through JSON as float64.
func (s *Session) GetUint(key string) (uint, bool) {
	switch n := s.data[key].(type) {
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	case uint:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint(n), true
	}
	return 0, false
}

func (s *Session) Delete(key string) {
	delete(s.data, key)
	s.changed = true
}

// Flash appends a message that GetFlashes returns once.
func (s *Session) Flash(key, message string) {
	var list []any
	if existing, ok := s.data[flashPrefix+key].([]any); ok {
		list = existing
	}
	s.Set(flashPrefix+key, append(list, message))
}

// GetFlashes returns and clears the flash messages under key.
func (s *Session) GetFlashes(key string) []string {
	raw, ok := s.data[flashPrefix+key].([]any)
	if !ok {
		return nil
	}
	s.Delete(flashPrefix + key)

	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(string); ok {
			out = append(out, m)
		}
	}
	return out
}

// Regenerate issues a fresh id, keeping the data. Call it on login.
func (s *Session) Regenerate(ctx context.Context) {
	_ = cache.Forget(ctx, storeKey(s.id))
	s.id = newID()
	s.changed = true
}

// Invalidate clears all data and rotates the id (logout).
func (s *Session) Invalidate(ctx context.Context) {
	_ = cache.Forget(ctx, storeKey(s.id))
	s.id = newID()
	s.data = map[string]any{}
	s.changed = true
}

// Save persists changed data and writes the cookie. It must run before the
// response body is written.
func (s *Session) Save(ctx context.Context, w http.ResponseWriter) error {
	if !s.changed {
		return nil
	}

	if err := cache.Set(ctx, storeKey(s.id), s.data, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.CookieName,
		Value:    s.id,
		Path:     s.opts.Path,
		MaxAge:   int(s.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	s.changed = false
	return nil
}

// Middleware loads the session named by the cookie, or starts an empty one.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts, data: map[string]any{}}

			if c, err := r.Cookie(opts.CookieName); err == nil && c.Value != "" {
				sess.id = c.Value
				if !cache.Get(r.Context(), storeKey(sess.id), &sess.data) || sess.data == nil {
					sess.data = map[string]any{}
				}
			} else {
				sess.id = newID()
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromCtx returns the request's session, or a fresh unsaved one.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	return &Session{id: newID(), data: map[string]any{}, opts: DefaultOptions()}
}
