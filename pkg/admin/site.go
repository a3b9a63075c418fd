// Package admin serves a staff-only HTML back office over registered models.
//
//	site := admin.NewSite("Anfisa administration", authenticator)
//	_ = site.Register(iceCreams, admin.ModelAdmin{ListDisplay: []string{"title", "category"}})
//	_ = site.Mount(r, "/admin")
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/rbac"
	"github.com/anfisaforfriends/anfisa/pkg/router"
	"github.com/anfisaforfriends/anfisa/pkg/session"
)

// User is the signed-in staff member.
type User struct {
	ID   uint
	Name string
	Role string
}

// Authenticator checks credentials and reloads users on every request.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (User, error)
	User(ctx context.Context, id uint) (User, error)
}

const (
	sessionUserKey = "admin_user_id"
	sessionCSRFKey = "admin_csrf"
	csrfField      = "csrfmiddlewaretoken"
	flashKey       = "admin"
)

type model struct {
	src  Source
	opts ModelAdmin
}

type Site struct {
	Title string

	auth    Authenticator
	session session.Options
	prefix  string
	models  map[string]*model
	order   []string
}

func NewSite(title string, auth Authenticator) *Site {
	opts := session.DefaultOptions()
	opts.CookieName = "anfisa_admin"
	return &Site{
		Title:   title,
		auth:    auth,
		session: opts,
		models:  map[string]*model{},
	}
}

// SetSessionOptions overrides the cookie settings. Call before Mount.
func (s *Site) SetSessionOptions(opts session.Options) { s.session = opts }

// Register adds src with its options. Inline sources must be registered
// before the models that show them.
func (s *Site) Register(src Source, opts ModelAdmin) error {
	name := src.Meta().Name
	if name == "" {
		return errors.New("admin: model name is empty")
	}
	if _, dup := s.models[name]; dup {
		return fmt.Errorf("admin: model %q is already registered", name)
	}
	if err := opts.normalize(src, s.Registered); err != nil {
		return err
	}
	s.models[name] = &model{src: src, opts: opts}
	s.order = append(s.order, name)
	return nil
}

func (s *Site) Registered(name string) bool {
	_, ok := s.models[name]
	return ok
}

// Models returns the registered model names ordered by plural label.
func (s *Site) Models() []string {
	out := append([]string(nil), s.order...)
	sort.Slice(out, func(i, j int) bool {
		return s.models[out[i]].src.Meta().VerbosePlural < s.models[out[j]].src.Meta().VerbosePlural
	})
	return out
}

// Mount registers every admin route under prefix.
func (s *Site) Mount(r *router.Router, prefix string) error {
	if s.auth == nil {
		return errors.New("admin: no authenticator")
	}
	if err := loadTemplates(); err != nil {
		return err
	}

	g := r.Group(prefix, session.Middleware(s.session), s.csrf)
	s.prefix = g.Prefix()
	if s.prefix == "/" {
		s.prefix = ""
	}

	g.Get("/login/", "admin:login", s.login)
	g.Post("/login/", "", s.login)
	g.Post("/logout/", "admin:logout", s.logout, s.requireStaff)
	g.Get("/", "admin:index", s.index, s.requireStaff)

	for _, name := range s.order {
		m := s.models[name]
		mg := g.Group("/"+name, s.requireStaff)
		mg.Get("/", "admin:"+name+"_changelist", s.changelist(m))
		mg.Post("/", "", s.changelist(m))
		mg.Get("/add/", "admin:"+name+"_add", s.form(m))
		mg.Post("/add/", "", s.form(m))
		mg.Get("/{id}/change/", "admin:"+name+"_change", s.form(m))
		mg.Post("/{id}/change/", "", s.form(m))
		mg.Get("/{id}/delete/", "admin:"+name+"_delete", s.remove(m))
		mg.Post("/{id}/delete/", "", s.remove(m))
	}
	return nil
}

func (s *Site) url(parts ...string) string {
	return s.prefix + "/" + strings.Join(append(parts, ""), "/")
}

func (s *Site) changelistURL(name string) string { return s.url(name) }
func (s *Site) addURL(name string) string        { return s.url(name, "add") }
func (s *Site) changeURL(name string, id uint) string {
	return s.url(name, strconv.FormatUint(uint64(id), 10), "change")
}
func (s *Site) deleteURL(name string, id uint) string {
	return s.url(name, strconv.FormatUint(uint64(id), 10), "delete")
}

type userKey struct{}

func userFrom(r *http.Request) *User {
	u, _ := r.Context().Value(userKey{}).(*User)
	return u
}

// requireStaff redirects to the login page unless the session holds a
// staff user that still exists.
func (s *Site) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromCtx(r)
		if id, ok := sess.GetUint(sessionUserKey); ok {
			u, err := s.auth.User(r.Context(), id)
			if err == nil && rbac.IsStaff(u.Role) {
				ctx := context.WithValue(r.Context(), userKey{}, &u)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			sess.Invalidate(r.Context())
		}
		s.redirect(w, r, s.url("login")+"?next="+url.QueryEscape(r.URL.RequestURI()))
	})
}

// csrf compares the posted token with the one kept in the session.
func (s *Site) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			want, _ := session.FromCtx(r).GetString(sessionCSRFKey)
			got := r.PostFormValue(csrfField)
			if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
				http.Error(w, "CSRF verification failed. Request aborted.", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func csrfToken(sess *session.Session) string {
	if tok, ok := sess.GetString(sessionCSRFKey); ok && tok != "" {
		return tok
	}
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	tok := hex.EncodeToString(b)
	sess.Set(sessionCSRFKey, tok)
	return tok
}

const loginError = "Please enter the correct email and password for a staff account. Note that both fields may be case-sensitive."

func (s *Site) login(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")
	if r.Method == http.MethodPost {
		next = r.PostFormValue("next")
	}
	if !strings.HasPrefix(next, s.url()) || strings.HasPrefix(next, "//") {
		next = s.url()
	}

	body := loginPage{Next: next}
	if r.Method == http.MethodPost {
		body.Email = r.PostFormValue("username")
		u, err := s.auth.Authenticate(r.Context(), body.Email, r.PostFormValue("password"))
		if err == nil && rbac.IsStaff(u.Role) {
			sess := session.FromCtx(r)
			sess.Regenerate(r.Context())
			sess.Set(sessionUserKey, u.ID)
			logger.WithCtx(r.Context()).Info("admin: login", "user_id", u.ID)
			s.redirect(w, r, next)
			return
		}
		body.Error = loginError
	}
	s.render(w, r, http.StatusOK, "login", "Log in", body)
}

func (s *Site) logout(w http.ResponseWriter, r *http.Request) {
	session.FromCtx(r).Invalidate(r.Context())
	s.redirect(w, r, s.url("login"))
}

func (s *Site) index(w http.ResponseWriter, r *http.Request) {
	var body indexPage
	for _, name := range s.Models() {
		meta := s.models[name].src.Meta()
		body.Models = append(body.Models, indexEntry{
			Label:  meta.VerbosePlural,
			List:   s.changelistURL(name),
			AddURL: s.addURL(name),
		})
	}
	s.render(w, r, http.StatusOK, "index", "Site administration", body)
}

func (s *Site) redirect(w http.ResponseWriter, r *http.Request, to string) {
	if err := session.FromCtx(r).Save(r.Context(), w); err != nil {
		logger.WithCtx(r.Context()).Error("admin: save session", "error", err)
	}
	http.Redirect(w, r, to, http.StatusFound)
}

func (s *Site) flash(r *http.Request, msg string) {
	session.FromCtx(r).Flash(flashKey, msg)
}

func (s *Site) notFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "error", "Not found", errorPage{Message: "The requested object does not exist."})
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		s.notFound(w, r)
		return
	}
	logger.WithCtx(r.Context()).Error("admin: request failed", "path", r.URL.Path, "error", err)
	s.render(w, r, http.StatusInternalServerError, "error", "Server error", errorPage{Message: "Something went wrong."})
}

func pathID(r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}
