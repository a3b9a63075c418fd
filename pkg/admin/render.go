package admin

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"sync"

	"github.com/anfisaforfriends/anfisa/pkg/logger"
	"github.com/anfisaforfriends/anfisa/pkg/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	pages     map[string]*template.Template
	pagesOnce sync.Once
	pagesErr  error
)

func loadTemplates() error {
	pagesOnce.Do(func() {
		pages = map[string]*template.Template{}
		for _, name := range []string{"index", "login", "changelist", "form", "delete", "error"} {
			t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
			if err != nil {
				pagesErr = fmt.Errorf("admin: parse %s: %w", name, err)
				return
			}
			pages[name] = t
		}
	})
	return pagesErr
}

type layout struct {
	SiteTitle string
	Title     string
	Home      string
	Logout    string
	User      *User
	CSRF      string
	Messages  []string
	Body      any
}

// render writes a full page. The session is saved first so the CSRF token
// and consumed flashes persist.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, page, title string, body any) {
	sess := session.FromCtx(r)
	data := layout{
		SiteTitle: s.Title,
		Title:     title,
		Home:      s.url(),
		Logout:    s.url("logout"),
		User:      userFrom(r),
		CSRF:      csrfToken(sess),
		Messages:  sess.GetFlashes(flashKey),
		Body:      body,
	}

	var buf bytes.Buffer
	if err := pages[page].ExecuteTemplate(&buf, "base", data); err != nil {
		logger.WithCtx(r.Context()).Error("admin: render", "page", page, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	if err := sess.Save(r.Context(), w); err != nil {
		logger.WithCtx(r.Context()).Error("admin: save session", "error", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type loginPage struct {
	Email string
	Next  string
	Error string
}

type indexEntry struct {
	Label  string
	List   string
	AddURL string
}

type indexPage struct {
	Models []indexEntry
}

type errorPage struct {
	Message string
}

type option struct {
	Value    string
	Label    string
	Selected bool
}

// widget is one HTML input. Type is text, textarea, checkbox, number,
// select or multiselect.
type widget struct {
	Name       string
	Type       string
	Value      string
	Checked    bool
	Required   bool
	MaxLength  int
	Options    []option
	Horizontal bool
}

func newWidget(f Field, name string, value any, choices []Choice, horizontal bool) widget {
	w := widget{Name: name, Required: f.Required, MaxLength: f.MaxLength}
	switch f.Kind {
	case Text:
		w.Type, w.Value = "text", asString(value)
	case TextArea:
		w.Type, w.Value = "textarea", asString(value)
	case Bool:
		w.Type, w.Checked = "checkbox", asBool(value)
	case Int:
		w.Type = "number"
		if n, ok := value.(int); ok {
			w.Value = strconv.Itoa(n)
		}
	case ForeignKey:
		w.Type = "select"
		selected := asFK(value)
		w.Options = append(w.Options, option{Value: "", Label: "---------", Selected: selected == nil})
		for _, c := range choices {
			w.Options = append(w.Options, option{
				Value:    strconv.FormatUint(uint64(c.Value), 10),
				Label:    c.Label,
				Selected: selected != nil && *selected == c.Value,
			})
		}
	case ManyToMany:
		w.Type, w.Horizontal = "multiselect", horizontal
		picked := map[uint]bool{}
		for _, id := range asIDs(value) {
			picked[id] = true
		}
		for _, c := range choices {
			w.Options = append(w.Options, option{
				Value:    strconv.FormatUint(uint64(c.Value), 10),
				Label:    c.Label,
				Selected: picked[c.Value],
			})
		}
	}
	return w
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asFK(v any) *uint {
	switch id := v.(type) {
	case *uint:
		return id
	case uint:
		return &id
	}
	return nil
}

func asIDs(v any) []uint {
	ids, _ := v.([]uint)
	return ids
}

// display renders one changelist cell.
func display(f Field, rec Record, empty string) string {
	v := rec.Values[f.Name]
	switch f.Kind {
	case Bool:
		if asBool(v) {
			return "Yes"
		}
		return "No"
	case Int:
		if n, ok := v.(int); ok {
			return strconv.Itoa(n)
		}
	case ForeignKey:
		if asFK(v) != nil && rec.Labels[f.Name] != "" {
			return rec.Labels[f.Name]
		}
	case ManyToMany:
		if rec.Labels[f.Name] != "" {
			return rec.Labels[f.Name]
		}
	default:
		if s := asString(v); s != "" {
			return s
		}
	}
	return empty
}
