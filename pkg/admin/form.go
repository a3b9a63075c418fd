package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/anfisaforfriends/anfisa/pkg/orm"
)

type formField struct {
	Label    string
	Help     string
	Error    string
	Required bool
	Widget   widget
}

type inlineRow struct {
	ID        uint
	Title     string
	ChangeURL string
	Prefix    string
	Fields    []formField
	Error     string
	Delete    bool
}

type inlineSet struct {
	Prefix  string
	Plural  string
	Columns []string
	Rows    []inlineRow
	Total   int
	Initial int
}

type formPage struct {
	Adding    bool
	Verbose   string
	Object    string
	Action    string
	DeleteURL string
	Fields    []formField
	NonField  string
	Inlines   []inlineSet
	HasErrors bool
}

// inlineResult is what saveInlines leaves for re-rendering.
type inlineResult struct {
	errs map[string]FieldErrors
	// unsaved holds the prefixes of new rows that must be shown again.
	unsaved map[string][]string
}

func (res inlineResult) failed() bool { return len(res.errs) > 0 }

func (s *Site) form(m *model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meta := m.src.Meta()

		var rec Record
		values := defaults(m.src)
		if chi.URLParam(r, "id") != "" {
			id, ok := pathID(r)
			if !ok {
				s.notFound(w, r)
				return
			}
			var err error
			if rec, err = m.src.Get(ctx, id); err != nil {
				s.fail(w, r, err)
				return
			}
			values = rec.Values
		}
		adding := rec.ID == 0

		var errs FieldErrors
		var form url.Values
		inlines := inlineResult{errs: map[string]FieldErrors{}, unsaved: map[string][]string{}}

		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}
			form = r.PostForm

			var perrs FieldErrors
			values, perrs = parseInto(m.src, fieldNames(m.src), form, "", values)
			errs = perrs
			if errs == nil {
				saved, err := s.save(ctx, m, rec.ID, values)
				var fe FieldErrors
				switch {
				case errors.As(err, &fe):
					errs = fe
				case err != nil:
					s.fail(w, r, err)
					return
				default:
					rec, values = saved, saved.Values
					if inlines, err = s.saveInlines(ctx, m, rec.ID, form); err != nil {
						s.fail(w, r, err)
						return
					}
					if !inlines.failed() {
						s.saved(w, r, meta, rec, adding, form)
						return
					}
				}
			}
			if errs != nil {
				inlines.unsaved = s.pendingRows(m, form)
			}
		}

		body := formPage{
			Adding:    rec.ID == 0,
			Verbose:   meta.Verbose,
			Object:    rec.String,
			Action:    s.addURL(meta.Name),
			HasErrors: errs != nil || inlines.failed(),
			NonField:  errs[NonFieldErrors],
		}
		if rec.ID != 0 {
			body.Action = s.changeURL(meta.Name, rec.ID)
			body.DeleteURL = s.deleteURL(meta.Name, rec.ID)
		}

		for _, f := range m.src.Fields() {
			var choices []Choice
			if f.Kind == ForeignKey || f.Kind == ManyToMany {
				var err error
				if choices, err = m.src.Choices(ctx, f.Name); err != nil {
					s.fail(w, r, err)
					return
				}
			}
			body.Fields = append(body.Fields, formField{
				Label:    f.label(),
				Help:     f.Help,
				Error:    errs[f.Name],
				Required: f.Required,
				Widget:   newWidget(f, f.Name, values[f.Name], choices, slices.Contains(m.opts.FilterHorizontal, f.Name)),
			})
		}

		for _, in := range m.opts.Inlines {
			set, err := s.inlineSet(ctx, in, rec.ID, form, inlines)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			body.Inlines = append(body.Inlines, set)
		}

		title := "Change " + meta.Verbose
		if body.Adding {
			title = "Add " + meta.Verbose
		}
		s.render(w, r, http.StatusOK, "form", title, body)
	}
}

func (s *Site) save(ctx context.Context, m *model, id uint, v Values) (Record, error) {
	if id == 0 {
		return m.src.Create(ctx, v)
	}
	return m.src.Update(ctx, id, v)
}

// saved flashes the outcome and follows the button that was pressed.
func (s *Site) saved(w http.ResponseWriter, r *http.Request, meta Meta, rec Record, adding bool, form url.Values) {
	verb := "changed"
	if adding {
		verb = "added"
	}
	msg := fmt.Sprintf("The %s “%s” was %s successfully.", meta.Verbose, rec.String, verb)

	switch {
	case form.Get("_continue") != "":
		s.flash(r, msg+" You may edit it again below.")
		s.redirect(w, r, s.changeURL(meta.Name, rec.ID))
	case form.Get("_addanother") != "":
		s.flash(r, fmt.Sprintf("%s You may add another %s below.", msg, meta.Verbose))
		s.redirect(w, r, s.addURL(meta.Name))
	default:
		s.flash(r, msg)
		s.redirect(w, r, s.changelistURL(meta.Name))
	}
}

// saveInlines applies the posted inline rows of parent. Existing rows are
// updated or deleted; filled-in blank rows are created.
func (s *Site) saveInlines(ctx context.Context, m *model, parent uint, form url.Values) (inlineResult, error) {
	res := inlineResult{errs: map[string]FieldErrors{}, unsaved: map[string][]string{}}
	for _, in := range m.opts.Inlines {
		child := in.Source.Meta().Name
		total := atoi(form.Get(child + "-TOTAL_FORMS"))
		for i := 0; i < total; i++ {
			prefix := fmt.Sprintf("%s-%d-", child, i)
			id := uint(atoi(form.Get(prefix + "id")))
			del := form.Get(prefix+"DELETE") != ""

			if id == 0 {
				if del || blank(in.Source, in.Fields, form, prefix) {
					continue
				}
				values, ferrs := parseInto(in.Source, in.Fields, form, prefix, defaults(in.Source))
				if ferrs == nil {
					pid := parent
					values[in.FKName] = &pid
					_, err := in.Source.Create(ctx, values)
					if ferrs, err = asFieldErrors(err); err != nil {
						return res, err
					}
				}
				if ferrs != nil {
					res.errs[prefix] = ferrs
					res.unsaved[child] = append(res.unsaved[child], prefix)
				}
				continue
			}

			rec, err := in.Source.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return res, err
			}
			if fk := asFK(rec.Values[in.FKName]); fk == nil || *fk != parent {
				continue
			}
			if del {
				if err := in.Source.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
					return res, err
				}
				continue
			}

			values, ferrs := parseInto(in.Source, in.Fields, form, prefix, rec.Values)
			if ferrs == nil && !sameValues(rec.Values, values, in.Fields) {
				_, err := in.Source.Update(ctx, id, values)
				if ferrs, err = asFieldErrors(err); err != nil {
					return res, err
				}
			}
			if ferrs != nil {
				res.errs[prefix] = ferrs
			}
		}
	}
	return res, nil
}

// pendingRows lists the filled-in new inline rows of a form whose parent
// failed to save.
func (s *Site) pendingRows(m *model, form url.Values) map[string][]string {
	out := map[string][]string{}
	for _, in := range m.opts.Inlines {
		child := in.Source.Meta().Name
		total := atoi(form.Get(child + "-TOTAL_FORMS"))
		for i := 0; i < total; i++ {
			prefix := fmt.Sprintf("%s-%d-", child, i)
			if atoi(form.Get(prefix+"id")) == 0 && form.Get(prefix+"DELETE") == "" && !blank(in.Source, in.Fields, form, prefix) {
				out[child] = append(out[child], prefix)
			}
		}
	}
	return out
}

func asFieldErrors(err error) (FieldErrors, error) {
	if err == nil {
		return nil, nil
	}
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe, nil
	}
	return nil, err
}

func (s *Site) inlineSet(ctx context.Context, in Inline, parent uint, form url.Values, res inlineResult) (inlineSet, error) {
	meta := in.Source.Meta()
	set := inlineSet{Prefix: meta.Name, Plural: meta.VerbosePlural}
	for _, name := range in.Fields {
		f, _ := fieldByName(in.Source, name)
		set.Columns = append(set.Columns, f.label())
	}

	choices := map[string][]Choice{}
	for _, name := range in.Fields {
		f, _ := fieldByName(in.Source, name)
		if f.Kind != ForeignKey && f.Kind != ManyToMany {
			continue
		}
		c, err := in.Source.Choices(ctx, name)
		if err != nil {
			return set, err
		}
		choices[name] = c
	}

	posted := map[uint]string{}
	if form != nil {
		total := atoi(form.Get(meta.Name + "-TOTAL_FORMS"))
		for i := 0; i < total; i++ {
			prefix := fmt.Sprintf("%s-%d-", meta.Name, i)
			if id := atoi(form.Get(prefix + "id")); id > 0 {
				posted[uint(id)] = prefix
			}
		}
	}

	addRow := func(rec Record, values Values, oldPrefix string) {
		prefix := fmt.Sprintf("%s-%d-", meta.Name, len(set.Rows))
		errs := res.errs[oldPrefix]
		rw := inlineRow{ID: rec.ID, Title: rec.String, Prefix: prefix}
		if rec.ID != 0 {
			rw.ChangeURL = s.changeURL(meta.Name, rec.ID)
		}
		for _, name := range in.Fields {
			f, _ := fieldByName(in.Source, name)
			rw.Fields = append(rw.Fields, formField{
				Error:    errs[name],
				Required: f.Required,
				Widget:   newWidget(f, prefix+name, values[name], choices[name], false),
			})
		}
		var other []string
		for k, msg := range errs {
			if !slices.Contains(in.Fields, k) {
				other = append(other, msg)
			}
		}
		sort.Strings(other)
		rw.Error = strings.Join(other, " ")
		if oldPrefix != "" && form.Get(oldPrefix+"DELETE") != "" {
			rw.Delete = true
		}
		set.Rows = append(set.Rows, rw)
	}

	if parent != 0 {
		children, err := childrenOf(ctx, in, parent)
		if err != nil {
			return set, err
		}
		for _, child := range children {
			values := child.Values
			oldPrefix := posted[child.ID]
			if oldPrefix != "" {
				values, _ = parseInto(in.Source, in.Fields, form, oldPrefix, child.Values)
			}
			addRow(child, values, oldPrefix)
		}
	}
	set.Initial = len(set.Rows)

	for _, prefix := range res.unsaved[meta.Name] {
		values, _ := parseInto(in.Source, in.Fields, form, prefix, defaults(in.Source))
		addRow(Record{}, values, prefix)
	}
	for i := 0; i < in.Extra; i++ {
		addRow(Record{}, defaults(in.Source), "")
	}
	set.Total = len(set.Rows)
	return set, nil
}

// childrenOf loads every row of in that points at parent.
func childrenOf(ctx context.Context, in Inline, parent uint) ([]Record, error) {
	var out []Record
	q := Query{
		Filters: map[string]string{in.FKName: fmt.Sprint(parent)},
		Limit:   orm.MaxLimit,
	}
	for page := 1; ; page++ {
		q.Page = page
		recs, pag, err := in.Source.List(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
		if page >= pag.LastPage || len(recs) == 0 {
			return out, nil
		}
	}
}

type relatedGroup struct {
	Plural string
	Items  []string
}

type deletePage struct {
	Verbose string
	Object  string
	Related []relatedGroup
	Cancel  string
	Action  string
}

func (s *Site) remove(m *model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meta := m.src.Meta()
		id, ok := pathID(r)
		if !ok {
			s.notFound(w, r)
			return
		}
		rec, err := m.src.Get(ctx, id)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		if r.Method == http.MethodPost {
			if err := m.src.Delete(ctx, id); err != nil {
				s.fail(w, r, err)
				return
			}
			s.flash(r, fmt.Sprintf("The %s “%s” was deleted successfully.", meta.Verbose, rec.String))
			s.redirect(w, r, s.changelistURL(meta.Name))
			return
		}

		body := deletePage{
			Verbose: meta.Verbose,
			Object:  rec.String,
			Cancel:  s.changeURL(meta.Name, id),
			Action:  s.deleteURL(meta.Name, id),
		}
		for _, in := range m.opts.Inlines {
			children, err := childrenOf(ctx, in, id)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			if len(children) == 0 {
				continue
			}
			g := relatedGroup{Plural: in.Source.Meta().VerbosePlural}
			for _, c := range children {
				g.Items = append(g.Items, c.String)
			}
			body.Related = append(body.Related, g)
		}
		s.render(w, r, http.StatusOK, "delete", "Are you sure?", body)
	}
}
