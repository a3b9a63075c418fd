package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

type cell struct {
	Text   string
	Link   string
	Widget *widget
	Error  string
}

type row struct {
	Index int
	ID    uint
	Cells []cell
}

type filterChoice struct {
	Label    string
	URL      string
	Selected bool
}

type filter struct {
	Title   string
	Choices []filterChoice
}

type pageLink struct {
	Number  int
	URL     string
	Current bool
}

type changelistPage struct {
	Verbose    string
	Plural     string
	AddURL     string
	Action     string
	Search     string
	Searchable bool
	Columns    []string
	Rows       []row
	Editable   bool
	Filters    []filter
	Total      int64
	Pages      []pageLink
	HasErrors  bool
}

func (s *Site) changelist(m *model) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		meta := m.src.Meta()
		qs := r.URL.Query()

		query := Query{
			Search:       strings.TrimSpace(qs.Get("q")),
			SearchFields: m.opts.SearchFields,
			Filters:      map[string]string{},
			Page:         atoi(qs.Get("p")),
			Limit:        m.opts.ListPerPage,
		}
		for _, name := range m.opts.ListFilter {
			if v := qs.Get(name); v != "" {
				query.Filters[name] = v
			}
		}
		if bad := dropBadFilters(m, query.Filters); len(bad) > 0 && r.Method == http.MethodGet {
			clean := url.Values{}
			for k, v := range qs {
				if !slices.Contains(bad, k) {
					clean[k] = v
				}
			}
			to := r.URL.Path
			if len(clean) > 0 {
				to += "?" + clean.Encode()
			}
			s.flash(r, "Ignored an invalid filter value.")
			s.redirect(w, r, to)
			return
		}

		var rowErrs map[uint]FieldErrors
		var posted map[uint]string
		if r.Method == http.MethodPost {
			if len(m.opts.ListEditable) == 0 {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			changed, errs, err := s.saveEditable(ctx, m, r.PostForm)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			if len(errs) == 0 {
				if changed > 0 {
					s.flash(r, changedMessage(meta, changed))
				}
				s.redirect(w, r, r.URL.RequestURI())
				return
			}
			rowErrs, posted = errs, postedRows(r.PostForm)
		}

		recs, pag, err := m.src.List(ctx, query)
		if err != nil {
			s.fail(w, r, err)
			return
		}

		choices := map[string][]Choice{}
		for _, name := range append(slices.Clone(m.opts.ListEditable), m.opts.ListFilter...) {
			f, _ := fieldByName(m.src, name)
			if f.Kind != ForeignKey {
				continue
			}
			if _, done := choices[name]; done {
				continue
			}
			if choices[name], err = m.src.Choices(ctx, name); err != nil {
				s.fail(w, r, err)
				return
			}
		}

		body := changelistPage{
			Verbose:    meta.Verbose,
			Plural:     meta.VerbosePlural,
			AddURL:     s.addURL(meta.Name),
			Action:     r.URL.RequestURI(),
			Search:     query.Search,
			Searchable: len(m.opts.SearchFields) > 0,
			Editable:   len(m.opts.ListEditable) > 0,
			Total:      pag.Total,
			HasErrors:  len(rowErrs) > 0,
		}
		for _, name := range m.opts.ListDisplay {
			if name == StrField {
				body.Columns = append(body.Columns, capitalize(meta.Verbose))
				continue
			}
			f, _ := fieldByName(m.src, name)
			body.Columns = append(body.Columns, f.label())
		}

		for i, rec := range recs {
			values := rec.Values
			if prefix, ok := posted[rec.ID]; ok {
				values, _ = parseInto(m.src, m.opts.ListEditable, r.PostForm, prefix, rec.Values)
			}
			rw := row{Index: i, ID: rec.ID}
			for _, name := range m.opts.ListDisplay {
				rw.Cells = append(rw.Cells, s.cell(m, rec, values, name, i, choices, rowErrs[rec.ID]))
			}
			body.Rows = append(body.Rows, rw)
		}

		body.Filters = s.filters(m, qs, choices)
		if pag.LastPage > 1 {
			for n := 1; n <= pag.LastPage; n++ {
				body.Pages = append(body.Pages, pageLink{Number: n, URL: withParam(qs, "p", strconv.Itoa(n)), Current: n == pag.Page})
			}
		}

		s.render(w, r, http.StatusOK, "changelist", "Select "+meta.Verbose+" to change", body)
	}
}

func (s *Site) cell(m *model, rec Record, values Values, name string, index int, choices map[string][]Choice, errs FieldErrors) cell {
	if name == StrField {
		c := cell{Text: rec.String}
		if slices.Contains(m.opts.ListDisplayLinks, name) {
			c.Link = s.changeURL(m.src.Meta().Name, rec.ID)
		}
		return c
	}

	f, _ := fieldByName(m.src, name)
	if slices.Contains(m.opts.ListEditable, name) {
		wd := newWidget(f, fmt.Sprintf("form-%d-%s", index, name), values[name], choices[name], false)
		return cell{Widget: &wd, Error: errs[name]}
	}
	c := cell{Text: display(f, rec, m.opts.EmptyValueDisplay)}
	if slices.Contains(m.opts.ListDisplayLinks, name) {
		c.Link = s.changeURL(m.src.Meta().Name, rec.ID)
	}
	return c
}

// saveEditable applies the posted list_editable rows. Rows that fail
// validation are reported by id; the others are saved.
func (s *Site) saveEditable(ctx context.Context, m *model, form url.Values) (int, map[uint]FieldErrors, error) {
	errs := map[uint]FieldErrors{}
	changed := 0
	total := atoi(form.Get("form-TOTAL_FORMS"))
	for i := 0; i < total; i++ {
		prefix := fmt.Sprintf("form-%d-", i)
		id := uint(atoi(form.Get(prefix + "id")))
		if id == 0 {
			continue
		}
		rec, err := m.src.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return 0, nil, err
		}

		values, ferrs := parseInto(m.src, m.opts.ListEditable, form, prefix, rec.Values)
		if ferrs != nil {
			errs[id] = ferrs
			continue
		}
		if sameValues(rec.Values, values, m.opts.ListEditable) {
			continue
		}
		if _, err := m.src.Update(ctx, id, values); err != nil {
			var fe FieldErrors
			if errors.As(err, &fe) {
				errs[id] = fe
				continue
			}
			return 0, nil, err
		}
		changed++
	}
	return changed, errs, nil
}

func postedRows(form url.Values) map[uint]string {
	out := map[uint]string{}
	total := atoi(form.Get("form-TOTAL_FORMS"))
	for i := 0; i < total; i++ {
		prefix := fmt.Sprintf("form-%d-", i)
		if id := atoi(form.Get(prefix + "id")); id > 0 {
			out[uint(id)] = prefix
		}
	}
	return out
}

// dropBadFilters removes values that cannot name a filter choice and returns
// the dropped field names.
func dropBadFilters(m *model, filters map[string]string) []string {
	var bad []string
	for _, name := range m.opts.ListFilter {
		v, ok := filters[name]
		if !ok {
			continue
		}
		f, _ := fieldByName(m.src, name)
		valid := true
		switch f.Kind {
		case Bool:
			valid = v == "1" || v == "0"
		case ForeignKey:
			n, err := strconv.ParseUint(v, 10, 64)
			valid = err == nil && n > 0
		}
		if !valid {
			delete(filters, name)
			bad = append(bad, name)
		}
	}
	return bad
}

func (s *Site) filters(m *model, qs url.Values, choices map[string][]Choice) []filter {
	var out []filter
	for _, name := range m.opts.ListFilter {
		f, _ := fieldByName(m.src, name)
		current := qs.Get(name)
		fl := filter{Title: "By " + strings.ToLower(f.label())}
		fl.Choices = append(fl.Choices, filterChoice{Label: "All", URL: withParam(qs, name, ""), Selected: current == ""})

		switch f.Kind {
		case Bool:
			for _, c := range []struct{ label, value string }{{"Yes", "1"}, {"No", "0"}} {
				fl.Choices = append(fl.Choices, filterChoice{Label: c.label, URL: withParam(qs, name, c.value), Selected: current == c.value})
			}
		case ForeignKey:
			for _, c := range choices[name] {
				v := strconv.FormatUint(uint64(c.Value), 10)
				fl.Choices = append(fl.Choices, filterChoice{Label: c.Label, URL: withParam(qs, name, v), Selected: current == v})
			}
		}
		out = append(out, fl)
	}
	return out
}

// withParam returns "?query" with key set to value (removed when empty).
// Changing a filter resets the page.
func withParam(qs url.Values, key, value string) string {
	next := url.Values{}
	for k, v := range qs {
		next[k] = slices.Clone(v)
	}
	if key != "p" {
		next.Del("p")
	}
	if value == "" {
		next.Del(key)
	} else {
		next.Set(key, value)
	}
	if len(next) == 0 {
		return "?"
	}
	return "?" + next.Encode()
}

func changedMessage(meta Meta, n int) string {
	if n == 1 {
		return fmt.Sprintf("1 %s was changed successfully.", meta.Verbose)
	}
	return fmt.Sprintf("%d %s were changed successfully.", n, meta.VerbosePlural)
}

func sameValues(a, b Values, names []string) bool {
	for _, name := range names {
		if !sameValue(a[name], b[name]) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) bool {
	switch av := a.(type) {
	case []uint:
		return slices.Equal(av, asIDs(b))
	case *uint:
		bv := asFK(b)
		if av == nil || bv == nil {
			return av == nil && bv == nil
		}
		return *av == *bv
	}
	return a == b
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
