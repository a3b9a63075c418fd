package admin

import (
	"fmt"
	"slices"
)

// StrField stands for the object's string form in ListDisplay.
const StrField = "__str__"

// ModelAdmin configures how one model is listed and edited.
type ModelAdmin struct {
	ListDisplay       []string
	ListDisplayLinks  []string
	ListEditable      []string
	SearchFields      []string
	ListFilter        []string
	FilterHorizontal  []string
	EmptyValueDisplay string
	ListPerPage       int
	Inlines           []Inline
}

// Inline shows the children of an object as rows on its change page.
type Inline struct {
	Source Source
	// FKName is the child's ForeignKey field pointing at the parent.
	FKName string
	Fields []string
	// Extra is the number of blank rows offered for new children.
	Extra int
}

const defaultListPerPage = 100

// normalize fills defaults and checks every name against src. registered
// reports whether a model name is already on the site.
func (ma *ModelAdmin) normalize(src Source, registered func(string) bool) error {
	model := src.Meta().Name
	fail := func(format string, args ...any) error {
		return fmt.Errorf("admin: %s: %s", model, fmt.Sprintf(format, args...))
	}

	if len(ma.ListDisplay) == 0 {
		ma.ListDisplay = []string{StrField}
	}
	for i, name := range ma.ListDisplay {
		if name == StrField {
			continue
		}
		f, ok := fieldByName(src, name)
		if !ok {
			return fail("list_display[%d] refers to unknown field %q", i, name)
		}
		if f.Kind == ManyToMany {
			return fail("list_display[%d] must not be a many-to-many field", i)
		}
	}

	if len(ma.ListDisplayLinks) == 0 {
		if slices.Contains(ma.ListEditable, ma.ListDisplay[0]) {
			return fail("list_editable refers to the first field in list_display (%q), which cannot be used unless list_display_links is set", ma.ListDisplay[0])
		}
		ma.ListDisplayLinks = []string{ma.ListDisplay[0]}
	}
	for i, name := range ma.ListDisplayLinks {
		if !slices.Contains(ma.ListDisplay, name) {
			return fail("list_display_links[%d] %q is not in list_display", i, name)
		}
	}

	for i, name := range ma.ListEditable {
		switch {
		case name == StrField:
			return fail("list_editable[%d] cannot be %s", i, StrField)
		case !slices.Contains(ma.ListDisplay, name):
			return fail("list_editable[%d] %q is not in list_display", i, name)
		case slices.Contains(ma.ListDisplayLinks, name):
			return fail("list_editable[%d] %q cannot be in both list_editable and list_display_links", i, name)
		}
	}

	for i, name := range ma.SearchFields {
		f, ok := fieldByName(src, name)
		if !ok || (f.Kind != Text && f.Kind != TextArea) {
			return fail("search_fields[%d] %q is not a text field", i, name)
		}
	}

	for i, name := range ma.ListFilter {
		f, ok := fieldByName(src, name)
		if !ok || (f.Kind != Bool && f.Kind != ForeignKey) {
			return fail("list_filter[%d] %q must be a boolean or foreign key field", i, name)
		}
	}

	for i, name := range ma.FilterHorizontal {
		f, ok := fieldByName(src, name)
		if !ok || f.Kind != ManyToMany {
			return fail("filter_horizontal[%d] %q is not a many-to-many field", i, name)
		}
	}

	if ma.EmptyValueDisplay == "" {
		ma.EmptyValueDisplay = "-"
	}
	if ma.ListPerPage <= 0 {
		ma.ListPerPage = defaultListPerPage
	}

	for i := range ma.Inlines {
		in := &ma.Inlines[i]
		if in.Source == nil {
			return fail("inlines[%d] has no source", i)
		}
		child := in.Source.Meta().Name
		if !registered(child) {
			return fail("inlines[%d] model %q is not registered", i, child)
		}
		fk, ok := fieldByName(in.Source, in.FKName)
		if !ok || fk.Kind != ForeignKey {
			return fail("inlines[%d] %q has no foreign key %q", i, child, in.FKName)
		}
		if len(in.Fields) == 0 {
			for _, f := range in.Source.Fields() {
				if f.Name != in.FKName {
					in.Fields = append(in.Fields, f.Name)
				}
			}
		}
		for _, name := range in.Fields {
			if name == in.FKName {
				return fail("inlines[%d] must not list its foreign key %q", i, name)
			}
			if _, ok := fieldByName(in.Source, name); !ok {
				return fail("inlines[%d] refers to unknown field %q", i, name)
			}
		}
		if in.Extra < 0 {
			in.Extra = 0
		}
	}
	return nil
}
