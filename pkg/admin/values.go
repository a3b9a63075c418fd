package admin

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	msgRequired      = "This field is required."
	msgInvalidChoice = "Select a valid choice. That choice is not one of the available choices."
	msgInvalidInt    = "Enter a whole number."
)

// parseField reads one posted field. ok is false when the field was left
// empty and has no value to set.
func parseField(f Field, form url.Values, name string) (value any, ok bool, msg string) {
	raw := strings.TrimSpace(form.Get(name))
	switch f.Kind {
	case Text, TextArea:
		if raw == "" && f.Required {
			return raw, true, msgRequired
		}
		if n := utf8.RuneCountInString(raw); f.MaxLength > 0 && n > f.MaxLength {
			return raw, true, fmt.Sprintf("Ensure this value has at most %d characters (it has %d).", f.MaxLength, n)
		}
		return raw, true, ""
	case Bool:
		return raw != "", true, ""
	case Int:
		if raw == "" {
			if f.Required {
				return nil, false, msgRequired
			}
			return nil, false, ""
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, false, msgInvalidInt
		}
		return n, true, ""
	case ForeignKey:
		if raw == "" {
			if f.Required {
				return (*uint)(nil), true, msgRequired
			}
			return (*uint)(nil), true, ""
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || n == 0 {
			return (*uint)(nil), true, msgInvalidChoice
		}
		id := uint(n)
		return &id, true, ""
	case ManyToMany:
		ids := []uint{}
		for _, s := range form[name] {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			n, err := strconv.ParseUint(s, 10, 64)
			if err != nil || n == 0 {
				return ids, true, fmt.Sprintf("Select a valid choice. %s is not one of the available choices.", s)
			}
			ids = append(ids, uint(n))
		}
		if len(ids) == 0 && f.Required {
			return ids, true, msgRequired
		}
		return ids, true, ""
	}
	return nil, false, ""
}

// parseInto overlays the named fields from form onto base. Field names in
// form are prefix+name.
func parseInto(src Source, names []string, form url.Values, prefix string, base Values) (Values, FieldErrors) {
	out := base.clone()
	errs := FieldErrors{}
	for _, name := range names {
		f, ok := fieldByName(src, name)
		if !ok {
			continue
		}
		v, set, msg := parseField(f, form, prefix+name)
		if msg != "" {
			errs[name] = msg
		}
		if set {
			out[name] = v
		}
	}
	if len(errs) == 0 {
		return out, nil
	}
	return out, errs
}

// defaults returns the initial values for a new object.
func defaults(src Source) Values {
	v := Values{}
	for _, f := range src.Fields() {
		if f.Default != nil {
			v[f.Name] = f.Default
		}
	}
	return v
}

func fieldNames(src Source) []string {
	fs := src.Fields()
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Name
	}
	return out
}

// blank reports whether a posted inline row carries nothing beyond defaults.
func blank(src Source, names []string, form url.Values, prefix string) bool {
	for _, name := range names {
		f, ok := fieldByName(src, name)
		if !ok {
			continue
		}
		raw := strings.TrimSpace(form.Get(prefix + name))
		switch f.Kind {
		case Bool:
			if (raw != "") != asBool(f.Default) {
				return false
			}
		case ManyToMany:
			if len(form[prefix+name]) > 0 {
				return false
			}
		case Int:
			def := ""
			if n, ok := f.Default.(int); ok {
				def = strconv.Itoa(n)
			}
			if raw != def {
				return false
			}
		default:
			if raw != "" && raw != asString(f.Default) {
				return false
			}
		}
	}
	return true
}
