// Package collection has the slice helpers the catalog code shares.
//
//	slugs := collection.Map(ic.Toppings, func(t models.Topping) string { return t.Slug })
//	visible := collection.Filter(ic.Toppings, func(t models.Topping) bool { return t.IsPublished })
package collection

// Map returns fn applied to every element. The result is never nil.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter keeps the elements for which keep is true, in order. The result is
// never nil.
func Filter[T any](s []T, keep func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Unique drops repeated values, keeping the first occurrence.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
