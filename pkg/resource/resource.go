// Package resource shapes models into the JSON the public API returns.
//
//	var IceCream resource.Transformer[models.IceCream] = func(ic models.IceCream) resource.Map {
//	    return resource.Map{
//	        "id":      ic.ID,
//	        "title":   ic.Title,
//	        "wrapper": resource.When(ic.Wrapper != nil, func() any { return ic.Wrapper.Title }),
//	    }
//	}
//
//	c.Success(IceCream.Many(items))
package resource

import "github.com/anfisaforfriends/anfisa/pkg/orm"

type Map = map[string]any

// Transformer converts one model into a Map.
type Transformer[T any] func(v T) Map

type missing struct{}

// When includes the key only when cond holds. value is called lazily so it
// may dereference what cond guards.
func When(cond bool, value func() any) any {
	if !cond {
		return missing{}
	}
	return value()
}

// One transforms a single model.
func (t Transformer[T]) One(v T) Map {
	return prune(t(v))
}

// Many transforms a slice. A nil slice becomes an empty list.
func (t Transformer[T]) Many(items []T) []Map {
	out := make([]Map, len(items))
	for i, v := range items {
		out[i] = t.One(v)
	}
	return out
}

// Page transforms one page of a listing into {"items", "pagination"}.
func (t Transformer[T]) Page(items []T, p orm.Pagination) Map {
	return Map{"items": t.Many(items), "pagination": p}
}

func prune(m Map) Map {
	for k, v := range m {
		switch v := v.(type) {
		case missing:
			delete(m, k)
		case Map:
			m[k] = prune(v)
		}
	}
	return m
}
