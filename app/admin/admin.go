// Package admin registers the catalog models on the back-office site.
package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/anfisaforfriends/anfisa/app/services"
	site "github.com/anfisaforfriends/anfisa/pkg/admin"
)

// IceCreamAdmin configures the ice cream changelist and form.
func IceCreamAdmin() site.ModelAdmin {
	return site.ModelAdmin{
		ListDisplay:       []string{"title", "description", "is_published", "is_on_main", "category", "wrapper"},
		ListEditable:      []string{"is_published", "is_on_main", "category"},
		SearchFields:      []string{"title"},
		ListFilter:        []string{"category"},
		ListDisplayLinks:  []string{"title"},
		EmptyValueDisplay: "Not set",
		FilterHorizontal:  []string{"toppings"},
	}
}

// CategoryAdmin shows a category's ice creams as inline rows.
func CategoryAdmin(iceCreams site.Source) site.ModelAdmin {
	return site.ModelAdmin{
		ListDisplay: []string{"title"},
		Inlines: []site.Inline{{
			Source: iceCreams,
			FKName: "category",
			Fields: []string{"title", "description", "wrapper", "toppings", "is_published", "is_on_main"},
			Extra:  0,
		}},
	}
}

func ToppingAdmin() site.ModelAdmin {
	return site.ModelAdmin{
		ListDisplay:  []string{"title", "slug", "is_published"},
		SearchFields: []string{"title", "slug"},
		ListFilter:   []string{"is_published"},
	}
}

func WrapperAdmin() site.ModelAdmin {
	return site.ModelAdmin{
		ListDisplay:  []string{"title", "is_published"},
		SearchFields: []string{"title"},
		ListFilter:   []string{"is_published"},
	}
}

// NewSite builds the admin site over catalog. Users sign in through auth.
func NewSite(catalog *services.Catalog, auth *services.AuthService) (*site.Site, error) {
	s := site.NewSite("Anfisa administration", Authenticator{auth})

	iceCreams := IceCreamSource{catalog.IceCreams, catalog}
	if err := s.Register(iceCreams, IceCreamAdmin()); err != nil {
		return nil, err
	}
	if err := s.Register(CategorySource{catalog.Categories}, CategoryAdmin(iceCreams)); err != nil {
		return nil, err
	}
	if err := s.Register(ToppingSource{catalog.Toppings}, ToppingAdmin()); err != nil {
		return nil, err
	}
	if err := s.Register(WrapperSource{catalog.Wrappers}, WrapperAdmin()); err != nil {
		return nil, err
	}
	return s, nil
}

// Authenticator lets staff accounts sign in to the site.
type Authenticator struct {
	svc *services.AuthService
}

func (a Authenticator) Authenticate(ctx context.Context, email, password string) (site.User, error) {
	u, err := a.svc.Authenticate(ctx, email, password)
	if err != nil {
		return site.User{}, err
	}
	return site.User{ID: u.ID, Name: u.Name, Role: u.Role}, nil
}

func (a Authenticator) User(ctx context.Context, id uint) (site.User, error) {
	u, err := a.svc.User(ctx, id)
	if err != nil {
		return site.User{}, err
	}
	return site.User{ID: u.ID, Name: u.Name, Role: u.Role}, nil
}

// adminErr converts service errors. keys renames input keys to form field
// names.
func adminErr(err error, keys map[string]string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, services.ErrNotFound) {
		return site.ErrNotFound
	}
	var verr *services.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	out := site.FieldErrors{}
	for key, msg := range verr.Fields {
		name, _, _ := strings.Cut(key, "[")
		if mapped, ok := keys[name]; ok {
			name = mapped
		}
		if name == "_" {
			name = site.NonFieldErrors
		}
		if _, dup := out[name]; !dup {
			out[name] = msg
		}
	}
	return out
}

func str(v site.Values, name string) string {
	s, _ := v[name].(string)
	return s
}

func flag(v site.Values, name string) *bool {
	b, ok := v[name].(bool)
	if !ok {
		return nil
	}
	return &b
}

func num(v site.Values, name string) *int {
	n, ok := v[name].(int)
	if !ok {
		return nil
	}
	return &n
}

func fk(v site.Values, name string) *uint {
	id, _ := v[name].(*uint)
	return id
}

func ids(v site.Values, name string) []uint {
	out, _ := v[name].([]uint)
	return out
}

// boolFilter reads a "1"/"0" changelist filter.
func boolFilter(q site.Query, name string) *bool {
	raw, ok := q.Filters[name]
	if !ok {
		return nil
	}
	b := raw == "1"
	return &b
}

func uintFilter(q site.Query, name string) uint {
	n, err := strconv.ParseUint(q.Filters[name], 10, 64)
	if err != nil {
		return 0
	}
	return uint(n)
}
