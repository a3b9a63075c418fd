package validate_test

import (
	"strings"
	"testing"

	"github.com/anfisaforfriends/anfisa/pkg/validate"
)

type categoryInput struct {
	Title       string `json:"title"        validate:"required,max=256"`
	Slug        string `json:"slug"         validate:"required,max=64,slug"`
	OutputOrder int    `json:"output_order" validate:"gte=0,lte=32767"`
}

func TestValidInput(t *testing.T) {
	errs := validate.Struct(categoryInput{Title: "Sorbets", Slug: "sorbets_2-new", OutputOrder: 100})
	if validate.HasErrors(errs) {
		t.Errorf("expected no errors, got: %v", errs)
	}
}

func TestRequiredUsesJSONNames(t *testing.T) {
	errs := validate.Struct(categoryInput{})
	for _, field := range []string{"title", "slug"} {
		if errs[field] != "This field is required." {
			t.Errorf("%s: got %q", field, errs[field])
		}
	}
	if _, ok := errs["output_order"]; ok {
		t.Error("zero output_order must be accepted")
	}
}

func TestMaxLength(t *testing.T) {
	errs := validate.Struct(categoryInput{
		Title: strings.Repeat("é", 257),
		Slug:  "ok",
	})
	want := "Ensure this value has at most 256 characters (it has 257)."
	if errs["title"] != want {
		t.Errorf("got %q, want %q", errs["title"], want)
	}

	errs = validate.Struct(categoryInput{Title: strings.Repeat("a", 256), Slug: strings.Repeat("s", 64)})
	if validate.HasErrors(errs) {
		t.Errorf("boundary lengths must pass, got %v", errs)
	}
}

func TestSlugRule(t *testing.T) {
	for _, bad := range []string{"with space", "ünï", "slash/slug", "dot.slug"} {
		errs := validate.Struct(categoryInput{Title: "t", Slug: bad})
		if _, ok := errs["slug"]; !ok {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}

func TestOutputOrderRange(t *testing.T) {
	for _, n := range []int{-1, 32768} {
		errs := validate.Struct(categoryInput{Title: "t", Slug: "s", OutputOrder: n})
		if _, ok := errs["output_order"]; !ok {
			t.Errorf("expected %d to be rejected", n)
		}
	}
}

func TestVar(t *testing.T) {
	if msg := validate.Var("staff", "oneof=admin staff user"); msg != "" {
		t.Errorf("unexpected: %s", msg)
	}
	if msg := validate.Var("root", "oneof=admin staff user"); msg == "" {
		t.Error("expected oneof failure")
	}
}
