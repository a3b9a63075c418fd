package models

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringIsTitle(t *testing.T) {
	cases := []fmt.Stringer{
		Category{Title: "Sorbets"},
		Topping{Title: "Crushed pistachio"},
		Wrapper{Title: "Waffle cone"},
		IceCream{Title: "Plombir"},
	}
	want := []string{"Sorbets", "Crushed pistachio", "Waffle cone", "Plombir"}

	for i, c := range cases {
		assert.Equal(t, want[i], c.String())
		assert.Equal(t, want[i], fmt.Sprint(c))
	}
}
