package collection

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []string{"MINT", "PLOMBIR"}, Map([]string{"mint", "plombir"}, strings.ToUpper))
	assert.Equal(t, []int{}, Map([]string(nil), func(string) int { return 0 }))
}

func TestFilter(t *testing.T) {
	even := func(n int) bool { return n%2 == 0 }
	assert.Equal(t, []int{2, 4}, Filter([]int{1, 2, 3, 4}, even))
	assert.Equal(t, []int{}, Filter([]int{1}, even))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []uint{3, 1, 2}, Unique([]uint{3, 1, 3, 2, 1}))
	assert.Empty(t, Unique[uint](nil))
}
