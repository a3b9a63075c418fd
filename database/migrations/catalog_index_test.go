package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapperIndexSQL(t *testing.T) {
	assert.Equal(t,
		"CREATE UNIQUE INDEX idx_ice_creams_wrapper_id ON ice_creams (wrapper_id) WHERE wrapper_id IS NOT NULL",
		wrapperIndexSQL("sqlserver"))

	for _, dialect := range []string{"sqlite", "postgres", "mysql"} {
		assert.NotContains(t, wrapperIndexSQL(dialect), "WHERE", dialect)
	}
}
