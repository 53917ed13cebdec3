package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMethods(t *testing.T) {
	t.Parallel()

	methods := Methods()
	assert.Len(t, methods, 9)
	assert.NotContains(t, methods, MethodUse)

	// Callers get a copy.
	methods[0] = "MUTATED"
	assert.Equal(t, MethodGet, Methods()[0])
}

func TestParseMethod(t *testing.T) {
	t.Parallel()

	m, ok := ParseMethod("get")
	assert.True(t, ok)
	assert.Equal(t, MethodGet, m)

	m, ok = ParseMethod("PATCH")
	assert.True(t, ok)
	assert.Equal(t, MethodPatch, m)

	_, ok = ParseMethod("USE")
	assert.False(t, ok)

	_, ok = ParseMethod("PROPFIND")
	assert.False(t, ok)
}
