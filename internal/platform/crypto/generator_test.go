package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeGenerator(t *testing.T) {
	gen, err := NewCodeGenerator(10)
	require.NoError(t, err)

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := gen()
		assert.Len(t, code, 10)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(CodeAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	assert.Len(t, seen, 200)
}
