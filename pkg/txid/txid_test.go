package txid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ShapeAndAlphabet(t *testing.T) {
	id, err := New("NTF", DefaultAlphabet, 16)
	require.NoError(t, err)
	assert.Len(t, id, 3+16)
	assert.True(t, strings.HasPrefix(id, "NTF"))
	for _, c := range id[3:] {
		assert.Contains(t, DefaultAlphabet, string(c))
	}
}

func TestNew_EmptyTag(t *testing.T) {
	id, err := New("", DefaultAlphabet, 8)
	require.NoError(t, err)
	assert.Len(t, id, 8)
}

func TestNew_InvalidInputs(t *testing.T) {
	_, err := New("X", "", 8)
	assert.Error(t, err)

	_, err = New("X", DefaultAlphabet, 0)
	assert.Error(t, err)

	_, err = New("X", DefaultAlphabet, -1)
	assert.Error(t, err)
}

func TestNew_ProbablyUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := New("T", DefaultAlphabet, 16)
		require.NoError(t, err)
		assert.False(t, seen[id], "collision at iteration %d", i)
		seen[id] = true
	}
}
