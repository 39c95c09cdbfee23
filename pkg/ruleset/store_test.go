package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutNamesLen(t *testing.T) {
	s := NewStore()
	assert.Equal(t, 0, s.Len())

	s.Put("alpha", []byte("artifact-a"))
	s.Put("beta", []byte("artifact-b"))

	assert.Equal(t, 2, s.Len())
	assert.ElementsMatch(t, []string{"alpha", "beta"}, s.Names())
}

func TestStore_LoadUnknownName(t *testing.T) {
	s := NewStore()
	_, err := s.Load("missing")
	require.Error(t, err)
}
