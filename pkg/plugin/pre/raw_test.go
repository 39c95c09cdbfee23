package pre

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRaw_TracksSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	files, cleanup, err := NewRaw().Run(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
	assert.Nil(t, cleanup)
}

func TestRaw_RejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewRaw().Run(dir)
	assert.Error(t, err)
}

func TestRaw_RejectsMissingPath(t *testing.T) {
	_, _, err := NewRaw().Run(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
