package pre

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestArchive_ExtractsZipMembers(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "sample.zip")
	writeTestZip(t, zipPath, map[string]string{
		"a.txt":        "hello",
		"nested/b.txt": "world",
	})

	files, cleanup, err := NewArchive().Run(zipPath)
	require.NoError(t, err)
	defer cleanup()

	require.Len(t, files, 2)
	for _, f := range files {
		data, err := os.ReadFile(f)
		require.NoError(t, err)
		assert.NotEmpty(t, data)
	}
}

func TestArchive_RejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, _, err := NewArchive().Run(path)
	assert.Error(t, err)
}

func TestSafeJoin_RejectsPathEscape(t *testing.T) {
	_, err := safeJoin("/tmp/extract", "../../etc/passwd")
	assert.Error(t, err)
}
