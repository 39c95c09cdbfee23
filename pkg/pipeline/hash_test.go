package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHashes_Empty(t *testing.T) {
	hashes, err := computeHashes("/does/not/matter", nil)
	require.NoError(t, err)
	assert.Empty(t, hashes)
}

func TestComputeHashes_MultipleAlgorithms(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.bin")
	content := []byte("the quick brown fox")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	hashes, err := computeHashes(path, []string{"sha256", "md5"})
	require.NoError(t, err)

	want := sha256.Sum256(content)
	assert.Equal(t, hex.EncodeToString(want[:]), hashes["sha256"])
	assert.Len(t, hashes["md5"], 32)
}

func TestComputeHashes_UnsupportedAlgorithm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evidence.bin")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	_, err := computeHashes(path, []string{"crc32"})
	assert.Error(t, err)
}
