package caze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-sec/warden/pkg/config"
	"github.com/obscura-sec/warden/pkg/logging"
)

func TestNew_CreatesLayout(t *testing.T) {
	root := filepath.Join(t.TempDir(), "case1")
	snap := config.Default()

	c, err := New(root, snap, logging.New(logging.LevelDebug))
	require.NoError(t, err)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, filepath.Join(root, "matches.json"), c.MatchesPath)
	assert.Equal(t, filepath.Join(root, "storage"), c.StorageDir)
}

func TestTrackFiles(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, config.Default(), logging.New(logging.LevelDebug))
	require.NoError(t, err)

	c.TrackFile("/tmp/a")
	c.TrackFiles([]string{"/tmp/b", "/tmp/c"})

	assert.Equal(t, []string{"/tmp/a", "/tmp/b", "/tmp/c"}, c.Evidences())
}

func TestTearDown_RemovesTemporaryDirectories(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, config.Default(), logging.New(logging.LevelDebug))
	require.NoError(t, err)

	scratch, err := c.RequireTemporaryDirectory("scratch")
	require.NoError(t, err)

	_, err = os.Stat(scratch)
	require.NoError(t, err)

	c.TearDown()

	_, err = os.Stat(scratch)
	assert.True(t, os.IsNotExist(err))
}

func TestTearDown_KeepsArtifactsWhenConfigured(t *testing.T) {
	root := t.TempDir()
	snap := config.Default()
	snap.Tunables.KeepTemporaryArtifacts = true

	c, err := New(root, snap, logging.New(logging.LevelDebug))
	require.NoError(t, err)

	scratch, err := c.RequireTemporaryDirectory("scratch")
	require.NoError(t, err)

	c.TearDown()

	_, err = os.Stat(scratch)
	assert.NoError(t, err)
}
