package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-sec/warden/pkg/logging"
)

func TestRun_CopiesMatchedEvidence(t *testing.T) {
	srcDir := t.TempDir()
	storageDir := filepath.Join(t.TempDir(), "storage")

	evidence := filepath.Join(srcDir, "sample.bin")
	require.NoError(t, os.WriteFile(evidence, []byte("payload"), 0o644))

	log := logging.New(logging.LevelDebug)
	require.NoError(t, Run(storageDir, []string{evidence}, false, log))

	data, err := os.ReadFile(filepath.Join(storageDir, "sample.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestRun_NeutralizesCopy(t *testing.T) {
	srcDir := t.TempDir()
	storageDir := filepath.Join(t.TempDir(), "storage")

	evidence := filepath.Join(srcDir, "tool.sh")
	require.NoError(t, os.WriteFile(evidence, []byte("#!/bin/sh\necho hi\n"), 0o755))

	log := logging.New(logging.LevelDebug)
	require.NoError(t, Run(storageDir, []string{evidence}, true, log))

	dest := filepath.Join(storageDir, "tool.sh"+neutralizedSuffix)
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Zero(t, info.Mode().Perm()&0o111, "neutralized copy must not be executable")
}

func TestRun_OneFailureDoesNotAbortTheRest(t *testing.T) {
	srcDir := t.TempDir()
	storageDir := filepath.Join(t.TempDir(), "storage")

	ok := filepath.Join(srcDir, "ok.bin")
	require.NoError(t, os.WriteFile(ok, []byte("fine"), 0o644))
	missing := filepath.Join(srcDir, "does-not-exist.bin")

	log := logging.New(logging.LevelDebug)
	require.NoError(t, Run(storageDir, []string{missing, ok}, false, log))

	_, err := os.Stat(filepath.Join(storageDir, "ok.bin"))
	assert.NoError(t, err)
}
