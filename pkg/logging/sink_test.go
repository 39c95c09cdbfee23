package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithCaseFile_WritesToBoth(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "case.log")

	base := New(LevelDebug)
	caseSink, err := WithCaseFile(base, logPath)
	require.NoError(t, err)
	defer caseSink.Close()

	caseSink.Infof("hello %s", "world")
	caseSink.Close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello world")
	assert.Contains(t, string(data), "[INFO]")
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "case.log")

	base := New(LevelWarning)
	caseSink, err := WithCaseFile(base, logPath)
	require.NoError(t, err)

	caseSink.Debugf("should not appear")
	caseSink.Warnf("should appear")
	caseSink.Close()

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "should not appear")
	assert.Contains(t, string(data), "should appear")
}
