package ruleset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverRuleFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yar"), []byte("rule a { condition: true }"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yara"), []byte("rule b { condition: true }"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o600))

	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(nested, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "c.yar"), []byte("rule c { condition: true }"), 0o600))

	files, err := discoverRuleFiles(dir, DefaultFilenamePatterns)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestRulesetName(t *testing.T) {
	assert.Equal(t, "malware", rulesetName("/some/path/malware.yar"))
	assert.Equal(t, "threat.hunting", rulesetName("/some/path/threat.hunting.yara"))
}

func TestRejectIncludes(t *testing.T) {
	dir := t.TempDir()

	clean := filepath.Join(dir, "clean.yar")
	require.NoError(t, os.WriteFile(clean, []byte("rule clean { condition: true }"), 0o600))
	assert.NoError(t, rejectIncludes(clean))

	withInclude := filepath.Join(dir, "withinclude.yar")
	require.NoError(t, os.WriteFile(withInclude, []byte("include \"other.yar\"\nrule r { condition: true }"), 0o600))
	assert.Error(t, rejectIncludes(withInclude))
}

func TestCompile_NoRuleFiles(t *testing.T) {
	dir := t.TempDir()

	store, rulesetsLoaded, rulesLoaded, err := Compile(dir, Options{}, noopSink{})
	require.NoError(t, err)
	assert.Equal(t, 0, rulesetsLoaded)
	assert.Equal(t, 0, rulesLoaded)
	assert.Equal(t, 0, store.Len())
}

func TestCompile_DiscardsSyntaxErrorButKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yar"), []byte("this is not valid yara"), 0o600))

	store, rulesetsLoaded, _, err := Compile(dir, Options{}, noopSink{})
	require.NoError(t, err)
	assert.Equal(t, 0, rulesetsLoaded, "a broken ruleset must be discarded, not fatal")
	assert.Equal(t, 0, store.Len())
}

// noopSink satisfies logging.Sink without importing pkg/logging, keeping
// this test package free of a dependency on the console writer.
type noopSink struct{}

func (noopSink) Debugf(string, ...any)          {}
func (noopSink) Infof(string, ...any)           {}
func (noopSink) Warnf(string, ...any)           {}
func (noopSink) Errorf(error, string, ...any)   {}
func (noopSink) Exceptionf(error, string, ...any) {}
func (noopSink) Close() error                   { return nil }
