package post

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-sec/warden/pkg/caze"
	"github.com/obscura-sec/warden/pkg/config"
	"github.com/obscura-sec/warden/pkg/logging"
	"github.com/obscura-sec/warden/pkg/types"
)

func TestSarif_RendersMatchesFile(t *testing.T) {
	root := t.TempDir()
	c, err := caze.New(root, config.Default(), logging.New(logging.LevelDebug))
	require.NoError(t, err)

	f, err := os.Create(c.MatchesPath)
	require.NoError(t, err)
	enc := json.NewEncoder(f)
	require.NoError(t, enc.Encode(types.MatchRecord{
		Target: types.Target{Type: "file", Identifier: "/tmp/sample.bin"},
		Match: types.Match{
			Rule:    "suspicious_string",
			Strings: []types.MatchString{{Offset: 12, Reference: "$s1", Literal: "evil"}},
		},
	}))
	require.NoError(t, f.Close())

	require.NoError(t, NewSarif().Run(c))

	out := filepath.Join(root, "matches.sarif.json")
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var report sarifReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Runs, 1)
	require.Len(t, report.Runs[0].Results, 1)
	assert.Equal(t, "suspicious_string", report.Runs[0].Results[0].RuleID)
}
