package pipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obscura-sec/warden/pkg/types"
)

func TestRunReader_WritesOneLinePerRecordAndStopsAtSentinel(t *testing.T) {
	var buf bytes.Buffer
	results := make(chan resultItem, 4)
	state := types.NewRunState()

	results <- resultItem{record: &types.MatchRecord{Target: types.Target{Identifier: "/tmp/a"}}}
	results <- resultItem{record: &types.MatchRecord{Target: types.Target{Identifier: "/tmp/b"}}}
	results <- resultItem{sentinel: true}
	close(results)

	runReader(&buf, results, state, &recordingSink{})

	assert.Equal(t, 2, state.MatchCount())
	assert.ElementsMatch(t, []string{"/tmp/a", "/tmp/b"}, state.MatchedEvidences())

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		var rec types.MatchRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		lines++
	}
	assert.Equal(t, 2, lines)
}

func TestRunReader_NoMatches(t *testing.T) {
	var buf bytes.Buffer
	results := make(chan resultItem, 1)
	state := types.NewRunState()

	results <- resultItem{sentinel: true}
	close(results)

	runReader(&buf, results, state, &recordingSink{})
	assert.Equal(t, 0, state.MatchCount())
	assert.Empty(t, buf.String())
}
