package types

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_RecordMatch(t *testing.T) {
	s := NewRunState()
	assert.Equal(t, 0, s.MatchCount())

	s.RecordMatch("/tmp/a")
	s.RecordMatch("/tmp/a")
	s.RecordMatch("/tmp/b")

	assert.Equal(t, 3, s.MatchCount())
	assert.ElementsMatch(t, []string{"/tmp/a", "/tmp/b"}, s.MatchedEvidences())
}

func TestRunState_ConcurrentRecordMatch(t *testing.T) {
	s := NewRunState()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.RecordMatch("/tmp/shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, s.MatchCount())
	assert.Equal(t, []string{"/tmp/shared"}, s.MatchedEvidences())
}
