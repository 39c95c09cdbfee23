package types

import "sync"

// RunState is the data shared between the worker pool and the reader for
// the lifetime of one scan. Only the reader mutates it; workers never touch
// it directly.
type RunState struct {
	mu               sync.Mutex
	matchCount       int
	matchedEvidences map[string]struct{}
}

// NewRunState returns an empty RunState ready for a new run.
func NewRunState() *RunState {
	return &RunState{
		matchedEvidences: make(map[string]struct{}),
	}
}

// RecordMatch increments match_count and marks identifier as matched.
// Must be called by the reader only, after the record has been durably
// appended to the output stream.
func (s *RunState) RecordMatch(identifier string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matchCount++
	s.matchedEvidences[identifier] = struct{}{}
}

// MatchCount returns the current count under the mutex.
func (s *RunState) MatchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matchCount
}

// MatchedEvidences returns a snapshot of the matched evidence identifiers.
func (s *RunState) MatchedEvidences() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.matchedEvidences))
	for id := range s.matchedEvidences {
		out = append(out, id)
	}
	return out
}
