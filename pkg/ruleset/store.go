package ruleset

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/hillu/go-yara/v4"
)

// Store is the CompiledRuleStore of spec section 3: a mapping from ruleset
// identifier to compiled artifact. Immutable once dispatch begins — Put is
// only ever called by the compiler before the worker pool starts; workers
// only call Load.
type Store struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{artifacts: make(map[string][]byte)}
}

// Put registers a compiled artifact under name. Not safe to call once
// workers have started loading from the store.
func (s *Store) Put(name string, artifact []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[name] = artifact
}

// Names returns the ruleset identifiers currently held, in no particular
// order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.artifacts))
	for name := range s.artifacts {
		names = append(names, name)
	}
	return names
}

// Len reports how many rulesets are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.artifacts)
}

// Load deserializes the named artifact into a scannable *yara.Rules. Safe
// for concurrent use by multiple workers; each call returns an independent
// *yara.Rules so no compiled object is ever shared between workers (the
// matching engine is not guaranteed to be reentrant-safe across goroutines
// using the same handle).
func (s *Store) Load(name string) (*yara.Rules, error) {
	s.mu.RLock()
	artifact, ok := s.artifacts[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown ruleset %q", name)
	}

	rules, err := yara.Load(bytes.NewReader(artifact))
	if err != nil {
		return nil, fmt.Errorf("deserializing ruleset %q: %w", name, err)
	}
	return rules, nil
}
