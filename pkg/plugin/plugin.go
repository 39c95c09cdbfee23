// Package plugin defines the three extension points described in spec
// section 6: Callback (runs synchronously per match, inside a worker),
// Pre (expands one target path into the tracked evidence list before
// dispatch), and Post (runs once after the pipeline reports match_count).
// It replaces original_source/plast/framework/modules/loader.py's
// importlib-based discovery with a static, compile-time registry, per
// Design Notes re-architecture item 1: every handler is named Go code,
// and OS support is declared as data instead of probed at import time.
package plugin

import (
	"github.com/obscura-sec/warden/pkg/caze"
	"github.com/obscura-sec/warden/pkg/types"
)

// Callback is invoked once per MatchRecord, synchronously, from the
// worker goroutine that produced it (spec section 4.3 step 4).
type Callback interface {
	Name() string
	SupportedOS() []string
	Run(record *types.MatchRecord)
}

// Post runs once after the scan pipeline completes, given the finished
// Case (spec section 6). Typical use: render the case's matches file in
// another format.
type Post interface {
	Name() string
	SupportedOS() []string
	Run(c *caze.Case) error
}

// Pre expands a single CLI-supplied target into zero or more tracked
// evidence files before the pipeline runs (spec section 6). cleanup, if
// non-nil, is invoked after the scan completes to release any scratch
// resources the plugin created (e.g. an archive extraction directory);
// callers must tolerate a nil cleanup.
type Pre interface {
	Name() string
	SupportedOS() []string
	Run(target string) (trackedFiles []string, cleanup func(), err error)
}
