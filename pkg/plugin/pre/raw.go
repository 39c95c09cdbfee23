// Package pre holds the built-in Pre handlers (spec section 6), registered
// into pkg/plugin's static registry at init time.
package pre

import (
	"fmt"
	"os"

	"github.com/obscura-sec/warden/pkg/plugin"
)

func init() {
	plugin.Pres.Register(NewRaw())
}

// Raw treats the target path as a single evidence file, adapted from
// modules/pre/raw.py — the identity pre-processor, used when the target
// is already a plain file and needs no expansion.
type Raw struct{}

// NewRaw returns the raw pre-processing plugin.
func NewRaw() *Raw { return &Raw{} }

func (r *Raw) Name() string          { return "raw" }
func (r *Raw) SupportedOS() []string { return nil }

func (r *Raw) Run(target string) ([]string, func(), error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, fmt.Errorf("raw: stat %s: %w", target, err)
	}
	if info.IsDir() {
		return nil, nil, fmt.Errorf("raw: %s is a directory, not a file", target)
	}
	return []string{target}, nil, nil
}
