// Package config holds the immutable configuration snapshot taken once at
// startup (spec section 5: "configuration is an immutable snapshot taken at
// start"). Field naming and the YAML struct-tag style follow the teacher's
// rule-file loader (pkg/rule/yaml.go), adapted from plast's JSON
// Configuration (original_source/plast/framework/contexts/configuration.py)
// to this ecosystem's existing gopkg.in/yaml.v3 dependency.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Arguments mirrors the Case.arguments shape from spec section 6.
type Arguments struct {
	Processes       int      `yaml:"processes"`
	MaxSize         int64    `yaml:"max_size"`
	Format          string   `yaml:"format"`
	HashAlgorithms  []string `yaml:"hash_algorithms"`
	Callbacks       []string `yaml:"callbacks"`
	Post            []string `yaml:"post"`
	Fast            bool     `yaml:"fast"`
	IgnoreWarnings  bool     `yaml:"ignore_warnings"`
}

// Tunables holds the recognized environment-equivalent knobs from spec
// section 6. The core reads no real environment variables; every tunable
// arrives through this snapshot instead.
type Tunables struct {
	YaraMatchTimeout             time.Duration `yaml:"yara_match_timeout"`
	YaraIncludes                 bool          `yaml:"yara_includes"`
	YaraErrorOnWarning            bool          `yaml:"yara_error_on_warning"`
	OutputCharacterEncoding      string        `yaml:"output_character_encoding"`
	NeutralizeMatchingEvidences  bool          `yaml:"neutralize_matching_evidences"`
	FallbackProcesses            int           `yaml:"fallback_processes"`
	KeepTemporaryArtifacts       bool          `yaml:"keep_temporary_artifacts"`
}

// Snapshot is the full immutable configuration for one run.
type Snapshot struct {
	Arguments Arguments `yaml:"arguments"`
	Tunables  Tunables  `yaml:"tunables"`
}

// Default returns the snapshot used when no configuration file is supplied.
func Default() Snapshot {
	return Snapshot{
		Arguments: Arguments{
			Processes:      0, // 0 => detect CPU count
			MaxSize:        300 * 1024 * 1024,
			Format:         "json",
			HashAlgorithms: []string{"sha256"},
		},
		Tunables: Tunables{
			YaraMatchTimeout:            10 * time.Second,
			YaraIncludes:                true,
			YaraErrorOnWarning:          false,
			OutputCharacterEncoding:     "utf-8",
			NeutralizeMatchingEvidences: false,
			FallbackProcesses:           4,
			KeepTemporaryArtifacts:      false,
		},
	}
}

// Load reads a YAML configuration file and overlays it onto Default().
func Load(path string) (Snapshot, error) {
	snap := Default()
	if path == "" {
		return snap, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("reading configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("parsing configuration %s: %w", path, err)
	}
	return snap, nil
}

// EffectiveProcesses resolves the worker-pool size per spec section 4.3:
// the configured process count, defaulting to the detected CPU count, and
// falling back to FallbackProcesses only when CPU detection itself returns
// zero (open question in spec section 9, resolved explicitly — see
// DESIGN.md).
func (s Snapshot) EffectiveProcesses(detectedCPUs int) int {
	if s.Arguments.Processes > 0 {
		return s.Arguments.Processes
	}
	if detectedCPUs > 0 {
		return detectedCPUs
	}
	if s.Tunables.FallbackProcesses > 0 {
		return s.Tunables.FallbackProcesses
	}
	return 1
}
