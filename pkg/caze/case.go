// Package caze implements the Case external collaborator of spec section 6.
// Case directory layout creation and temporary-artifact cleanup are
// explicitly out of scope for the core (spec section 1); this package
// holds the resolved paths and arguments the core consumes, the
// tracked-evidence list filled from preprocessing output, and the case's
// root and temporary directories, which it creates and (for the temporary
// ones) removes (adapted from
// original_source/plast/framework/contexts/case.py's resources dict and
// track_file(s) helpers).
package caze

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/obscura-sec/warden/pkg/config"
	"github.com/obscura-sec/warden/pkg/logging"
)

const storageDirName = "storage"
const matchesFileBasename = "matches"
const product = "warden"

// Case centralizes one run's resources, mirroring plast's Case.resources.
type Case struct {
	Root        string
	MatchesPath string
	StorageDir  string
	LogPath     string
	Arguments   config.Arguments
	Tunables    config.Tunables
	Log         logging.Sink

	mu        sync.Mutex
	evidences []string
	temporary []string
}

// New creates the Case's root directory (mode 0700) and resolves its
// fixed paths; the storage directory is not created here. Root itself is
// never removed: TearDown removes only the directories created through
// RequireTemporaryDirectory.
func New(root string, snap config.Snapshot, log logging.Sink) (*Case, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("creating case directory %s: %w", root, err)
	}

	ext := snap.Arguments.Format
	if ext == "" {
		ext = "json"
	}

	c := &Case{
		Root:        root,
		MatchesPath: filepath.Join(root, fmt.Sprintf("%s.%s", matchesFileBasename, ext)),
		StorageDir:  filepath.Join(root, storageDirName),
		LogPath:     filepath.Join(root, fmt.Sprintf("%s.log", product)),
		Arguments:   snap.Arguments,
		Tunables:    snap.Tunables,
		Log:         log,
	}
	return c, nil
}

// TrackFile registers one absolute path as an evidence to scan.
func (c *Case) TrackFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evidences = append(c.evidences, path)
}

// TrackFiles registers many paths at once.
func (c *Case) TrackFiles(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evidences = append(c.evidences, paths...)
}

// Evidences returns the tracked evidence list built up by preprocessing.
func (c *Case) Evidences() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.evidences))
	copy(out, c.evidences)
	return out
}

// RequireTemporaryDirectory creates (and remembers for cleanup) a
// subdirectory of Root for a preprocessing plugin's scratch extraction.
func (c *Case) RequireTemporaryDirectory(seed string) (string, error) {
	dir := filepath.Join(c.Root, seed)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating temporary directory %s: %w", dir, err)
	}
	c.mu.Lock()
	c.temporary = append(c.temporary, dir)
	c.mu.Unlock()
	return dir, nil
}

// TearDown removes every temporary directory created via
// RequireTemporaryDirectory, unless KeepTemporaryArtifacts is set.
func (c *Case) TearDown() {
	if c.Tunables.KeepTemporaryArtifacts {
		c.Log.Warnf("skipped temporary artifact cleanup")
		return
	}
	c.mu.Lock()
	artifacts := c.temporary
	c.mu.Unlock()

	for _, artifact := range artifacts {
		if err := os.RemoveAll(artifact); err != nil {
			c.Log.Exceptionf(err, "failed to remove temporary artifact %s", artifact)
		}
	}
}
