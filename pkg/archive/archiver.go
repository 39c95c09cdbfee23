// Package archive implements the EvidenceArchiver described in spec
// section 4.6: after a scan completes, every evidence that produced at
// least one match is copied into the case's storage directory, optionally
// neutralized. Grounded on
// original_source/plast/framework/core/reader.py's
// _store_matching_evidences, kept as its own package (rather than folded
// into pkg/pipeline) to match the component table's separate
// EvidenceArchiver entry.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/obscura-sec/warden/pkg/logging"
)

// neutralizedSuffix is the product-specific marker appended to a
// neutralized copy's filename (spec section 4.6).
const neutralizedSuffix = ".warden-neutralized"

// Run copies every path in matched into storageDir, mirroring
// _store_matching_evidences. A single file's failure is logged and does
// not abort the rest of the archival loop (spec section 4.6, last bullet).
func Run(storageDir string, matched []string, neutralize bool, log logging.Sink) error {
	if err := os.MkdirAll(storageDir, 0o700); err != nil {
		return fmt.Errorf("creating storage directory %s: %w", storageDir, err)
	}

	for _, path := range matched {
		if err := archiveOne(storageDir, path, neutralize); err != nil {
			log.Exceptionf(err, "archiving evidence %s", path)
			continue
		}
	}
	return nil
}

func archiveOne(storageDir, path string, neutralize bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	name := filepath.Base(path)
	if neutralize {
		name += neutralizedSuffix
	}
	dest := filepath.Join(storageDir, name)

	if err := copyFile(path, dest, info.Mode()); err != nil {
		return fmt.Errorf("copying %s to %s: %w", path, dest, err)
	}

	mode := info.Mode()
	if neutralize {
		mode &^= 0o111
	}
	if err := os.Chmod(dest, mode); err != nil {
		return fmt.Errorf("setting mode on %s: %w", dest, err)
	}
	if err := os.Chtimes(dest, time.Now(), info.ModTime()); err != nil {
		return fmt.Errorf("setting mtime on %s: %w", dest, err)
	}
	return nil
}

func copyFile(src, dest string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
