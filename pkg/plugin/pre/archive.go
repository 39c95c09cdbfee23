package pre

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"

	"github.com/obscura-sec/warden/pkg/plugin"
)

func init() {
	plugin.Pres.Register(NewArchive())
}

// archiveMemberLimit caps a single member's inflated size, adapted from the
// teacher's extractor.go ExtractionLimits.MaxSize guard against zip/7z
// bombs; archiveTotalLimit caps the sum across one archive
// (ExtractionLimits.MaxTotal).
const (
	archiveMemberLimit = 256 * 1024 * 1024
	archiveTotalLimit  = 1024 * 1024 * 1024
)

// Archive inflates a zip or 7z container into a scratch directory and
// tracks every regular-file member as evidence, adapted from the teacher's
// pkg/enum/extractor.go (extractZIPWithState, extract7z) and
// original_source/plast's modules/pre/zip.py. Unlike the teacher's
// extractor, which returns in-memory text for a content-search engine,
// this plugin must produce real files on disk since YARA's ScanFile needs
// a path.
type Archive struct{}

// NewArchive returns the archive pre-processing plugin.
func NewArchive() *Archive { return &Archive{} }

func (a *Archive) Name() string          { return "archive" }
func (a *Archive) SupportedOS() []string { return nil }

func (a *Archive) Run(target string) ([]string, func(), error) {
	dir, err := os.MkdirTemp("", "warden-archive-*")
	if err != nil {
		return nil, nil, fmt.Errorf("archive: creating scratch directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	ext := strings.ToLower(filepath.Ext(target))
	var files []string
	switch ext {
	case ".zip", ".jar", ".war", ".ear", ".apk", ".ipa", ".xpi":
		files, err = extractZip(target, dir)
	case ".7z":
		files, err = extract7z(target, dir)
	default:
		cleanup()
		return nil, nil, fmt.Errorf("archive: unsupported extension %q", ext)
	}
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return files, cleanup, nil
}

func extractZip(target, dir string) ([]string, error) {
	r, err := zip.OpenReader(target)
	if err != nil {
		return nil, fmt.Errorf("archive: opening zip %s: %w", target, err)
	}
	defer r.Close()

	var total int64
	var out []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > archiveMemberLimit {
			continue
		}
		if total+int64(f.UncompressedSize64) > archiveTotalLimit {
			break
		}

		dest, err := safeJoin(dir, f.Name)
		if err != nil {
			continue
		}

		if err := extractZipMember(f, dest); err != nil {
			continue
		}
		total += int64(f.UncompressedSize64)
		out = append(out, dest)
	}
	return out, nil
}

func extractZipMember(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer w.Close()

	_, err = io.CopyN(w, rc, archiveMemberLimit)
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

func extract7z(target, dir string) ([]string, error) {
	r, err := sevenzip.OpenReader(target)
	if err != nil {
		return nil, fmt.Errorf("archive: opening 7z %s: %w", target, err)
	}
	defer r.Close()

	var total int64
	var out []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize > archiveMemberLimit {
			continue
		}
		if total+int64(f.UncompressedSize) > archiveTotalLimit {
			break
		}

		dest, err := safeJoin(dir, f.Name)
		if err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		w, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			rc.Close()
			continue
		}
		_, copyErr := io.CopyN(w, rc, archiveMemberLimit)
		rc.Close()
		w.Close()
		if copyErr != nil && copyErr != io.EOF {
			continue
		}

		total += int64(f.UncompressedSize)
		out = append(out, dest)
	}
	return out, nil
}

// safeJoin rejects a zip/7z member name that would escape dir via ".." path
// segments (zip-slip), matching the defensive posture any extractor writing
// archive-controlled paths to disk needs.
func safeJoin(dir, name string) (string, error) {
	clean := filepath.Clean(filepath.Join(dir, name))
	if !strings.HasPrefix(clean, filepath.Clean(dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive: member %q escapes extraction directory", name)
	}
	return clean, nil
}
