package pipeline

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// hashBufferSize matches the teacher's streaming read size (pkg/enum,
// file hashing helpers) so large evidence is never read into memory whole.
const hashBufferSize = 64 * 1024

// computeHashes streams evidence once through every requested algorithm in
// parallel via io.MultiWriter, matching spec section 4.3's "computed once
// per evidence, lazily on first match" requirement. An empty algorithms
// list yields an empty map without opening the file.
func computeHashes(path string, algorithms []string) (map[string]string, error) {
	if len(algorithms) == 0 {
		return map[string]string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer f.Close()

	hashers := make(map[string]hash.Hash, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	for _, name := range algorithms {
		h, err := newHasher(name)
		if err != nil {
			return nil, err
		}
		hashers[name] = h
		writers = append(writers, h)
	}

	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), f, buf); err != nil {
		return nil, fmt.Errorf("reading %s for hashing: %w", path, err)
	}

	out := make(map[string]string, len(hashers))
	for name, h := range hashers {
		out[name] = hex.EncodeToString(h.Sum(nil))
	}
	return out, nil
}

func newHasher(name string) (hash.Hash, error) {
	switch name {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", name)
	}
}
