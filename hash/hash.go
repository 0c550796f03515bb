// Package hash computes content digests for files participating in the
// content-addressed pool.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
)

// blockSize is the read chunk size used while streaming a file's content
// through the digest. Mirrors the POSIX mover's copy block size.
const blockSize = 1024 * 1024

// Sum streams r in fixed-size reads and returns its SHA-256 digest encoded
// as lowercase hex, with no separators.
func Sum(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, blockSize)

	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", errors.Wrap(err, "hashing failed")
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile opens path and returns its content digest.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "%s: open for hashing failed", path)
	}
	defer f.Close()

	digest, err := Sum(f)
	if err != nil {
		return "", errors.Wrapf(err, "%s: hashing failed", path)
	}
	return digest, nil
}
