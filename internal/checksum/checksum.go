// Package checksum publishes the digest of the repository catalog.
//
// Hosts compare addons.xml.md5 with their cached copy to decide whether to
// download the catalog again, so the digest must match the bytes on disk.
package checksum

import (
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/repo-generator/internal/fsutil"

	// MD5 is the format hosts expect, not a security boundary.
	_ "crypto/md5"
)

// DefaultChecksumFunction is the catalog digest algorithm.
const DefaultChecksumFunction = crypto.MD5

var errHashUnavailable = errors.New("hash function unavailable")

// FileChecksum returns the digest of the file at path.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// Publish reads manifestPath back from disk and writes its lowercase hex digest
// plus a newline to checksumPath. It returns the digest.
func Publish(manifestPath, checksumPath string) (string, error) {
	sum, err := FileChecksum(manifestPath)
	if err != nil {
		return "", fmt.Errorf("checksum %s: %w", manifestPath, err)
	}

	digest := hex.EncodeToString(sum)

	if err = fsutil.WriteFile(checksumPath, []byte(digest+"\n"), fsutil.DefaultFileMode); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}

	return digest, nil
}
