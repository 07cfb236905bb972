package fsutil

import (
	"bytes"
	"crypto"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	// Ensure SHA256 is available for payload verification.
	_ "crypto/sha256"
)

const (
	// DefaultFileMode is the mode of published files.
	DefaultFileMode os.FileMode = 0o644

	// DefaultDirMode is the mode of created directories.
	DefaultDirMode os.FileMode = 0o755

	// payloadHash verifies the bytes handed to go-update before they replace the target.
	payloadHash = crypto.SHA256
)

var (
	errHashUnavailable = errors.New("hash function unavailable")
	errNotRegularFile  = errors.New("target is not a regular file")
)

// WriteFile replaces path with data. The new content is written next to the
// target and swapped in by rename, so readers see either the old or the new file.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return fmt.Errorf("create parent of %s: %w", path, err)
	}

	// go-update moves the current target aside first, so it has to exist.
	info, err := os.Stat(path)

	placeholder := false

	switch {
	case errors.Is(err, os.ErrNotExist):
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		_ = f.Close()
		placeholder = true
	case err != nil:
		return fmt.Errorf("stat %s: %w", path, err)
	case !info.Mode().IsRegular():
		return fmt.Errorf("%s: %w", path, errNotRegularFile)
	}

	if err = replace(path, data, mode); err != nil {
		if placeholder {
			_ = os.Remove(path)
			_ = os.Remove(path + ".old")
		}

		return err
	}

	return nil
}

// replace swaps data in at path with go-update, verifying the payload hash.
func replace(path string, data []byte, mode os.FileMode) error {
	if !payloadHash.Available() {
		return errHashUnavailable
	}

	hasher := payloadHash.New()
	_, _ = hasher.Write(data)

	oldPath := path + ".old"
	options := goupdate.Options{
		TargetPath:  path,
		TargetMode:  mode,
		Checksum:    hasher.Sum(nil),
		Hash:        payloadHash,
		OldSavePath: oldPath,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}

	if _, err := os.Stat(oldPath); err == nil {
		_ = os.Remove(oldPath)
	}

	return nil
}
