package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/repo-generator/internal/domain/addon"
	"github.com/oshokin/repo-generator/internal/fsutil"
)

const (
	// CatalogFilename is the merged repository manifest.
	CatalogFilename = "addons.xml"
	// ChecksumFilename holds the MD5 of CatalogFilename.
	ChecksumFilename = CatalogFilename + ".md5"
)

// ErrNotFound is returned when the catalog file does not exist yet.
var ErrNotFound = errors.New("catalog not found")

// FileRepository persists the repository catalog as addons.xml.
type FileRepository struct {
	// path is the filesystem location of addons.xml.
	path string
}

// NewFileRepository creates a repository reading and writing the catalog at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the catalog location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads a previously written catalog.
func (r *FileRepository) Load(_ context.Context) (*addon.Repository, error) {
	f, err := os.Open(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("open catalog: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	return Decode(f)
}

// Save replaces the catalog file with the encoded repository.
func (r *FileRepository) Save(_ context.Context, repo *addon.Repository) error {
	if err := fsutil.WriteFile(r.path, Encode(repo), fsutil.DefaultFileMode); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	return nil
}
