// Package assets mirrors a package manifest and its declared artwork into the
// repository output so hosts can show icons without downloading archives.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/repo-generator/internal/fsutil"
	"github.com/oshokin/repo-generator/internal/logger"
	"github.com/oshokin/repo-generator/internal/repository/manifest"
)

// Mirror copies manifest and asset files of a package.
type Mirror struct {
	// manifestFilename is the manifest name at the package root.
	manifestFilename string
}

// New creates a Mirror for packages whose manifest is manifestFilename.
func New(manifestFilename string) *Mirror {
	return &Mirror{manifestFilename: manifestFilename}
}

// Mirror copies the manifest and every declared asset of packageDir to the same
// relative paths under outputDir. Declared files that do not exist are skipped.
// It returns the relative paths copied.
func (m *Mirror) Mirror(ctx context.Context, packageDir, outputDir string) ([]string, error) {
	pkg, err := manifest.ReadPackage(filepath.Join(packageDir, m.manifestFilename))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	copySet := append([]string{m.manifestFilename}, pkg.Assets...)
	copied := make([]string, 0, len(copySet))

	var errs []error

	for _, rel := range copySet {
		if !isLocal(rel) {
			logger.WarnKV(ctx, "Asset path leaves the package, skipping", "asset", rel)
			continue
		}

		src := filepath.Join(packageDir, rel)

		info, statErr := os.Stat(src)
		if errors.Is(statErr, os.ErrNotExist) || (statErr == nil && !info.Mode().IsRegular()) {
			logger.DebugKV(ctx, "Declared asset not found, skipping", "asset", rel)
			continue
		}

		if statErr != nil {
			errs = append(errs, statErr)
			continue
		}

		if err = fsutil.CopyFile(src, filepath.Join(outputDir, rel)); err != nil {
			errs = append(errs, fmt.Errorf("copy %s: %w", rel, err))
			continue
		}

		copied = append(copied, rel)
	}

	return copied, errors.Join(errs...)
}

// isLocal reports whether rel stays inside its base directory.
func isLocal(rel string) bool {
	return rel != "" && !filepath.IsAbs(rel) && rel != ".." &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
