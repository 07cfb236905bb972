package generator

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// cleanCompiled deletes *.pyc and *.pyo files and *pycache* directories below
// releaseDir and returns how many entries were removed.
func cleanCompiled(releaseDir string) (int, error) {
	var (
		removed int
		errs    []error
	)

	walkErr := filepath.WalkDir(releaseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			errs = append(errs, err)
			return nil
		}

		name := strings.ToLower(d.Name())

		if d.IsDir() {
			if path == releaseDir || !strings.Contains(name, "pycache") {
				return nil
			}

			if err = os.RemoveAll(path); err != nil {
				errs = append(errs, err)
			} else {
				removed++
			}

			return filepath.SkipDir
		}

		if !strings.HasSuffix(name, ".pyc") && !strings.HasSuffix(name, ".pyo") {
			return nil
		}

		if err = os.Remove(path); err != nil {
			errs = append(errs, err)
		} else {
			removed++
		}

		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return removed, errors.Join(errs...)
}
