package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/repo-generator/internal/domain/addon"
	"github.com/oshokin/repo-generator/internal/fsutil"
	"github.com/oshokin/repo-generator/internal/logger"
)

// Matcher decides which entries are left out of an archive.
type Matcher interface {
	Ignored(name string, isDir bool) bool
}

// Archiver writes package archives below an output directory.
type Archiver struct {
	// outputDir is the root of the generated repository.
	outputDir string
	// matcher filters ignored files and prunes ignored directories.
	matcher Matcher
}

var errNotDirectory = errors.New("package path is not a directory")

// memberTime is stamped on every member so equal trees give equal archives.
//
//nolint:gochecknoglobals // Read-only.
var memberTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// New creates an Archiver writing into outputDir.
func New(outputDir string, matcher Matcher) *Archiver {
	return &Archiver{
		outputDir: outputDir,
		matcher:   matcher,
	}
}

// Archive zips packageDir into <output>/<id>/<id>-<version>.zip.
// It reports created=false without touching anything when the archive exists.
// On failure no file is left at the archive path.
func (a *Archiver) Archive(ctx context.Context, packageDir, id, version string) (string, bool, error) {
	archivePath := addon.ArchivePath(a.outputDir, id, version)

	if _, err := os.Stat(archivePath); err == nil {
		logger.DebugKV(ctx, "Archive exists, skipping", "archive", archivePath)
		return archivePath, false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", false, fmt.Errorf("stat archive: %w", err)
	}

	info, err := os.Stat(packageDir)
	if err != nil {
		return "", false, fmt.Errorf("stat package: %w", err)
	}

	if !info.IsDir() {
		return "", false, fmt.Errorf("%s: %w", packageDir, errNotDirectory)
	}

	if err = os.MkdirAll(filepath.Dir(archivePath), fsutil.DefaultDirMode); err != nil {
		return "", false, fmt.Errorf("create archive directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(archivePath), "."+filepath.Base(archivePath)+"-*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("create temporary archive: %w", err)
	}

	tmpPath := tmp.Name()

	count, err := a.write(ctx, tmp, packageDir, id)
	if closeErr := tmp.Close(); err == nil && closeErr != nil {
		err = closeErr
	}

	if err == nil {
		err = os.Chmod(tmpPath, fsutil.DefaultFileMode)
	}

	if err == nil {
		err = os.Rename(tmpPath, archivePath)
	}

	if err != nil {
		_ = os.Remove(tmpPath)
		return "", false, fmt.Errorf("archive %s: %w", id, err)
	}

	logger.InfoKV(ctx, "Archive created", "archive", archivePath, "files", count)

	return archivePath, true, nil
}

// write streams every kept file of packageDir into w and returns the member count.
func (a *Archiver) write(ctx context.Context, w io.Writer, packageDir, id string) (int, error) {
	zw := zip.NewWriter(w)
	count := 0

	// WalkDir does not follow a symlinked root.
	root, err := filepath.EvalSymlinks(packageDir)
	if err != nil {
		return 0, fmt.Errorf("resolve package directory: %w", err)
	}

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if err = ctx.Err(); err != nil {
			return err
		}

		if path == root {
			return nil
		}

		if d.IsDir() {
			if a.matcher.Ignored(d.Name(), true) {
				return filepath.SkipDir
			}

			return nil
		}

		// Symlinks are archived as the file they point to; links to directories are skipped.
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() || a.matcher.Ignored(d.Name(), false) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if err = addFile(zw, path, id+"/"+filepath.ToSlash(rel), info); err != nil {
			return err
		}

		count++

		return nil
	})

	closeErr := zw.Close()
	if walkErr != nil {
		return 0, walkErr
	}

	return count, closeErr
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo) error {
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("header for %s: %w", path, err)
	}

	header.Name = name
	header.Method = zip.Deflate
	header.Modified = memberTime

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create member %s: %w", name, err)
	}

	src, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	if _, err = io.Copy(dst, src); err != nil {
		return fmt.Errorf("write member %s: %w", name, err)
	}

	return nil
}
