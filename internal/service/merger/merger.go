package merger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/repo-generator/internal/domain/addon"
	"github.com/oshokin/repo-generator/internal/domain/report"
	"github.com/oshokin/repo-generator/internal/logger"
	"github.com/oshokin/repo-generator/internal/repository/manifest"
)

// Archiver builds the archive of one package version.
type Archiver interface {
	Archive(ctx context.Context, packageDir, id, version string) (string, bool, error)
}

// Mirror copies manifest and assets of one package into the output tree.
type Mirror interface {
	Mirror(ctx context.Context, packageDir, outputDir string) ([]string, error)
}

// Options tune a merge.
type Options struct {
	// ManifestFilename is the manifest name at each package root.
	ManifestFilename string
	// OutputDir is the repository output root; assets go to OutputDir/<id>.
	OutputDir string
	// Previous seeds the catalog; nil starts empty.
	Previous *addon.Repository
	// Prune removes seeded entries without a package directory on disk.
	Prune bool
}

// Outcome is the result of a merge.
type Outcome struct {
	// Repository is the merged catalog, sorted by ID when Changed.
	Repository *addon.Repository
	// Changed reports whether any entry was added, replaced or pruned.
	Changed bool
	// Packages holds one result per candidate directory.
	Packages []report.PackageResult
	// Pruned lists IDs removed in prune mode.
	Pruned []string
}

// Merger merges package manifests into a repository catalog.
type Merger struct {
	archiver Archiver
	mirror   Mirror
	opts     Options
}

var errNoManifestFilename = errors.New("manifest filename is not set")

// New creates a Merger.
func New(archiver Archiver, mirror Mirror, opts Options) (*Merger, error) {
	if opts.ManifestFilename == "" {
		return nil, errNoManifestFilename
	}

	return &Merger{
		archiver: archiver,
		mirror:   mirror,
		opts:     opts,
	}, nil
}

// Merge processes every candidate package directory of releaseDir.
// Package failures are recorded in the outcome; the returned error is set only
// when releaseDir cannot be listed or ctx is canceled, in which case the
// outcome holds whatever was merged so far.
func (m *Merger) Merge(ctx context.Context, releaseDir string) (*Outcome, error) {
	out := &Outcome{Repository: addon.NewRepository()}
	if m.opts.Previous != nil {
		out.Repository = addon.NewRepository(m.opts.Previous.Packages()...)
	}

	candidates, err := m.candidates(releaseDir)
	if err != nil {
		return out, err
	}

	logger.InfoKV(ctx, "Discovered packages", "release", releaseDir, "count", len(candidates))

	// present holds directory names and parsed IDs seen on disk, for pruning.
	present := make(map[string]struct{}, len(candidates))
	// merged maps IDs merged in this run to their directory.
	merged := make(map[string]string, len(candidates))

	for _, dir := range candidates {
		if err = ctx.Err(); err != nil {
			return m.finish(ctx, out), err
		}

		present[dir] = struct{}{}

		result := m.mergePackage(logger.WithKV(ctx, "package", dir), releaseDir, dir, out, merged)
		if result.ID != "" {
			present[result.ID] = struct{}{}
		}

		out.Packages = append(out.Packages, result)
	}

	if m.opts.Prune {
		for _, id := range out.Repository.IDs() {
			if _, ok := present[id]; ok {
				continue
			}

			out.Repository.Remove(id)
			out.Pruned = append(out.Pruned, id)
			out.Changed = true

			logger.InfoKV(ctx, "Pruned vanished package", "id", id)
		}
	}

	return m.finish(ctx, out), nil
}

func (m *Merger) finish(ctx context.Context, out *Outcome) *Outcome {
	if out.Changed {
		out.Repository.Sort()
	}

	logger.InfoKV(ctx, "Merge finished", "entries", out.Repository.Len(), "changed", out.Changed)

	return out
}

// candidates lists visible subdirectories of releaseDir holding a manifest, by name.
func (m *Merger) candidates(releaseDir string) ([]string, error) {
	entries, err := os.ReadDir(releaseDir)
	if err != nil {
		return nil, fmt.Errorf("list release directory: %w", err)
	}

	dirs := make([]string, 0, len(entries))

	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}

		info, statErr := os.Stat(filepath.Join(releaseDir, e.Name()))
		if statErr != nil || !info.IsDir() {
			continue
		}

		manifestInfo, statErr := os.Stat(filepath.Join(releaseDir, e.Name(), m.opts.ManifestFilename))
		if statErr != nil || !manifestInfo.Mode().IsRegular() {
			continue
		}

		dirs = append(dirs, e.Name())
	}

	return dirs, nil
}

// mergePackage parses, upserts and packages one candidate.
func (m *Merger) mergePackage(
	ctx context.Context,
	releaseDir, dir string,
	out *Outcome,
	merged map[string]string,
) report.PackageResult {
	result := report.PackageResult{Dir: dir}
	packageDir := filepath.Join(releaseDir, dir)

	pkg, err := manifest.ReadPackage(filepath.Join(packageDir, m.opts.ManifestFilename))
	if err != nil {
		logger.ErrorKV(ctx, "Skipping package with unreadable manifest", "error", err)
		return failed(result, fmt.Errorf("read manifest: %w", err))
	}

	result.ID = pkg.ID
	result.Version = pkg.Version

	if pkg.ID != dir {
		logger.WarnKV(ctx, "Package directory does not match its id", "id", pkg.ID)
	}

	if other, dup := merged[pkg.ID]; dup {
		logger.WarnKV(ctx, "Duplicate package id, later directory wins", "id", pkg.ID, "other", other)
	}

	previous, hadPrevious := out.Repository.Get(pkg.ID)
	out.Repository.Upsert(pkg)

	archivePath, created, err := m.archiver.Archive(ctx, packageDir, pkg.ID, pkg.Version)
	if err != nil {
		// The catalog must not advertise a version without an archive.
		if hadPrevious {
			out.Repository.Upsert(previous)
		} else {
			out.Repository.Remove(pkg.ID)
		}

		logger.ErrorKV(ctx, "Archiving failed", "id", pkg.ID, "version", pkg.Version, "error", err)

		return failed(result, fmt.Errorf("archive: %w", err))
	}

	out.Changed = true
	merged[pkg.ID] = dir
	result.Archive = archivePath

	if _, err = m.mirror.Mirror(ctx, packageDir, filepath.Join(m.opts.OutputDir, pkg.ID)); err != nil {
		logger.ErrorKV(ctx, "Mirroring assets failed", "id", pkg.ID, "error", err)
		return failed(result, fmt.Errorf("mirror assets: %w", err))
	}

	if !created {
		result.Status = report.StatusSkipped
		result.Reason = "archive exists"

		return result
	}

	result.Status = report.StatusBuilt

	return result
}

func failed(result report.PackageResult, err error) report.PackageResult {
	result.Status = report.StatusFailed
	result.Reason = err.Error()

	return result
}
