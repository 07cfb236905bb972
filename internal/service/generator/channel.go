package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/repo-generator/internal/archive"
	"github.com/oshokin/repo-generator/internal/assets"
	"github.com/oshokin/repo-generator/internal/checksum"
	"github.com/oshokin/repo-generator/internal/config"
	"github.com/oshokin/repo-generator/internal/domain/addon"
	"github.com/oshokin/repo-generator/internal/domain/report"
	"github.com/oshokin/repo-generator/internal/fsutil"
	"github.com/oshokin/repo-generator/internal/ignore"
	"github.com/oshokin/repo-generator/internal/index"
	"github.com/oshokin/repo-generator/internal/logger"
	"github.com/oshokin/repo-generator/internal/repository/manifest"
	"github.com/oshokin/repo-generator/internal/service/merger"
)

// Skip reasons shared by dependent stages.
const (
	reasonNoChanges          = "no packages merged"
	reasonManifestNotWritten = "manifest not written"
	reasonChecksumNotWritten = "checksum not written"
	reasonLockNotHeld        = "build marker not acquired"
)

// BuildChannel builds one release directory into outputDir and reports every outcome.
func BuildChannel(ctx context.Context, cfg *config.Config, releaseDir, outputDir string) *report.Channel {
	return buildChannel(ctx, cfg, filepath.Base(releaseDir), releaseDir, outputDir)
}

func buildChannel(ctx context.Context, cfg *config.Config, name, releaseDir, outputDir string) *report.Channel {
	ctx = logger.WithKV(ctx, "channel", name)
	rep := &report.Channel{
		Name:       name,
		ReleaseDir: releaseDir,
		OutputDir:  outputDir,
	}

	logger.InfoKV(ctx, "Building channel", "release", releaseDir, "output", outputDir)

	if err := os.MkdirAll(outputDir, fsutil.DefaultDirMode); err != nil {
		stageFailed(ctx, rep, report.StagePrepare, err)
		return rep
	}

	rep.AddStage(report.StagePrepare, report.StatusOK, "")

	marker, err := acquireMarker(ctx, outputDir)
	if err != nil {
		stageFailed(ctx, rep, report.StageLock, err)
		skipStages(rep, reasonLockNotHeld,
			report.StageClean, report.StageMerge, report.StageManifest,
			report.StageChecksum, report.StageBootstrap, report.StageIndex)

		return rep
	}

	defer marker.release(ctx)

	rep.AddStage(report.StageLock, report.StatusOK, "")

	if cfg.CleanCompiled {
		removed, cleanErr := cleanCompiled(releaseDir)
		if cleanErr != nil {
			stageFailed(ctx, rep, report.StageClean, cleanErr)
		} else {
			rep.AddStage(report.StageClean, report.StatusOK, fmt.Sprintf("%d removed", removed))
		}
	} else {
		rep.AddStage(report.StageClean, report.StatusSkipped, "disabled")
	}

	catalog := manifest.NewFileRepository(filepath.Join(outputDir, manifest.CatalogFilename))
	previous := loadPrevious(ctx, cfg, catalog, rep)

	m, err := merger.New(
		archive.New(outputDir, ignore.New()),
		assets.New(cfg.ManifestFilename),
		merger.Options{
			ManifestFilename: cfg.ManifestFilename,
			OutputDir:        outputDir,
			Previous:         previous,
			Prune:            cfg.Prune,
		},
	)
	if err != nil {
		stageFailed(ctx, rep, report.StageMerge, err)
		return rep
	}

	outcome, err := m.Merge(ctx, releaseDir)
	rep.Packages = outcome.Packages
	rep.Pruned = outcome.Pruned
	rep.Changed = outcome.Changed

	if err != nil {
		stageFailed(ctx, rep, report.StageMerge, err)
		skipStages(rep, reasonManifestNotWritten,
			report.StageManifest, report.StageChecksum, report.StageBootstrap, report.StageIndex)

		return rep
	}

	rep.AddStage(report.StageMerge, report.StatusOK, "")

	if !outcome.Changed {
		skipStages(rep, reasonNoChanges,
			report.StageManifest, report.StageChecksum, report.StageBootstrap, report.StageIndex)

		return rep
	}

	publish(ctx, rep, catalog, outcome.Repository, outputDir)

	return rep
}

// publish writes the catalog, then the checksum, then the bootstrap copies and the index.
func publish(
	ctx context.Context,
	rep *report.Channel,
	catalog *manifest.FileRepository,
	repo *addon.Repository,
	outputDir string,
) {
	if err := catalog.Save(ctx, repo); err != nil {
		stageFailed(ctx, rep, report.StageManifest, err)
		skipStages(rep, reasonManifestNotWritten, report.StageChecksum, report.StageBootstrap, report.StageIndex)

		return
	}

	rep.AddStage(report.StageManifest, report.StatusOK, "")
	logger.InfoKV(ctx, "Catalog written", "path", catalog.Path(), "entries", repo.Len())

	digest, err := checksum.Publish(catalog.Path(), filepath.Join(outputDir, manifest.ChecksumFilename))
	if err != nil {
		stageFailed(ctx, rep, report.StageChecksum, err)
		skipStages(rep, reasonChecksumNotWritten, report.StageBootstrap, report.StageIndex)

		return
	}

	rep.AddStage(report.StageChecksum, report.StatusOK, "")
	logger.InfoKV(ctx, "Checksum written", "md5", digest)

	if _, err = index.CopyRepositoryArchives(ctx, outputDir); err != nil {
		stageFailed(ctx, rep, report.StageBootstrap, err)
	} else {
		rep.AddStage(report.StageBootstrap, report.StatusOK, "")
	}

	if _, err = index.Publish(ctx, outputDir); err != nil {
		stageFailed(ctx, rep, report.StageIndex, err)
		return
	}

	rep.AddStage(report.StageIndex, report.StatusOK, "")
}

// loadPrevious returns the catalog written by an earlier run when carry-over is on.
func loadPrevious(
	ctx context.Context,
	cfg *config.Config,
	catalog *manifest.FileRepository,
	rep *report.Channel,
) *addon.Repository {
	if !cfg.CarryOver {
		return nil
	}

	previous, err := catalog.Load(ctx)

	switch {
	case errors.Is(err, manifest.ErrNotFound):
		rep.AddStage(report.StageCarryOver, report.StatusSkipped, "no previous catalog")
		return nil
	case err != nil:
		// A broken catalog is rebuilt from the packages on disk.
		stageFailed(ctx, rep, report.StageCarryOver, err)
		return nil
	}

	rep.AddStage(report.StageCarryOver, report.StatusOK, fmt.Sprintf("%d entries", previous.Len()))

	return previous
}

func stageFailed(ctx context.Context, rep *report.Channel, stage string, err error) {
	logger.ErrorKV(ctx, "Stage failed", "stage", stage, "error", err)
	rep.AddStage(stage, report.StatusFailed, err.Error())
}

func skipStages(rep *report.Channel, reason string, stages ...string) {
	for _, stage := range stages {
		rep.AddStage(stage, report.StatusSkipped, reason)
	}
}
