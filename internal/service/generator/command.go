package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/repo-generator/internal/config"
	"github.com/oshokin/repo-generator/internal/domain/report"
	"github.com/oshokin/repo-generator/internal/logger"
	"github.com/oshokin/repo-generator/internal/version"
)

// Options are inputs accepted by the generator entry point.
type Options struct {
	// Config holds the validated settings.
	Config *config.Config
	// WorkDir is where channel directories are looked up; empty means the current directory.
	WorkDir string
}

var errConfigRequired = errors.New("configuration is required")

// Run builds every configured channel that exists under the working directory.
// Per-package and per-stage failures are part of the returned report, never an error.
func Run(ctx context.Context, opts *Options) (*report.Run, error) {
	ctx = logger.WithName(ctx, "repo-generator")

	if opts == nil || opts.Config == nil {
		return nil, errConfigRequired
	}

	cfg := opts.Config
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}

		workDir = wd
	}

	run := &report.Run{Version: version.Short()}
	outputs := make(map[string]string, len(cfg.Channels))

	for _, channel := range cfg.Channels {
		releaseDir := filepath.Join(workDir, channel)

		info, err := os.Stat(releaseDir)
		if err != nil || !info.IsDir() {
			logger.DebugKV(ctx, "Channel directory not found, skipping", "channel", channel)
			continue
		}

		if ctx.Err() != nil {
			logger.WarnKV(ctx, "Interrupted, remaining channels are not built", "channel", channel)
			break
		}

		outputDir := OutputDir(releaseDir, cfg.OutputDir)
		if other, shared := outputs[outputDir]; shared {
			logger.WarnKV(ctx, "Channels share an output directory, the later one overwrites addons.xml",
				"channel", channel, "other", other, "output", outputDir)
		}

		outputs[outputDir] = channel

		run.Channels = append(run.Channels, buildChannel(ctx, cfg, channel, releaseDir, outputDir))
	}

	summary := run.Summary()
	logger.InfoKV(ctx, "Generator finished",
		"channels", summary.Channels,
		"built", summary.Built,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"stage_failures", summary.StageFailures)

	if cfg.ReportPath != "" {
		if err := report.Save(cfg.ReportPath, run); err != nil {
			logger.ErrorKV(ctx, "Unable to save run report", "path", cfg.ReportPath, "error", err)
		} else {
			logger.InfoKV(ctx, "Run report saved", "path", cfg.ReportPath)
		}
	}

	return run, nil
}

// OutputDir resolves the output directory of a channel: absolute values are
// used as is, relative ones are placed next to the channel directory.
func OutputDir(releaseDir, output string) string {
	if filepath.IsAbs(output) {
		return filepath.Clean(output)
	}

	return filepath.Join(filepath.Dir(filepath.Clean(releaseDir)), output)
}
