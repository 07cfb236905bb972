package report

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Status is the outcome of a package or a stage.
type Status string

const (
	// StatusBuilt means a new archive was created for the package.
	StatusBuilt Status = "built"
	// StatusOK means the stage completed.
	StatusOK Status = "ok"
	// StatusSkipped means nothing had to be done, see the reason.
	StatusSkipped Status = "skipped"
	// StatusFailed means the package or stage failed, see the reason.
	StatusFailed Status = "failed"
)

// Stage names in pipeline order.
const (
	StagePrepare   = "prepare"
	StageLock      = "lock"
	StageClean     = "clean"
	StageCarryOver = "carry-over"
	StageMerge     = "merge"
	StageManifest  = "manifest"
	StageChecksum  = "checksum"
	StageBootstrap = "bootstrap"
	StageIndex     = "index"
)

// reportFileMode is the mode of saved report files.
const reportFileMode = 0o644

// PackageResult is the outcome for one package directory.
type PackageResult struct {
	Dir     string `yaml:"dir"`
	ID      string `yaml:"id,omitempty"`
	Version string `yaml:"version,omitempty"`
	Archive string `yaml:"archive,omitempty"`
	Status  Status `yaml:"status"`
	Reason  string `yaml:"reason,omitempty"`
}

// StageResult is the outcome of one pipeline stage.
type StageResult struct {
	Stage  string `yaml:"stage"`
	Status Status `yaml:"status"`
	Reason string `yaml:"reason,omitempty"`
}

// Channel is the report of one release channel.
type Channel struct {
	Name       string          `yaml:"name"`
	ReleaseDir string          `yaml:"release_dir"`
	OutputDir  string          `yaml:"output_dir"`
	Changed    bool            `yaml:"changed"`
	Packages   []PackageResult `yaml:"packages,omitempty"`
	Pruned     []string        `yaml:"pruned,omitempty"`
	Stages     []StageResult   `yaml:"stages"`
}

// AddStage appends a stage outcome.
func (c *Channel) AddStage(stage string, status Status, reason string) {
	c.Stages = append(c.Stages, StageResult{Stage: stage, Status: status, Reason: reason})
}

// Stage returns the outcome recorded for stage.
func (c *Channel) Stage(stage string) (StageResult, bool) {
	for _, s := range c.Stages {
		if s.Stage == stage {
			return s, true
		}
	}

	return StageResult{}, false
}

// Package returns the result recorded for the package directory dir.
func (c *Channel) Package(dir string) (PackageResult, bool) {
	for _, p := range c.Packages {
		if p.Dir == dir {
			return p, true
		}
	}

	return PackageResult{}, false
}

// Run is the report of a whole generator invocation.
type Run struct {
	Version  string     `yaml:"version"`
	Channels []*Channel `yaml:"channels"`
}

// Summary counts outcomes over every channel.
type Summary struct {
	Channels      int
	Built         int
	Skipped       int
	Failed        int
	StageFailures int
}

// Summary aggregates package and stage outcomes.
func (r *Run) Summary() Summary {
	s := Summary{Channels: len(r.Channels)}

	for _, c := range r.Channels {
		for _, p := range c.Packages {
			switch p.Status {
			case StatusBuilt:
				s.Built++
			case StatusSkipped:
				s.Skipped++
			case StatusFailed:
				s.Failed++
			case StatusOK:
			}
		}

		for _, st := range c.Stages {
			if st.Status == StatusFailed {
				s.StageFailures++
			}
		}
	}

	return s
}

// Save writes the run report as YAML to path.
func Save(path string, r *Run) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, reportFileMode); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
