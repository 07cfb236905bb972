package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/repo-generator/internal/logger"
)

// Config holds the settings of one generator run.
type Config struct {
	// Channels are release directories, relative to the working directory, built in order.
	Channels []string `yaml:"channels"`
	// OutputDir is the output directory. A relative value is resolved against
	// the parent of each channel directory.
	OutputDir string `yaml:"output_dir"`
	// ManifestFilename is the per-package manifest file name.
	ManifestFilename string `yaml:"manifest_filename"`
	// CleanCompiled removes *.pyc, *.pyo and __pycache__ from channels before building.
	CleanCompiled bool `yaml:"clean_compiled"`
	// CarryOver seeds the merge with the previously written repository manifest.
	CarryOver bool `yaml:"carry_over"`
	// Prune drops carried-over entries whose package directory is gone.
	Prune bool `yaml:"prune"`
	// ReportPath, when set, receives the YAML run report.
	ReportPath string `yaml:"report_path,omitempty"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "repo-generator.yaml"

	// DefaultOutputDir is the name of the output directory next to each channel.
	DefaultOutputDir = "generated"

	// DefaultManifestFilename is the manifest every package carries at its root.
	DefaultManifestFilename = "addon.xml"

	// DefaultLogLevel is used when the settings do not name one.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the file mode for settings files.
	DefaultFilePermissions = 0o600
)

// DefaultChannels returns the compiled-in release channels.
func DefaultChannels() []string {
	return []string{"krypton", "leia", "matrix", "nexus", "repo"}
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoChannels is returned when the channel list is empty.
	errNoChannels = errors.New("at least one channel must be configured")
	// errBadChannel is returned for empty or parent-relative channel names.
	errBadChannel = errors.New("invalid channel")
	// errBadManifestFilename is returned when the manifest name contains a path.
	errBadManifestFilename = errors.New("manifest filename must be a bare file name")
	// errBadLogLevel is returned for unknown log levels.
	errBadLogLevel = errors.New("unknown log level")
	// errPruneWithoutCarryOver is returned when prune is set on a fresh merge.
	errPruneWithoutCarryOver = errors.New("prune requires carry_over")
)

// Default returns the zero-configuration settings.
func Default() *Config {
	return &Config{
		Channels:         DefaultChannels(),
		OutputDir:        DefaultOutputDir,
		ManifestFilename: DefaultManifestFilename,
		CleanCompiled:    true,
		LogLevel:         DefaultLogLevel,
	}
}

// Load reads settings from path on top of Default and validates them.
// A missing file yields an error wrapping os.ErrNotExist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err = os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the settings and fills empty optional fields with defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if len(cfg.Channels) == 0 {
		return errNoChannels
	}

	for _, channel := range cfg.Channels {
		cleaned := filepath.Clean(channel)
		if strings.TrimSpace(channel) == "" || cleaned == "." || cleaned == ".." ||
			strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%w: %q", errBadChannel, channel)
		}
	}

	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}

	if cfg.ManifestFilename == "" {
		cfg.ManifestFilename = DefaultManifestFilename
	}

	if filepath.Base(cfg.ManifestFilename) != cfg.ManifestFilename {
		return fmt.Errorf("%w: %q", errBadManifestFilename, cfg.ManifestFilename)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errBadLogLevel, cfg.LogLevel)
	}

	if cfg.Prune && !cfg.CarryOver {
		return errPruneWithoutCarryOver
	}

	return nil
}
