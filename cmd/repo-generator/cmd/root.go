package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/repo-generator/internal/config"
	"github.com/oshokin/repo-generator/internal/logger"
	"github.com/oshokin/repo-generator/internal/service/generator"
	"github.com/oshokin/repo-generator/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// outputDir overrides the configured output directory.
	outputDir string
	// reportPath overrides the configured run report path.
	reportPath string
	// carryOver seeds each merge with the existing addons.xml.
	carryOver bool
	// prune drops carried-over entries without a package directory.
	prune bool

	// rootCmd represents the base command for building addon repositories.
	rootCmd = &cobra.Command{
		Use:   "repo-generator [channel...]",
		Short: "Build addon repositories from release channel directories",
		Long: `Builds a repository for every release channel found in the working directory.

Each package directory holding an addon.xml is zipped to <id>/<id>-<version>.zip,
its manifest and declared assets are mirrored, and the manifests are merged into
addons.xml with an addons.xml.md5 checksum and an index.html listing every archive.
Existing archives are never rebuilt.

Channel names given as arguments replace the configured list.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig(ctx, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}

			applyOverrides(cmd, cfg, args)

			if err = config.Validate(cfg); err != nil {
				return err
			}

			level, _ := logger.ParseLogLevel(cfg.LogLevel)
			logger.SetLevel(level)

			_, err = generator.Run(ctx, &generator.Options{Config: cfg})

			return err
		},
	}

	// force allows init-config to overwrite an existing file.
	force bool

	// initConfigCmd writes the default settings to the configuration path.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("%w: %s", errConfigExists, configPath)
			}

			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			logger.InfoKV(context.Background(), "Configuration written", "path", configPath)

			return nil
		},
	}
)

var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// Execute runs the repo-generator CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the configuration file. The default file is optional,
// an explicitly named one is not.
func loadConfig(ctx context.Context, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)

	switch {
	case err == nil:
		logger.DebugKV(ctx, "Configuration loaded", "path", configPath)
		return cfg, nil
	case errors.Is(err, os.ErrNotExist) && !explicit:
		logger.DebugKV(ctx, "No configuration file, using defaults", "path", configPath)
		return config.Default(), nil
	default:
		return nil, err
	}
}

func applyOverrides(cmd *cobra.Command, cfg *config.Config, channels []string) {
	if len(channels) > 0 {
		cfg.Channels = channels
	}

	flags := cmd.Flags()

	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}

	if flags.Changed("report") {
		cfg.ReportPath = reportPath
	}

	if flags.Changed("carry-over") {
		cfg.CarryOver = carryOver
	}

	if flags.Changed("prune") {
		cfg.Prune = prune
		// Pruning only makes sense against the carried-over catalog.
		if prune {
			cfg.CarryOver = true
		}
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	rootCmd.Flags().
		StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "output directory, relative to each channel's parent")
	rootCmd.Flags().StringVar(&reportPath, "report", "", "write a YAML run report to this path")
	rootCmd.Flags().BoolVar(&carryOver, "carry-over", false, "keep entries of the existing addons.xml")
	rootCmd.Flags().BoolVar(&prune, "prune", false, "drop carried-over entries whose package directory is gone")

	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing configuration file")
	rootCmd.AddCommand(initConfigCmd)
}
