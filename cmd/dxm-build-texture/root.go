package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/gibbed/Gibbed.DXM/internal/config"
	"github.com/gibbed/Gibbed.DXM/pkg"
	"github.com/gibbed/Gibbed.DXM/pkg/logging"
	"github.com/gibbed/Gibbed.DXM/pkg/texentry"
	dxmerrors "github.com/gibbed/Gibbed.DXM/pkg/texentry/errors"
)

type globalFlags struct {
	configPath string
	logLevel   string
	verbose    bool
}

// setup loads configuration and builds the command logger.
func (g *globalFlags) setup(name string, stderr io.Writer) (*config.Config, hclog.Logger, error) {
	cfg, cfgPath, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", dxmerrors.ErrUsage, err)
	}

	level, source := logging.ResolveLevel(g.logLevel, g.verbose, cfg.Logging.Level)
	if cfg.Logging.JSON && !strings.HasPrefix(level, "json:") {
		level = "json:" + level
	}
	logger := logging.NewLogger(name, level, stderr)
	logger.Debug("⚙️ Configuration loaded", "path", cfgPath, "level", level, "level_source", source)
	return cfg, logger, nil
}

func usageArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || (hi >= 0 && len(args) > hi) {
			return fmt.Errorf("%w: %s takes %s, got %d", dxmerrors.ErrUsage, cmd.Name(), argsHint(lo, hi), len(args))
		}
		return nil
	}
}

func argsHint(lo, hi int) string {
	switch {
	case hi < 0:
		return fmt.Sprintf("at least %d argument(s)", lo)
	case lo == hi:
		return fmt.Sprintf("%d argument(s)", lo)
	default:
		return fmt.Sprintf("%d to %d arguments", lo, hi)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	globals := &globalFlags{}
	var (
		idFlag  string
		workers int
	)

	rootCmd := &cobra.Command{
		Use:           "dxm-build-texture [flags] <input> [output]",
		Short:         "Build a texture archive entry from an image",
		Long:          "Build a texture archive entry: a BC3 mip chain wrapped in the format v1 templates with identifier, layout and digest fields patched.",
		Version:       version,
		Args:          usageArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Identifier problems must surface before anything touches disk.
			id, err := texentry.ParseIdentifier(idFlag)
			if err != nil {
				return err
			}

			cfg, logger, err := globals.setup("dxm-build-texture", stderr)
			if err != nil {
				return err
			}

			w := cfg.Build.Workers
			if cmd.Flags().Changed("workers") {
				w = workers
			}
			if w < 0 {
				return fmt.Errorf("%w: --workers must be >= 0", dxmerrors.ErrUsage)
			}

			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			res, err := pkg.BuildEntry(cmd.Context(), args[0], output, pkg.BuildOptions{
				Identifier: id.String(),
				OutputDir:  cfg.Output.Dir,
				Prefix:     cfg.Output.Prefix,
				Suffix:     cfg.Output.Suffix,
				Workers:    w,
				FileMode:   cfg.FileMode(),
			}, logger)
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, res.OutputPath)
			return nil
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetVersionTemplate(fmt.Sprintf("dxm-build-texture {{.Version}}\nBuilt: %s\n", getBuilderTimestamp()))
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", dxmerrors.ErrUsage, err)
	})

	rootCmd.Flags().StringVarP(&idFlag, "id", "i", texentry.DefaultIdentifier, "Entry identifier (0-999)")
	rootCmd.Flags().IntVar(&workers, "workers", 0, "Parallel workers for resampling and compression (0 = one per CPU)")
	rootCmd.Flags().BoolP("version", "V", false, "Show version information")

	rootCmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "Path to config.toml")
	rootCmd.PersistentFlags().StringVar(&globals.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&globals.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newVerifyCmd(globals, stdout, stderr))
	rootCmd.AddCommand(newLayoutCmd(stdout))

	return rootCmd
}
