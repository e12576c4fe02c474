// Package cli implements the stagerun command line.
package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/askiada/go-stagerun/internal/config"
	"github.com/askiada/go-stagerun/internal/telemetry"
)

// app holds what the subcommands share once the root command has loaded the configuration.
type app struct {
	stdout, stderr io.Writer
	configPath     string
	cfg            *config.Config
	logger         *slog.Logger
}

// NewRootCmd creates the root command for stagerun.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "stagerun",
		Short: "Run staged pipelines of Lua jobs and hooks declared in YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.logger = telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format, a.stderr)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to the configuration file (default "+config.DefaultFile+" when present)")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newPlanCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// Execute runs the root command with provided args.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	return cmd.ExecuteContext(ctx)
}
