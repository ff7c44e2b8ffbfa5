package main

import (
	"io"

	"aniso-smooth/internal/config"
	"aniso-smooth/internal/logger"

	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "1.0.0"

type globalOptions struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "smoothctl",
		Short:         "Edge-preserving anisotropic smoothing for images",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "TOML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	flags.BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON lines")

	root.AddCommand(
		newRunCommand(opts),
		newPresetsCommand(opts),
		newVersionCommand(),
	)

	return root
}

// load resolves the config and a stderr logger for a command.
func (o *globalOptions) load(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}

	return cfg, logger.NewCLILogger(cmd.ErrOrStderr(), cfg.Level(), o.jsonLogs), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the smoothctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("smoothctl %s\n", version)
		},
	}
}
