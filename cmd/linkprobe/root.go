package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkprobe/internal/app"
	"github.com/JakeFAU/linkprobe/internal/config"
	"github.com/JakeFAU/linkprobe/internal/logging"
)

// flagKeys maps CLI flags onto config keys.
var flagKeys = map[string]string{
	"input":           "input.path",
	"output":          "output.dir",
	"rate-limit":      "checker.rate_limit",
	"timeout-seconds": "checker.timeout_seconds",
	"metrics-addr":    "metrics.addr",
}

// newRootCmd creates and configures the root command. Each call gets its own
// Viper instance so commands can be built repeatedly in tests.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "linkprobe",
		Short: "Check a list of URLs for reachability.",
		Long: `linkprobe fetches every URL in the input list with a bounded number of
concurrent requests, records the page title or failure reason for each one,
and keeps a checkpoint so re-running picks up where the last run stopped.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			return run(cmd, v, cfgFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "path to a YAML config file")
	flags.String("input", "input.txt", "file with one URL per line")
	flags.String("output", "output", "directory for the result logs")
	flags.Int("rate-limit", 5, "maximum number of requests in flight")
	flags.Int("timeout-seconds", 15, "per-request timeout in seconds")
	flags.String("metrics-addr", "", "serve /metrics and /healthz on this address")

	return cmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func run(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	cfg, err := config.LoadFrom(v, cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Build(logging.Options{
		Development: cfg.Logging.Development,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	runner := app.New(app.Options{
		Config:      cfg,
		Logger:      logger.Named("linkprobe"),
		Stdout:      cmd.OutOrStdout(),
		ProgressOut: cmd.ErrOrStderr(),
	})
	if _, err := runner.Run(cmd.Context()); err != nil {
		logger.Error("run failed", zap.Error(err))
		return err
	}
	return nil
}
