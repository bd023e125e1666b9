package main

import (
	"fmt"
	"os"

	"gotrubric/internal/config"
	"gotrubric/internal/errors"
	"gotrubric/internal/logging"

	"github.com/spf13/cobra"
)

// cliOptions are the root flags shared by every command
type cliOptions struct {
	envFile   string
	logLevel  string
	logFormat string
	cfg       *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", errors.CodeOf(err), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "trubric",
		Short:         "Validate ML models against recorded trubrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Env file to load before reading TRUBRIC_* variables (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug|info|warn|error (env TRUBRIC_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text|json (env TRUBRIC_LOG_FORMAT)")

	rootCmd.AddCommand(
		newRulesCmd(),
		newInspectCmd(opts),
		newRunCmd(opts),
		newDiffCmd(),
	)
	return rootCmd
}

// load reads configuration, applies root flag overrides and sets up logging
func (o *cliOptions) load(cmd *cobra.Command) error {
	var files []string
	if o.envFile != "" {
		files = append(files, o.envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = o.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return errors.ConfigInvalid(err.Error())
	}
	logging.Init(level, cfg.Logging.Format, cmd.ErrOrStderr())
	o.cfg = cfg
	return nil
}

// reportPath returns the positional path or the configured default
func (o *cliOptions) reportPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if o.cfg != nil && o.cfg.Report != "" {
		return o.cfg.Report, nil
	}
	return "", errors.InvalidInput("no trubric file given and TRUBRIC_REPORT is not set")
}
