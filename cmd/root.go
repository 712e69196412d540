// Package cmd implements the markupcheck command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"markupcheck/internal/application/common/slogger"
	"markupcheck/internal/config"
	"markupcheck/internal/domain/errors/checkerr"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitFatal   = 2
)

// ExitError carries the process exit code of a finished run.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// cli is the state shared by the commands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

// newRootCmd builds the command tree around a fresh viper instance.
func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	config.SetDefaults(c.v)

	cmd := &cobra.Command{
		Use:   "markupcheck",
		Short: "Check HTML game files for balanced markup and expected features",
		Long: `markupcheck statically inspects single-file HTML games and reports on
their structural soundness.

It checks:
- HTML tag balance with mismatch recovery and unclosed tag reporting
- Bracket balance of every inline script, reported on document lines
- JavaScript syntax errors found by tree-sitter
- Expected element ids, functions and features from a rule profile
- Common script problems, duplicate ids and page outline gaps`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return c.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: ./configs/config.yaml or ./config.yaml)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (json, text)")
	flags.Bool("metrics", false, "Collect OpenTelemetry metrics and print their totals")
	flags.String("rules", "", "YAML file with additional or replacement profiles")

	bindFlags(c.v, flags, map[string]string{
		"log.level":        "log-level",
		"log.format":       "log-format",
		"metrics.enabled":  "metrics",
		"check.rules_file": "rules",
	})

	cmd.AddCommand(newCheckCmd(c), newProfilesCmd(c), newVersionCmd())
	return cmd
}

// load reads the config file and environment and configures logging.
func (c *cli) load() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		c.v.SetConfigName("config")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath("./configs")
		c.v.AddConfigPath(".")
	}
	config.BindEnv(c.v)

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return checkerr.NewConfigError("cannot read config file").WithPath(c.cfgFile).WithCause(err)
		}
		// No config file; defaults, flags and environment apply.
	}

	cfg, err := config.New(c.v)
	if err != nil {
		return err
	}
	if err := slogger.Configure(cfg.Log.Logging()); err != nil {
		return checkerr.NewConfigError("invalid log configuration").WithCause(err)
	}
	c.cfg = cfg
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", name, err)
		}
	}
}

// Execute runs the root command and exits with its status.
func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
