// Package main provides the metagenome command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

// usageError marks invalid arguments or flag combinations.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "metagenome",
		Short: "Synchronize variant coordinates across genomes",
		Long: `metagenome places the variants of many genomes on one shared coordinate
axis. Every insertion in any genome widens the axis so that all genomes
stay aligned with each other and with the reference.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().Int("workers", 0, "Classification workers per file (0 = one per CPU)")
	_ = viper.BindPFlag("ingest.workers", root.PersistentFlags().Lookup("workers"))
	cobra.OnInitialize(initConfig)

	root.AddCommand(newSyncCmd())
	root.AddCommand(newViewCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// newLogger builds a production logger writing to stderr, or a development
// logger when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func initConfig() {
	setConfigDefaults()

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.SetConfigFile(filepath.Join(home, ".metagenome.yaml"))
	viper.SetEnvPrefix("METAGENOME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	// A missing config file is fine.
	_ = viper.ReadInConfig()
}

func setConfigDefaults() {
	viper.SetDefault("display.show_filtered", true)
	viper.SetDefault("display.show_reference", true)
	viper.SetDefault("display.min_quality", 0.0)
	viper.SetDefault("display.pass_only", false)
	viper.SetDefault("view.ratio", 1.0)
	viper.SetDefault("ingest.workers", 0)
}
