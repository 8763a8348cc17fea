package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage metagenome configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.metagenome.yaml.",
		Example: `  metagenome config                              # show all config
  metagenome config set display.pass_only true   # hide non-PASS calls by default
  metagenome config set view.ratio 0.05          # default zoom
  metagenome config get display.min_quality      # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		fmt.Printf("# Config file: %s\n", cfg)
	}
	fmt.Print(string(out))
	return nil
}

func runConfigSet(key, value string) error {
	v, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}
	viper.Set(key, v)

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".metagenome.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Set %s = %v in %s\n", key, v, cfgFile)
	return nil
}

// numericKeys maps the numeric settings to whether they take fractions.
var numericKeys = map[string]bool{
	"display.min_quality": true,
	"view.ratio":          true,
	"ingest.workers":      false,
}

// parseConfigValue converts a value to the type its key expects. Other keys
// keep boolean-like values as booleans and the rest as strings.
func parseConfigValue(key, value string) (any, error) {
	if fractional, ok := numericKeys[key]; ok {
		if fractional {
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return nil, fmt.Errorf("%s wants a number: %w", key, err)
			}
			return f, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s wants an integer: %w", key, err)
		}
		return n, nil
	}

	// Parse boolean-like values
	switch value {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return value, nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Println(val)
	return nil
}
