package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// setting is a configuration key accepted by `config set`. parse turns the
// command-line text into the typed value written to the config file.
type setting struct {
	help  string
	parse func(string) (any, error)
}

var settings = map[string]setting{
	"threads":     {"decode workers used by copy", parseWorkers},
	"output.gzip": {"block-gzip copy output", parseSwitch},
	"duckdb.path": {"database written by load", parsePath},
	"verbose":     {"debug logging", parseSwitch},
}

func parseWorkers(s string) (any, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("want a positive integer, got %q", s)
	}
	return n, nil
}

func parseSwitch(s string) (any, error) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return nil, fmt.Errorf("want true or false, got %q", s)
}

func parsePath(s string) (any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("path must not be empty")
	}
	return s, nil
}

func lookupSetting(key string) (setting, error) {
	s, ok := settings[key]
	if !ok {
		return setting{}, usageError{fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(settingKeys(), ", "))}
	}
	return s, nil
}

func settingKeys() []string {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-vcf configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-vcf.yaml.",
		Example: `  vibe-vcf config                       # show all config
  vibe-vcf config keys                  # list settable keys
  vibe-vcf config set threads 8         # decode on 8 workers
  vibe-vcf config set output.gzip true  # block-gzip copy output
  vibe-vcf config get duckdb.path       # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigKeysCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func newConfigKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List configuration keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, k := range settingKeys() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", k, settings[k].help)
			}
			return nil
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "# Config file: %s\n", used)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, raw string) error {
	s, err := lookupSetting(key)
	if err != nil {
		return err
	}
	val, err := s.parse(raw)
	if err != nil {
		return usageError{fmt.Errorf("config %s: %w", key, err)}
	}
	viper.Set(key, val)

	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		if cfgFile, err = defaultConfigPath(); err != nil {
			return err
		}
	}
	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v in %s\n", key, val, cfgFile)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	if _, err := lookupSetting(key); err != nil {
		return err
	}
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
