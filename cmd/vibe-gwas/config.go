package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfigName = ".vibe-gwas.yaml"

// configKeys lists every key read by a command, with the flag it mirrors.
var configKeys = map[string]string{
	"association.phenotype":  "Phenotype column (--phenotype)",
	"association.covariates": "Covariate columns, list or comma-separated (--covariates)",
	"association.variants":   "Variant id file restricting the tested variants (--extract)",
	"association.workers":    "Concurrent association and enrichment workers (--workers)",
	"filter.column":          "Association column to filter on (--column)",
	"filter.threshold":       "Inclusive filter threshold (--threshold)",
	"annotate.reference":     "Gene location table or GTF (--reference)",
	"annotate.window_kb":     "Window around genes in kilobases (--window-kb)",
	"enrich.gmt":             "Gene-set GMT file (--gmt)",
	"enrich.background":      "Background gene list (--background)",
	"enrich.correction":      "bonferroni or fdr (--correction)",
	"enrich.gene_key":        "Annotation column used as enrichment query: name or id (--gene-key)",
	"output.dir":             "Directory for result tables (--output-dir)",
	"output.duckdb":          "DuckDB database for results (--duckdb)",
	"progress":               "Draw progress bars (--no-progress disables)",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [section]",
		Short: "Manage vibe-gwas configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/` + defaultConfigName + `
unless --config names another file. Values set here are used whenever the
matching flag is not given.`,
		Example: `  vibe-gwas config                                   # show all config
  vibe-gwas config enrich                            # show one section
  vibe-gwas config keys                              # list known keys
  vibe-gwas config set association.phenotype WM_sum  # default phenotype column
  vibe-gwas config set annotate.window_kb 10         # 10 kb gene window
  vibe-gwas config get enrich.correction             # get a value`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return printValue(cmd, viper.AllSettings())
			}
			return printKey(cmd, args[0])
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printKey(cmd, args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setKey(cmd, args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "keys",
		Short: "List the known configuration keys",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			keys := make([]string, 0, len(configKeys))
			for k := range configKeys {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", k, configKeys[k])
			}
		},
	})
	return cmd
}

func printKey(cmd *cobra.Command, key string) error {
	if !viper.IsSet(key) {
		return fmt.Errorf("key %q is not set", key)
	}
	return printValue(cmd, viper.Get(key))
}

// printValue writes scalars as is and sections as YAML.
func printValue(cmd *cobra.Command, val any) error {
	switch val.(type) {
	case map[string]any, []any:
		out, err := yaml.Marshal(val)
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
	default:
		fmt.Fprintln(cmd.OutOrStdout(), val)
	}
	return nil
}

func setKey(cmd *cobra.Command, key, value string) error {
	key = strings.ToLower(key)
	if _, ok := configKeys[key]; !ok {
		return fmt.Errorf("unknown config key %q (see vibe-gwas config keys)", key)
	}
	viper.Set(key, parseConfigValue(value))

	path := viper.ConfigFileUsed()
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		path = filepath.Join(home, defaultConfigName)
	}
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, path)
	return nil
}

// parseConfigValue turns boolean-like and numeric strings into typed values so
// they are written unquoted.
func parseConfigValue(value string) any {
	switch value {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
