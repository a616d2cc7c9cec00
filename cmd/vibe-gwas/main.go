// Package main provides the vibe-gwas command-line tool.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gwas/internal/errs"
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
	cfgFile string
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
		if hint := hintFor(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vibe-gwas",
		Short: "Genome-wide association testing, gene annotation and gene-set enrichment",
		Long: `vibe-gwas tests every variant of a genotype store against a phenotype,
adjusting for covariates, filters significant variants, maps them onto genes
within a window and tests gene sets for overrepresentation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(); err != nil {
				return err
			}
			return initLogger()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-gwas.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Development logging at debug level")
	root.PersistentFlags().Bool("no-progress", false, "Disable progress bars")

	root.AddCommand(newAssocCmd())
	root.AddCommand(newFilterCmd())
	root.AddCommand(newAnnotateCmd())
	root.AddCommand(newEnrichCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vibe-gwas version %s (%s) built %s\n", version, commit, date)
		},
	}
}

// initConfig reads the config file, if any. A missing default config file is
// not an error.
func initConfig() error {
	viper.SetDefault("filter.column", "P")
	viper.SetDefault("filter.threshold", 0.05)
	viper.SetDefault("annotate.window_kb", 0.0)
	viper.SetDefault("enrich.correction", "bonferroni")
	viper.SetDefault("enrich.gene_key", "name")
	viper.SetDefault("progress", true)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(home)
	viper.SetConfigName(".vibe-gwas")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

func initLogger() error {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	logger = l
	return nil
}

// bindFlags binds config keys to the named flags of cmd. Called from PreRunE
// so that commands sharing a key do not overwrite each other's binding.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// progressWriter returns stderr unless progress bars are disabled.
func progressWriter(cmd *cobra.Command) io.Writer {
	if off, _ := cmd.Flags().GetBool("no-progress"); off || !viper.GetBool("progress") {
		return nil
	}
	return os.Stderr
}

// openOutput returns a writer for path, or stdout when path is empty or "-".
func openOutput(cmd *cobra.Command, path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{cmd.OutOrStdout()}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// splitList splits a comma-separated flag or config value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func hintFor(err error) string {
	var missing *errs.MissingInputError
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "Check that the file path is correct"
	case errors.As(err, &missing) && (missing.Input == "phenotype" || missing.Input == "covariates"):
		return "Provide --pheno and --covar, or a pre-merged table with --merged"
	case errors.As(err, &missing) && strings.HasPrefix(missing.Input, "covariate columns"):
		return "List the covariate columns with --covariates"
	}
	return ""
}
