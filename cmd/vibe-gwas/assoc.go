package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/assoc"
	"github.com/inodb/vibe-gwas/internal/cohort"
	"github.com/inodb/vibe-gwas/internal/duckdb"
	"github.com/inodb/vibe-gwas/internal/genotype"
	"github.com/inodb/vibe-gwas/internal/output"
	"github.com/inodb/vibe-gwas/internal/pipeline"
)

// cohortFlags are the genotype and subject-table inputs shared by assoc and run.
type cohortFlags struct {
	genotype string
	pheno    string
	covar    string
	merged   string
}

func (f *cohortFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.genotype, "genotype", "g", "", "PLINK prefix (.bed/.bim/.fam) or VCF file")
	cmd.Flags().StringVar(&f.pheno, "pheno", "", "Phenotype table keyed by FID")
	cmd.Flags().StringVar(&f.covar, "covar", "", "Covariate table keyed by FID")
	cmd.Flags().StringVar(&f.merged, "merged", "", "Pre-merged phenotype/covariate table (replaces --pheno/--covar)")
	cmd.Flags().String("phenotype", "", "Phenotype column")
	cmd.Flags().String("covariates", "", "Comma-separated covariate columns (default: covariate table columns after the first two)")
	cmd.Flags().String("extract", "", "File of variant ids to test, one per line (default: all variants)")
	cmd.Flags().Int("workers", 0, "Concurrent workers (0 = all CPUs)")
	_ = cmd.MarkFlagRequired("genotype")
}

var cohortKeys = map[string]string{
	"association.phenotype":  "phenotype",
	"association.covariates": "covariates",
	"association.variants":   "extract",
	"association.workers":    "workers",
}

func (f *cohortFlags) tables() cohort.Tables {
	if f.merged != "" {
		return cohort.PreMerged(cohort.TablePath(f.merged))
	}
	var t cohort.Tables
	if f.pheno != "" {
		t.Phenotype = cohort.TablePath(f.pheno)
	}
	if f.covar != "" {
		t.Covariates = cohort.TablePath(f.covar)
	}
	return t
}

// inputs returns the supplied input paths keyed by role.
func (f *cohortFlags) inputs() map[string]string {
	in := map[string]string{}
	roles := map[string]string{
		"phenotype":  f.pheno,
		"covariates": f.covar,
		"merged":     f.merged,
		"variants":   viper.GetString("association.variants"),
	}
	for role, path := range roles {
		if path != "" {
			in[role] = path
		}
	}
	return in
}

// covariatesFromConfig returns the configured covariate list, or nil to keep
// the positional default.
func covariatesFromConfig() []string {
	if !viper.IsSet("association.covariates") {
		return nil
	}
	var list []string
	switch v := viper.Get("association.covariates").(type) {
	case []any:
		for _, x := range v {
			list = append(list, fmt.Sprint(x))
		}
	default:
		list = splitList(viper.GetString("association.covariates"))
	}
	if len(list) == 0 {
		return nil
	}
	return list
}

// variantsFromConfig reads the configured variant list, or returns nil to test
// every variant.
func variantsFromConfig() ([]string, error) {
	path := viper.GetString("association.variants")
	if path == "" {
		return nil, nil
	}
	ids, err := annotate.ReadVariantList(path)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func newAssocCmd() *cobra.Command {
	var (
		flags      cohortFlags
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "assoc",
		Short: "Test every variant against a phenotype",
		Long: `Fit phenotype ~ intercept + covariates + dosage by ordinary least squares for
every variant and write SNP, A1, BETA, STAT, P and CHR per fitted variant.
Variants whose model cannot be fitted are logged and skipped.`,
		Example: `  vibe-gwas assoc -g cohort --pheno pheno.tsv --covar covar.txt --phenotype WM_sum
  vibe-gwas assoc -g cohort.vcf.gz --merged design.txt --phenotype WM_sum --covariates PC1,Age
  vibe-gwas assoc -g cohort --pheno pheno.tsv --covar covar.txt --phenotype WM_sum --extract snps.txt`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, cohortKeys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := variantsFromConfig()
			if err != nil {
				return err
			}
			r := pipeline.NewRunner()
			r.SetLogger(logger)
			out, err := r.Run(pipeline.Config{
				Genotype:        genotype.Path(flags.genotype),
				Tables:          flags.tables(),
				Phenotype:       viper.GetString("association.phenotype"),
				Covariates:      covariatesFromConfig(),
				Variants:        variants,
				Workers:         viper.GetInt("association.workers"),
				FilterThreshold: assoc.DefaultFilterThreshold,
				Progress:        progressWriter(cmd),
			})
			if err != nil {
				return err
			}

			w, err := openOutput(cmd, outputFile)
			if err != nil {
				return err
			}
			if err := output.WriteAssociations(w, out.Associations.Results); err != nil {
				w.Close()
				return fmt.Errorf("writing associations: %w", err)
			}
			return w.Close()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

func newFilterCmd() *cobra.Command {
	var (
		outputFile string
		runID      int64
	)

	cmd := &cobra.Command{
		Use:   "filter [associations.tsv]",
		Short: "Keep association rows at or below a threshold",
		Long: `Keep rows of an association table whose column value is at most the threshold.
Without a file argument the association table of a run stored in --duckdb is
filtered on P.`,
		Example: `  vibe-gwas filter assoc.tsv
  vibe-gwas filter --column P --threshold 5e-8 assoc.tsv -o hits.tsv
  vibe-gwas filter --duckdb results.duckdb --threshold 1e-5`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"filter.column":    "column",
				"filter.threshold": "threshold",
				"output.duckdb":    "duckdb",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			column := viper.GetString("filter.column")
			threshold := viper.GetFloat64("filter.threshold")

			var kept []assoc.Result
			switch {
			case len(args) == 1:
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				results, err := output.ReadAssociations(f)
				f.Close()
				if err != nil {
					return err
				}
				if kept, err = assoc.Filter(results, column, threshold); err != nil {
					return err
				}
			case viper.GetString("output.duckdb") != "":
				var err error
				if kept, err = filterStored(viper.GetString("output.duckdb"), runID, column, threshold); err != nil {
					return err
				}
			default:
				return fmt.Errorf("an association table or --duckdb is required")
			}

			logger.Info("filtered associations",
				zap.String("column", column),
				zap.Float64("threshold", threshold),
				zap.Int("kept", len(kept)))

			w, err := openOutput(cmd, outputFile)
			if err != nil {
				return err
			}
			if err := output.WriteAssociations(w, kept); err != nil {
				w.Close()
				return fmt.Errorf("writing associations: %w", err)
			}
			return w.Close()
		},
	}

	cmd.Flags().String("column", assoc.DefaultFilterColumn, "Column to threshold: P, BETA, STAT, SE or N")
	cmd.Flags().Float64("threshold", assoc.DefaultFilterThreshold, "Inclusive upper bound")
	cmd.Flags().String("duckdb", "", "DuckDB results database")
	cmd.Flags().Int64Var(&runID, "run", 0, "Run id in the database (default: latest)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// filterStored reads significant rows of a stored run. A P threshold runs in
// the database; other columns are filtered after loading.
func filterStored(path string, runID int64, column string, threshold float64) ([]assoc.Result, error) {
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if runID == 0 {
		if runID, err = store.LatestRun(); err != nil {
			return nil, err
		}
		if runID == 0 {
			return nil, fmt.Errorf("no runs stored in %s", path)
		}
	}
	if column == assoc.DefaultFilterColumn {
		return store.SignificantAssociations(runID, threshold)
	}
	results, err := store.Associations(runID)
	if err != nil {
		return nil, err
	}
	return assoc.Filter(results, column, threshold)
}
