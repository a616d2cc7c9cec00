package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-gwas/internal/enrich"
	"github.com/inodb/vibe-gwas/internal/genotype"
	"github.com/inodb/vibe-gwas/internal/pipeline"
)

func newRunCmd() *cobra.Command {
	var (
		flags     cohortFlags
		queryFile string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run association, filtering, annotation and enrichment end to end",
		Long: `Run every stage and write associations.tsv, significant.tsv, genes.tsv,
variants.tsv and enrichment.tsv into the output directory. Annotation runs when
a gene reference is given and enrichment when a GMT file is given as well.
With --duckdb all tables and input fingerprints are also stored in DuckDB.`,
		Example: `  vibe-gwas run -g cohort --pheno pheno.tsv --covar covar.txt --phenotype WM_sum \
    --reference genes.loc --window-kb 10 --gmt kegg.gmt --background universe.txt \
    --output-dir results --duckdb results/gwas.duckdb`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			keys := map[string]string{
				"filter.column":      "column",
				"filter.threshold":   "threshold",
				"annotate.reference": "reference",
				"annotate.window_kb": "window-kb",
				"enrich.gmt":         "gmt",
				"enrich.background":  "background",
				"enrich.correction":  "correction",
				"enrich.gene_key":    "gene-key",
				"output.dir":         "output-dir",
				"output.duckdb":      "duckdb",
			}
			for k, v := range cohortKeys {
				keys[k] = v
			}
			return bindFlags(cmd, keys)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			correction, err := enrich.ParseCorrection(viper.GetString("enrich.correction"))
			if err != nil {
				return err
			}

			variants, err := variantsFromConfig()
			if err != nil {
				return err
			}

			inputs := flags.inputs()
			optional := map[string]string{
				"reference":  viper.GetString("annotate.reference"),
				"gmt":        viper.GetString("enrich.gmt"),
				"background": viper.GetString("enrich.background"),
				"query":      queryFile,
			}
			for role, path := range optional {
				if path != "" {
					inputs[role] = path
				}
			}
			inputs["genotype"] = genotypeFile(flags.genotype)

			r := pipeline.NewRunner()
			r.SetLogger(logger)
			out, err := r.Run(pipeline.Config{
				Genotype:        genotype.Path(flags.genotype),
				Tables:          flags.tables(),
				Phenotype:       viper.GetString("association.phenotype"),
				Covariates:      covariatesFromConfig(),
				Variants:        variants,
				Workers:         viper.GetInt("association.workers"),
				FilterColumn:    viper.GetString("filter.column"),
				FilterThreshold: viper.GetFloat64("filter.threshold"),
				Reference:       viper.GetString("annotate.reference"),
				WindowKB:        viper.GetFloat64("annotate.window_kb"),
				GMT:             viper.GetString("enrich.gmt"),
				Background:      viper.GetString("enrich.background"),
				Query:           queryFile,
				Correction:      correction,
				GeneKey:         viper.GetString("enrich.gene_key"),
				OutputDir:       viper.GetString("output.dir"),
				DuckDB:          viper.GetString("output.duckdb"),
				Inputs:          inputs,
				Progress:        progressWriter(cmd),
			})
			if err != nil {
				return err
			}

			rep := out.Report
			w := cmd.ErrOrStderr()
			fmt.Fprintf(w, "Subjects: %d (phenotype mean %.4g, sd %.4g)\n", rep.Subjects, rep.PhenotypeMean, rep.PhenotypeSD)
			fmt.Fprintf(w, "Variants: %d tested, %d fitted, %d skipped, %d significant\n", rep.Variants, rep.Fitted, rep.Failed, rep.Significant)
			fmt.Fprintf(w, "Genomic inflation: %.3f\n", rep.Lambda)
			if out.Annotation != nil {
				fmt.Fprintf(w, "Annotation: %d genes, %d variants mapped, %d without a gene\n", rep.Genes, rep.VariantsAnnotated, rep.VariantsDropped)
			}
			if out.Enrichment != nil {
				fmt.Fprintf(w, "Enrichment: %d gene sets tested, %d skipped\n", rep.SetsTested, rep.SetsSkipped)
			}
			if rep.RunID != 0 {
				fmt.Fprintf(w, "Stored as run %d in %s\n", rep.RunID, viper.GetString("output.duckdb"))
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().String("column", "P", "Column to threshold: P, BETA, STAT, SE or N")
	cmd.Flags().Float64("threshold", 0.05, "Inclusive significance threshold")
	cmd.Flags().String("reference", "", "Gene reference table (enables annotation)")
	cmd.Flags().Float64("window-kb", 0, "Window added to both gene ends, in kilobases")
	cmd.Flags().String("gmt", "", "Gene sets (enables enrichment)")
	cmd.Flags().String("background", "", "Background gene universe")
	cmd.Flags().StringVar(&queryFile, "query", "", "Query genes (default: genes hit by significant variants)")
	cmd.Flags().String("correction", "bonferroni", "Multiple-testing correction: bonferroni or fdr")
	cmd.Flags().String("gene-key", pipeline.GeneKeyName, "Annotation column used as query genes: name or id")
	cmd.Flags().String("output-dir", ".", "Directory for result tables")
	cmd.Flags().String("duckdb", "", "DuckDB database to store the run in")
	return cmd
}

// genotypeFile returns the file holding the dosage block of a genotype path:
// the VCF itself or the .bed file of a PLINK prefix.
func genotypeFile(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz") || strings.HasSuffix(lower, ".bed") {
		return path
	}
	for _, ext := range []string{".bim", ".fam"} {
		if strings.HasSuffix(lower, ext) {
			return path[:len(path)-len(ext)] + ".bed"
		}
	}
	return path + ".bed"
}
