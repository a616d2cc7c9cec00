package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/enrich"
	"github.com/inodb/vibe-gwas/internal/output"
)

func newAnnotateCmd() *cobra.Command {
	var (
		genesFile    string
		variantsFile string
	)

	cmd := &cobra.Command{
		Use:   "annotate <variants.txt>",
		Short: "Map chromosome:position variants onto genes",
		Long: `Map variant ids of the form chromosome:position onto a gene reference table
(Genes_ID, CHR, Start, Stop, Strand, Gene_Name). A variant hits a gene when
start - window < position < stop + window on the same chromosome. Variants
without a hit are left out of both tables.`,
		Example: `  vibe-gwas annotate --reference NCBI37.3.gene.loc hits.txt
  vibe-gwas annotate --reference genes.loc --window-kb 10 hits.txt -o genes.tsv --variants-out variants.tsv`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"annotate.reference": "reference",
				"annotate.window_kb": "window-kb",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			reference := viper.GetString("annotate.reference")
			if reference == "" {
				return fmt.Errorf("--reference is required")
			}
			ids, err := annotate.ReadVariantList(args[0])
			if err != nil {
				return err
			}
			genes, err := annotate.LoadReference(reference)
			if err != nil {
				return err
			}

			ann := annotate.NewAnnotator(genes)
			ann.SetLogger(logger)
			res, err := ann.Annotate(ids, viper.GetFloat64("annotate.window_kb"))
			if err != nil {
				return err
			}

			w, err := openOutput(cmd, genesFile)
			if err != nil {
				return err
			}
			if err := output.WriteGenes(w, res.Genes); err != nil {
				w.Close()
				return fmt.Errorf("writing gene table: %w", err)
			}
			if err := w.Close(); err != nil {
				return err
			}

			if variantsFile == "" {
				return nil
			}
			w, err = openOutput(cmd, variantsFile)
			if err != nil {
				return err
			}
			if err := output.WriteVariants(w, res.Variants); err != nil {
				w.Close()
				return fmt.Errorf("writing variant table: %w", err)
			}
			return w.Close()
		},
	}

	cmd.Flags().String("reference", "", "Gene reference table")
	cmd.Flags().Float64("window-kb", 0, "Window added to both gene ends, in kilobases")
	cmd.Flags().StringVarP(&genesFile, "output", "o", "", "Gene table output (default: stdout)")
	cmd.Flags().StringVar(&variantsFile, "variants-out", "", "Variant table output")
	return cmd
}

func newEnrichCmd() *cobra.Command {
	var (
		queryFile  string
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Test gene sets for overrepresentation of query genes",
		Long: `Compute the hypergeometric tail probability of the query/gene-set overlap
within a background universe for every GMT record, then correct with
bonferroni or fdr (Benjamini-Hochberg).`,
		Example: `  vibe-gwas enrich --gmt c2.cp.kegg.gmt --background universe.txt --query genes.txt
  vibe-gwas enrich --gmt sets.gmt --background universe.txt --query genes.txt --correction fdr`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"enrich.gmt":          "gmt",
				"enrich.background":   "background",
				"enrich.correction":   "correction",
				"association.workers": "workers",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			correction, err := enrich.ParseCorrection(viper.GetString("enrich.correction"))
			if err != nil {
				return err
			}
			gmt := viper.GetString("enrich.gmt")
			if gmt == "" {
				return fmt.Errorf("--gmt is required")
			}
			records, err := enrich.ReadGMT(gmt)
			if err != nil {
				return err
			}
			var background, query []string
			if path := viper.GetString("enrich.background"); path != "" {
				if background, err = enrich.ReadGeneList(path); err != nil {
					return err
				}
			}
			if queryFile != "" {
				if query, err = enrich.ReadGeneList(queryFile); err != nil {
					return err
				}
			}

			a := enrich.NewAnalyzer()
			a.SetLogger(logger)
			a.SetWorkers(viper.GetInt("association.workers"))
			a.SetProgress(progressWriter(cmd))
			results, err := a.Run(records, background, query, correction)
			if err != nil {
				return err
			}

			w, err := openOutput(cmd, outputFile)
			if err != nil {
				return err
			}
			if err := output.WriteEnrichment(w, results); err != nil {
				w.Close()
				return fmt.Errorf("writing enrichment table: %w", err)
			}
			return w.Close()
		},
	}

	cmd.Flags().String("gmt", "", "Gene sets, one per line: name, description, genes (tab-separated)")
	cmd.Flags().String("background", "", "Background gene universe, one gene per line")
	cmd.Flags().StringVar(&queryFile, "query", "", "Query genes, one gene per line")
	cmd.Flags().String("correction", "bonferroni", "Multiple-testing correction: bonferroni or fdr")
	cmd.Flags().Int("workers", 0, "Concurrent workers (0 = all CPUs)")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}
