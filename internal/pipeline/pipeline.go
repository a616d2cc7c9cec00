// Package pipeline runs the association, filtering, annotation and enrichment
// stages end to end and persists their tables.
package pipeline

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/assoc"
	"github.com/inodb/vibe-gwas/internal/cohort"
	"github.com/inodb/vibe-gwas/internal/duckdb"
	"github.com/inodb/vibe-gwas/internal/enrich"
	"github.com/inodb/vibe-gwas/internal/errs"
	"github.com/inodb/vibe-gwas/internal/genotype"
	"github.com/inodb/vibe-gwas/internal/output"
)

// Gene keys selecting which annotation column feeds the enrichment query.
const (
	GeneKeyName = "name"
	GeneKeyID   = "id"
)

// Output file names written to Config.OutputDir.
const (
	AssociationsFile = "associations.tsv"
	SignificantFile  = "significant.tsv"
	GenesFile        = "genes.tsv"
	VariantsFile     = "variants.tsv"
	EnrichmentFile   = "enrichment.tsv"
)

// Config describes one pipeline invocation. Annotation runs only when
// Reference is set, and enrichment only when GMT is set as well.
type Config struct {
	Genotype   genotype.Source
	Tables     cohort.Tables
	Phenotype  string
	Covariates []string // nil keeps the positional default
	Variants   []string // nil tests every variant of the genotype store
	Workers    int

	FilterColumn    string  // defaults to assoc.DefaultFilterColumn
	FilterThreshold float64 // inclusive; callers pass assoc.DefaultFilterThreshold explicitly

	Reference string
	WindowKB  float64

	GMT        string
	Background string
	Query      string // optional query gene list; defaults to the annotated genes
	Correction enrich.Correction
	GeneKey    string

	OutputDir string
	DuckDB    string
	Inputs    map[string]string // role -> path, fingerprinted into the database

	Progress io.Writer
}

// Report counts what each stage kept and dropped.
type Report struct {
	Subjects          int
	Covariates        []string
	PhenotypeMean     float64
	PhenotypeSD       float64
	Variants          int
	Fitted            int
	Failed            int
	Lambda            float64 // genomic inflation of the fitted test statistics
	Significant       int
	Genes             int
	VariantsAnnotated int
	VariantsDropped   int
	SetsTested        int
	SetsSkipped       int
	RunID             int64
}

// Output holds the tables produced by a run.
type Output struct {
	Associations *assoc.Associations
	Significant  []assoc.Result
	Annotation   *annotate.Result
	Enrichment   []enrich.SetResult
	Report       Report
}

// Runner executes the pipeline.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a runner with a no-op logger.
func NewRunner() *Runner {
	return &Runner{logger: zap.NewNop()}
}

// SetLogger sets the logger passed down to every stage.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
}

// Run executes every configured stage and writes the result tables.
func (r *Runner) Run(cfg Config) (*Output, error) {
	if cfg.FilterColumn == "" {
		cfg.FilterColumn = assoc.DefaultFilterColumn
	}
	if cfg.Correction == "" {
		cfg.Correction = enrich.CorrectionBonferroni
	}
	if cfg.GeneKey == "" {
		cfg.GeneKey = GeneKeyName
	}
	if cfg.GeneKey != GeneKeyName && cfg.GeneKey != GeneKeyID {
		return nil, errs.Invalid("gene key", "%q is not one of %s, %s", cfg.GeneKey, GeneKeyName, GeneKeyID)
	}

	matrix, c, err := r.align(cfg)
	if err != nil {
		return nil, err
	}

	out := &Output{}
	out.Report.Subjects = c.Len()
	out.Report.Covariates = c.CovariateNames
	out.Report.PhenotypeMean, out.Report.PhenotypeSD = summarize(c.Phenotype)

	engine := assoc.NewEngine()
	engine.SetLogger(r.logger)
	engine.SetWorkers(cfg.Workers)
	engine.SetProgress(cfg.Progress)
	out.Associations, err = engine.Run(c, matrix)
	if err != nil {
		return nil, fmt.Errorf("association: %w", err)
	}
	out.Report.Variants = matrix.NumVariants()
	out.Report.Fitted = len(out.Associations.Results)
	out.Report.Lambda = inflation(out.Associations.Results)
	out.Report.Failed = len(out.Associations.Failures)

	out.Significant, err = assoc.Filter(out.Associations.Results, cfg.FilterColumn, cfg.FilterThreshold)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	out.Report.Significant = len(out.Significant)

	if cfg.Reference != "" {
		if err := r.annotate(cfg, matrix, out); err != nil {
			return nil, err
		}
		if cfg.GMT != "" {
			if err := r.enrich(cfg, out); err != nil {
				return nil, err
			}
		}
	}

	if cfg.OutputDir != "" {
		if err := writeTables(cfg.OutputDir, out); err != nil {
			return nil, err
		}
	}
	if cfg.DuckDB != "" {
		id, err := persist(cfg, out)
		if err != nil {
			return nil, err
		}
		out.Report.RunID = id
	}

	r.logger.Info("pipeline complete",
		zap.Int("subjects", out.Report.Subjects),
		zap.Float64("phenotype_mean", out.Report.PhenotypeMean),
		zap.Float64("phenotype_sd", out.Report.PhenotypeSD),
		zap.Int("variants", out.Report.Variants),
		zap.Int("fitted", out.Report.Fitted),
		zap.Int("failed", out.Report.Failed),
		zap.Int("significant", out.Report.Significant),
		zap.Int("genes", out.Report.Genes),
		zap.Int("variants_annotated", out.Report.VariantsAnnotated),
		zap.Int("variants_dropped", out.Report.VariantsDropped),
		zap.Int("gene_sets_tested", out.Report.SetsTested),
		zap.Int("gene_sets_skipped", out.Report.SetsSkipped))
	return out, nil
}

// align merges the subject tables, subsets the genotype store to the merged
// subjects and builds the cohort against the subset's sample axis.
func (r *Runner) align(cfg Config) (*genotype.Matrix, *cohort.Cohort, error) {
	design, err := cohort.Merge(cfg.Tables, cfg.Covariates)
	if err != nil {
		return nil, nil, err
	}

	h, err := genotype.Open(cfg.Genotype)
	if err != nil {
		return nil, nil, err
	}
	h.SetLogger(r.logger)

	matrix, err := h.Subset(cfg.Variants, design.FIDs())
	if err != nil {
		return nil, nil, fmt.Errorf("subset genotypes: %w", err)
	}

	c, err := design.Build(cfg.Phenotype, matrix.FIDs())
	if err != nil {
		return nil, nil, err
	}
	r.logger.Info("aligned cohort",
		zap.Int("design_rows", design.Nrow()),
		zap.Int("genotype_samples", matrix.NumSamples()),
		zap.Int("subjects", c.Len()),
		zap.Strings("covariates", c.CovariateNames))
	return matrix, c, nil
}

func (r *Runner) annotate(cfg Config, matrix *genotype.Matrix, out *Output) error {
	genes, err := annotate.LoadReference(cfg.Reference)
	if err != nil {
		return err
	}
	ann := annotate.NewAnnotator(genes)
	ann.SetLogger(r.logger)

	ids := positionalIDs(out.Significant, matrix.Variants())
	out.Annotation, err = ann.Annotate(ids, cfg.WindowKB)
	if err != nil {
		return fmt.Errorf("annotate: %w", err)
	}
	out.Report.Genes = len(out.Annotation.Genes)
	out.Report.VariantsAnnotated = len(out.Annotation.Variants)
	out.Report.VariantsDropped = len(ids) - len(out.Annotation.Variants)
	return nil
}

func (r *Runner) enrich(cfg Config, out *Output) error {
	records, err := enrich.ReadGMT(cfg.GMT)
	if err != nil {
		return err
	}
	if cfg.Background == "" {
		return errs.Missing("background genes")
	}
	background, err := enrich.ReadGeneList(cfg.Background)
	if err != nil {
		return err
	}

	var query []string
	if cfg.Query != "" {
		if query, err = enrich.ReadGeneList(cfg.Query); err != nil {
			return err
		}
	} else if cfg.GeneKey == GeneKeyID {
		query = out.Annotation.GeneIDs()
	} else {
		query = out.Annotation.GeneNames()
	}

	a := enrich.NewAnalyzer()
	a.SetLogger(r.logger)
	a.SetWorkers(cfg.Workers)
	a.SetProgress(cfg.Progress)
	out.Enrichment, err = a.Run(records, background, query, cfg.Correction)
	if err != nil {
		return fmt.Errorf("enrichment: %w", err)
	}
	out.Report.SetsTested = len(out.Enrichment)
	out.Report.SetsSkipped = len(records) - len(out.Enrichment)
	return nil
}

// positionalIDs returns "chromosome:position" ids for results. Ids already in
// that form are kept; others are resolved through the variant metadata.
func positionalIDs(results []assoc.Result, variants []genotype.VariantInfo) []string {
	byID := make(map[string]genotype.VariantInfo, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}
	ids := make([]string, 0, len(results))
	for _, res := range results {
		if _, _, err := annotate.ParseVariantID(res.SNP); err == nil {
			ids = append(ids, res.SNP)
			continue
		}
		if v, ok := byID[res.SNP]; ok {
			ids = append(ids, v.Chrom+":"+strconv.FormatInt(v.Position, 10))
		}
	}
	return ids
}

// summarize returns the mean and sample standard deviation of the non-NaN values.
func summarize(values []float64) (mean, sd float64) {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN(), math.NaN()
	}
	if len(clean) == 1 {
		return clean[0], math.NaN()
	}
	return stat.MeanStdDev(clean, nil)
}

// inflation returns the genomic control factor: the median squared test
// statistic over the median of a 1-df chi-square. NaN without fitted variants.
func inflation(results []assoc.Result) float64 {
	sq := make([]float64, 0, len(results))
	for _, r := range results {
		if !math.IsNaN(r.Stat) {
			sq = append(sq, r.Stat*r.Stat)
		}
	}
	med, err := stats.Median(sq)
	if err != nil {
		return math.NaN()
	}
	return med / distuv.ChiSquared{K: 1}.Quantile(0.5)
}

func writeTables(dir string, out *Output) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tables := []struct {
		name  string
		skip  bool
		write func(io.Writer) error
	}{
		{AssociationsFile, false, func(w io.Writer) error { return output.WriteAssociations(w, out.Associations.Results) }},
		{SignificantFile, false, func(w io.Writer) error { return output.WriteAssociations(w, out.Significant) }},
		{GenesFile, out.Annotation == nil, func(w io.Writer) error { return output.WriteGenes(w, out.Annotation.Genes) }},
		{VariantsFile, out.Annotation == nil, func(w io.Writer) error { return output.WriteVariants(w, out.Annotation.Variants) }},
		{EnrichmentFile, out.Enrichment == nil, func(w io.Writer) error { return output.WriteEnrichment(w, out.Enrichment) }},
	}
	for _, t := range tables {
		if t.skip {
			continue
		}
		if err := writeFile(filepath.Join(dir, t.name), t.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// persist stores the run, its input fingerprints and its tables in DuckDB.
func persist(cfg Config, out *Output) (int64, error) {
	store, err := duckdb.Open(cfg.DuckDB)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	id, err := store.BeginRun(duckdb.Run{
		Phenotype:  cfg.Phenotype,
		Covariates: out.Report.Covariates,
		WindowKB:   cfg.WindowKB,
		Correction: string(cfg.Correction),
	})
	if err != nil {
		return 0, err
	}

	roles := make([]string, 0, len(cfg.Inputs))
	for role := range cfg.Inputs {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		fp, err := duckdb.StatFile(cfg.Inputs[role])
		if err != nil {
			return 0, fmt.Errorf("fingerprint %s input: %w", role, err)
		}
		if err := store.RecordInput(id, role, fp); err != nil {
			return 0, err
		}
	}

	if err := store.WriteAssociations(id, out.Associations.Results); err != nil {
		return 0, err
	}
	if out.Annotation != nil {
		if err := store.WriteAnnotation(id, out.Annotation); err != nil {
			return 0, err
		}
	}
	if err := store.WriteEnrichment(id, out.Enrichment); err != nil {
		return 0, err
	}
	return id, nil
}
