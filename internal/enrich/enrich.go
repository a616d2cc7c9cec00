// Package enrich tests gene sets for overrepresentation of a query gene list
// against a background gene universe.
package enrich

import (
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/inodb/vibe-gwas/internal/errs"
	"github.com/inodb/vibe-gwas/internal/progress"
)

// Correction names a multiple-testing correction.
type Correction string

const (
	CorrectionBonferroni Correction = "bonferroni"
	CorrectionFDR        Correction = "fdr"
)

// ParseCorrection validates a correction name.
func ParseCorrection(s string) (Correction, error) {
	switch c := Correction(strings.ToLower(strings.TrimSpace(s))); c {
	case CorrectionBonferroni, CorrectionFDR:
		return c, nil
	case "":
		return CorrectionBonferroni, nil
	}
	return "", errs.Invalid("correction", "%q is not one of bonferroni, fdr", s)
}

// SetResult is one row of the enrichment table.
type SetResult struct {
	GeneSet  string
	NGenes   int // members found in the background
	NOverlap int // members found in the background and the query
	P        float64
	Genes    []string // overlapping members, in gene-set order
	AdjP     float64
}

// OverlapGenes returns the overlapping genes joined by ':'.
func (r SetResult) OverlapGenes() string {
	return strings.Join(r.Genes, ":")
}

// Analyzer runs overrepresentation analysis.
type Analyzer struct {
	workers  int
	progress io.Writer
	logger   *zap.Logger
}

// NewAnalyzer creates an analyzer using runtime.NumCPU() workers.
func NewAnalyzer() *Analyzer {
	return &Analyzer{logger: zap.NewNop()}
}

// SetLogger sets the logger for informational messages.
func (a *Analyzer) SetLogger(l *zap.Logger) {
	a.logger = l
}

// SetWorkers sets the number of gene sets tested concurrently.
func (a *Analyzer) SetWorkers(n int) {
	a.workers = n
}

// SetProgress draws a progress bar on w while testing. Nil disables it.
func (a *Analyzer) SetProgress(w io.Writer) {
	a.progress = w
}

// Run tests every gene-set record with at least three fields. Rows follow the
// record order. Bonferroni multiplies by the number of records including the
// skipped short ones; FDR adjusts over the tested sets. An empty query is
// valid and leaves every set with no overlap and p = 1.
func (a *Analyzer) Run(records [][]string, background, query []string, correction Correction) ([]SetResult, error) {
	if len(background) == 0 {
		return nil, errs.Missing("background genes")
	}
	if correction != CorrectionBonferroni && correction != CorrectionFDR {
		return nil, errs.Invalid("correction", "%q is not one of bonferroni, fdr", correction)
	}

	universe := make(map[string]struct{}, len(background))
	for _, g := range background {
		universe[g] = struct{}{}
	}
	hits := make(map[string]struct{}, len(query))
	for _, g := range query {
		hits[g] = struct{}{}
	}

	var tested [][]string
	for _, rec := range records {
		if len(rec) >= 3 {
			tested = append(tested, rec)
		}
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make([]SetResult, len(tested))
	bar := progress.Start(a.progress, "gene sets", len(tested))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, rec := range tested {
		i, rec := i, rec
		g.Go(func() error {
			results[i] = testSet(rec, universe, hits, len(background), len(query))
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	bar.Finish()

	pvals := make([]float64, len(results))
	for i, r := range results {
		pvals[i] = r.P
	}
	var adj []float64
	switch correction {
	case CorrectionBonferroni:
		adj = Bonferroni(pvals, len(records))
	case CorrectionFDR:
		adj = BenjaminiHochberg(pvals)
	}
	for i := range results {
		results[i].AdjP = adj[i]
	}

	a.logger.Info("gene set enrichment complete",
		zap.Int("records", len(records)),
		zap.Int("tested", len(tested)),
		zap.Int("skipped", len(records)-len(tested)),
		zap.String("correction", string(correction)))
	return results, nil
}

// testSet computes the overlap and hypergeometric tail of one gene set.
// Fewer than two overlapping genes give p = 1.
func testSet(rec []string, universe, hits map[string]struct{}, population, draws int) SetResult {
	r := SetResult{GeneSet: rec[0]}
	for _, g := range rec[2:] {
		if _, ok := universe[g]; !ok {
			continue
		}
		r.NGenes++
		if _, ok := hits[g]; ok {
			r.Genes = append(r.Genes, g)
		}
	}
	r.NOverlap = len(r.Genes)

	r.P = 1
	if r.NOverlap > 1 {
		r.P = HypergeomSF(r.NOverlap, population, r.NGenes, draws)
	}
	return r
}
