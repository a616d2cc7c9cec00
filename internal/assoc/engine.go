// Package assoc runs the per-variant linear association test and filters its
// results by significance.
package assoc

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gwas/internal/cohort"
	"github.com/inodb/vibe-gwas/internal/errs"
	"github.com/inodb/vibe-gwas/internal/genotype"
	"github.com/inodb/vibe-gwas/internal/progress"
)

// Result is one row of the association table. Column order of the written
// table is SNP, A1, BETA, STAT, P, CHR.
type Result struct {
	SNP  string
	A1   string
	Beta float64
	Stat float64
	P    float64
	Chr  string
	SE   float64
	N    int // observations left after listwise deletion
}

// Associations is the outcome of one engine run.
type Associations struct {
	Results  []Result // one per fitted variant, in matrix order
	Failures []*errs.RegressionFailure
}

// Engine fits phenotype ~ intercept + covariates + dosage for every variant.
type Engine struct {
	workers  int
	progress io.Writer
	logger   *zap.Logger
}

// NewEngine creates an engine using runtime.NumCPU() workers.
func NewEngine() *Engine {
	return &Engine{logger: zap.NewNop()}
}

// SetLogger sets the logger for skipped-variant warnings.
func (e *Engine) SetLogger(l *zap.Logger) {
	e.logger = l
}

// SetWorkers sets the number of concurrent fits. Zero or less means runtime.NumCPU().
func (e *Engine) SetWorkers(n int) {
	e.workers = n
}

// SetProgress draws a progress bar on w while fitting. Nil disables it.
func (e *Engine) SetProgress(w io.Writer) {
	e.progress = w
}

// workItem is one variant column waiting to be fitted.
type workItem struct {
	Seq    int
	Column int
}

// workResult holds the fit of a single variant.
type workResult struct {
	Seq    int
	Result Result
	Err    *errs.RegressionFailure
}

// Run tests every variant of m against the cohort. The cohort's SampleIndex
// must refer to rows of m. Variants whose model cannot be fitted are logged,
// recorded in Failures and left out of Results.
func (e *Engine) Run(c *cohort.Cohort, m *genotype.Matrix) (*Associations, error) {
	if c == nil {
		return nil, errs.Missing("cohort")
	}
	if m == nil {
		return nil, errs.Missing("genotype matrix")
	}
	for _, i := range c.SampleIndex {
		if i < 0 || i >= m.NumSamples() {
			return nil, errs.Invalid("cohort", "sample index %d outside genotype matrix with %d samples", i, m.NumSamples())
		}
	}

	workers := e.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	variants := m.Variants()
	items := make(chan workItem, 2*workers)
	go func() {
		defer close(items)
		for j := range variants {
			items <- workItem{Seq: j, Column: j}
		}
	}()

	results := e.fitAll(c, m, items, workers)

	bar := progress.Start(e.progress, "variants", len(variants))
	out := &Associations{Results: make([]Result, 0, len(variants))}
	err := collectOrdered(results, func(r workResult) error {
		bar.Increment()
		if r.Err != nil {
			e.logger.Warn("skipping variant",
				zap.String("variant", r.Err.Variant),
				zap.Error(r.Err))
			out.Failures = append(out.Failures, r.Err)
			return nil
		}
		out.Results = append(out.Results, r.Result)
		return nil
	})
	bar.Finish()
	if err != nil {
		return nil, err
	}

	e.logger.Info("association complete",
		zap.Int("variants", len(variants)),
		zap.Int("fitted", len(out.Results)),
		zap.Int("skipped", len(out.Failures)),
		zap.Int("subjects", c.Len()))
	return out, nil
}

// fitAll fits work items on a pool of workers. Results arrive in completion
// order; collectOrdered restores sequence order.
func (e *Engine) fitAll(c *cohort.Cohort, m *genotype.Matrix, items <-chan workItem, workers int) <-chan workResult {
	results := make(chan workResult, 2*workers)
	variants := m.Variants()

	var nonNumeric string
	if len(c.NonNumeric) > 0 {
		nonNumeric = fmt.Sprintf("non-numeric values in %s; encode categorical columns as dummy variables",
			strings.Join(c.NonNumeric, ", "))
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			// Design columns: covariates followed by the dosage column, which
			// is refilled for every variant.
			dosage := make([]float64, c.Len())
			cols := append(append([][]float64{}, c.Covariates...), dosage)

			for item := range items {
				v := variants[item.Column]
				if nonNumeric != "" {
					results <- workResult{Seq: item.Seq, Err: &errs.RegressionFailure{Variant: v.ID, Reason: nonNumeric}}
					continue
				}
				for r, i := range c.SampleIndex {
					dosage[r] = m.At(i, item.Column)
				}
				f, err := fitLast(c.Phenotype, cols)
				if err != nil {
					results <- workResult{Seq: item.Seq, Err: &errs.RegressionFailure{Variant: v.ID, Reason: "ordinary least squares", Err: err}}
					continue
				}
				results <- workResult{Seq: item.Seq, Result: Result{
					SNP:  v.ID,
					A1:   v.Allele1,
					Beta: f.Beta,
					Stat: f.T,
					P:    f.P,
					Chr:  v.Chrom,
					SE:   f.SE,
					N:    f.N,
				}}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// collectOrdered calls fn for each result in sequence-number order,
// buffering out-of-order results until the next expected one arrives.
func collectOrdered(results <-chan workResult, fn func(workResult) error) error {
	pending := make(map[int]workResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
