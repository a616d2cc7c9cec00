// Package cohort merges phenotype and covariate tables and aligns the result
// with the sample axis of a genotype matrix.
package cohort

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/inodb/vibe-gwas/internal/errs"
	"github.com/inodb/vibe-gwas/internal/genotype"
)

// Tables is the phenotype/covariate input: either two tables to be joined on
// FID or a single pre-merged table.
type Tables struct {
	Phenotype  Table
	Covariates Table
	Merged     Table
}

// Separate returns Tables holding a phenotype and a covariate table.
func Separate(pheno, covar Table) Tables {
	return Tables{Phenotype: pheno, Covariates: covar}
}

// PreMerged returns Tables holding one table with phenotype and covariates.
func PreMerged(t Table) Tables {
	return Tables{Merged: t}
}

// Design is the merged subject table together with the covariate columns
// the association model adjusts for.
type Design struct {
	frame      dataframe.DataFrame
	covariates []string
}

// Merge builds the design table. Separate tables are each stripped of rows
// with missing values and inner joined on FID. A pre-merged table is used as
// is. Covariates default to every column after the first two of the covariate
// table; a non-nil covariates list overrides that. A pre-merged table has no
// positional default, so it needs an explicit list.
func Merge(in Tables, covariates []string) (*Design, error) {
	if in.Merged.Supplied() {
		df, err := in.Merged.load("phenotype/covariate table")
		if err != nil {
			return nil, err
		}
		if covariates == nil {
			return nil, errs.Missing("covariate columns for the pre-merged table")
		}
		if err := requireColumns(df, "phenotype/covariate table", append([]string{SubjectColumn}, covariates...)); err != nil {
			return nil, err
		}
		return &Design{frame: df, covariates: covariates}, nil
	}

	if !in.Phenotype.Supplied() {
		return nil, errs.Missing("phenotype")
	}
	if !in.Covariates.Supplied() {
		return nil, errs.Missing("covariates")
	}
	pheno, err := in.Phenotype.load("phenotype")
	if err != nil {
		return nil, err
	}
	covar, err := in.Covariates.load("covariates")
	if err != nil {
		return nil, err
	}

	if covariates == nil {
		names := covar.Names()
		if len(names) > 2 {
			covariates = names[2:]
		} else {
			covariates = []string{}
		}
	}
	if err := requireColumns(pheno, "phenotype", []string{SubjectColumn}); err != nil {
		return nil, err
	}
	if err := requireColumns(covar, "covariates", append([]string{SubjectColumn}, covariates...)); err != nil {
		return nil, err
	}

	pheno = dropMissing(pheno)
	covar = dropMissing(covar)

	// Only the covariate columns are carried from the covariate table so that
	// columns shared with the phenotype table keep their names after the join.
	covar = covar.Select(append([]string{SubjectColumn}, covariates...))
	for _, c := range covariates {
		if hasColumn(pheno, c) {
			pheno = pheno.Drop(c)
		}
	}

	joined := pheno.InnerJoin(covar, SubjectColumn)
	if joined.Err != nil {
		return nil, fmt.Errorf("join phenotype and covariates: %w", joined.Err)
	}
	return &Design{frame: joined, covariates: covariates}, nil
}

// Covariates returns the covariate column names.
func (d *Design) Covariates() []string { return d.covariates }

// Frame returns the merged table.
func (d *Design) Frame() dataframe.DataFrame { return d.frame }

// Nrow returns the number of subjects.
func (d *Design) Nrow() int { return d.frame.Nrow() }

// FIDs returns the subject identifiers in row order.
func (d *Design) FIDs() []string {
	return d.frame.Col(SubjectColumn).Records()
}

// Restrict keeps the rows whose FID matches a genotype sample id either as is
// or after truncation at the subject delimiter on either side.
func (d *Design) Restrict(genotypeFIDs []string) *Design {
	keys := make(map[string]struct{}, 2*len(genotypeFIDs))
	for _, id := range genotypeFIDs {
		keys[id] = struct{}{}
		keys[genotype.SubjectKey(id)] = struct{}{}
	}
	df := d.frame.Filter(dataframe.F{
		Colname:    SubjectColumn,
		Comparator: series.CompFunc,
		Comparando: func(el series.Element) bool {
			if _, ok := keys[el.String()]; ok {
				return true
			}
			_, ok := keys[genotype.SubjectKey(el.String())]
			return ok
		},
	})
	return &Design{frame: df, covariates: d.covariates}
}

// Cohort is a numeric design table aligned with a genotype sample axis.
// Row r of Phenotype and of every covariate column belongs to genotype sample
// SampleIndex[r].
type Cohort struct {
	IDs            []string
	PhenotypeName  string
	Phenotype      []float64
	CovariateNames []string
	Covariates     [][]float64 // one slice per covariate column
	SampleIndex    []int
	NonNumeric     []string // columns holding values that are neither numbers nor missing
}

// Build converts the design table into a Cohort for the given phenotype column
// and genotype sample axis. Rows are first restricted to the genotype samples.
// Each row maps to the genotype sample with the identical FID, or failing that
// the first sample sharing its subject key.
func (d *Design) Build(phenotype string, genotypeFIDs []string) (*Cohort, error) {
	if phenotype == "" {
		return nil, errs.Missing("phenotype column")
	}
	if err := requireColumns(d.frame, "design table", []string{phenotype}); err != nil {
		return nil, err
	}
	for _, c := range d.covariates {
		if c == phenotype {
			return nil, errs.Invalid("covariates", "phenotype column %q is also listed as a covariate", phenotype)
		}
	}

	restricted := d.Restrict(genotypeFIDs)
	df := restricted.frame

	exact := make(map[string]int, len(genotypeFIDs))
	byKey := make(map[string]int, len(genotypeFIDs))
	for i, id := range genotypeFIDs {
		if _, ok := exact[id]; !ok {
			exact[id] = i
		}
		k := genotype.SubjectKey(id)
		if _, ok := byKey[k]; !ok {
			byKey[k] = i
		}
	}

	c := &Cohort{PhenotypeName: phenotype, CovariateNames: d.covariates}
	if df.Nrow() == 0 {
		c.Covariates = make([][]float64, len(d.covariates))
		return c, nil
	}

	c.IDs = df.Col(SubjectColumn).Records()
	c.SampleIndex = make([]int, len(c.IDs))
	for r, id := range c.IDs {
		if i, ok := exact[id]; ok {
			c.SampleIndex[r] = i
		} else {
			c.SampleIndex[r] = byKey[genotype.SubjectKey(id)]
		}
	}

	var ok bool
	if c.Phenotype, ok = numericColumn(df, phenotype); !ok {
		c.NonNumeric = append(c.NonNumeric, phenotype)
	}
	for _, name := range d.covariates {
		col, ok := numericColumn(df, name)
		if !ok {
			c.NonNumeric = append(c.NonNumeric, name)
		}
		c.Covariates = append(c.Covariates, col)
	}
	return c, nil
}

// Len returns the number of subjects in the cohort.
func (c *Cohort) Len() int { return len(c.IDs) }

func hasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func requireColumns(df dataframe.DataFrame, input string, names []string) error {
	for _, n := range names {
		if !hasColumn(df, n) {
			return errs.Missing(fmt.Sprintf("column %q in %s", n, input))
		}
	}
	return nil
}

// isMissing reports whether a raw cell denotes a missing value.
func isMissing(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "NA", "N/A", "NaN", "nan", "null", "NULL", ".":
		return true
	}
	return false
}

// dropMissing removes every row holding a missing value in any column.
func dropMissing(df dataframe.DataFrame) dataframe.DataFrame {
	for _, name := range df.Names() {
		df = df.Filter(dataframe.F{
			Colname:    name,
			Comparator: series.CompFunc,
			Comparando: func(el series.Element) bool {
				return !el.IsNA() && !isMissing(el.String())
			},
		})
	}
	return df
}

// numericColumn parses a column as float64. Missing cells become NaN; ok is
// false if any other cell fails to parse.
func numericColumn(df dataframe.DataFrame, name string) ([]float64, bool) {
	records := df.Col(name).Records()
	out := make([]float64, len(records))
	ok := true
	for i, s := range records {
		if isMissing(s) {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			out[i] = math.NaN()
			ok = false
			continue
		}
		out[i] = v
	}
	return out, ok
}
