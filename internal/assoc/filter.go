package assoc

import (
	"strings"

	"github.com/inodb/vibe-gwas/internal/errs"
)

// Filter defaults.
const (
	DefaultFilterColumn    = "P"
	DefaultFilterThreshold = 0.05
)

// Column returns the value of a numeric result column by its table name
// (BETA, STAT, P, SE or N, case-insensitive).
func (r Result) Column(name string) (float64, bool) {
	switch strings.ToUpper(name) {
	case "BETA":
		return r.Beta, true
	case "STAT":
		return r.Stat, true
	case "P":
		return r.P, true
	case "SE":
		return r.SE, true
	case "N":
		return float64(r.N), true
	}
	return 0, false
}

// Filter returns the results whose column value is at most threshold, in
// input order. An empty column means P. NaN values never pass.
func Filter(results []Result, column string, threshold float64) ([]Result, error) {
	if column == "" {
		column = DefaultFilterColumn
	}
	if _, ok := (Result{}).Column(column); !ok {
		return nil, errs.Invalid("filter column", "%q is not a numeric association column", column)
	}

	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if v, _ := r.Column(column); v <= threshold {
			kept = append(kept, r)
		}
	}
	return kept, nil
}
