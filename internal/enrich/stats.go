package enrich

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat/combin"
)

// HypergeomSF returns P(X >= x) for X drawn from a hypergeometric
// distribution: draws items without replacement from a population of size
// population holding successes. Invalid parameters give NaN.
func HypergeomSF(x, population, successes, draws int) float64 {
	if population < 0 || successes < 0 || draws < 0 || successes > population || draws > population {
		return math.NaN()
	}
	lo := max(0, draws-(population-successes))
	hi := min(successes, draws)
	if x <= lo {
		return 1
	}
	if x > hi {
		return 0
	}

	logTotal := combin.LogGeneralizedBinomial(float64(population), float64(draws))
	var p float64
	for k := x; k <= hi; k++ {
		p += math.Exp(combin.LogGeneralizedBinomial(float64(successes), float64(k)) +
			combin.LogGeneralizedBinomial(float64(population-successes), float64(draws-k)) -
			logTotal)
	}
	return math.Min(p, 1)
}

// Bonferroni returns min(1, p*tests) for each p.
func Bonferroni(pvals []float64, tests int) []float64 {
	adj := make([]float64, len(pvals))
	for i, p := range pvals {
		adj[i] = math.Min(1, p*float64(tests))
	}
	return adj
}

// BenjaminiHochberg returns step-up adjusted p-values. NaN inputs stay NaN
// and do not count as tests.
func BenjaminiHochberg(pvals []float64) []float64 {
	adj := make([]float64, len(pvals))
	idx := make([]int, 0, len(pvals))
	for i, p := range pvals {
		if math.IsNaN(p) {
			adj[i] = math.NaN()
			continue
		}
		idx = append(idx, i)
	}
	n := len(idx)
	if n == 0 {
		return adj
	}

	sort.SliceStable(idx, func(i, j int) bool {
		return pvals[idx[i]] < pvals[idx[j]]
	})

	minP := 1.0
	for i := n - 1; i >= 0; i-- {
		orig := idx[i]
		adjusted := pvals[orig] * float64(n) / float64(i+1)
		if adjusted < minP {
			minP = adjusted
		}
		adj[orig] = minP
	}
	return adj
}
