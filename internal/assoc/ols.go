package assoc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// maxCondition bounds the condition number of the column-scaled normal
// equations; above it the design is treated as rank deficient.
const maxCondition = 1e12

var (
	errTooFewObservations = errors.New("fewer complete observations than model parameters")
	errRankDeficient      = errors.New("design matrix is not full rank")
	errZeroVariance       = errors.New("zero residual variance")
)

// fit holds the estimates for the last design column.
type fit struct {
	Beta float64
	SE   float64
	T    float64
	P    float64
	N    int
}

// fitLast regresses y on an intercept plus cols by ordinary least squares and
// returns the estimates for the final column. Rows with a NaN in y or in any
// column are dropped before fitting. The p-value is two-sided against a
// Student-t with n-p degrees of freedom.
func fitLast(y []float64, cols [][]float64) (fit, error) {
	p := len(cols) + 1

	rows := make([]int, 0, len(y))
	for r := range y {
		if math.IsNaN(y[r]) {
			continue
		}
		complete := true
		for _, c := range cols {
			if math.IsNaN(c[r]) {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}
	n := len(rows)
	if n <= p {
		return fit{N: n}, fmt.Errorf("%w: %d observations, %d parameters", errTooFewObservations, n, p)
	}

	// Columns are scaled to unit norm so the conditioning check does not
	// depend on the units of the covariates.
	x := mat.NewDense(n, p, nil)
	yv := mat.NewVecDense(n, nil)
	for i, r := range rows {
		x.Set(i, 0, 1)
		for j, c := range cols {
			x.Set(i, j+1, c[r])
		}
		yv.SetVec(i, y[r])
	}
	scale := make([]float64, p)
	for j := 0; j < p; j++ {
		col := mat.Col(nil, j, x)
		scale[j] = floats.Norm(col, 2)
		if scale[j] == 0 {
			return fit{N: n}, fmt.Errorf("%w: column %d is all zero", errRankDeficient, j)
		}
		floats.Scale(1/scale[j], col)
		x.SetCol(j, col)
	}

	xtx := mat.NewSymDense(p, nil)
	xtx.SymOuterK(1, x.T())

	var chol mat.Cholesky
	if ok := chol.Factorize(xtx); !ok {
		return fit{N: n}, errRankDeficient
	}
	if cond := chol.Cond(); cond > maxCondition {
		return fit{N: n}, fmt.Errorf("%w: condition number %.3g", errRankDeficient, cond)
	}

	var xty mat.VecDense
	xty.MulVec(x.T(), yv)
	var b mat.VecDense
	if err := chol.SolveVecTo(&b, &xty); err != nil {
		return fit{N: n}, fmt.Errorf("%w: %v", errRankDeficient, err)
	}

	var resid mat.VecDense
	resid.MulVec(x, &b)
	resid.SubVec(yv, &resid)
	df := float64(n - p)
	rss := mat.Dot(&resid, &resid)
	if rss <= 1e-20*mat.Dot(yv, yv) {
		return fit{N: n}, errZeroVariance
	}
	sigma2 := rss / df

	// Variance of the last coefficient is sigma² times the last diagonal
	// element of (XᵀX)⁻¹.
	last := mat.NewVecDense(p, nil)
	last.SetVec(p-1, 1)
	var v mat.VecDense
	if err := chol.SolveVecTo(&v, last); err != nil {
		return fit{N: n}, fmt.Errorf("%w: %v", errRankDeficient, err)
	}
	seScaled := math.Sqrt(sigma2 * v.AtVec(p-1))
	bScaled := b.AtVec(p - 1)

	t := bScaled / seScaled
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return fit{
		Beta: bScaled / scale[p-1],
		SE:   seScaled / scale[p-1],
		T:    t,
		P:    2 * dist.Survival(math.Abs(t)),
		N:    n,
	}, nil
}
