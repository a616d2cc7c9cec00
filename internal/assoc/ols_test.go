package assoc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestFitLast_SimpleRegression(t *testing.T) {
	x := []float64{0, 1, 2, 0, 1, 2}
	y := []float64{1.0, 2.1, 2.9, 1.2, 1.9, 3.2}

	f, err := fitLast(y, [][]float64{x})
	require.NoError(t, err)

	// beta = Sxy/Sxx = 3.9/4; se = sqrt(RSS/(n-2)/Sxx) with RSS = 0.0925.
	se := math.Sqrt(0.0925 / 4 / 4)
	assert.InDelta(t, 0.975, f.Beta, 1e-9)
	assert.InDelta(t, se, f.SE, 1e-9)
	assert.InDelta(t, 0.975/se, f.T, 1e-6)
	want := 2 * distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 4}.Survival(0.975/se)
	assert.InDelta(t, want, f.P, 1e-12)
	assert.Less(t, f.P, 1e-3)
	assert.Equal(t, 6, f.N)
}

func TestFitLast_CovariateAdjusted(t *testing.T) {
	c := []float64{40, 35, 50, 61, 44, 39, 58, 47}
	x := []float64{0, 1, 2, 1, 0, 2, 1, 0}
	noise := []float64{0.01, -0.02, 0.015, -0.01, 0.005, -0.005, 0.02, -0.015}
	y := make([]float64, len(c))
	for i := range y {
		y[i] = 2 + 0.5*c[i] + 1.5*x[i] + noise[i]
	}

	f, err := fitLast(y, [][]float64{c, x})
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f.Beta, 0.05)
	assert.Greater(t, f.T, 10.0)
}

func TestFitLast_ListwiseDeletion(t *testing.T) {
	x := []float64{0, 1, 2, math.NaN(), 0, 1, 2}
	y := []float64{1.0, 2.1, 2.9, 100, 1.2, 1.9, math.NaN()}

	f, err := fitLast(y, [][]float64{x})
	require.NoError(t, err)
	assert.Equal(t, 5, f.N)
}

func TestFitLast_Failures(t *testing.T) {
	tests := []struct {
		name string
		y    []float64
		cols [][]float64
		want error
	}{
		{
			name: "monomorphic dosage",
			y:    []float64{1, 2, 3, 4},
			cols: [][]float64{{1, 1, 1, 1}},
			want: errRankDeficient,
		},
		{
			name: "all-zero dosage",
			y:    []float64{1, 2, 3, 4},
			cols: [][]float64{{0, 0, 0, 0}},
			want: errRankDeficient,
		},
		{
			name: "collinear covariate",
			y:    []float64{1, 2, 3, 4, 2},
			cols: [][]float64{{0, 1, 2, 1, 0}, {0, 2, 4, 2, 0}},
			want: errRankDeficient,
		},
		{
			name: "too few observations",
			y:    []float64{1, 2},
			cols: [][]float64{{0, 1}},
			want: errTooFewObservations,
		},
		{
			name: "perfect fit",
			y:    []float64{1, 3, 5, 7},
			cols: [][]float64{{0, 1, 2, 3}},
			want: errZeroVariance,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fitLast(tt.y, tt.cols)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}
