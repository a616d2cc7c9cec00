package assoc

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/vibe-gwas/internal/cohort"
	"github.com/inodb/vibe-gwas/internal/errs"
	"github.com/inodb/vibe-gwas/internal/genotype"
)

// testData returns a cohort of six subjects and a genotype matrix whose
// sample axis is the reverse of the cohort rows.
func testData(t *testing.T) (*cohort.Cohort, *genotype.Matrix) {
	t.Helper()
	c := &cohort.Cohort{
		IDs:            []string{"1", "2", "3", "4", "5", "6"},
		PhenotypeName:  "Y",
		Phenotype:      []float64{1.0, 2.1, 2.9, 1.2, 1.9, 3.2},
		CovariateNames: []string{},
		Covariates:     [][]float64{},
		SampleIndex:    []int{5, 4, 3, 2, 1, 0},
	}

	// Columns: rs1 informative, rs2 monomorphic, rs3 with a missing call.
	dosage := [][]float64{
		{0, 1, 0},
		{1, 1, 1},
		{2, 1, 2},
		{0, 1, math.NaN()},
		{1, 1, 1},
		{2, 1, 0},
	}
	data := make([]float64, 0, 18)
	for i := len(dosage) - 1; i >= 0; i-- {
		data = append(data, dosage[i]...)
	}
	samples := make([]genotype.Sample, 6)
	for i := range samples {
		samples[i] = genotype.Sample{FID: c.IDs[5-i]}
	}
	m, err := genotype.NewMatrix(mat.NewDense(6, 3, data), samples, []genotype.VariantInfo{
		{ID: "rs1", Chrom: "1", Allele1: "A"},
		{ID: "rs2", Chrom: "1", Allele1: "C"},
		{ID: "rs3", Chrom: "2", Allele1: "G"},
	})
	require.NoError(t, err)
	return c, m
}

func TestEngine_Run(t *testing.T) {
	c, m := testData(t)

	core, logs := observer.New(zap.WarnLevel)
	e := NewEngine()
	e.SetLogger(zap.New(core))
	e.SetWorkers(2)

	out, err := e.Run(c, m)
	require.NoError(t, err)

	require.Len(t, out.Results, 2)
	assert.Equal(t, "rs1", out.Results[0].SNP)
	assert.Equal(t, "A", out.Results[0].A1)
	assert.Equal(t, "1", out.Results[0].Chr)
	assert.InDelta(t, 0.975, out.Results[0].Beta, 1e-9)
	assert.Equal(t, 6, out.Results[0].N)

	assert.Equal(t, "rs3", out.Results[1].SNP)
	assert.Equal(t, 5, out.Results[1].N)

	require.Len(t, out.Failures, 1)
	assert.Equal(t, "rs2", out.Failures[0].Variant)
	assert.True(t, errors.Is(out.Failures[0], errRankDeficient))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "skipping variant", logs.All()[0].Message)
}

func TestEngine_NonNumericCovariate(t *testing.T) {
	c, m := testData(t)
	c.CovariateNames = []string{"Site"}
	c.Covariates = [][]float64{{math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()}}
	c.NonNumeric = []string{"Site"}

	out, err := NewEngine().Run(c, m)
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	require.Len(t, out.Failures, 3)
	assert.Contains(t, out.Failures[0].Error(), "dummy variables")
}

func TestEngine_BadSampleIndex(t *testing.T) {
	c, m := testData(t)
	c.SampleIndex[0] = 6

	_, err := NewEngine().Run(c, m)
	var ve *errs.ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = NewEngine().Run(nil, m)
	var me *errs.MissingInputError
	assert.True(t, errors.As(err, &me))
}

func TestEngine_OrderPreservation(t *testing.T) {
	const nSamples, nVariants = 40, 200
	c := &cohort.Cohort{
		Phenotype:   make([]float64, nSamples),
		SampleIndex: make([]int, nSamples),
		IDs:         make([]string, nSamples),
	}
	data := make([]float64, nSamples*nVariants)
	for i := 0; i < nSamples; i++ {
		c.IDs[i] = fmt.Sprint(i)
		c.SampleIndex[i] = i
		c.Phenotype[i] = float64(i%7) + 0.1*float64(i%3)
		for j := 0; j < nVariants; j++ {
			data[i*nVariants+j] = float64((i*(j+1) + j) % 3)
		}
	}
	samples := make([]genotype.Sample, nSamples)
	variants := make([]genotype.VariantInfo, nVariants)
	for j := range variants {
		variants[j] = genotype.VariantInfo{ID: fmt.Sprintf("rs%d", j), Chrom: "1"}
	}
	m, err := genotype.NewMatrix(mat.NewDense(nSamples, nVariants, data), samples, variants)
	require.NoError(t, err)

	e := NewEngine()
	e.SetWorkers(8)
	var buf bytes.Buffer
	e.SetProgress(&buf)
	out, err := e.Run(c, m)
	require.NoError(t, err)

	got := make([]string, 0, len(out.Results)+len(out.Failures))
	for _, r := range out.Results {
		got = append(got, r.SNP)
	}
	assert.Equal(t, nVariants, len(out.Results)+len(out.Failures))
	for i := 1; i < len(out.Results); i++ {
		var prev, cur int
		fmt.Sscanf(out.Results[i-1].SNP, "rs%d", &prev)
		fmt.Sscanf(out.Results[i].SNP, "rs%d", &cur)
		assert.Less(t, prev, cur, "results out of order at %d", i)
	}
	assert.NotEmpty(t, got)
}

func TestCollectOrdered_StopsOnError(t *testing.T) {
	results := make(chan workResult, 3)
	results <- workResult{Seq: 1}
	results <- workResult{Seq: 0}
	results <- workResult{Seq: 2}
	close(results)

	var seen []int
	err := collectOrdered(results, func(r workResult) error {
		seen = append(seen, r.Seq)
		if r.Seq == 1 {
			return errors.New("stop")
		}
		return nil
	})
	assert.EqualError(t, err, "stop")
	assert.Equal(t, []int{0, 1}, seen)
}
