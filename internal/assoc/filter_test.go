package assoc

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gwas/internal/errs"
)

func sampleResults() []Result {
	return []Result{
		{SNP: "rs1", Beta: 0.2, P: 0.01},
		{SNP: "rs2", Beta: -1.1, P: 0.05},
		{SNP: "rs3", Beta: 0.7, P: 0.2},
		{SNP: "rs4", Beta: 0.1, P: math.NaN()},
		{SNP: "rs5", Beta: 0.3, P: 0.001},
	}
}

func snps(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.SNP
	}
	return out
}

func TestFilter_DefaultsInclusive(t *testing.T) {
	got, err := Filter(sampleResults(), "", DefaultFilterThreshold)
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs2", "rs5"}, snps(got))
}

func TestFilter_Idempotent(t *testing.T) {
	once, err := Filter(sampleResults(), "P", 0.01)
	require.NoError(t, err)
	twice, err := Filter(once, "P", 0.01)
	require.NoError(t, err)
	looser, err := Filter(once, "P", 0.05)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	assert.Equal(t, once, looser)
}

func TestFilter_OtherColumn(t *testing.T) {
	got, err := Filter(sampleResults(), "beta", 0.2)
	require.NoError(t, err)
	assert.Equal(t, []string{"rs1", "rs2", "rs4"}, snps(got))
}

func TestFilter_UnknownColumn(t *testing.T) {
	_, err := Filter(sampleResults(), "CHR", 1)
	var ve *errs.ValidationError
	assert.True(t, errors.As(err, &ve))
}
