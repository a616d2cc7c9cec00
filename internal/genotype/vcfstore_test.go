package genotype

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenVCF(t *testing.T) {
	s, err := OpenVCF("../vcf/testdata/cohort.vcf")
	require.NoError(t, err)

	require.Len(t, s.Samples(), 3)
	assert.Equal(t, Sample{FID: "1003-2", IID: "1003-2", Father: "0", Mother: "0", Sex: "0", Pheno: "-9"}, s.Samples()[2])

	// The multi-allelic record on chromosome 2 is left out.
	require.Len(t, s.Variants(), 2)
	assert.Equal(t, 1, s.Skipped())
	assert.Equal(t, "rs1", s.Variants()[0].ID)
	assert.Equal(t, "1:5000000", s.Variants()[1].ID)
	assert.Equal(t, "G", s.Variants()[0].Allele1)
	assert.Equal(t, "A", s.Variants()[0].Allele2)

	g, err := s.Read()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 2}, []float64{g.At(0, 0), g.At(1, 0), g.At(2, 0)})
	assert.Equal(t, 0.9, g.At(0, 1))
	assert.True(t, math.IsNaN(g.At(1, 1)))
	assert.Equal(t, 0.1, g.At(2, 1))
}

func TestOpenVCF_Missing(t *testing.T) {
	_, err := OpenVCF("testdata/nope.vcf")
	assert.Error(t, err)
}
