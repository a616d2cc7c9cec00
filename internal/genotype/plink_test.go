package genotype

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFAM = `1001 1001 0 0 1 -9
1002 1002 0 0 2 -9
1003-2 1003-2 0 0 1 -9
`

const testBIM = `1	rs1	0	100	G	A
2	rs2	0.5	2500	T	C
`

// variant rs1: 2 1 0 ; variant rs2: NaN 0 2
var testBED = []byte{0x6c, 0x1b, 0x01, 0x38, 0x0d}

func writePLINK(t *testing.T, fam, bim string, bed []byte) string {
	t.Helper()
	prefix := filepath.Join(t.TempDir(), "cohort")
	require.NoError(t, os.WriteFile(prefix+".fam", []byte(fam), 0o644))
	require.NoError(t, os.WriteFile(prefix+".bim", []byte(bim), 0o644))
	require.NoError(t, os.WriteFile(prefix+".bed", bed, 0o644))
	return prefix
}

func TestOpenPLINK(t *testing.T) {
	prefix := writePLINK(t, testFAM, testBIM, testBED)

	p, err := OpenPLINK(prefix)
	require.NoError(t, err)

	require.Len(t, p.Samples(), 3)
	assert.Equal(t, "1003-2", p.Samples()[2].FID)
	assert.Equal(t, "2", p.Samples()[1].Sex)

	require.Len(t, p.Variants(), 2)
	assert.Equal(t, VariantInfo{ID: "rs2", Chrom: "2", CM: 0.5, Position: 2500, Allele1: "T", Allele2: "C"}, p.Variants()[1])

	g, err := p.Read()
	require.NoError(t, err)
	r, c := g.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)

	assert.Equal(t, 2.0, g.At(0, 0))
	assert.Equal(t, 1.0, g.At(1, 0))
	assert.Equal(t, 0.0, g.At(2, 0))
	assert.True(t, math.IsNaN(g.At(0, 1)))
	assert.Equal(t, 0.0, g.At(1, 1))
	assert.Equal(t, 2.0, g.At(2, 1))
}

func TestPLINK_ReadErrors(t *testing.T) {
	t.Run("bad magic", func(t *testing.T) {
		p, err := OpenPLINK(writePLINK(t, testFAM, testBIM, []byte{0, 0, 0, 0x38, 0x0d}))
		require.NoError(t, err)
		_, err = p.Read()
		assert.ErrorContains(t, err, "not a PLINK bed file")
	})

	t.Run("sample-major", func(t *testing.T) {
		p, err := OpenPLINK(writePLINK(t, testFAM, testBIM, []byte{0x6c, 0x1b, 0x00, 0x38, 0x0d}))
		require.NoError(t, err)
		_, err = p.Read()
		assert.ErrorContains(t, err, "SNP-major")
	})

	t.Run("truncated", func(t *testing.T) {
		p, err := OpenPLINK(writePLINK(t, testFAM, testBIM, testBED[:4]))
		require.NoError(t, err)
		_, err = p.Read()
		assert.ErrorContains(t, err, "expected 5 bytes")
	})
}

func TestOpenPLINK_BadMetadata(t *testing.T) {
	_, err := OpenPLINK(writePLINK(t, "1001 1001 0\n", testBIM, testBED))
	assert.ErrorContains(t, err, "expected 6 columns")

	_, err = OpenPLINK(writePLINK(t, testFAM, "1 rs1 0 abc G A\n", testBED))
	assert.ErrorContains(t, err, "invalid position")

	_, err = OpenPLINK(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorContains(t, err, "open fam file")
}

func TestDecodeBED(t *testing.T) {
	assert.Equal(t, 2.0, decodeBED(0))
	assert.True(t, math.IsNaN(decodeBED(1)))
	assert.Equal(t, 1.0, decodeBED(2))
	assert.Equal(t, 0.0, decodeBED(3))
}
