package annotate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gwas/internal/errs"
)

func TestAnnotate_DropsVariantsWithoutGenes(t *testing.T) {
	a := NewAnnotator([]Gene{
		{ID: "G1", Chrom: "1", Start: 0, Stop: 200, Strand: "+", Name: "ONE"},
		{ID: "G2", Chrom: "2", Start: 50, Stop: 150, Strand: "-", Name: "TWO"},
	})

	res, err := a.Annotate([]string{"1:100", "1:5000000", "2:100"}, 0)
	require.NoError(t, err)

	require.Len(t, res.Genes, 2)
	assert.Equal(t, "G1", res.Genes[0].ID)
	assert.Equal(t, 1, res.Genes[0].NSNP())
	assert.Equal(t, []string{"1:100"}, res.Genes[0].SNPs)
	assert.Equal(t, 1, res.Genes[1].NSNP())
	assert.Equal(t, []string{"TWO"}, res.Genes[1].Names)

	require.Len(t, res.Variants, 2)
	assert.Equal(t, "1:100", res.Variants[0].SNP)
	assert.Equal(t, "2:100", res.Variants[1].SNP)
	assert.Equal(t, []string{"G2"}, res.Variants[1].GeneIDs)
	assert.Equal(t, 1, res.Variants[1].NGenes())
}

func TestAnnotate_CountsDistinctHits(t *testing.T) {
	a := NewAnnotator([]Gene{
		{ID: "G1", Chrom: "1", Start: 0, Stop: 200, Name: "ONE"},
		{ID: "G1", Chrom: "1", Start: 0, Stop: 200, Name: "UNO"},
	})

	res, err := a.Annotate([]string{"1:100", "1:100"}, 0)
	require.NoError(t, err)

	require.Len(t, res.Genes, 1)
	assert.Equal(t, []string{"ONE", "UNO"}, res.Genes[0].Names)
	assert.Equal(t, []string{"1:100"}, res.Genes[0].SNPs)
	assert.Equal(t, 1, res.Genes[0].NSNP())

	require.Len(t, res.Variants, 1)
	assert.Equal(t, []string{"G1"}, res.Variants[0].GeneIDs)
	assert.Equal(t, []string{"ONE"}, res.Variants[0].GeneNames)
	assert.Equal(t, 1, res.Variants[0].NGenes())
}

func TestAnnotate_Window(t *testing.T) {
	genes := []Gene{{ID: "G", Chrom: "1", Start: 1100001, Stop: 1200000, Name: "G"}}

	tests := []struct {
		kb   float64
		want int
	}{
		{0, 0},
		{100, 0},
		{100.001, 0},
		{100.002, 1},
		{150, 1},
	}
	for _, tt := range tests {
		res, err := NewAnnotator(genes).Annotate([]string{"1:1000000"}, tt.kb)
		require.NoError(t, err)
		assert.Len(t, res.Genes, tt.want, "window %v kb", tt.kb)
	}

	res, err := NewAnnotator([]Gene{{ID: "H", Chrom: "1", Start: 900000, Stop: 1100000, Name: "H"}}).
		Annotate([]string{"1:1000000"}, 0)
	require.NoError(t, err)
	assert.Len(t, res.Genes, 1)
}

func TestAnnotate_ManyToMany(t *testing.T) {
	a := NewAnnotator([]Gene{
		{ID: "A", Chrom: "1", Start: 100, Stop: 300, Name: "GENEA"},
		{ID: "B", Chrom: "1", Start: 150, Stop: 250, Name: "GENEB"},
		{ID: "A", Chrom: "1", Start: 100, Stop: 300, Name: "GENEA-AS"},
	})

	res, err := a.Annotate([]string{"1:200", "1:120", "1:200"}, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, res.GeneIDs())
	assert.Equal(t, []string{"GENEA", "GENEA-AS"}, res.Genes[0].Names)
	assert.Equal(t, []string{"1:200", "1:120"}, res.Genes[0].SNPs)
	assert.Equal(t, []string{"1:200"}, res.Genes[1].SNPs)
	assert.Equal(t, []string{"GENEA", "GENEB"}, res.GeneNames())

	require.Len(t, res.Variants, 2)
	assert.Equal(t, []string{"A", "B"}, res.Variants[0].GeneIDs)
	assert.Equal(t, []string{"GENEA", "GENEB"}, res.Variants[0].GeneNames)
	assert.Equal(t, 2, res.Variants[0].NGenes())
}

func TestAnnotate_Errors(t *testing.T) {
	a := NewAnnotator(nil)

	_, err := a.Annotate([]string{"rs123"}, 0)
	var fe *errs.FormatError
	assert.True(t, errors.As(err, &fe))

	_, err = a.Annotate([]string{"1:abc"}, 0)
	assert.True(t, errors.As(err, &fe))

	_, err = a.Annotate([]string{"1:100"}, -1)
	var ve *errs.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestParseVariantID(t *testing.T) {
	chrom, pos, err := ParseVariantID("X:155700:A:G")
	require.NoError(t, err)
	assert.Equal(t, "X", chrom)
	assert.Equal(t, int64(155700), pos)
}

func TestReadVariantList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snps.txt")
	require.NoError(t, os.WriteFile(path, []byte("1:100\n\n  2:300  \n"), 0o644))

	got, err := ReadVariantList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1:100", "2:300"}, got)
}

func TestAnnotate_ReferenceFile(t *testing.T) {
	genes, err := LoadReference("testdata/genes.loc")
	require.NoError(t, err)

	res, err := NewAnnotator(genes).Annotate([]string{"1:879700", "17:7570000", "X:155700", "23:155700"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"148398", "26155", "7157", "8233"}, res.GeneIDs())
	assert.Len(t, res.Variants, 3)
}
