package output

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/assoc"
	"github.com/inodb/vibe-gwas/internal/enrich"
)

func TestTabWriter_RowWidth(t *testing.T) {
	var buf bytes.Buffer
	w := NewTabWriter(&buf, []string{"a", "b"})
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteRow([]string{"1", "2"}))
	assert.Error(t, w.WriteRow([]string{"1"}))
	require.NoError(t, w.Flush())
	assert.Equal(t, "a\tb\n1\t2\n", buf.String())
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "NA", FormatFloat(math.NaN()))
	assert.Equal(t, "0.975", FormatFloat(0.975))
	assert.Equal(t, "1e-08", FormatFloat(1e-8))
}

func TestWriteAssociations(t *testing.T) {
	var buf bytes.Buffer
	err := WriteAssociations(&buf, []assoc.Result{
		{SNP: "rs1", A1: "A", Beta: 0.5, Stat: 2.25, P: 0.03, Chr: "1", SE: 0.2, N: 100},
		{SNP: "1:5000", A1: "T", Beta: -1, Stat: -3, P: math.NaN(), Chr: "X"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "SNP\tA1\tBETA\tSTAT\tP\tCHR", lines[0])
	assert.Equal(t, "rs1\tA\t0.5\t2.25\t0.03\t1", lines[1])
	assert.Equal(t, "1:5000\tT\t-1\t-3\tNA\tX", lines[2])
}

func TestReadAssociations_RoundTrip(t *testing.T) {
	in := []assoc.Result{
		{SNP: "rs1", A1: "A", Beta: 0.5, Stat: 2.25, P: 0.03, Chr: "1"},
		{SNP: "rs2", A1: "G", Beta: 0.125, Stat: 0.5, P: 0.6, Chr: "2"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteAssociations(&buf, in))

	out, err := ReadAssociations(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadAssociations_Errors(t *testing.T) {
	_, err := ReadAssociations(strings.NewReader(""))
	assert.ErrorContains(t, err, "missing header")

	_, err = ReadAssociations(strings.NewReader("SNP\tBETA\nrs1\t1\n"))
	assert.ErrorContains(t, err, "missing column P")

	_, err = ReadAssociations(strings.NewReader("SNP\tP\nrs1\t0.1\nrs2\tlow\n"))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestWriteAnnotationTables(t *testing.T) {
	genes := []*annotate.GeneHit{
		{ID: "G1", Chrom: "1", Start: 0, Stop: 200, Names: []string{"ONE", "ONE-AS"}, SNPs: []string{"1:100", "1:150"}},
	}
	variants := []*annotate.VariantHit{
		{SNP: "1:100", GeneIDs: []string{"G1", "G7"}, GeneNames: []string{"ONE", "SEVEN"}},
	}

	var gbuf, vbuf bytes.Buffer
	require.NoError(t, WriteGenes(&gbuf, genes))
	require.NoError(t, WriteVariants(&vbuf, variants))

	assert.Equal(t, "Gene_ID\tCHR\tSTART\tSTOP\tNAME\tSNP\tN_SNP\nG1\t1\t0\t200\tONE,ONE-AS\t1:100,1:150\t2\n", gbuf.String())
	assert.Equal(t, "SNP_ID\tGenes_list\tN_Genes\tGenes_Name\n1:100\tG1,G7\t2\tONE,SEVEN\n", vbuf.String())
}

func TestWriteEnrichment(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteEnrichment(&buf, []enrich.SetResult{
		{GeneSet: "S1", NGenes: 3, NOverlap: 2, P: 0.5, Genes: []string{"A", "B"}, AdjP: 1},
		{GeneSet: "S2", NGenes: 2, P: 1, AdjP: 1},
	}))
	assert.Equal(t,
		"GeneSet\tN_genes\tN_overlap\tp\tgenes\tadjP\nS1\t3\t2\t0.5\tA:B\t1\nS2\t2\t0\t1\t\t1\n",
		buf.String())
}
