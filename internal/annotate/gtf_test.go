package annotate

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGTF = `##description: test
chr1	HAVANA	gene	11869	14409	.	+	.	gene_id "ENSG00000223972.5"; gene_type "transcribed_unprocessed_pseudogene"; gene_name "DDX11L1"; level 2;
chr1	HAVANA	transcript	11869	14409	.	+	.	gene_id "ENSG00000223972.5"; transcript_id "ENST00000456328.2"; gene_name "DDX11L1";
chr1	HAVANA	exon	11869	12227	.	+	.	gene_id "ENSG00000223972.5"; transcript_id "ENST00000456328.2"; exon_number 1;
chrX	ENSEMBL	gene	100	900	.	-	.	gene_id "ENSG00000000001"; gene_type "lncRNA";
`

func TestReadGTF(t *testing.T) {
	genes, err := ReadGTF(strings.NewReader(testGTF))
	require.NoError(t, err)
	require.Len(t, genes, 2)

	assert.Equal(t, Gene{ID: "ENSG00000223972", Chrom: "1", Start: 11869, Stop: 14409, Strand: "+", Name: "DDX11L1"}, genes[0])
	assert.Equal(t, "X", genes[1].Chrom)
	assert.Equal(t, "ENSG00000000001", genes[1].Name)
}

func TestReadGTF_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"short line", "chr1\tHAVANA\tgene\t1\t2\n"},
		{"bad start", "chr1\tHAVANA\tgene\tx\t2\t.\t+\t.\tgene_id \"G\";\n"},
		{"no gene id", "chr1\tHAVANA\tgene\t1\t2\t.\t+\t.\tgene_name \"A\";\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadGTF(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadReference_GTFGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genes.gtf.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(testGTF))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	genes, err := LoadReference(path)
	require.NoError(t, err)
	require.Len(t, genes, 2)

	res, err := NewAnnotator(genes).Annotate([]string{"1:12000", "X:50"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ENSG00000223972"}, res.GeneIDs())
	assert.Equal(t, []string{"DDX11L1"}, res.GeneNames())
}

func TestParseAttributes(t *testing.T) {
	attrs := parseAttributes(`gene_id "G1"; tag "basic"; tag "CCDS"; level 2;`)
	assert.Equal(t, "G1", attrs["gene_id"])
	assert.Equal(t, "basic", attrs["tag"])
	assert.Equal(t, "2", attrs["level"])
}

func TestStripVersion(t *testing.T) {
	assert.Equal(t, "ENSG00000223972", stripVersion("ENSG00000223972.5"))
	assert.Equal(t, "G1", stripVersion("G1"))
}
