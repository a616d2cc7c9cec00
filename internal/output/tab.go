// Package output writes and reads the tab-delimited result tables.
package output

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/assoc"
	"github.com/inodb/vibe-gwas/internal/enrich"
)

// Column layouts of the result tables.
var (
	AssociationColumns = []string{"SNP", "A1", "BETA", "STAT", "P", "CHR"}
	GeneColumns        = []string{"Gene_ID", "CHR", "START", "STOP", "NAME", "SNP", "N_SNP"}
	VariantColumns     = []string{"SNP_ID", "Genes_list", "N_Genes", "Genes_Name"}
	EnrichmentColumns  = []string{"GeneSet", "N_genes", "N_overlap", "p", "genes", "adjP"}
)

// listSep joins list-valued cells.
const listSep = ","

// TabWriter writes rows of a fixed column layout in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer for the given columns.
func NewTabWriter(w io.Writer, columns []string) *TabWriter {
	return &TabWriter{w: bufio.NewWriter(w), columns: columns}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes one row, which must have one value per column.
func (tw *TabWriter) WriteRow(values []string) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("write row: %d values for %d columns", len(values), len(tw.columns))
	}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatFloat renders v in the shortest exact form, or NA for NaN.
func FormatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTable(w io.Writer, columns []string, n int, row func(i int) []string) error {
	tw := NewTabWriter(w, columns)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := tw.WriteRow(row(i)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteAssociations writes the association table.
func WriteAssociations(w io.Writer, results []assoc.Result) error {
	return writeTable(w, AssociationColumns, len(results), func(i int) []string {
		r := results[i]
		return []string{r.SNP, r.A1, FormatFloat(r.Beta), FormatFloat(r.Stat), FormatFloat(r.P), r.Chr}
	})
}

// WriteGenes writes the gene-centric annotation table.
func WriteGenes(w io.Writer, genes []*annotate.GeneHit) error {
	return writeTable(w, GeneColumns, len(genes), func(i int) []string {
		g := genes[i]
		return []string{
			g.ID,
			g.Chrom,
			strconv.FormatInt(g.Start, 10),
			strconv.FormatInt(g.Stop, 10),
			strings.Join(g.Names, listSep),
			strings.Join(g.SNPs, listSep),
			strconv.Itoa(g.NSNP()),
		}
	})
}

// WriteVariants writes the variant-centric annotation table.
func WriteVariants(w io.Writer, variants []*annotate.VariantHit) error {
	return writeTable(w, VariantColumns, len(variants), func(i int) []string {
		v := variants[i]
		return []string{
			v.SNP,
			strings.Join(v.GeneIDs, listSep),
			strconv.Itoa(v.NGenes()),
			strings.Join(v.GeneNames, listSep),
		}
	})
}

// WriteEnrichment writes the gene-set enrichment table.
func WriteEnrichment(w io.Writer, results []enrich.SetResult) error {
	return writeTable(w, EnrichmentColumns, len(results), func(i int) []string {
		r := results[i]
		return []string{
			r.GeneSet,
			strconv.Itoa(r.NGenes),
			strconv.Itoa(r.NOverlap),
			FormatFloat(r.P),
			r.OverlapGenes(),
			FormatFloat(r.AdjP),
		}
	})
}
