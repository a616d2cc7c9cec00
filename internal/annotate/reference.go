package annotate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Map columns in the gene reference table to their positions
const (
	refGeneID int = iota
	refChrom
	refStart
	refStop
	refStrand
	refGeneName
)

// Gene is one row of the gene reference table (MAGMA gene location layout:
// Genes_ID CHR Start Stop Strand Gene_Name).
type Gene struct {
	ID     string
	Chrom  string
	Start  int64
	Stop   int64
	Strand string
	Name   string
}

// LoadReference reads a gene reference table from path. Paths ending in .gtf
// or .gtf.gz are read as GTF.
func LoadReference(path string) ([]Gene, error) {
	if lower := strings.ToLower(path); strings.HasSuffix(lower, ".gtf") || strings.HasSuffix(lower, ".gtf.gz") {
		return LoadGTF(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gene reference: %w", err)
	}
	defer f.Close()
	return ReadReference(f)
}

// ReadReference reads a whitespace-delimited gene reference table. A first
// line whose Start column is not an integer is taken as a header and skipped.
func ReadReference(r io.Reader) ([]Gene, error) {
	var genes []Gene
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < refGeneName+1 {
			return nil, fmt.Errorf("gene reference line %d: expected 6 columns, found %d", lineNum, len(cols))
		}

		start, err := strconv.ParseInt(cols[refStart], 10, 64)
		if err != nil {
			if len(genes) == 0 && lineNum == 1 {
				continue
			}
			return nil, fmt.Errorf("gene reference line %d: invalid start %q", lineNum, cols[refStart])
		}
		stop, err := strconv.ParseInt(cols[refStop], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("gene reference line %d: invalid stop %q", lineNum, cols[refStop])
		}

		genes = append(genes, Gene{
			ID:     cols[refGeneID],
			Chrom:  cols[refChrom],
			Start:  start,
			Stop:   stop,
			Strand: cols[refStrand],
			Name:   cols[refGeneName],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gene reference: %w", err)
	}
	return genes, nil
}
