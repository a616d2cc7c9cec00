package annotate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// GTF columns
const (
	gtfChrom int = iota
	gtfSource
	gtfFeature
	gtfStart
	gtfEnd
	gtfScore
	gtfStrand
	gtfPhase
	gtfAttributes
)

// LoadGTF reads the gene records of a GENCODE/Ensembl GTF file, gzipped if
// the path ends in .gz.
func LoadGTF(path string) ([]Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}
	return ReadGTF(reader)
}

// ReadGTF keeps the "gene" features of a GTF stream. Gene ids lose their
// version suffix and chromosomes their "chr" prefix so that they match
// PLINK-style variant ids. Genes without a gene_name use the id as name.
func ReadGTF(r io.Reader) ([]Gene, error) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var genes []Gene
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || line == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) <= gtfAttributes {
			return nil, fmt.Errorf("GTF line %d: expected 9 fields, found %d", lineNum, len(fields))
		}
		if fields[gtfFeature] != "gene" {
			continue
		}
		start, err := strconv.ParseInt(fields[gtfStart], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GTF line %d: invalid start %q", lineNum, fields[gtfStart])
		}
		end, err := strconv.ParseInt(fields[gtfEnd], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("GTF line %d: invalid end %q", lineNum, fields[gtfEnd])
		}

		attrs := parseAttributes(fields[gtfAttributes])
		id := stripVersion(attrs["gene_id"])
		if id == "" {
			return nil, fmt.Errorf("GTF line %d: gene without gene_id", lineNum)
		}
		name := attrs["gene_name"]
		if name == "" {
			name = id
		}
		genes = append(genes, Gene{
			ID:     id,
			Chrom:  strings.TrimPrefix(fields[gtfChrom], "chr"),
			Start:  start,
			Stop:   end,
			Strand: fields[gtfStrand],
			Name:   name,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}
	return genes, nil
}

// parseAttributes parses the GTF attribute column: key "value"; key "value"; ...
// Repeated keys keep the first value.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		key, value, ok := strings.Cut(part, " ")
		if !ok {
			continue
		}
		if _, seen := attrs[key]; !seen {
			attrs[key] = strings.Trim(strings.TrimSpace(value), "\"")
		}
	}
	return attrs
}

// stripVersion removes the version suffix from an Ensembl id,
// e.g. "ENSG00000223972.5" -> "ENSG00000223972".
func stripVersion(id string) string {
	if i := strings.LastIndex(id, "."); i != -1 {
		return id[:i]
	}
	return id
}
