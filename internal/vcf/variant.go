package vcf

import (
	"math"
	"strconv"
	"strings"
)

// Variant represents a single VCF record together with its per-sample genotype fields.
type Variant struct {
	Chrom   string   // Chromosome name as encoded in the file (e.g., "12", "chr12")
	Pos     int64    // 1-based genomic position
	ID      string   // Variant identifier (e.g., rs ID, "." when absent)
	Ref     string   // Reference allele
	Alt     string   // Alternate allele(s), comma separated
	Filter  string   // Filter status (PASS or filter name)
	Format  []string // FORMAT keys (e.g., GT, DS)
	Samples []string // raw per-sample columns, same order as Parser.SampleNames
}

// IsBiallelic returns true if the record has exactly one alternate allele.
func (v *Variant) IsBiallelic() bool {
	return v.Alt != "." && !strings.Contains(v.Alt, ",")
}

// Key returns the record identifier, falling back to "chrom:pos" when ID is missing.
func (v *Variant) Key() string {
	if v.ID == "" || v.ID == "." {
		return v.Chrom + ":" + strconv.FormatInt(v.Pos, 10)
	}
	return v.ID
}

// Dosages returns one alternate-allele dosage per sample.
// The DS field is preferred when present; otherwise the ALT count is taken from GT.
// Missing or unparseable genotypes yield NaN.
func (v *Variant) Dosages() []float64 {
	gtIdx, dsIdx := -1, -1
	for i, key := range v.Format {
		switch key {
		case "GT":
			gtIdx = i
		case "DS":
			dsIdx = i
		}
	}

	out := make([]float64, len(v.Samples))
	for i, sample := range v.Samples {
		fields := strings.Split(sample, ":")
		out[i] = math.NaN()
		if dsIdx >= 0 && dsIdx < len(fields) {
			if ds, err := strconv.ParseFloat(fields[dsIdx], 64); err == nil {
				out[i] = ds
				continue
			}
		}
		if gtIdx >= 0 && gtIdx < len(fields) {
			out[i] = altCount(fields[gtIdx])
		}
	}
	return out
}

// altCount counts non-reference alleles in a GT string such as "0/1" or "1|1".
func altCount(gt string) float64 {
	alleles := strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' })
	if len(alleles) == 0 {
		return math.NaN()
	}
	n := 0.0
	for _, a := range alleles {
		switch a {
		case ".":
			return math.NaN()
		case "0":
		default:
			n++
		}
	}
	return n
}
