// Package genotype wraps SNP-by-sample genotype stores and exposes aligned
// dosage matrices for association testing.
package genotype

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/inodb/vibe-gwas/internal/errs"
)

// SubjectDelimiter separates a subject identifier from a re-genotyping suffix (e.g., "1001-2").
const SubjectDelimiter = "-"

// SubjectKey returns the part of id before the first SubjectDelimiter.
// Two identifiers with equal keys refer to the same subject.
func SubjectKey(id string) string {
	if i := strings.Index(id, SubjectDelimiter); i >= 0 {
		return id[:i]
	}
	return id
}

// Sample holds the per-sample metadata of a genotype store (PLINK .fam layout).
type Sample struct {
	FID    string
	IID    string
	Father string
	Mother string
	Sex    string
	Pheno  string
}

// VariantInfo holds the per-variant metadata of a genotype store (PLINK .bim layout).
// Dosages count copies of Allele1.
type VariantInfo struct {
	ID       string
	Chrom    string
	CM       float64
	Position int64
	Allele1  string
	Allele2  string
}

// Store is a genotype source. Read returns a samples × variants dosage matrix
// whose axes follow Samples and Variants; missing calls are NaN.
type Store interface {
	Samples() []Sample
	Variants() []VariantInfo
	Read() (*mat.Dense, error)
}

// Matrix is an in-memory dosage block with index-aligned metadata.
// It satisfies Store, so an already subset matrix can be fed back into Open.
type Matrix struct {
	dosage   *mat.Dense // nil when either axis is empty
	samples  []Sample
	variants []VariantInfo
}

// NewMatrix builds a Matrix, checking that dosage dimensions match the metadata.
func NewMatrix(dosage *mat.Dense, samples []Sample, variants []VariantInfo) (*Matrix, error) {
	if len(samples) == 0 || len(variants) == 0 {
		return &Matrix{samples: samples, variants: variants}, nil
	}
	if dosage == nil {
		return nil, errs.Invalid("dosage matrix", "nil matrix for %d samples x %d variants", len(samples), len(variants))
	}
	r, c := dosage.Dims()
	if r != len(samples) || c != len(variants) {
		return nil, errs.Invalid("dosage matrix",
			"dimensions %dx%d do not match %d samples x %d variants", r, c, len(samples), len(variants))
	}
	return &Matrix{dosage: dosage, samples: samples, variants: variants}, nil
}

// Samples returns the sample axis metadata.
func (m *Matrix) Samples() []Sample { return m.samples }

// Variants returns the variant axis metadata.
func (m *Matrix) Variants() []VariantInfo { return m.variants }

// Read returns the dosage matrix itself.
func (m *Matrix) Read() (*mat.Dense, error) { return m.dosage, nil }

// NumSamples returns the length of the sample axis.
func (m *Matrix) NumSamples() int { return len(m.samples) }

// NumVariants returns the length of the variant axis.
func (m *Matrix) NumVariants() int { return len(m.variants) }

// At returns the dosage of variant j in sample i.
func (m *Matrix) At(i, j int) float64 { return m.dosage.At(i, j) }

// VariantIDs returns the variant identifiers in axis order.
func (m *Matrix) VariantIDs() []string {
	ids := make([]string, len(m.variants))
	for i, v := range m.variants {
		ids[i] = v.ID
	}
	return ids
}

// FIDs returns the family identifiers in sample axis order.
func (m *Matrix) FIDs() []string {
	ids := make([]string, len(m.samples))
	for i, s := range m.samples {
		ids[i] = s.FID
	}
	return ids
}
