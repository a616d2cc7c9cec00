package genotype

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/inodb/vibe-gwas/internal/vcf"
)

// VCF is a genotype store backed by a VCF file. Records are parsed once on
// open; multi-allelic records are skipped. Dosages count the ALT allele, so
// Allele1 is ALT and Allele2 is REF.
type VCF struct {
	samples  []Sample
	variants []VariantInfo
	rows     [][]float64 // one dosage row per kept variant
	skipped  int
}

// OpenVCF parses the VCF at path.
func OpenVCF(path string) (*VCF, error) {
	parser, err := vcf.NewParser(path)
	if err != nil {
		return nil, err
	}
	defer parser.Close()

	s := &VCF{}
	for _, name := range parser.SampleNames() {
		s.samples = append(s.samples, Sample{FID: name, IID: name, Father: "0", Mother: "0", Sex: "0", Pheno: "-9"})
	}

	for {
		v, err := parser.Next()
		if err != nil {
			return nil, fmt.Errorf("read variant: %w", err)
		}
		if v == nil {
			break
		}
		if !v.IsBiallelic() {
			s.skipped++
			continue
		}
		s.variants = append(s.variants, VariantInfo{
			ID:       v.Key(),
			Chrom:    v.Chrom,
			Position: v.Pos,
			Allele1:  v.Alt,
			Allele2:  v.Ref,
		})
		s.rows = append(s.rows, v.Dosages())
	}
	return s, nil
}

// Samples returns one record per VCF sample column; FID and IID are both the sample name.
func (s *VCF) Samples() []Sample { return s.samples }

// Variants returns the kept biallelic records.
func (s *VCF) Variants() []VariantInfo { return s.variants }

// Skipped returns the number of multi-allelic records left out.
func (s *VCF) Skipped() int { return s.skipped }

// Read transposes the parsed rows into a samples × variants matrix.
func (s *VCF) Read() (*mat.Dense, error) {
	if len(s.samples) == 0 || len(s.variants) == 0 {
		return nil, nil
	}
	dosage := mat.NewDense(len(s.samples), len(s.variants), nil)
	for j, row := range s.rows {
		for i, d := range row {
			dosage.Set(i, j, d)
		}
	}
	return dosage, nil
}
