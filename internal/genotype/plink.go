package genotype

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Map columns in the BIM file to their positions
const (
	bimChromosome int = iota
	bimVariantID
	bimMorgans
	bimCoordinate
	bimAllele1
	bimAllele2
)

// Map columns in the FAM file to their positions
const (
	famFID int = iota
	famIID
	famFather
	famMother
	famSex
	famPheno
)

var bedMagic = [3]byte{0x6c, 0x1b, 0x01}

// PLINK is a PLINK 1 binary fileset (.bed/.bim/.fam) in SNP-major mode.
// Metadata is parsed on open; genotype bytes are only read by Read.
type PLINK struct {
	prefix   string
	samples  []Sample
	variants []VariantInfo
}

// OpenPLINK opens the fileset sharing the given path prefix.
func OpenPLINK(prefix string) (*PLINK, error) {
	samples, err := readFAM(prefix + ".fam")
	if err != nil {
		return nil, err
	}
	variants, err := readBIM(prefix + ".bim")
	if err != nil {
		return nil, err
	}
	return &PLINK{prefix: prefix, samples: samples, variants: variants}, nil
}

// Samples returns the .fam records.
func (p *PLINK) Samples() []Sample { return p.samples }

// Variants returns the .bim records.
func (p *PLINK) Variants() []VariantInfo { return p.variants }

// Read decodes the .bed file into a samples × variants matrix counting Allele1.
func (p *PLINK) Read() (*mat.Dense, error) {
	data, err := os.ReadFile(p.prefix + ".bed")
	if err != nil {
		return nil, fmt.Errorf("read bed file: %w", err)
	}
	if len(data) < 3 || data[0] != bedMagic[0] || data[1] != bedMagic[1] {
		return nil, fmt.Errorf("%s.bed: not a PLINK bed file", p.prefix)
	}
	if data[2] != bedMagic[2] {
		return nil, fmt.Errorf("%s.bed: only SNP-major mode is supported", p.prefix)
	}

	nSamples, nVariants := len(p.samples), len(p.variants)
	if nSamples == 0 || nVariants == 0 {
		return nil, nil
	}
	stride := (nSamples + 3) / 4
	if want := 3 + stride*nVariants; len(data) != want {
		return nil, fmt.Errorf("%s.bed: expected %d bytes for %d samples x %d variants, found %d",
			p.prefix, want, nSamples, nVariants, len(data))
	}

	dosage := mat.NewDense(nSamples, nVariants, nil)
	for j := 0; j < nVariants; j++ {
		block := data[3+j*stride : 3+(j+1)*stride]
		for i := 0; i < nSamples; i++ {
			code := (block[i/4] >> (2 * uint(i%4))) & 0x3
			dosage.Set(i, j, decodeBED(code))
		}
	}
	return dosage, nil
}

// decodeBED maps a 2-bit genotype code to the Allele1 count.
func decodeBED(code byte) float64 {
	switch code {
	case 0x0:
		return 2
	case 0x2:
		return 1
	case 0x3:
		return 0
	default:
		return math.NaN()
	}
}

func readFAM(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fam file: %w", err)
	}
	defer f.Close()

	var samples []Sample
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		cols := strings.Fields(scanner.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) < famPheno+1 {
			return nil, fmt.Errorf("%s line %d: expected 6 columns, found %d", path, lineNum, len(cols))
		}
		samples = append(samples, Sample{
			FID:    cols[famFID],
			IID:    cols[famIID],
			Father: cols[famFather],
			Mother: cols[famMother],
			Sex:    cols[famSex],
			Pheno:  cols[famPheno],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan fam file: %w", err)
	}
	return samples, nil
}

func readBIM(path string) ([]VariantInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bim file: %w", err)
	}
	defer f.Close()

	var variants []VariantInfo
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		cols := strings.Fields(scanner.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) < bimAllele2+1 {
			return nil, fmt.Errorf("%s line %d: expected 6 columns, found %d", path, lineNum, len(cols))
		}
		cm, err := strconv.ParseFloat(cols[bimMorgans], 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid genetic distance %q", path, lineNum, cols[bimMorgans])
		}
		pos, err := strconv.ParseInt(cols[bimCoordinate], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: invalid position %q", path, lineNum, cols[bimCoordinate])
		}
		variants = append(variants, VariantInfo{
			ID:       cols[bimVariantID],
			Chrom:    cols[bimChromosome],
			CM:       cm,
			Position: pos,
			Allele1:  cols[bimAllele1],
			Allele2:  cols[bimAllele2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan bim file: %w", err)
	}
	return variants, nil
}
