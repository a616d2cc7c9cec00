// Package annotate maps variants onto genes by chromosome position.
package annotate

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/inodb/vibe-gwas/internal/errs"
)

// GeneHit is one gene touched by at least one variant.
type GeneHit struct {
	ID    string
	Chrom string
	Start int64
	Stop  int64
	Names []string // first-seen display name, then names of repeated ids
	SNPs  []string
}

// NSNP returns the number of variants mapped to the gene.
func (g *GeneHit) NSNP() int { return len(g.SNPs) }

// VariantHit is one variant overlapping at least one gene.
type VariantHit struct {
	SNP       string
	GeneIDs   []string
	GeneNames []string
}

// NGenes returns the number of genes the variant maps to.
func (v *VariantHit) NGenes() int { return len(v.GeneIDs) }

// Result holds the gene-centric and variant-centric cross references.
// Both tables are in first-seen order. Variants without any gene appear in
// neither.
type Result struct {
	Genes    []*GeneHit
	Variants []*VariantHit
}

// Annotator maps variants onto a gene reference.
type Annotator struct {
	index  *GeneIndex
	logger *zap.Logger
}

// NewAnnotator creates an annotator over the given reference genes.
func NewAnnotator(genes []Gene) *Annotator {
	return &Annotator{
		index:  NewGeneIndex(genes),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for informational messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// WindowBP converts a window in kilobases to base pairs.
func WindowBP(windowKB float64) (int64, error) {
	if math.IsNaN(windowKB) || windowKB < 0 {
		return 0, errs.Invalid("window", "must be a non-negative number of kilobases, got %v", windowKB)
	}
	return int64(math.Round(windowKB * 1000)), nil
}

// Annotate maps "chromosome:position" variant ids onto genes whose interval,
// widened by windowKB kilobases on both sides, strictly contains the position.
func (a *Annotator) Annotate(variantIDs []string, windowKB float64) (*Result, error) {
	window, err := WindowBP(windowKB)
	if err != nil {
		return nil, err
	}

	b := newCrossRefBuilder()
	unmapped := 0
	for _, id := range variantIDs {
		chrom, pos, err := ParseVariantID(id)
		if err != nil {
			return nil, err
		}
		genes := a.index.Find(chrom, pos, window)
		if len(genes) == 0 {
			unmapped++
			continue
		}
		for _, g := range genes {
			b.add(id, g)
		}
	}

	res := b.result()
	a.logger.Info("annotated variants",
		zap.Int("variants", len(variantIDs)),
		zap.Int("mapped", len(res.Variants)),
		zap.Int("unmapped", unmapped),
		zap.Int("genes", len(res.Genes)),
		zap.Int64("window_bp", window))
	return res, nil
}

// crossRefBuilder accumulates gene and variant hits keyed by id, keeping
// first-seen order.
type crossRefBuilder struct {
	genes    map[string]*GeneHit
	geneIDs  []string
	variants map[string]*VariantHit
	snpIDs   []string
}

func newCrossRefBuilder() *crossRefBuilder {
	return &crossRefBuilder{
		genes:    make(map[string]*GeneHit),
		variants: make(map[string]*VariantHit),
	}
}

func (b *crossRefBuilder) add(snp string, g *Gene) {
	gh, ok := b.genes[g.ID]
	if !ok {
		gh = &GeneHit{ID: g.ID, Chrom: g.Chrom, Start: g.Start, Stop: g.Stop}
		b.genes[g.ID] = gh
		b.geneIDs = append(b.geneIDs, g.ID)
	}
	gh.Names = appendUnique(gh.Names, g.Name)
	gh.SNPs = appendUnique(gh.SNPs, snp)

	vh, ok := b.variants[snp]
	if !ok {
		vh = &VariantHit{SNP: snp}
		b.variants[snp] = vh
		b.snpIDs = append(b.snpIDs, snp)
	}
	before := len(vh.GeneIDs)
	vh.GeneIDs = appendUnique(vh.GeneIDs, g.ID)
	if len(vh.GeneIDs) > before {
		vh.GeneNames = append(vh.GeneNames, g.Name)
	}
}

func (b *crossRefBuilder) result() *Result {
	res := &Result{
		Genes:    make([]*GeneHit, len(b.geneIDs)),
		Variants: make([]*VariantHit, len(b.snpIDs)),
	}
	for i, id := range b.geneIDs {
		res.Genes[i] = b.genes[id]
	}
	for i, id := range b.snpIDs {
		res.Variants[i] = b.variants[id]
	}
	return res
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// GeneIDs returns the ids of all hit genes in table order.
func (r *Result) GeneIDs() []string {
	ids := make([]string, len(r.Genes))
	for i, g := range r.Genes {
		ids[i] = g.ID
	}
	return ids
}

// GeneNames returns the first display name of each hit gene in table order.
func (r *Result) GeneNames() []string {
	names := make([]string, len(r.Genes))
	for i, g := range r.Genes {
		names[i] = g.Names[0]
	}
	return names
}

func (r *Result) String() string {
	return fmt.Sprintf("%d genes, %d variants", len(r.Genes), len(r.Variants))
}
