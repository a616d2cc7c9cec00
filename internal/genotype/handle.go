package genotype

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/inodb/vibe-gwas/internal/errs"
)

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourcePath
	sourceStore
)

// Source is either a path to a genotype file set or an already open Store.
// The zero value is neither and is rejected by Open.
type Source struct {
	kind  sourceKind
	path  string
	store Store
}

// Path returns a Source that opens the genotype data at p. Paths ending in
// .vcf or .vcf.gz are read as VCF; anything else is a PLINK prefix
// (a trailing .bed, .bim or .fam is stripped).
func Path(p string) Source {
	return Source{kind: sourcePath, path: p}
}

// FromStore returns a Source wrapping an open store.
func FromStore(s Store) Source {
	if s == nil {
		return Source{}
	}
	return Source{kind: sourceStore, store: s}
}

// Handle is an open genotype store whose dosage block is read at most once.
type Handle struct {
	store        Store
	samples      []Sample
	variants     []VariantInfo
	genotype     *mat.Dense
	materialized bool
	logger       *zap.Logger
}

// Open resolves src into a Handle.
func Open(src Source) (*Handle, error) {
	var store Store
	switch src.kind {
	case sourcePath:
		s, err := openPath(src.path)
		if err != nil {
			return nil, err
		}
		store = s
	case sourceStore:
		store = src.store
	default:
		return nil, &errs.FormatError{Input: "genotype", Message: "expected a genotype path or an open genotype store"}
	}

	h := &Handle{
		store:    store,
		samples:  store.Samples(),
		variants: store.Variants(),
		logger:   zap.NewNop(),
	}

	// An in-memory matrix is materialized by construction.
	if m, ok := store.(*Matrix); ok {
		h.genotype = m.dosage
		h.materialized = true
	}
	return h, nil
}

func openPath(p string) (Store, error) {
	if p == "" {
		return nil, &errs.FormatError{Input: "genotype", Message: "empty path"}
	}
	lower := strings.ToLower(p)
	if strings.HasSuffix(lower, ".vcf") || strings.HasSuffix(lower, ".vcf.gz") {
		return OpenVCF(p)
	}
	for _, ext := range []string{".bed", ".bim", ".fam"} {
		if strings.HasSuffix(lower, ext) {
			p = p[:len(p)-len(ext)]
			break
		}
	}
	return OpenPLINK(p)
}

// SetLogger sets the logger for informational messages.
func (h *Handle) SetLogger(l *zap.Logger) {
	h.logger = l
}

// Materialized reports whether the dosage block is already in memory.
func (h *Handle) Materialized() bool {
	return h.materialized
}

// Materialize reads the dosage block from the store unless it is already in memory.
func (h *Handle) Materialize() error {
	if h.materialized {
		return nil
	}
	g, err := h.store.Read()
	if err != nil {
		return fmt.Errorf("read genotypes: %w", err)
	}
	h.genotype = g
	h.materialized = true
	h.logger.Info("materialized genotypes",
		zap.Int("samples", len(h.samples)),
		zap.Int("variants", len(h.variants)))
	return nil
}

// Samples returns the store's sample metadata.
func (h *Handle) Samples() []Sample { return h.samples }

// Variants returns the store's variant metadata.
func (h *Handle) Variants() []VariantInfo { return h.variants }

// Subset returns the dosage block restricted to the given variants and samples.
// A nil variantIDs or sampleIDs keeps the whole axis. Samples are matched on
// SubjectKey of both the requested id and the store FID. Axis order follows the
// store; metadata and dosage columns/rows are always re-indexed together.
func (h *Handle) Subset(variantIDs, sampleIDs []string) (*Matrix, error) {
	if err := h.Materialize(); err != nil {
		return nil, err
	}

	variantIdx := make([]int, 0, len(h.variants))
	if variantIDs == nil {
		for j := range h.variants {
			variantIdx = append(variantIdx, j)
		}
	} else {
		want := make(map[string]struct{}, len(variantIDs))
		for _, id := range variantIDs {
			want[id] = struct{}{}
		}
		for j, v := range h.variants {
			if _, ok := want[v.ID]; ok {
				variantIdx = append(variantIdx, j)
			}
		}
	}

	sampleIdx := make([]int, 0, len(h.samples))
	if sampleIDs == nil {
		for i := range h.samples {
			sampleIdx = append(sampleIdx, i)
		}
	} else {
		want := make(map[string]struct{}, len(sampleIDs))
		for _, id := range sampleIDs {
			want[SubjectKey(id)] = struct{}{}
		}
		for i, s := range h.samples {
			if _, ok := want[SubjectKey(s.FID)]; ok {
				sampleIdx = append(sampleIdx, i)
			}
		}
	}

	samples := make([]Sample, len(sampleIdx))
	for k, i := range sampleIdx {
		samples[k] = h.samples[i]
	}
	variants := make([]VariantInfo, len(variantIdx))
	for k, j := range variantIdx {
		variants[k] = h.variants[j]
	}

	var dosage *mat.Dense
	if len(sampleIdx) > 0 && len(variantIdx) > 0 {
		dosage = mat.NewDense(len(sampleIdx), len(variantIdx), nil)
		for r, i := range sampleIdx {
			for c, j := range variantIdx {
				dosage.Set(r, c, h.genotype.At(i, j))
			}
		}
	}

	h.logger.Debug("subset genotypes",
		zap.Int("samples", len(samples)),
		zap.Int("variants", len(variants)))

	return NewMatrix(dosage, samples, variants)
}
