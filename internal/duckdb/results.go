package duckdb

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/inodb/vibe-gwas/internal/annotate"
	"github.com/inodb/vibe-gwas/internal/assoc"
	"github.com/inodb/vibe-gwas/internal/enrich"
)

const listSep = ","

// WriteAssociations batch-inserts the association table of a run.
func (s *Store) WriteAssociations(runID int64, results []assoc.Result) error {
	return s.appendRows("association_results", len(results), func(i int) []driver.Value {
		r := results[i]
		return []driver.Value{runID, int64(i), r.SNP, r.A1, r.Beta, r.Stat, r.P, r.Chr, r.SE, int64(r.N)}
	})
}

// WriteAnnotation batch-inserts the gene and variant cross-reference tables of a run.
func (s *Store) WriteAnnotation(runID int64, res *annotate.Result) error {
	if err := s.appendRows("gene_annotations", len(res.Genes), func(i int) []driver.Value {
		g := res.Genes[i]
		return []driver.Value{runID, int64(i), g.ID, g.Chrom, g.Start, g.Stop,
			strings.Join(g.Names, listSep), strings.Join(g.SNPs, listSep), int64(g.NSNP())}
	}); err != nil {
		return err
	}
	return s.appendRows("variant_annotations", len(res.Variants), func(i int) []driver.Value {
		v := res.Variants[i]
		return []driver.Value{runID, int64(i), v.SNP,
			strings.Join(v.GeneIDs, listSep), int64(v.NGenes()), strings.Join(v.GeneNames, listSep)}
	})
}

// WriteEnrichment batch-inserts the gene-set enrichment table of a run.
func (s *Store) WriteEnrichment(runID int64, results []enrich.SetResult) error {
	return s.appendRows("geneset_enrichment", len(results), func(i int) []driver.Value {
		r := results[i]
		return []driver.Value{runID, int64(i), r.GeneSet, int64(r.NGenes), int64(r.NOverlap),
			r.P, r.OverlapGenes(), r.AdjP}
	})
}

// associationRow is one row of association_results.
type associationRow struct {
	SNP  string  `db:"snp"`
	A1   string  `db:"a1"`
	Beta float64 `db:"beta"`
	Stat float64 `db:"stat"`
	P    float64 `db:"p"`
	Chr  string  `db:"chr"`
	SE   float64 `db:"se"`
	N    int64   `db:"n"`
}

func (r associationRow) result() assoc.Result {
	return assoc.Result{SNP: r.SNP, A1: r.A1, Beta: r.Beta, Stat: r.Stat, P: r.P, Chr: r.Chr, SE: r.SE, N: int(r.N)}
}

func (s *Store) selectAssociations(query string, args ...any) ([]assoc.Result, error) {
	var rows []associationRow
	if err := s.x.Select(&rows, query, args...); err != nil {
		return nil, fmt.Errorf("query associations: %w", err)
	}
	results := make([]assoc.Result, len(rows))
	for i, r := range rows {
		results[i] = r.result()
	}
	return results, nil
}

// Associations returns the association table of a run in its original order.
func (s *Store) Associations(runID int64) ([]assoc.Result, error) {
	return s.selectAssociations(`SELECT snp, a1, beta, stat, p, chr, se, n
		FROM association_results WHERE run_id = ? ORDER BY seq`, runID)
}

// SignificantAssociations returns the rows of a run with p at most threshold,
// in original order.
func (s *Store) SignificantAssociations(runID int64, threshold float64) ([]assoc.Result, error) {
	return s.selectAssociations(`SELECT snp, a1, beta, stat, p, chr, se, n
		FROM association_results
		WHERE run_id = ? AND p <= ? AND NOT isnan(p)
		ORDER BY seq`, runID, threshold)
}

// GenesForVariant returns the gene ids a variant was mapped to in a run.
func (s *Store) GenesForVariant(runID int64, snp string) ([]string, error) {
	var ids string
	if err := s.x.Get(&ids, `SELECT gene_ids FROM variant_annotations WHERE run_id = ? AND snp = ?`, runID, snp); err != nil {
		return nil, fmt.Errorf("query variant annotation: %w", err)
	}
	return strings.Split(ids, listSep), nil
}

// enrichmentRow is one row of geneset_enrichment.
type enrichmentRow struct {
	GeneSet  string  `db:"gene_set"`
	NGenes   int64   `db:"n_genes"`
	NOverlap int64   `db:"n_overlap"`
	P        float64 `db:"p"`
	Genes    string  `db:"genes"`
	AdjP     float64 `db:"adj_p"`
}

// EnrichedSets returns the enrichment rows of a run with adjusted p at most
// threshold, most significant first.
func (s *Store) EnrichedSets(runID int64, threshold float64) ([]enrich.SetResult, error) {
	var rows []enrichmentRow
	err := s.x.Select(&rows, `SELECT gene_set, n_genes, n_overlap, p, genes, adj_p
		FROM geneset_enrichment
		WHERE run_id = ? AND adj_p <= ? AND NOT isnan(adj_p)
		ORDER BY adj_p, seq`, runID, threshold)
	if err != nil {
		return nil, fmt.Errorf("query enrichment: %w", err)
	}
	results := make([]enrich.SetResult, len(rows))
	for i, r := range rows {
		results[i] = enrich.SetResult{
			GeneSet:  r.GeneSet,
			NGenes:   int(r.NGenes),
			NOverlap: int(r.NOverlap),
			P:        r.P,
			AdjP:     r.AdjP,
		}
		if r.Genes != "" {
			results[i].Genes = strings.Split(r.Genes, ":")
		}
	}
	return results, nil
}
