package annotate

import "sort"

// GeneIndex answers windowed overlap queries against the gene reference,
// one sorted interval slice per chromosome.
type GeneIndex struct {
	chroms map[string]*intervalTree
	size   int
}

// intervalTree provides O(log n + k) overlap queries using a sorted-slice approach.
type intervalTree struct {
	intervals []interval
	maxStop   []int64 // maxStop[i] = max(stop) for intervals[:i+1]
}

type interval struct {
	start int64
	stop  int64
	row   int // position in the reference slice
	gene  *Gene
}

// NewGeneIndex builds an index over genes. Chromosome names are compared
// exactly as written, so "X", "23" and "chrX" are distinct.
func NewGeneIndex(genes []Gene) *GeneIndex {
	byChrom := make(map[string][]interval)
	for i := range genes {
		g := &genes[i]
		byChrom[g.Chrom] = append(byChrom[g.Chrom], interval{start: g.Start, stop: g.Stop, row: i, gene: g})
	}

	idx := &GeneIndex{chroms: make(map[string]*intervalTree, len(byChrom)), size: len(genes)}
	for chrom, ivs := range byChrom {
		idx.chroms[chrom] = buildIntervalTree(ivs)
	}
	return idx
}

func buildIntervalTree(intervals []interval) *intervalTree {
	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Build prefix-max array: maxStop[i] = max(stop) for intervals[:i+1]
	maxStop := make([]int64, len(intervals))
	maxStop[0] = intervals[0].stop
	for i := 1; i < len(intervals); i++ {
		maxStop[i] = intervals[i].stop
		if maxStop[i-1] > maxStop[i] {
			maxStop[i] = maxStop[i-1]
		}
	}
	return &intervalTree{intervals: intervals, maxStop: maxStop}
}

// Len returns the number of indexed genes.
func (idx *GeneIndex) Len() int { return idx.size }

// Find returns the genes on chrom with Start-window < pos < Stop+window,
// in reference order.
func (idx *GeneIndex) Find(chrom string, pos, window int64) []*Gene {
	t, ok := idx.chroms[chrom]
	if !ok {
		return nil
	}

	// Candidates satisfy start < pos+window; hi is the first that does not.
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start >= pos+window
	})

	var hits []interval
	for i := hi - 1; i >= 0; i-- {
		// No interval in [0, i] reaches past pos-window.
		if t.maxStop[i] <= pos-window {
			break
		}
		if t.intervals[i].stop > pos-window {
			hits = append(hits, t.intervals[i])
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		return hits[i].row < hits[j].row
	})
	result := make([]*Gene, len(hits))
	for i, h := range hits {
		result[i] = h.gene
	}
	return result
}
