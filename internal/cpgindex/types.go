// Package cpgindex implements the per-reference-genome CpG index (spec.md
// §4.2): the ordered list of CpG dinucleotide positions on every
// chromosome of a reference build, and the coordinate→offset mapping a
// methylome's count vector is addressed by.
package cpgindex

import (
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// FileExtension is the suffix every CpG index binary file carries.
const FileExtension = ".cpg_idx"

// GenomicInterval is a half-open [Start, Stop) interval on chromosome
// ChromID. ChromID of -1 denotes an unknown chromosome (spec.md §3).
type GenomicInterval struct {
	ChromID int32
	Start   uint32
	Stop    uint32
}

// OffsetPair is a half-open [Begin, End) range of global CpG offsets,
// i.e. indices into a methylome's count vector.
type OffsetPair struct {
	Begin uint32
	End   uint32
}

// Metadata is the sidecar JSON persisted alongside the binary position
// file (spec.md §4.2). It alone is enough to know how to split the flat
// binary position stream back into per-chromosome slices.
type Metadata struct {
	ChromOrder    []string `json:"chrom_order"`
	ChromSize     []uint32 `json:"chrom_size"`
	NCpGsPerChrom []uint32 `json:"n_cpgs_per_chrom"`
	NCpGsTotal    uint64   `json:"n_cpgs_total"`
	Assembly      string   `json:"assembly"`
	IndexHash     uint64   `json:"index_hash"`
}

// Index is an immutable, in-memory CpG index for one reference build.
// Once constructed or loaded it is never mutated, so it may be shared
// freely across goroutines (spec.md §3 "Lifecycles").
type Index struct {
	meta Metadata

	// positions[i] holds the strictly increasing 0-based CpG positions
	// on chromosome i, i.e. meta.ChromOrder[i].
	positions [][]uint32

	// chromOffset[i] is the prefix sum: the global index of the first
	// CpG on chromosome i. len(chromOffset) == len(ChromOrder)+1, with
	// chromOffset[len(ChromOrder)] == NCpGsTotal, to simplify range math.
	chromOffset []uint64

	// chromIndex maps a chromosome name to its position in ChromOrder.
	chromIndex map[string]int
}

// Metadata returns a copy of the index's persisted metadata.
func (idx *Index) Metadata() Metadata { return idx.meta }

// Assembly returns the canonical assembly tag (e.g. "hg38").
func (idx *Index) Assembly() string { return idx.meta.Assembly }

// NCpGsTotal returns the total number of CpGs across all chromosomes.
func (idx *Index) NCpGsTotal() uint64 { return idx.meta.NCpGsTotal }

// ChromID returns the chromosome index for name, and false if unknown.
func (idx *Index) ChromID(name string) (int, bool) {
	i, ok := idx.chromIndex[name]
	return i, ok
}

func newIndex(meta Metadata, positions [][]uint32) *Index {
	chromOffset := make([]uint64, len(meta.ChromOrder)+1)
	for i, p := range positions {
		chromOffset[i+1] = chromOffset[i] + uint64(len(p))
	}

	chromIndex := make(map[string]int, len(meta.ChromOrder))
	for i, name := range meta.ChromOrder {
		chromIndex[name] = i
	}

	return &Index{
		meta:        meta,
		positions:   positions,
		chromOffset: chromOffset,
		chromIndex:  chromIndex,
	}
}

// getOffsetWithinChrom returns the count of CpGs on chromosome chID
// strictly before pos — i.e. lower_bound(positions[chID], pos) (spec.md
// §4.2 "Lookup").
func (idx *Index) getOffsetWithinChrom(chID int, pos uint32) uint32 {
	p := idx.positions[chID]
	i, _ := slices.BinarySearch(p, pos)
	return uint32(i)
}

// GetOffsets maps a list of genomic intervals to global offset pairs
// (spec.md §4.2), preserving input order. Each interval's ChromID must be
// valid; start/stop are clamped to the chromosome's length and
// start<=stop is required.
func (idx *Index) GetOffsets(intervals []GenomicInterval) ([]OffsetPair, error) {
	out := make([]OffsetPair, len(intervals))
	for i, gi := range intervals {
		if gi.ChromID < 0 || int(gi.ChromID) >= len(idx.meta.ChromOrder) {
			return nil, xerrors.New("cpgindex.GetOffsets", xerrors.UnknownChromosome,
				fmt.Errorf("chrom id %d out of range [0,%d)", gi.ChromID, len(idx.meta.ChromOrder)))
		}
		if gi.Start > gi.Stop {
			return nil, xerrors.New("cpgindex.GetOffsets", xerrors.BadRequest,
				fmt.Errorf("interval start %d > stop %d", gi.Start, gi.Stop))
		}

		chID := int(gi.ChromID)
		chromLen := idx.meta.ChromSize[chID]
		start, stop := gi.Start, gi.Stop
		if start > chromLen {
			start = chromLen
		}
		if stop > chromLen {
			stop = chromLen
		}

		base := idx.chromOffset[chID]
		out[i] = OffsetPair{
			Begin: uint32(base) + idx.getOffsetWithinChrom(chID, start),
			End:   uint32(base) + idx.getOffsetWithinChrom(chID, stop),
		}
	}
	return out, nil
}

// Equal reports whether two indices are structurally equal (spec.md §8
// property 1, the round-trip invariant).
func (idx *Index) Equal(other *Index) bool {
	if idx == nil || other == nil {
		return idx == other
	}
	if !slices.Equal(idx.meta.ChromOrder, other.meta.ChromOrder) {
		return false
	}
	if !slices.Equal(idx.meta.ChromSize, other.meta.ChromSize) {
		return false
	}
	if idx.meta.NCpGsTotal != other.meta.NCpGsTotal {
		return false
	}
	if len(idx.positions) != len(other.positions) {
		return false
	}
	for i := range idx.positions {
		if !slices.Equal(idx.positions[i], other.positions[i]) {
			return false
		}
	}
	return true
}
