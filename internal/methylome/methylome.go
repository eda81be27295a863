// Package methylome implements the per-CpG methylation count vector
// (spec.md §4.3): its in-memory layout, saturation arithmetic, and
// read-only range aggregation.
package methylome

import (
	"fmt"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// MCount is the saturating unsigned counter type backing every per-site
// methylated/unmethylated count (spec.md §3: "m_count_t is an unsigned
// 16-bit integer").
type MCount = uint16

// MaxMCount is MAX(m_count_t), the saturation ceiling.
const MaxMCount = ^MCount(0)

// Pair is one CpG's (methylated, unmethylated) read counts.
type Pair struct {
	M MCount
	U MCount
}

// Methylome is a dense, contiguous vector of Pair, one per CpG in the
// associated assembly's index, in the same chromosome/position order.
//
// Pairs are stored in a flat byte buffer rather than []Pair so that
// Load/Store can treat the backing storage as the exact zlib payload
// without a conversion pass, and so the buffer's start address can be
// over-allocated to a 64-byte boundary (alignedBuffer, in aligned.go) for
// SIMD-friendly summation over long ranges (spec.md §9).
type Methylome struct {
	buf alignedBuffer // len(buf) == n*4, 4 bytes per Pair
	n   int
}

// New allocates an all-zero methylome for n CpGs.
func New(n int) *Methylome {
	return &Methylome{buf: newAlignedBuffer(n * 4), n: n}
}

// NCpGs returns the number of CpG sites.
func (m *Methylome) NCpGs() int { return m.n }

// Get returns the counts at global offset i.
func (m *Methylome) Get(i int) Pair {
	b := m.buf.bytes()[i*4 : i*4+4]
	return Pair{
		M: MCount(b[0]) | MCount(b[1])<<8,
		U: MCount(b[2]) | MCount(b[3])<<8,
	}
}

// setWide stores (m,u) at offset i after saturation; m and u are widened
// accumulators (see ConditionalRoundToFit) that may individually exceed
// MaxMCount before clamping.
func (m *Methylome) setWide(i int, mc, uc uint32) {
	cm, cu := conditionalRoundToFitWide(mc, uc)
	b := m.buf.bytes()[i*4 : i*4+4]
	b[0], b[1] = byte(cm), byte(cm>>8)
	b[2], b[3] = byte(cu), byte(cu>>8)
}

// Set stores the counts at global offset i, applying saturation.
func (m *Methylome) Set(i int, p Pair) {
	m.setWide(i, uint32(p.M), uint32(p.U))
}

// Add increments the counts at offset i by (dm, du), saturating the sum.
// The addition is carried out in a 32-bit accumulator so a single update
// that pushes either counter past MaxMCount is caught before truncation,
// rather than silently wrapping in 16 bits first.
func (m *Methylome) Add(i int, dm, du MCount) {
	cur := m.Get(i)
	m.setWide(i, uint32(cur.M)+uint32(dm), uint32(cur.U)+uint32(du))
}

// ConditionalRoundToFit is the saturation rule of spec.md §4.3/§9, for
// the common case where the pre-saturation sum already fits in MCount's
// range. See conditionalRoundToFitWide for the general (wider) form used
// internally whenever an addition could itself overflow 16 bits —
// spec.md §8 property 4's worked example, (65536,65536) -> (65535,65535),
// only makes sense against inputs wider than uint16 in the first place.
func ConditionalRoundToFit(m, u MCount) (MCount, MCount) {
	return conditionalRoundToFitWide(uint32(m), uint32(u))
}

// conditionalRoundToFitWide clamps each of m and u independently to
// MaxMCount when their sum would exceed it — not proportionally scaled —
// per the Open Question resolution in SPEC_FULL.md. No-op when
// m+u <= MaxMCount.
func conditionalRoundToFitWide(m, u uint32) (MCount, MCount) {
	clamp := func(v uint32) MCount {
		if v > uint32(MaxMCount) {
			return MaxMCount
		}
		return MCount(v)
	}
	return clamp(m), clamp(u)
}

// Counts is the result of an unweighted range aggregation (spec.md §4.3).
type Counts struct {
	NMeth   uint32
	NUnmeth uint32
}

// CountsCov additionally reports the number of covered sites in the
// range, i.e. sites where m+u > 0.
type CountsCov struct {
	Counts
	NCovered uint32
}

func (m *Methylome) checkRange(a, b int) error {
	if a < 0 || b < a || b > m.n {
		return xerrors.New("methylome.checkRange", xerrors.BadRequest,
			fmt.Errorf("range [%d,%d) out of bounds for %d sites", a, b, m.n))
	}
	return nil
}

// RangeCounts returns the elementwise sum of (m,u) over [a,b). The
// accumulators are 32-bit, overflow-safe for any realistic range length
// (spec.md §4.3). Safe to call concurrently with other reads.
func (m *Methylome) RangeCounts(a, b int) (Counts, error) {
	if err := m.checkRange(a, b); err != nil {
		return Counts{}, err
	}
	var nm, nu uint32
	buf := m.buf.bytes()
	for i := a; i < b; i++ {
		o := i * 4
		nm += uint32(buf[o]) | uint32(buf[o+1])<<8
		nu += uint32(buf[o+2]) | uint32(buf[o+3])<<8
	}
	return Counts{NMeth: nm, NUnmeth: nu}, nil
}

// RangeCountsCov is RangeCounts plus the covered-site count.
func (m *Methylome) RangeCountsCov(a, b int) (CountsCov, error) {
	if err := m.checkRange(a, b); err != nil {
		return CountsCov{}, err
	}
	var nm, nu, cov uint32
	buf := m.buf.bytes()
	for i := a; i < b; i++ {
		o := i * 4
		pm := uint32(buf[o]) | uint32(buf[o+1])<<8
		pu := uint32(buf[o+2]) | uint32(buf[o+3])<<8
		nm += pm
		nu += pu
		if pm+pu > 0 {
			cov++
		}
	}
	return CountsCov{Counts: Counts{NMeth: nm, NUnmeth: nu}, NCovered: cov}, nil
}

// RangeCountsBatch applies RangeCounts to each input range, preserving
// order (spec.md §4.3 "counts_batch"). No partial results: the first
// out-of-bounds range fails the whole batch (spec.md §4.7).
func (m *Methylome) RangeCountsBatch(ranges []OffsetPair) ([]Counts, error) {
	out := make([]Counts, len(ranges))
	for i, r := range ranges {
		c, err := m.RangeCounts(int(r.Begin), int(r.End))
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// OffsetPair is a half-open [Begin, End) range of global CpG offsets.
// Defined here (rather than imported from cpgindex) so methylome has no
// compile-time dependency on the index package; handler glues the two.
type OffsetPair struct {
	Begin uint32
	End   uint32
}
