package methylome

import (
	"fmt"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// Merge elementwise-sums two same-length methylomes into a new one,
// applying ConditionalRoundToFit per site (SPEC_FULL.md §4 supplemented
// feature, grounded on original_source's `command_merge.cpp`/`merge.cpp`;
// not wired to a CLI subcommand — see SPEC_FULL.md for why).
func Merge(a, b *Methylome) (*Methylome, error) {
	if a.n != b.n {
		return nil, xerrors.New("methylome.Merge", xerrors.SizeMismatch,
			fmt.Errorf("methylomes have %d and %d sites", a.n, b.n))
	}
	out := New(a.n)
	for i := 0; i < a.n; i++ {
		pa := a.Get(i)
		pb := b.Get(i)
		out.setWide(i, uint32(pa.M)+uint32(pb.M), uint32(pa.U)+uint32(pb.U))
	}
	return out, nil
}
