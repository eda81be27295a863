package methylome

import (
	"path/filepath"
	"testing"
)

// TestE2CoverageExample reproduces spec.md's E2 end-to-end scenario.
func TestE2CoverageExample(t *testing.T) {
	m := New(3)
	m.Set(0, Pair{M: 1, U: 0})
	m.Set(1, Pair{M: 0, U: 0})
	m.Set(2, Pair{M: 2, U: 3})

	got, err := m.RangeCountsCov(0, 3)
	if err != nil {
		t.Fatalf("RangeCountsCov: %v", err)
	}
	if got.NMeth != 3 || got.NUnmeth != 3 || got.NCovered != 2 {
		t.Fatalf("got %+v, want {NMeth:3 NUnmeth:3 NCovered:2}", got)
	}
}

// TestE3EmptyBatch reproduces spec.md's E3 scenario at the methylome
// layer: zero ranges yields zero results, no error.
func TestE3EmptyBatch(t *testing.T) {
	m := New(3)
	got, err := m.RangeCountsBatch(nil)
	if err != nil {
		t.Fatalf("RangeCountsBatch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestAggregationLinearity(t *testing.T) {
	m := New(10)
	for i := 0; i < 10; i++ {
		m.Set(i, Pair{M: MCount(i), U: MCount(10 - i)})
	}

	for a := 0; a <= 10; a++ {
		for bm := a; bm <= 10; bm++ {
			for c := bm; c <= 10; c++ {
				ab, err := m.RangeCounts(a, bm)
				if err != nil {
					t.Fatalf("RangeCounts(%d,%d): %v", a, bm, err)
				}
				bc, err := m.RangeCounts(bm, c)
				if err != nil {
					t.Fatalf("RangeCounts(%d,%d): %v", bm, c, err)
				}
				ac, err := m.RangeCounts(a, c)
				if err != nil {
					t.Fatalf("RangeCounts(%d,%d): %v", a, c, err)
				}
				if ab.NMeth+bc.NMeth != ac.NMeth || ab.NUnmeth+bc.NUnmeth != ac.NUnmeth {
					t.Fatalf("linearity violated for [%d,%d)+[%d,%d): %+v + %+v != %+v", a, bm, bm, c, ab, bc, ac)
				}
			}
		}
	}
}

func TestConditionalRoundToFit(t *testing.T) {
	cases := []struct {
		m, u       uint32
		wantM, wantU MCount
	}{
		{0, 0, 0, 0},
		{100, 200, 100, 200},
		{65536, 65536, 65535, 65535},
		{70000, 10, 65535, 10},
	}
	for _, c := range cases {
		gotM, gotU := conditionalRoundToFitWide(c.m, c.u)
		if gotM != c.wantM || gotU != c.wantU {
			t.Fatalf("conditionalRoundToFitWide(%d,%d) = (%d,%d), want (%d,%d)",
				c.m, c.u, gotM, gotU, c.wantM, c.wantU)
		}
	}
}

func TestAddSaturates(t *testing.T) {
	m := New(1)
	m.Set(0, Pair{M: 65530, U: 0})
	m.Add(0, 100, 0)
	got := m.Get(0)
	if got.M != MaxMCount {
		t.Fatalf("expected saturation to MaxMCount, got %d", got.M)
	}
}

func TestRangeOutOfBounds(t *testing.T) {
	m := New(3)
	if _, err := m.RangeCounts(-1, 2); err == nil {
		t.Fatal("expected error for negative start")
	}
	if _, err := m.RangeCounts(0, 4); err == nil {
		t.Fatal("expected error for stop beyond n")
	}
	if _, err := m.RangeCounts(2, 1); err == nil {
		t.Fatal("expected error for start > stop")
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	m := New(5)
	for i := 0; i < 5; i++ {
		m.Set(i, Pair{M: MCount(i * 2), U: MCount(i)})
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "acc.m16")
	if err := m.Store(path, "hg38", 42); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, meta, err := Load(path, 5)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if meta.Assembly != "hg38" || meta.IndexHash != 42 {
		t.Fatalf("unexpected meta: %+v", meta)
	}
	for i := 0; i < 5; i++ {
		if got.Get(i) != m.Get(i) {
			t.Fatalf("site %d mismatch: got %+v want %+v", i, got.Get(i), m.Get(i))
		}
	}
}

func TestLoadSizeMismatch(t *testing.T) {
	m := New(5)
	dir := t.TempDir()
	path := filepath.Join(dir, "acc.m16")
	if err := m.Store(path, "hg38", 1); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if _, _, err := Load(path, 6); err == nil {
		t.Fatal("expected size_mismatch error")
	}
}

func TestMerge(t *testing.T) {
	a := New(2)
	a.Set(0, Pair{M: 1, U: 2})
	a.Set(1, Pair{M: 65530, U: 0})

	b := New(2)
	b.Set(0, Pair{M: 3, U: 4})
	b.Set(1, Pair{M: 100, U: 0})

	merged, err := Merge(a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := merged.Get(0); got != (Pair{M: 4, U: 6}) {
		t.Fatalf("site 0 = %+v, want {4 6}", got)
	}
	if got := merged.Get(1); got.M != MaxMCount {
		t.Fatalf("site 1 should saturate, got %+v", got)
	}
}

func TestAccessionFromFilename(t *testing.T) {
	if got := AccessionFromFilename("/data/SRX123456.m16"); got != "SRX123456" {
		t.Fatalf("got %q", got)
	}
}
