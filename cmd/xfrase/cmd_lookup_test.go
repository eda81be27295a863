package main

import (
	"os"
	"strings"
	"testing"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
)

const toyFASTA = ">a\nACGCGT\n>b\nNN\n>c\nCG\n"

func buildToyIndex(t *testing.T) *cpgindex.Index {
	t.Helper()
	idx, err := cpgindex.Construct(strings.NewReader(toyFASTA), "toy")
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	return idx
}

func TestParseIntervals(t *testing.T) {
	idx := buildToyIndex(t)
	chA, _ := idx.ChromID("a")
	chC, _ := idx.ChromID("c")

	gis, err := parseIntervals("a:0-6,c:0-2", idx)
	if err != nil {
		t.Fatalf("parseIntervals: %v", err)
	}
	want := []cpgindex.GenomicInterval{
		{ChromID: int32(chA), Start: 0, Stop: 6},
		{ChromID: int32(chC), Start: 0, Stop: 2},
	}
	if len(gis) != len(want) {
		t.Fatalf("got %d intervals, want %d", len(gis), len(want))
	}
	for i := range want {
		if gis[i] != want[i] {
			t.Fatalf("interval %d = %+v, want %+v", i, gis[i], want[i])
		}
	}
}

func TestParseIntervalsSkipsBlankEntries(t *testing.T) {
	idx := buildToyIndex(t)
	gis, err := parseIntervals("a:0-6,,  ,", idx)
	if err != nil {
		t.Fatalf("parseIntervals: %v", err)
	}
	if len(gis) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(gis))
	}
}

func TestParseIntervalsUnknownChromosome(t *testing.T) {
	idx := buildToyIndex(t)
	_, err := parseIntervals("z:0-1", idx)
	if xerrors.CodeOf(err) != xerrors.UnknownChromosome {
		t.Fatalf("expected unknown_chromosome, got %v", err)
	}
}

func TestParseIntervalsMalformed(t *testing.T) {
	idx := buildToyIndex(t)
	cases := []string{"a-0-6", "a:0", "a:x-6", "a:0-y"}
	for _, c := range cases {
		if _, err := parseIntervals(c, idx); xerrors.CodeOf(err) != xerrors.BadRequest {
			t.Fatalf("parseIntervals(%q): expected bad_request, got %v", c, err)
		}
	}
}

func TestWriteIntervalResults(t *testing.T) {
	idx := buildToyIndex(t)
	chA, _ := idx.ChromID("a")
	gis := []cpgindex.GenomicInterval{{ChromID: int32(chA), Start: 0, Stop: 6}}
	counts := []wire.Count{{NMeth: 5, NUnmeth: 2}}

	path := t.TempDir() + "/out.tsv"
	if err := writeIntervalResults(path, idx, gis, counts); err != nil {
		t.Fatalf("writeIntervalResults: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := "a\t0\t6\t5\t2\n"
	if string(data) != want {
		t.Fatalf("output = %q, want %q", data, want)
	}
}
