package indexset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/xerrors"
)

func writeIndex(t *testing.T, dir, assembly string) {
	t.Helper()
	idx, err := cpgindex.Construct(strings.NewReader(">a\nACGCGT\n"), assembly)
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if err := idx.Write(filepath.Join(dir, assembly+".cpg_idx")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestScanAndGet(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "hg38")
	writeIndex(t, dir, "mm10")
	// Non-matching file must be ignored.
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	set, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 indices, got %d", set.Len())
	}

	idx, _, err := set.Get("hg38")
	if err != nil {
		t.Fatalf("Get(hg38): %v", err)
	}
	if idx.Assembly() != "hg38" {
		t.Fatalf("got assembly %q", idx.Assembly())
	}

	if _, _, err := set.Get("nonexistent"); xerrors.CodeOf(err) != xerrors.UnknownMethylome {
		t.Fatalf("expected unknown_methylome, got %v", err)
	}
}

func TestScanFailsClosed(t *testing.T) {
	dir := t.TempDir()
	writeIndex(t, dir, "hg38")
	// Corrupt the binary file referenced by valid metadata.
	if err := os.WriteFile(filepath.Join(dir, "hg38.cpg_idx"), []byte{1, 2, 3}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Scan(dir); err == nil {
		t.Fatal("expected Scan to fail closed on corrupt index")
	}
}
