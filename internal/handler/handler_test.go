package handler

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/indexset"
	"github.com/dreamware/xfrase/internal/methylome"
	"github.com/dreamware/xfrase/internal/methylomeset"
	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// setup builds a full C4+C5 stack for one toy assembly/accession pair:
// 3 CpGs total, site 0 methylated and site 2 unmethylated.
func setup(t *testing.T) (*Handler, cpgindex.Metadata) {
	t.Helper()
	dir := t.TempDir()

	idx, err := cpgindex.Construct(strings.NewReader(">a\nACGCGT\n>b\nNN\n>c\nCG\n"), "toy")
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if err := idx.Write(filepath.Join(dir, "toy.cpg_idx")); err != nil {
		t.Fatalf("Write index: %v", err)
	}
	indices, err := indexset.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, meta, err := indices.Get("toy")
	if err != nil {
		t.Fatalf("Get(toy): %v", err)
	}

	m := methylome.New(int(meta.NCpGsTotal))
	m.Set(0, methylome.Pair{M: 1, U: 0})
	m.Set(2, methylome.Pair{M: 0, U: 5})
	if err := m.Store(filepath.Join(dir, "acc1.m16"), "toy", meta.IndexHash); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loader := func(accession string) (*methylome.Methylome, methylome.Meta, error) {
		return methylome.Load(filepath.Join(dir, accession+methylome.FileExtension), int(meta.NCpGsTotal))
	}
	cache := methylomeset.New(8, loader)

	return New(indices, cache, dir), meta
}

func TestHandleHeaderAndGetCounts(t *testing.T) {
	h, meta := setup(t)

	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal, NIntervals: 1}
	resp, resolved, err := h.HandleHeader(req)
	if err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	if resp.Status != xerrors.OK {
		t.Fatalf("expected ok, got %v", resp.Status)
	}

	counts, err := h.HandleGetCounts(req, resolved, []wire.Offset{{Begin: 0, End: 3}})
	if err != nil {
		t.Fatalf("HandleGetCounts: %v", err)
	}
	if len(counts) != 1 || counts[0].NMeth != 1 || counts[0].NUnmeth != 5 {
		t.Fatalf("got %+v, want [{1 5}]", counts)
	}
}

func TestHandleHeaderBadAccession(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "bad/acc", MethylomeSize: meta.NCpGsTotal, NIntervals: 1}
	resp, _, err := h.HandleHeader(req)
	if xerrors.CodeOf(err) != xerrors.BadRequest || resp.Status != xerrors.BadRequest {
		t.Fatalf("expected bad_request, got %v / %v", resp.Status, err)
	}
}

func TestHandleHeaderTooManyIntervals(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal, NIntervals: wire.MaxIntervals + 1}
	resp, _, err := h.HandleHeader(req)
	if xerrors.CodeOf(err) != xerrors.BadRequest || resp.Status != xerrors.BadRequest {
		t.Fatalf("expected bad_request, got %v / %v", resp.Status, err)
	}
}

func TestHandleHeaderUnknownMethylome(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "nosuchacc", MethylomeSize: meta.NCpGsTotal, NIntervals: 1}
	resp, _, err := h.HandleHeader(req)
	if xerrors.CodeOf(err) != xerrors.UnknownMethylome || resp.Status != xerrors.UnknownMethylome {
		t.Fatalf("expected unknown_methylome, got %v / %v", resp.Status, err)
	}
}

func TestHandleHeaderSizeMismatch(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal + 1, NIntervals: 1}
	resp, _, err := h.HandleHeader(req)
	if xerrors.CodeOf(err) != xerrors.SizeMismatch || resp.Status != xerrors.SizeMismatch {
		t.Fatalf("expected size_mismatch, got %v / %v", resp.Status, err)
	}
}

// TestE6MetadataMismatch reproduces spec.md's E6 scenario: a methylome
// whose sidecar index_hash does not match any loaded index.
func TestE6MetadataMismatch(t *testing.T) {
	dir := t.TempDir()
	idx, err := cpgindex.Construct(strings.NewReader(">a\nACGCGT\n"), "toy")
	if err != nil {
		t.Fatalf("Construct: %v", err)
	}
	if err := idx.Write(filepath.Join(dir, "toy.cpg_idx")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	indices, err := indexset.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	_, meta, err := indices.Get("toy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	m := methylome.New(int(meta.NCpGsTotal))
	// Store with a deliberately wrong index hash.
	if err := m.Store(filepath.Join(dir, "acc1.m16"), "toy", meta.IndexHash+1); err != nil {
		t.Fatalf("Store: %v", err)
	}

	loader := func(accession string) (*methylome.Methylome, methylome.Meta, error) {
		return methylome.Load(filepath.Join(dir, accession+methylome.FileExtension), int(meta.NCpGsTotal))
	}
	h := New(indices, methylomeset.New(8, loader), dir)

	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal, NIntervals: 0}
	resp, _, err := h.HandleHeader(req)
	if xerrors.CodeOf(err) != xerrors.MetadataMismatch || resp.Status != xerrors.MetadataMismatch {
		t.Fatalf("expected metadata_mismatch, got %v / %v", resp.Status, err)
	}
}

// TestE3EmptyIntervals reproduces spec.md's E3 scenario at the handler
// layer: n_intervals=0 yields an empty, successful response.
func TestE3EmptyIntervals(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal, NIntervals: 0}
	resp, resolved, err := h.HandleHeader(req)
	if err != nil || resp.Status != xerrors.OK {
		t.Fatalf("HandleHeader: %v / %v", resp, err)
	}
	counts, err := h.HandleGetCounts(req, resolved, nil)
	if err != nil {
		t.Fatalf("HandleGetCounts: %v", err)
	}
	if len(counts) != 0 {
		t.Fatalf("expected empty counts, got %v", counts)
	}
}

func TestHandleGetCountsOffsetOutOfBounds(t *testing.T) {
	h, meta := setup(t)
	req := wire.RequestHeader{Accession: "acc1", MethylomeSize: meta.NCpGsTotal, NIntervals: 1}
	_, resolved, err := h.HandleHeader(req)
	if err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	_, err = h.HandleGetCounts(req, resolved, []wire.Offset{{Begin: 0, End: uint32(meta.NCpGsTotal) + 1}})
	if xerrors.CodeOf(err) != xerrors.BadRequest {
		t.Fatalf("expected bad_request, got %v", err)
	}
}
