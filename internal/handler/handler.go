// Package handler implements the two request-handling entry points the
// connection FSM calls into (spec.md §4.7): header validation/routing,
// and count aggregation against a resident methylome.
package handler

import (
	"fmt"
	"regexp"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/indexset"
	"github.com/dreamware/xfrase/internal/methylome"
	"github.com/dreamware/xfrase/internal/methylomeset"
	"github.com/dreamware/xfrase/internal/wire"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// accessionPattern bounds the accession charset accepted in a request
// header (spec.md §4.7 "validates accession charset").
var accessionPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Handler wires together the index set, methylome cache, and methylome
// directory needed to serve a request.
type Handler struct {
	Indices      *indexset.Set
	Methylomes   *methylomeset.Set
	MethylomeDir string
}

// New builds a Handler over the given index set, methylome cache, and
// the directory methylome files are peeked from during header
// validation.
func New(indices *indexset.Set, methylomes *methylomeset.Set, methylomeDir string) *Handler {
	return &Handler{Indices: indices, Methylomes: methylomes, MethylomeDir: methylomeDir}
}

// Resolved carries state HandleHeader discovers that HandleGetCounts
// needs, so the connection FSM doesn't repeat index resolution.
type Resolved struct {
	index     *cpgindex.Index
	indexHash uint64
}

// HandleHeader validates req and determines the response header that
// would be sent if no further error occurs (spec.md §4.7 point 1). A
// non-ok Status means the connection proceeds straight to
// Writing-Error; the caller must not call HandleGetCounts.
func (h *Handler) HandleHeader(req wire.RequestHeader) (wire.ResponseHeader, *Resolved, error) {
	if !accessionPattern.MatchString(req.Accession) {
		return errorHeader(xerrors.BadRequest), nil, xerrors.New("handler.HandleHeader", xerrors.BadRequest,
			fmt.Errorf("invalid accession %q", req.Accession))
	}
	if req.NIntervals > wire.MaxIntervals {
		return errorHeader(xerrors.BadRequest), nil, xerrors.New("handler.HandleHeader", xerrors.BadRequest,
			fmt.Errorf("n_intervals %d exceeds MAX_INTERVALS %d", req.NIntervals, wire.MaxIntervals))
	}

	meta, err := methylome.PeekMeta(h.MethylomeDir, req.Accession)
	if err != nil {
		return errorHeader(xerrors.CodeOf(err)), nil, err
	}

	idx, _, err := h.Indices.Get(meta.Assembly)
	if err != nil {
		return errorHeader(xerrors.CodeOf(err)), nil, err
	}

	if meta.IndexHash != idx.Metadata().IndexHash {
		return errorHeader(xerrors.MetadataMismatch), nil, xerrors.New("handler.HandleHeader", xerrors.MetadataMismatch,
			fmt.Errorf("methylome index_hash %d does not match loaded index %d for assembly %q",
				meta.IndexHash, idx.Metadata().IndexHash, meta.Assembly))
	}

	if req.MethylomeSize != idx.NCpGsTotal() {
		return errorHeader(xerrors.SizeMismatch), nil, xerrors.New("handler.HandleHeader", xerrors.SizeMismatch,
			fmt.Errorf("methylome_size %d does not match index n_cpgs_total %d", req.MethylomeSize, idx.NCpGsTotal()))
	}

	return wire.ResponseHeader{Status: xerrors.OK}, &Resolved{index: idx, indexHash: meta.IndexHash}, nil
}

// HandleGetCounts acquires the accession's resident methylome (blocking
// on a cold load if necessary, per spec.md §5) and aggregates counts
// over offsets, preserving order. Any error from the cache is returned
// directly; the caller maps it to an error response header and sends no
// body (spec.md §4.7 point 2).
func (h *Handler) HandleGetCounts(req wire.RequestHeader, res *Resolved, offsets []wire.Offset) ([]wire.Count, error) {
	handle, err := h.Methylomes.Get(req.Accession, res.indexHash)
	if err != nil {
		return nil, err
	}
	defer handle.Release()

	ranges := make([]methylome.OffsetPair, len(offsets))
	for i, o := range offsets {
		if o.Begin > o.End || o.End > uint32(req.MethylomeSize) {
			return nil, xerrors.New("handler.HandleGetCounts", xerrors.BadRequest,
				fmt.Errorf("offset [%d,%d) out of bounds for methylome_size %d", o.Begin, o.End, req.MethylomeSize))
		}
		ranges[i] = methylome.OffsetPair{Begin: o.Begin, End: o.End}
	}

	counts, err := handle.Methylome().RangeCountsBatch(ranges)
	if err != nil {
		return nil, err
	}

	out := make([]wire.Count, len(counts))
	for i, c := range counts {
		out[i] = wire.Count{NMeth: c.NMeth, NUnmeth: c.NUnmeth}
	}
	return out, nil
}

func errorHeader(code xerrors.Code) wire.ResponseHeader {
	return wire.ResponseHeader{Status: code, ResponseSize: 0}
}
