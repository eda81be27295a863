// Package wire implements xfrase's fixed-size textual header framing over
// a binary transport (spec.md §4.6). Every request/response is framed as
// a 256-byte, zero-padded textual header followed by a raw little-endian
// binary body — chosen by the spec for debuggability (a header is legible
// in a hex dump) while keeping the bulk payload compact.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// RequestHeaderSize and ResponseHeaderSize are the fixed frame sizes
// (spec.md §4.6).
const (
	RequestHeaderSize  = 256
	ResponseHeaderSize = 256
)

// MaxIntervals bounds n_intervals in a request header (spec.md §4.7
// default 2^20).
const MaxIntervals = 1 << 20

// OffsetRecordSize is the wire size of one (begin, end) offset record.
const OffsetRecordSize = 8

// CountRecordSize is the wire size of one (n_meth, n_unmeth) count record.
const CountRecordSize = 8

// RequestHeader is the parsed form of "<accession>\t<methylome_size>\t<n_intervals>\n".
type RequestHeader struct {
	Accession     string
	MethylomeSize uint64
	NIntervals    uint64
}

// EncodeRequestHeader renders h as a zero-padded 256-byte frame.
func EncodeRequestHeader(h RequestHeader) ([]byte, error) {
	text := fmt.Sprintf("%s\t%d\t%d\n", h.Accession, h.MethylomeSize, h.NIntervals)
	return pad(text, RequestHeaderSize, "wire.EncodeRequestHeader")
}

// DecodeRequestHeader parses a 256-byte request header frame. Any missing
// delimiter or malformed field is a bad_request error (spec.md §4.6
// "fail with malformed_* if any delimiter or field is missing").
func DecodeRequestHeader(frame []byte) (RequestHeader, error) {
	if len(frame) != RequestHeaderSize {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("frame is %d bytes, want %d", len(frame), RequestHeaderSize))
	}
	text := activePrefix(frame)

	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("missing newline terminator"))
	}
	fields := strings.Split(text[:nl], "\t")
	if len(fields) != 3 {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("expected 3 tab-separated fields, got %d", len(fields)))
	}

	accession := fields[0]
	if accession == "" {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("empty accession"))
	}
	methylomeSize, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("bad methylome_size: %w", err))
	}
	nIntervals, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return RequestHeader{}, xerrors.New("wire.DecodeRequestHeader", xerrors.BadRequest,
			fmt.Errorf("bad n_intervals: %w", err))
	}

	return RequestHeader{Accession: accession, MethylomeSize: methylomeSize, NIntervals: nIntervals}, nil
}

// ResponseHeader is the parsed form of "<status>\t<response_size>\n".
type ResponseHeader struct {
	Status       xerrors.Code
	ResponseSize uint64
}

// EncodeResponseHeader renders h as a zero-padded 256-byte frame.
func EncodeResponseHeader(h ResponseHeader) ([]byte, error) {
	text := fmt.Sprintf("%d\t%d\n", uint8(h.Status), h.ResponseSize)
	return pad(text, ResponseHeaderSize, "wire.EncodeResponseHeader")
}

// DecodeResponseHeader parses a 256-byte response header frame.
func DecodeResponseHeader(frame []byte) (ResponseHeader, error) {
	if len(frame) != ResponseHeaderSize {
		return ResponseHeader{}, xerrors.New("wire.DecodeResponseHeader", xerrors.BadRequest,
			fmt.Errorf("frame is %d bytes, want %d", len(frame), ResponseHeaderSize))
	}
	text := activePrefix(frame)

	nl := strings.IndexByte(text, '\n')
	if nl < 0 {
		return ResponseHeader{}, xerrors.New("wire.DecodeResponseHeader", xerrors.BadRequest,
			fmt.Errorf("missing newline terminator"))
	}
	fields := strings.Split(text[:nl], "\t")
	if len(fields) != 2 {
		return ResponseHeader{}, xerrors.New("wire.DecodeResponseHeader", xerrors.BadRequest,
			fmt.Errorf("expected 2 tab-separated fields, got %d", len(fields)))
	}

	status, err := strconv.ParseUint(fields[0], 10, 8)
	if err != nil {
		return ResponseHeader{}, xerrors.New("wire.DecodeResponseHeader", xerrors.BadRequest,
			fmt.Errorf("bad status: %w", err))
	}
	size, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return ResponseHeader{}, xerrors.New("wire.DecodeResponseHeader", xerrors.BadRequest,
			fmt.Errorf("bad response_size: %w", err))
	}

	return ResponseHeader{Status: xerrors.Code(status), ResponseSize: size}, nil
}

// Offset is one (begin, end) request body record.
type Offset struct {
	Begin uint32
	End   uint32
}

// EncodeOffsets renders offsets as raw little-endian bytes (spec.md §4.6
// request body).
func EncodeOffsets(offsets []Offset) []byte {
	out := make([]byte, len(offsets)*OffsetRecordSize)
	for i, o := range offsets {
		binary.LittleEndian.PutUint32(out[i*OffsetRecordSize:], o.Begin)
		binary.LittleEndian.PutUint32(out[i*OffsetRecordSize+4:], o.End)
	}
	return out
}

// DecodeOffsets parses n raw offset records from body. body must be
// exactly n*OffsetRecordSize bytes.
func DecodeOffsets(body []byte, n int) ([]Offset, error) {
	want := n * OffsetRecordSize
	if len(body) != want {
		return nil, xerrors.New("wire.DecodeOffsets", xerrors.BadRequest,
			fmt.Errorf("body is %d bytes, want %d for %d intervals", len(body), want, n))
	}
	out := make([]Offset, n)
	for i := range out {
		out[i].Begin = binary.LittleEndian.Uint32(body[i*OffsetRecordSize:])
		out[i].End = binary.LittleEndian.Uint32(body[i*OffsetRecordSize+4:])
	}
	return out, nil
}

// Count is one (n_meth, n_unmeth) response body record.
type Count struct {
	NMeth   uint32
	NUnmeth uint32
}

// EncodeCounts renders counts as raw little-endian bytes (spec.md §4.6
// response body).
func EncodeCounts(counts []Count) []byte {
	out := make([]byte, len(counts)*CountRecordSize)
	for i, c := range counts {
		binary.LittleEndian.PutUint32(out[i*CountRecordSize:], c.NMeth)
		binary.LittleEndian.PutUint32(out[i*CountRecordSize+4:], c.NUnmeth)
	}
	return out
}

// DecodeCounts parses n raw count records from body.
func DecodeCounts(body []byte, n int) ([]Count, error) {
	want := n * CountRecordSize
	if len(body) != want {
		return nil, xerrors.New("wire.DecodeCounts", xerrors.BadRequest,
			fmt.Errorf("body is %d bytes, want %d for %d records", len(body), want, n))
	}
	out := make([]Count, n)
	for i := range out {
		out[i].NMeth = binary.LittleEndian.Uint32(body[i*CountRecordSize:])
		out[i].NUnmeth = binary.LittleEndian.Uint32(body[i*CountRecordSize+4:])
	}
	return out, nil
}

// pad renders text into an exactly-size zero-padded frame, failing if
// text itself overruns the frame (e.g. an unreasonably long accession).
func pad(text string, size int, op string) ([]byte, error) {
	if len(text) > size {
		return nil, xerrors.New(op, xerrors.BadRequest,
			fmt.Errorf("encoded header is %d bytes, exceeds frame size %d", len(text), size))
	}
	frame := make([]byte, size)
	copy(frame, text)
	return frame, nil
}

// activePrefix returns the frame's content up to (but not including) the
// zero-padding that follows it.
func activePrefix(frame []byte) string {
	if i := bytes.IndexByte(frame, 0); i >= 0 {
		return string(frame[:i])
	}
	return string(frame)
}
