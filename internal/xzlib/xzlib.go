// Package xzlib deflates and inflates the typed byte vectors xfrase
// persists to disk (CpG index positions, methylome count pairs). The
// parameters are bit-format-visible and held stable across the whole
// system: BestSpeed level, a full window, and the library's default
// strategy (see the note in DESIGN.md about the RLE strategy knob not
// being exposed by any pack dependency).
package xzlib

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// Compress deflates src and returns the zlib-framed output.
func Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestSpeed)
	if err != nil {
		return nil, xerrors.New("xzlib.Compress", xerrors.InternalError, err)
	}
	if _, err := w.Write(src); err != nil {
		_ = w.Close()
		return nil, xerrors.New("xzlib.Compress", xerrors.InternalError, err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.New("xzlib.Compress", xerrors.InternalError, err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates src, expecting exactly expectedOutputSize bytes of
// output. The caller always knows this size in advance (from a sidecar
// metadata file), so any short read or length mismatch is corrupt_data:
// there is no legitimate case where the decompressed size is a surprise.
func Decompress(src []byte, expectedOutputSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, xerrors.New("xzlib.Decompress", xerrors.CorruptData, err)
	}
	defer r.Close()

	out := make([]byte, expectedOutputSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, xerrors.New("xzlib.Decompress", xerrors.CorruptData, err)
	}
	if n != expectedOutputSize {
		return nil, xerrors.New("xzlib.Decompress", xerrors.CorruptData,
			fmt.Errorf("expected %d bytes, got %d", expectedOutputSize, n))
	}

	// A well-formed stream must end exactly where we expect; a non-EOF
	// extra byte means the caller's expected size was wrong for this
	// stream, which is also corrupt_data rather than a silent truncation.
	var extra [1]byte
	if m, _ := r.Read(extra[:]); m != 0 {
		return nil, xerrors.New("xzlib.Decompress", xerrors.CorruptData,
			fmt.Errorf("stream longer than expected %d bytes", expectedOutputSize))
	}

	return out, nil
}
