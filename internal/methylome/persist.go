package methylome

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/dreamware/xfrase/internal/xerrors"
	"github.com/dreamware/xfrase/internal/xzlib"
)

// FileExtension is the suffix every methylome binary file carries.
const FileExtension = ".m16"

// Meta is the sidecar JSON persisted alongside a methylome's compressed
// binary (spec.md §4.3/§6).
type Meta struct {
	NCpGs         uint64 `json:"n_cpgs"`
	Assembly      string `json:"assembly"`
	IndexHash     uint64 `json:"index_hash"`
	MethylomeHash uint64 `json:"methylome_hash"`
}

func metaPath(path string) string { return path + ".json" }

// Load reads a methylome from path, decompressing into a buffer of
// exactly expectedNCpGs*4 bytes (spec.md §4.3 "load"). A mismatch
// between the metadata's n_cpgs and expectedNCpGs is a size_mismatch
// error; a decompressed stream of any other length is a corrupt_data
// error from xzlib.Decompress.
func Load(path string, expectedNCpGs int) (*Methylome, Meta, error) {
	metaBytes, err := os.ReadFile(metaPath(path))
	if err != nil {
		return nil, Meta{}, xerrors.New("methylome.Load", xerrors.IOError, err)
	}
	var meta Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, Meta{}, xerrors.New("methylome.Load", xerrors.CorruptData, err)
	}
	if meta.NCpGs != uint64(expectedNCpGs) {
		return nil, Meta{}, xerrors.New("methylome.Load", xerrors.SizeMismatch,
			fmt.Errorf("metadata declares %d cpgs, expected %d", meta.NCpGs, expectedNCpGs))
	}

	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, Meta{}, xerrors.New("methylome.Load", xerrors.IOError, err)
	}

	raw, err := xzlib.Decompress(compressed, expectedNCpGs*4)
	if err != nil {
		return nil, Meta{}, err
	}
	if hashBytes(raw) != meta.MethylomeHash {
		return nil, Meta{}, xerrors.New("methylome.Load", xerrors.CorruptData,
			fmt.Errorf("methylome_hash mismatch"))
	}

	m := New(expectedNCpGs)
	copy(m.buf.bytes(), raw)
	return m, meta, nil
}

// Store compresses and writes the methylome to path, updating the
// sidecar metadata atomically (write-then-rename, spec.md §4.3).
func (m *Methylome) Store(path, assembly string, indexHash uint64) error {
	raw := m.buf.bytes()
	compressed, err := xzlib.Compress(raw)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return xerrors.New("methylome.Store", xerrors.IOError, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return xerrors.New("methylome.Store", xerrors.IOError, err)
	}

	meta := Meta{
		NCpGs:         uint64(m.n),
		Assembly:      assembly,
		IndexHash:     indexHash,
		MethylomeHash: hashBytes(raw),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return xerrors.New("methylome.Store", xerrors.InternalError, err)
	}
	tmpMeta := metaPath(path) + ".tmp"
	if err := os.WriteFile(tmpMeta, metaBytes, 0o644); err != nil {
		return xerrors.New("methylome.Store", xerrors.IOError, err)
	}
	if err := os.Rename(tmpMeta, metaPath(path)); err != nil {
		return xerrors.New("methylome.Store", xerrors.IOError, err)
	}
	return nil
}

// Verify checks that the methylome at path decompresses cleanly and its
// metadata's index_hash matches expectedIndexHash (supplemented feature,
// SPEC_FULL.md §4.1, grounded on original_source's `check` subcommand).
func Verify(path string, expectedIndexHash uint64) error {
	metaBytes, err := os.ReadFile(metaPath(path))
	if err != nil {
		return xerrors.New("methylome.Verify", xerrors.IOError, err)
	}
	var meta Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return xerrors.New("methylome.Verify", xerrors.CorruptData, err)
	}
	if meta.IndexHash != expectedIndexHash {
		return xerrors.New("methylome.Verify", xerrors.MetadataMismatch,
			fmt.Errorf("index_hash %d does not match loaded index %d", meta.IndexHash, expectedIndexHash))
	}
	_, _, err = Load(path, int(meta.NCpGs))
	return err
}

// PeekMeta reads only a methylome's sidecar JSON, without touching (or
// decompressing) its binary payload. The request handler uses this during
// header validation (spec.md §4.7 handle_header) to check methylome_size
// and index_hash against the index set before paying for a full C5 load.
func PeekMeta(methylomeDir, accession string) (Meta, error) {
	path := filepath.Join(methylomeDir, accession+FileExtension)
	metaBytes, err := os.ReadFile(metaPath(path))
	if err != nil {
		return Meta{}, xerrors.New("methylome.PeekMeta", xerrors.UnknownMethylome, err)
	}
	var meta Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return Meta{}, xerrors.New("methylome.PeekMeta", xerrors.CorruptData, err)
	}
	return meta, nil
}

// AccessionFromFilename strips directory and the .m16 extension, mapping
// a methylome file path onto its accession name.
func AccessionFromFilename(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == FileExtension {
		return base[:len(base)-len(ext)]
	}
	return base
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
