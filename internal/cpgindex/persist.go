package cpgindex

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/dreamware/xfrase/internal/xerrors"
)

// metaPath returns the sidecar JSON path for a given .cpg_idx binary path.
func metaPath(indexFile string) string { return indexFile + ".json" }

// Write persists the index to indexFile (the binary position stream) and
// its sidecar indexFile+".json" metadata, per spec.md §4.2 "Persistence".
func (idx *Index) Write(indexFile string) error {
	buf := make([]byte, 0, idx.meta.NCpGsTotal*4)
	for _, p := range idx.positions {
		for _, pos := range p {
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], pos)
			buf = append(buf, b[:]...)
		}
	}

	if err := os.WriteFile(indexFile, buf, 0o644); err != nil {
		return xerrors.New("cpgindex.Write", xerrors.IOError, err)
	}

	meta := idx.meta
	meta.IndexHash = hashBytes(buf)

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return xerrors.New("cpgindex.Write", xerrors.InternalError, err)
	}
	if err := os.WriteFile(metaPath(indexFile), metaBytes, 0o644); err != nil {
		return xerrors.New("cpgindex.Write", xerrors.IOError, err)
	}
	return nil
}

// Read loads an index previously written with Write.
func Read(indexFile string) (*Index, error) {
	metaBytes, err := os.ReadFile(metaPath(indexFile))
	if err != nil {
		return nil, xerrors.New("cpgindex.Read", xerrors.IOError, err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, xerrors.New("cpgindex.Read", xerrors.CorruptData, err)
	}

	raw, err := os.ReadFile(indexFile)
	if err != nil {
		return nil, xerrors.New("cpgindex.Read", xerrors.IOError, err)
	}
	if uint64(len(raw)) != meta.NCpGsTotal*4 {
		return nil, xerrors.New("cpgindex.Read", xerrors.CorruptData,
			fmt.Errorf("binary file has %d bytes, expected %d", len(raw), meta.NCpGsTotal*4))
	}
	if hashBytes(raw) != meta.IndexHash {
		return nil, xerrors.New("cpgindex.Read", xerrors.CorruptData,
			fmt.Errorf("index_hash mismatch"))
	}

	positions := make([][]uint32, len(meta.ChromOrder))
	var offset uint64
	for i, n := range meta.NCpGsPerChrom {
		p := make([]uint32, n)
		for j := uint32(0); j < n; j++ {
			p[j] = binary.LittleEndian.Uint32(raw[(offset+uint64(j))*4:])
		}
		positions[i] = p
		offset += uint64(n)
	}

	return newIndex(meta, positions), nil
}

// hashBytes computes the content hash stored as index_hash / used for
// methylome-to-index compatibility checks (spec.md §4.2/§4.5).
func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}
