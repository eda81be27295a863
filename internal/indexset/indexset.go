// Package indexset scans a directory of CpG index files at startup and
// builds the immutable assembly-name→index map the server consults for
// every request (spec.md §4.4). Grounded on the teacher's
// internal/coordinator/shard_registry.go: an immutable map built once,
// then read freely without locking afterwards.
package indexset

import (
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/exp/slices"

	"github.com/dreamware/xfrase/internal/cpgindex"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// filenamePattern matches "<assembly>.cpg_idx"; the assembly name is the
// capture group (spec.md §4.4).
var filenamePattern = regexp.MustCompile(`^([A-Za-z0-9_]+)\.cpg_idx$`)

// entry bundles a loaded index with its metadata for fast access.
type entry struct {
	index *cpgindex.Index
	meta  cpgindex.Metadata
}

// Set is an immutable collection of CpG indices keyed by assembly name.
// Safe for unsynchronized concurrent reads once constructed (spec.md §5
// "index_set: read-only after construction, freely shared").
type Set struct {
	byAssembly map[string]entry
}

// Scan walks dir, loading every file matching the cpg_idx naming
// convention. If any candidate file fails to load, the whole scan fails
// and no partial Set is returned — spec.md §4.4's fail-closed policy.
func Scan(dir string) (*Set, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, xerrors.New("indexset.Scan", xerrors.IOError, err)
	}

	var names []string
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if filenamePattern.MatchString(de.Name()) {
			names = append(names, de.Name())
		}
	}
	slices.Sort(names)

	byAssembly := make(map[string]entry, len(names))
	for _, name := range names {
		m := filenamePattern.FindStringSubmatch(name)
		assembly := m[1]

		idx, err := cpgindex.Read(filepath.Join(dir, name))
		if err != nil {
			return nil, xerrors.New("indexset.Scan", xerrors.IOError, err)
		}
		byAssembly[assembly] = entry{index: idx, meta: idx.Metadata()}
	}

	return &Set{byAssembly: byAssembly}, nil
}

// Get returns the index and metadata for assembly, or an
// unknown_methylome error if no index for assembly was loaded.
func (s *Set) Get(assembly string) (*cpgindex.Index, cpgindex.Metadata, error) {
	e, ok := s.byAssembly[assembly]
	if !ok {
		return nil, cpgindex.Metadata{}, xerrors.New("indexset.Get", xerrors.UnknownMethylome, nil)
	}
	return e.index, e.meta, nil
}

// Len reports the number of loaded indices.
func (s *Set) Len() int { return len(s.byAssembly) }

// Assemblies returns the sorted list of loaded assembly names.
func (s *Set) Assemblies() []string {
	out := make([]string, 0, len(s.byAssembly))
	for name := range s.byAssembly {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
