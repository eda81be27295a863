// Package methylomeset implements the bounded, pin-aware LRU cache of
// resident methylomes (spec.md §4.5 — the "resident-methylome cache"),
// with single-flight collapsing of concurrent cold loads for the same
// accession.
//
// Grounded on internal/coordinator/health_monitor.go's shape (a
// background-bookkeeping struct guarded by a mutex, with a condition-like
// wakeup pattern) generalized per spec.md §9's design note: "a single
// lock + per-entry condition variable is sufficient at this scale."
// Go's idiomatic substitute for a condition variable keyed per accession
// is golang.org/x/sync/singleflight, so the actual blocking/waking is
// delegated to it rather than hand-rolled with sync.Cond.
package methylomeset

import (
	"sync"

	"golang.org/x/sync/singleflight"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/dreamware/xfrase/internal/methylome"
	"github.com/dreamware/xfrase/internal/xerrors"
)

// Loader loads a methylome and its metadata from durable storage, given
// its accession. Supplied once at construction; the server subcommand in
// cmd/xfrase wires this to internal/methylome.Load against the configured
// methylome directory.
type Loader func(accession string) (*methylome.Methylome, methylome.Meta, error)

// cacheEntry is the state per resident methylome (spec.md §4.5 "State
// per entry"). loaderState/idle/loading/failed are implicit here: an
// entry only ever exists in the map once its load has already
// succeeded — in-flight and failed loads are owned entirely by the
// singleflight.Group and never published to the map.
type cacheEntry struct {
	accession string
	m         *methylome.Methylome
	meta      methylome.Meta
	pinCount  int
	lruTick   uint64
}

// Set is the resident-methylome cache.
type Set struct {
	mu          sync.Mutex
	maxResident int
	entries     map[string]*cacheEntry
	lru         *lru.LRU[string, *cacheEntry]
	group       singleflight.Group
	loader      Loader
	tick        uint64
}

// New creates a cache bounded to maxResident resident methylomes
// (spec.md §4.5 default: 32), backed by loader for cold accessions.
func New(maxResident int, loader Loader) *Set {
	// The underlying simplelru is never asked to evict on its own — its
	// capacity is effectively unbounded (we only rely on it for recency
	// ordering via Get/Add) because stock LRU eviction can't skip pinned
	// entries; evictOneLocked below implements the pin-aware walk.
	l, _ := lru.NewLRU[string, *cacheEntry](1<<31-1, nil)
	return &Set{
		maxResident: maxResident,
		entries:     make(map[string]*cacheEntry),
		lru:         l,
		loader:      loader,
	}
}

// Handle is a reference-counted handle to a resident methylome, valid
// until Release is called (spec.md §4.5 "Contract"). Callers never
// mutate the methylome through a handle.
type Handle struct {
	set       *Set
	accession string
	entry     *cacheEntry
}

// Methylome returns the resident methylome. Valid only until Release.
func (h *Handle) Methylome() *methylome.Methylome { return h.entry.m }

// Meta returns the methylome's persisted metadata.
func (h *Handle) Meta() methylome.Meta { return h.entry.meta }

// Release drops this handle's pin on the entry, allowing it to become
// eligible for eviction once no other handle pins it.
func (h *Handle) Release() {
	h.set.mu.Lock()
	defer h.set.mu.Unlock()
	if e, ok := h.set.entries[h.accession]; ok && e == h.entry {
		e.pinCount--
	}
}

// Get resolves accession to a pinned handle, loading it on a cache miss.
// expectedIndexHash is compared against the loaded methylome's metadata
// to catch an accession whose methylome was built against a different
// reference build than the one currently loaded (spec.md §4.5
// "metadata_mismatch").
//
// Concurrent Get calls for the same cold accession collapse onto a
// single Loader invocation (spec.md §8 property 8); all of them receive
// the same result or the same error, and a failed load is never cached.
func (s *Set) Get(accession string, expectedIndexHash uint64) (*Handle, error) {
	s.mu.Lock()
	if e, ok := s.entries[accession]; ok {
		if e.meta.IndexHash != expectedIndexHash {
			s.mu.Unlock()
			return nil, xerrors.New("methylomeset.Get", xerrors.MetadataMismatch, nil)
		}
		e.pinCount++
		s.touchLocked(accession, e)
		s.mu.Unlock()
		return &Handle{set: s, accession: accession, entry: e}, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(accession, func() (interface{}, error) {
		m, meta, err := s.loader(accession)
		if err != nil {
			return nil, err
		}
		if meta.IndexHash != expectedIndexHash {
			return nil, xerrors.New("methylomeset.Get", xerrors.MetadataMismatch, nil)
		}
		return &cacheEntry{accession: accession, m: m, meta: meta}, nil
	})
	if err != nil {
		return nil, err
	}
	loaded := v.(*cacheEntry)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another waiter (or a fully independent Get) may have already
	// published this accession while we were blocked in group.Do.
	if e, ok := s.entries[accession]; ok {
		e.pinCount++
		s.touchLocked(accession, e)
		return &Handle{set: s, accession: accession, entry: e}, nil
	}

	if len(s.entries) >= s.maxResident && s.maxResident > 0 {
		if !s.evictOneLocked() {
			return nil, xerrors.New("methylomeset.Get", xerrors.CacheFull, nil)
		}
	}

	loaded.pinCount = 1
	s.tick++
	loaded.lruTick = s.tick
	s.entries[accession] = loaded
	s.lru.Add(accession, loaded)
	return &Handle{set: s, accession: accession, entry: loaded}, nil
}

// touchLocked marks accession as the most recently used entry. Caller
// holds s.mu.
func (s *Set) touchLocked(accession string, e *cacheEntry) {
	s.tick++
	e.lruTick = s.tick
	s.lru.Get(accession) // simplelru.Get refreshes recency as a side effect
}

// evictOneLocked evicts the least-recently-used unpinned entry, ties
// broken by lowest lruTick (spec.md §4.5/§8 property 9). Returns false
// if every entry is pinned (spec.md's "cache_full" condition). Caller
// holds s.mu.
func (s *Set) evictOneLocked() bool {
	var (
		victim    string
		victimE   *cacheEntry
		found     bool
	)
	for _, key := range s.lru.Keys() { // oldest-first order
		e := s.entries[key]
		if e == nil || e.pinCount > 0 {
			continue
		}
		if !found || e.lruTick < victimE.lruTick {
			victim, victimE, found = key, e, true
		}
		// simplelru.Keys() is already oldest-first, so the first unpinned
		// entry encountered is the LRU one; the tick comparison above is
		// a belt-and-suspenders tie-break for entries sharing a tick.
		break
	}
	if !found {
		return false
	}
	delete(s.entries, victim)
	s.lru.Remove(victim)
	return true
}

// Len reports the current number of resident methylomes.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
