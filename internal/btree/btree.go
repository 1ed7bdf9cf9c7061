package btree

import (
	"fmt"
	"sync"
)

// ErrDuplicateKey is returned by Insert when the index is unique and the
// key already has a registered row-id (spec §4.5).
var ErrDuplicateKey = fmt.Errorf("btree: duplicate key")

// Stats reports the counters spec §4.5's "stats" operation exposes.
type Stats struct {
	KeyCount    int
	EntryCount  int
	InsertCount uint64
	LookupCount uint64
	RangeCount  uint64
}

// Index is an ordered map from Key to a set of row-ids, backing one column
// of one table (spec §3 "BTreeIndex", §4.5).
//
// It is safe for concurrent use: per-index operations take their own lock,
// so "inserts/lookups are lock-free per index" (spec §5) in the sense that
// two different Index instances never contend with each other; within one
// Index a light mutex serializes the map mutation itself.
type Index struct {
	IndexName  string
	TableName  string
	ColumnName string
	Unique     bool

	mu      sync.RWMutex
	buckets map[Key]map[uint64]struct{}

	insertCount uint64
	lookupCount uint64
	rangeCount  uint64
}

// New creates an empty index.
func New(indexName, tableName, columnName string, unique bool) *Index {
	return &Index{
		IndexName:  indexName,
		TableName:  tableName,
		ColumnName: columnName,
		Unique:     unique,
		buckets:    make(map[Key]map[uint64]struct{}),
	}
}

// Insert adds rowID under key. If the index is unique and key already has
// a non-empty row-id set, it fails with ErrDuplicateKey (spec §4.5
// "Uniqueness").
func (ix *Index) Insert(key Key, rowID uint64) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	set, ok := ix.buckets[key]
	if ok && len(set) > 0 && ix.Unique {
		return ErrDuplicateKey
	}
	if !ok {
		set = make(map[uint64]struct{})
		ix.buckets[key] = set
	}
	set[rowID] = struct{}{}
	ix.insertCount++
	return nil
}

// Delete removes rowID from key's bucket, purging the bucket entirely once
// empty so ContainsKey stays accurate (spec §3 invariant).
func (ix *Index) Delete(key Key, rowID uint64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	set, ok := ix.buckets[key]
	if !ok {
		return
	}
	delete(set, rowID)
	if len(set) == 0 {
		delete(ix.buckets, key)
	}
}

// Update moves rowID from oldKey to newKey (spec §4.5 "update").
func (ix *Index) Update(oldKey, newKey Key, rowID uint64) error {
	ix.Delete(oldKey, rowID)
	return ix.Insert(newKey, rowID)
}

// Find returns the row-id set for an exact key match (spec §4.5 "find" —
// EQUALITY access method).
func (ix *Index) Find(key Key) map[uint64]struct{} {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.lookupCount++
	return cloneSet(ix.buckets[key])
}

// ContainsKey reports whether key has any row-ids registered.
func (ix *Index) ContainsKey(key Key) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set, ok := ix.buckets[key]
	return ok && len(set) > 0
}

// FindRange returns the union of row-ids for keys in [min, max] inclusive
// on both ends (spec §4.5 "find_range").
func (ix *Index) FindRange(min, max Key) map[uint64]struct{} {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.rangeCount++

	out := make(map[uint64]struct{})
	for k, set := range ix.buckets {
		if !k.Less(min) && !max.Less(k) {
			mergeInto(out, set)
		}
	}
	return out
}

// FindGreaterThan returns the union of row-ids for keys > key, or >= key
// when inclusive is true (spec §4.5 "find_greater_than").
func (ix *Index) FindGreaterThan(key Key, inclusive bool) map[uint64]struct{} {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.rangeCount++

	out := make(map[uint64]struct{})
	for k, set := range ix.buckets {
		if key.Less(k) || (inclusive && k.Equal(key)) {
			mergeInto(out, set)
		}
	}
	return out
}

// FindLessThan returns the union of row-ids for keys < key, or <= key when
// inclusive is true (spec §4.5 "find_less_than").
func (ix *Index) FindLessThan(key Key, inclusive bool) map[uint64]struct{} {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.rangeCount++

	out := make(map[uint64]struct{})
	for k, set := range ix.buckets {
		if k.Less(key) || (inclusive && k.Equal(key)) {
			mergeInto(out, set)
		}
	}
	return out
}

// Clear empties the index (used by rebuild).
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.buckets = make(map[Key]map[uint64]struct{})
}

// KeyCount returns the number of distinct keys currently present.
func (ix *Index) KeyCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.buckets)
}

// EntryCount returns the total number of row-id entries across all keys.
func (ix *Index) EntryCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, set := range ix.buckets {
		n += len(set)
	}
	return n
}

// Stats returns a snapshot of the index's counters (spec §4.5 "stats").
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	n := 0
	for _, set := range ix.buckets {
		n += len(set)
	}
	return Stats{
		KeyCount:    len(ix.buckets),
		EntryCount:  n,
		InsertCount: ix.insertCount,
		LookupCount: ix.lookupCount,
		RangeCount:  ix.rangeCount,
	}
}

// snapshot returns every (key, row-id set) pair, used by the persistence
// layer and by rebuild.
func (ix *Index) snapshot() map[Key]map[uint64]struct{} {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make(map[Key]map[uint64]struct{}, len(ix.buckets))
	for k, set := range ix.buckets {
		out[k] = cloneSet(set)
	}
	return out
}

func cloneSet(set map[uint64]struct{}) map[uint64]struct{} {
	out := make(map[uint64]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

func mergeInto(dst, src map[uint64]struct{}) {
	for id := range src {
		dst[id] = struct{}{}
	}
}
