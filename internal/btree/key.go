// Package btree implements the ordered, per-column index from spec §4.5
// (C5): a comparable key wrapper over rowcodec.Value plus an ordered map
// from key to the set of row_ids carrying that key.
package btree

import (
	"sort"
	"strconv"

	"github.com/corestore/reldb/internal/rowcodec"
)

// Key wraps a rowcodec.Value with the comparison contract spec §4.5
// mandates:
//
//  1. nulls first ("null < anything");
//  2. if both values share a concrete type, use its natural order;
//  3. if both values are numeric, compare as f64;
//  4. else attempt to parse both as f64 and compare;
//  5. otherwise compare as UTF-8 strings of their textual representation.
type Key struct {
	V rowcodec.Value
}

// NewKey wraps v as an index key.
func NewKey(v rowcodec.Value) Key { return Key{V: v} }

// Less implements the comparison contract.
func (k Key) Less(other Key) bool {
	a, b := k.V, other.V

	if a.Tag == rowcodec.TagNull || b.Tag == rowcodec.TagNull {
		if a.Tag == rowcodec.TagNull && b.Tag == rowcodec.TagNull {
			return false
		}
		return a.Tag == rowcodec.TagNull // null < anything
	}

	if a.Tag == b.Tag {
		switch a.Tag {
		case rowcodec.TagInt32:
			return a.I32 < b.I32
		case rowcodec.TagInt64:
			return a.I64 < b.I64
		case rowcodec.TagFloat:
			return a.F64 < b.F64
		case rowcodec.TagBool:
			return !a.B && b.B
		case rowcodec.TagString:
			return a.S < b.S
		}
	}

	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af < bf
	}

	return a.Text() < b.Text()
}

// Equal reports key equality under the same contract Less uses.
func (k Key) Equal(other Key) bool {
	return !k.Less(other) && !other.Less(k)
}

func asFloat(v rowcodec.Value) (float64, bool) {
	switch v.Tag {
	case rowcodec.TagInt32:
		return float64(v.I32), true
	case rowcodec.TagInt64:
		return float64(v.I64), true
	case rowcodec.TagFloat:
		return v.F64, true
	case rowcodec.TagString:
		if f, err := strconv.ParseFloat(v.S, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// sortKeys returns a copy of ks sorted ascending by Less. The range scans in
// btree.go do not use it: they test every key of the map in map order.
func sortKeys(ks []Key) []Key {
	out := make([]Key, len(ks))
	copy(out, ks)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
