package executor

import (
	"strings"

	"github.com/corestore/reldb/internal/btree"
	"github.com/corestore/reldb/internal/rowcodec"
)

// matches reports whether row satisfies every clause (AND-combined, spec
// §4.7 "Multiple clauses are AND-combined").
func matches(row rowcodec.Row, where Where) bool {
	for _, c := range where {
		if !matchesClause(row, c) {
			return false
		}
	}
	return true
}

func matchesClause(row rowcodec.Row, c WhereClause) bool {
	v := row.Get(c.Column)
	switch c.Op {
	case OpIsNull:
		return v.IsNull()
	case OpNotNull:
		return !v.IsNull()
	case OpLike:
		return likeMatch(v.Text(), c.Value.Text())
	case OpEq:
		return v.Equal(c.Value)
	case OpNe:
		return !v.Equal(c.Value)
	case OpGt, OpGte, OpLt, OpLte:
		return compareOrdered(v, c.Value, c.Op)
	default:
		return false
	}
}

// compareOrdered evaluates a range comparison using the same cross-type
// numeric/text fallback the index key wrapper uses (spec §4.7 "Value
// equality uses the same comparison as the index wrapper").
func compareOrdered(a, b rowcodec.Value, op WhereOp) bool {
	if a.IsNull() || b.IsNull() {
		return false
	}
	ka, kb := btree.NewKey(a), btree.NewKey(b)
	less, greater := ka.Less(kb), kb.Less(ka)
	switch op {
	case OpGt:
		return greater
	case OpGte:
		return greater || (!less && !greater)
	case OpLt:
		return less
	case OpLte:
		return less || (!less && !greater)
	default:
		return false
	}
}

func numeric(v rowcodec.Value) (float64, bool) {
	switch v.Tag {
	case rowcodec.TagInt32:
		return float64(v.I32), true
	case rowcodec.TagInt64:
		return float64(v.I64), true
	case rowcodec.TagFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// likeMatch implements SQL LIKE with '%' (any run) and '_' (single char),
// case-insensitive (spec §4.7).
func likeMatch(text, pattern string) bool {
	return likeRunes([]rune(strings.ToLower(text)), []rune(strings.ToLower(pattern)))
}

func likeRunes(text, pattern []rune) bool {
	if len(pattern) == 0 {
		return len(text) == 0
	}
	switch pattern[0] {
	case '%':
		if likeRunes(text, pattern[1:]) {
			return true
		}
		for len(text) > 0 {
			text = text[1:]
			if likeRunes(text, pattern[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(text) == 0 {
			return false
		}
		return likeRunes(text[1:], pattern[1:])
	default:
		if len(text) == 0 || text[0] != pattern[0] {
			return false
		}
		return likeRunes(text[1:], pattern[1:])
	}
}
