package executor

import (
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corestore/reldb/internal/rowcodec"
)

// Join executes an equi-join on one left and one right column (spec §4.7
// "join"): read both sides fully — concurrently, since they are
// independent reads under the JOIN lock-ordering rule — build a hash map
// on the right side keyed by the join column, then probe it once per left
// row.
func (e *Engine) Join(req JoinRequest) ([]ResultRow, error) {
	start := time.Now()
	unlock := e.locks.RLockPair(req.LeftTable, req.RightTable)
	defer unlock()

	leftSchema, err := e.catalog.Get(req.LeftTable)
	if err != nil {
		return nil, err
	}
	rightSchema, err := e.catalog.Get(req.RightTable)
	if err != nil {
		return nil, err
	}

	var leftRows, rightRows []rowcodec.Row
	g := new(errgroup.Group)
	g.Go(func() error {
		rows, err := e.cache.ReadAllRows(req.LeftTable)
		leftRows = rows
		return err
	})
	g.Go(func() error {
		rows, err := e.cache.ReadAllRows(req.RightTable)
		rightRows = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Keyed by rowcodec.Value directly (it's a comparable struct), so this
	// probe assumes the join columns share the same wire type on both
	// sides; it does not apply Value.Equal's cross-type numeric coercion.
	rightByKey := make(map[rowcodec.Value][]rowcodec.Row, len(rightRows))
	for _, r := range rightRows {
		k := r.Get(req.RightColumn)
		rightByKey[k] = append(rightByKey[k], r)
	}

	var joined []joinedRow
	matchedRight := make(map[uint64]bool, len(rightRows))

	for _, l := range leftRows {
		k := l.Get(req.LeftColumn)
		rs, ok := rightByKey[k]
		if ok && !k.IsNull() {
			for _, r := range rs {
				joined = append(joined, joinedRow{left: l, hasLeft: true, right: r, hasRight: true})
				matchedRight[r.RowID] = true
			}
			continue
		}
		if req.JoinType == JoinLeft {
			joined = append(joined, joinedRow{left: l, hasLeft: true})
		}
	}

	if req.JoinType == JoinRight {
		for _, r := range rightRows {
			if !matchedRight[r.RowID] {
				joined = append(joined, joinedRow{right: r, hasRight: true})
			}
		}
	}

	cols := req.Columns
	if len(cols) == 0 {
		for _, c := range leftSchema.ColumnNames() {
			cols = append(cols, req.LeftTable+"."+c)
		}
		for _, c := range rightSchema.ColumnNames() {
			cols = append(cols, req.RightTable+"."+c)
		}
	}

	var out []rowcodec.Row
	for _, jr := range joined {
		values := jr.qualifiedValues(req.LeftTable, req.RightTable, leftSchema.ColumnNames(), rightSchema.ColumnNames())
		row := rowcodec.Row{Values: values}
		if matches(row, req.Where) {
			out = append(out, row)
		}
	}
	out = applyOffsetLimit(out, req.Offset, req.Limit)

	result := make([]ResultRow, len(out))
	for i, r := range out {
		values := make(map[string]rowcodec.Value, len(cols))
		for _, c := range cols {
			values[c] = r.Get(c)
		}
		result[i] = ResultRow{Columns: cols, Values: values}
	}

	e.lastPlan = QueryExecution{
		Table:           req.LeftTable + "," + req.RightTable,
		QueryType:       "JOIN",
		WhereClause:     req.Where,
		RowsScanned:     len(leftRows) + len(rightRows),
		RowsReturned:    len(result),
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	return result, nil
}

// joinedRow is one (possibly partial) pairing produced by the hash-join
// probe phase; hasLeft/hasRight track which side is actually present so
// the orphan side's columns can be reported absent (spec §4.7 "with
// right-side columns absent").
type joinedRow struct {
	left, right       rowcodec.Row
	hasLeft, hasRight bool
}

func (jr joinedRow) qualifiedValues(leftTable, rightTable string, leftCols, rightCols []string) map[string]rowcodec.Value {
	values := make(map[string]rowcodec.Value, len(leftCols)+len(rightCols))
	for _, c := range leftCols {
		if jr.hasLeft {
			values[leftTable+"."+c] = jr.left.Get(c)
		} else {
			values[leftTable+"."+c] = rowcodec.Null
		}
	}
	for _, c := range rightCols {
		if jr.hasRight {
			values[rightTable+"."+c] = jr.right.Get(c)
		} else {
			values[rightTable+"."+c] = rowcodec.Null
		}
	}
	return values
}
