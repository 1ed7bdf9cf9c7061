package executor

import (
	"time"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/rowcodec"
)

// Update applies set to every row matching where, one row at a time so a
// constraint violation partway through leaves already-mutated rows mutated
// rather than rolling back (spec §4.7 "Failure semantics": "no transaction
// rollback").
func (e *Engine) Update(req UpdateRequest) (int, error) {
	start := time.Now()
	unlock := e.locks.Lock(req.TableName)
	defer unlock()

	ts, err := e.catalog.Get(req.TableName)
	if err != nil {
		return 0, err
	}
	for col := range req.Set {
		if _, ok := ts.Column(col); !ok {
			return 0, errs.New(errs.CodeColumnNotFound, "column %q not found on %q", col, req.TableName)
		}
	}

	all, err := e.cache.ReadAllRows(req.TableName)
	if err != nil {
		return 0, err
	}

	pk, hasPK := ts.PrimaryKeyColumn()
	uniqueCols := ts.UniqueKeyColumns()

	mutated := 0
	for _, row := range all {
		if !matches(row, req.Where) {
			continue
		}

		newRow := row.WithSet(req.Set)

		if hasPK {
			oldV, newV := row.Get(pk), newRow.Get(pk)
			if !oldV.Equal(newV) {
				if newV.IsNull() {
					return mutated, errs.New(errs.CodeNotNullViolation, "primary key %q must be non-null", pk).WithConstraint(req.TableName, pk, nil)
				}
				if e.indexes.PrimaryKeyExists(req.TableName, newV) {
					return mutated, errs.New(errs.CodePrimaryKeyViolation, "duplicate primary key").WithConstraint(req.TableName, pk, newV.Native())
				}
			}
		}
		for _, col := range uniqueCols {
			oldV, newV := row.Get(col), newRow.Get(col)
			if oldV.Equal(newV) || newV.IsNull() {
				continue
			}
			if e.indexes.UniqueKeyExists(req.TableName, col, newV) {
				return mutated, errs.New(errs.CodeUniqueKeyViolation, "duplicate unique value").WithConstraint(req.TableName, col, newV.Native())
			}
		}

		rowID := row.RowID
		updated, err := e.cache.UpdateRows(req.TableName, req.Set, func(r rowcodec.Row) bool { return r.RowID == rowID })
		if err != nil {
			return mutated, err
		}
		for _, u := range updated {
			if err := e.indexes.OnRowUpdated(req.TableName, u.Old.RowID, u.Old.Values, u.New.Values); err != nil {
				return mutated, err
			}
		}
		mutated += len(updated)
	}

	e.lastPlan = QueryExecution{
		Table: req.TableName, QueryType: "UPDATE", WhereClause: req.Where,
		RowsScanned: len(all), RowsReturned: mutated,
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	return mutated, nil
}

// Delete tombstones every row matching where and notifies the index
// manager (spec §4.7 "delete").
func (e *Engine) Delete(req DeleteRequest) (int, error) {
	start := time.Now()
	unlock := e.locks.Lock(req.TableName)
	defer unlock()

	if !e.catalog.Exists(req.TableName) {
		return 0, errs.ErrTableNotFound
	}

	all, err := e.cache.ReadAllRows(req.TableName)
	if err != nil {
		return 0, err
	}

	deleted, err := e.cache.DeleteRows(req.TableName, func(r rowcodec.Row) bool { return matches(r, req.Where) })
	if err != nil {
		return 0, err
	}
	for _, row := range deleted {
		e.indexes.OnRowDeleted(req.TableName, row.RowID, row.Values)
	}
	if err := e.catalog.AdjustRowCount(req.TableName, -int64(len(deleted))); err != nil {
		return len(deleted), err
	}

	e.lastPlan = QueryExecution{
		Table: req.TableName, QueryType: "DELETE", WhereClause: req.Where,
		RowsScanned: len(all), RowsReturned: len(deleted),
		ExecutionTimeMs: float64(time.Since(start).Microseconds()) / 1000.0,
	}
	return len(deleted), nil
}
