package executor

import (
	"sort"
	"strconv"
	"time"

	"github.com/corestore/reldb/internal/btree"
	"github.com/corestore/reldb/internal/config"
	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/indexmgr"
	"github.com/corestore/reldb/internal/pagecache"
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
	"github.com/corestore/reldb/internal/txlock"
)

// Engine composes the storage and index layers into the operator set spec
// §4.7 describes, recording an execution plan after every query.
type Engine struct {
	cfg     config.Config
	catalog *schema.Catalog
	cache   *pagecache.Cache
	indexes *indexmgr.Manager
	locks   *txlock.Registry

	lastPlan QueryExecution
}

// New wires an Engine over already-open catalog/cache/index layers.
func New(cfg config.Config, catalog *schema.Catalog, cache *pagecache.Cache, indexes *indexmgr.Manager, locks *txlock.Registry) *Engine {
	return &Engine{cfg: cfg, catalog: catalog, cache: cache, indexes: indexes, locks: locks}
}

// LastPlan returns the QueryExecution recorded by the most recent query on
// this Engine, for EXPLAIN (spec §4.7).
func (e *Engine) LastPlan() QueryExecution { return e.lastPlan }

// CreateTable builds a TableSchema, assigns ordinal positions, registers
// PK/UNIQUE/index definitions, and creates the corresponding indexes
// (spec §4.7 "create_table").
func (e *Engine) CreateTable(req CreateTableRequest) (schema.TableSchema, error) {
	unlock := e.locks.Lock(req.TableName)
	defer unlock()

	ts := schema.TableSchema{TableName: req.TableName}
	for i, c := range req.Columns {
		ts.Columns = append(ts.Columns, schema.ColumnSchema{
			Name:            c.Name,
			DataType:        c.DataType,
			MaxLength:       c.MaxLength,
			Nullable:        c.Nullable,
			DefaultValue:    c.DefaultValue,
			OrdinalPosition: i + 1,
		})
	}
	for _, col := range req.PrimaryKeys {
		ts.Keys = append(ts.Keys, schema.KeySchema{ColumnName: col, KeyType: schema.KeyPrimary})
	}
	for _, col := range req.UniqueKeys {
		ts.Keys = append(ts.Keys, schema.KeySchema{ColumnName: col, KeyType: schema.KeyUnique})
	}
	for _, ix := range req.Indexes {
		ts.Indexes = append(ts.Indexes, schema.IndexSchema{IndexName: ix.IndexName, ColumnName: ix.ColumnName, Unique: ix.Unique})
	}

	if err := e.catalog.CreateTable(ts); err != nil {
		return schema.TableSchema{}, err
	}
	e.indexes.EnsureTableIndexes(ts)
	return ts, nil
}

// DropTable removes the schema, data file, and every index owned by table
// (spec §4.3 "drop_table" extended to indexes per C6).
func (e *Engine) DropTable(table string, ifExists bool) error {
	unlock := e.locks.Lock(table)
	defer unlock()

	if !e.catalog.Exists(table) {
		if ifExists {
			return nil
		}
		return errs.ErrTableNotFound
	}
	if err := e.catalog.DropTable(table); err != nil {
		return err
	}
	e.indexes.DropTable(table)
	e.locks.Remove(table)
	return nil
}

// Insert validates the request against the schema's constraints, writes
// the row via the page cache, and updates every index (spec §4.7
// "insert").
func (e *Engine) Insert(req InsertRequest) (rowcodec.Row, error) {
	unlock := e.locks.Lock(req.TableName)
	defer unlock()

	ts, err := e.catalog.Get(req.TableName)
	if err != nil {
		return rowcodec.Row{}, err
	}

	for col := range req.Values {
		if _, ok := ts.Column(col); !ok {
			return rowcodec.Row{}, errs.New(errs.CodeColumnNotFound, "column %q not found on %q", col, req.TableName)
		}
	}

	values := make(map[string]rowcodec.Value, len(ts.Columns))
	order := ts.ColumnNames()
	for _, col := range ts.Columns {
		v, provided := req.Values[col.Name]
		if !provided {
			if col.DefaultValue != nil {
				v = coerceDefault(col, *col.DefaultValue)
			} else if !col.Nullable {
				return rowcodec.Row{}, errs.New(errs.CodeNotNullViolation, "column %q requires a value", col.Name).WithConstraint(req.TableName, col.Name, nil)
			} else {
				v = rowcodec.Null
			}
		}
		if v.IsNull() && !col.Nullable {
			return rowcodec.Row{}, errs.New(errs.CodeNotNullViolation, "column %q cannot be null", col.Name).WithConstraint(req.TableName, col.Name, nil)
		}
		values[col.Name] = v
	}

	if pk, ok := ts.PrimaryKeyColumn(); ok {
		pkVal := values[pk]
		if pkVal.IsNull() {
			return rowcodec.Row{}, errs.New(errs.CodeNotNullViolation, "primary key %q must be non-null", pk).WithConstraint(req.TableName, pk, nil)
		}
		if e.indexes.PrimaryKeyExists(req.TableName, pkVal) {
			return rowcodec.Row{}, errs.New(errs.CodePrimaryKeyViolation, "duplicate primary key").WithConstraint(req.TableName, pk, pkVal.Native())
		}
	}
	for _, col := range ts.UniqueKeyColumns() {
		v := values[col]
		if v.IsNull() {
			continue
		}
		if e.indexes.UniqueKeyExists(req.TableName, col, v) {
			return rowcodec.Row{}, errs.New(errs.CodeUniqueKeyViolation, "duplicate unique value").WithConstraint(req.TableName, col, v.Native())
		}
	}

	row, err := e.cache.InsertRow(req.TableName, values, order)
	if err != nil {
		return rowcodec.Row{}, err
	}
	if err := e.indexes.OnRowInserted(req.TableName, row.RowID, values); err != nil {
		return rowcodec.Row{}, err
	}
	return row, nil
}

func coerceDefault(col schema.ColumnSchema, raw string) rowcodec.Value {
	switch col.DataType {
	case schema.Integer, schema.BigInt:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			if col.DataType == schema.BigInt {
				return rowcodec.Int64(n)
			}
			return rowcodec.Int32(int32(n))
		}
	case schema.Decimal:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return rowcodec.Float64(f)
		}
	case schema.Boolean:
		if b, err := strconv.ParseBool(raw); err == nil {
			return rowcodec.Bool(b)
		}
	}
	return rowcodec.String(raw)
}

// Select runs the access-method chooser (if WHERE is present), applies
// ORDER BY/OFFSET/LIMIT, and projects to the requested columns, recording
// the execution plan (spec §4.7 "select").
func (e *Engine) Select(req SelectRequest) ([]ResultRow, error) {
	start := time.Now()
	unlock := e.locks.RLock(req.TableName)
	defer unlock()

	ts, err := e.catalog.Get(req.TableName)
	if err != nil {
		return nil, err
	}

	all, err := e.cache.ReadAllRows(req.TableName)
	if err != nil {
		return nil, err
	}

	plan := QueryExecution{Table: req.TableName, QueryType: "SELECT", WhereClause: req.Where}

	var candidates []rowcodec.Row
	var remaining Where
	if len(req.Where) == 0 {
		candidates = all
		plan.RowsScanned = len(all)
	} else if chosen, idx, ok := e.chooseAccessMethod(req.TableName, req.Where); ok {
		ids := e.runIndexOp(idx, chosen)
		byID := make(map[uint64]rowcodec.Row, len(all))
		for _, r := range all {
			byID[r.RowID] = r
		}
		for id := range ids {
			if r, ok := byID[id]; ok {
				candidates = append(candidates, r)
			}
		}
		plan.IndexUsed = true
		plan.IndexName = idx.IndexName
		plan.IndexColumn = idx.ColumnName
		plan.IndexOperation = opFor(chosen.Op)
		plan.RowsScanned = len(candidates)
		remaining = withoutClause(req.Where, chosen)
	} else {
		candidates = all
		plan.RowsScanned = len(all)
		remaining = req.Where
	}

	var filtered []rowcodec.Row
	for _, r := range candidates {
		if matches(r, remaining) {
			filtered = append(filtered, r)
		}
	}

	applyOrderBy(filtered, req.OrderBy)
	filtered = applyOffsetLimit(filtered, req.Offset, req.Limit)

	cols := req.Columns
	if len(cols) == 0 {
		cols = ts.ColumnNames()
	}
	rows := make([]ResultRow, len(filtered))
	for i, r := range filtered {
		values := make(map[string]rowcodec.Value, len(cols))
		for _, c := range cols {
			values[c] = r.Get(c)
		}
		rows[i] = ResultRow{Columns: cols, Values: values}
	}

	plan.RowsReturned = len(rows)
	plan.ExecutionTimeMs = float64(time.Since(start).Microseconds()) / 1000.0
	e.lastPlan = plan
	return rows, nil
}

// chooseAccessMethod implements spec §4.7's selection rule: iterate WHERE
// in order; the first indexed equality clause wins outright, otherwise the
// first indexed range clause wins (equality beats range even when listed
// later).
func (e *Engine) chooseAccessMethod(table string, where Where) (WhereClause, *btree.Index, bool) {
	var rangeClause WhereClause
	var rangeIdx *btree.Index
	haveRange := false

	for _, c := range where {
		ix, ok := e.indexes.IsIndexed(table, c.Column)
		if !ok || c.Value.IsNull() {
			continue
		}
		switch c.Op {
		case OpEq:
			return c, ix, true
		case OpGt, OpGte, OpLt, OpLte:
			if !haveRange {
				rangeClause, rangeIdx, haveRange = c, ix, true
			}
		}
	}
	if haveRange {
		return rangeClause, rangeIdx, true
	}
	return WhereClause{}, nil, false
}

func (e *Engine) runIndexOp(ix *btree.Index, c WhereClause) map[uint64]struct{} {
	key := btree.NewKey(c.Value)
	switch c.Op {
	case OpEq:
		return ix.Find(key)
	case OpGt:
		return ix.FindGreaterThan(key, false)
	case OpGte:
		return ix.FindGreaterThan(key, true)
	case OpLt:
		return ix.FindLessThan(key, false)
	case OpLte:
		return ix.FindLessThan(key, true)
	default:
		return nil
	}
}

func opFor(op WhereOp) IndexOperation {
	switch op {
	case OpEq:
		return OpEqualityLookup
	case OpGt:
		return OpRangeScanGT
	case OpGte:
		return OpRangeScanGTE
	case OpLt:
		return OpRangeScanLT
	case OpLte:
		return OpRangeScanLTE
	default:
		return ""
	}
}

func withoutClause(where Where, chosen WhereClause) Where {
	out := make(Where, 0, len(where))
	removed := false
	for _, c := range where {
		if !removed && c == chosen {
			removed = true
			continue
		}
		out = append(out, c)
	}
	return out
}

// applyOrderBy sorts rows in place by the given terms (spec §4.7 "ORDER BY
// and LIMIT apply AFTER WHERE and BEFORE projection").
func applyOrderBy(rows []rowcodec.Row, terms []OrderTerm) {
	if len(terms) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, t := range terms {
			a, b := rows[i].Get(t.Column), rows[j].Get(t.Column)
			ka, kb := btree.NewKey(a), btree.NewKey(b)
			if ka.Equal(kb) {
				continue
			}
			if t.Desc {
				return kb.Less(ka)
			}
			return ka.Less(kb)
		}
		return false
	})
}

// applyOffsetLimit applies OFFSET before LIMIT, both after WHERE/ORDER BY
// (spec §4.7).
func applyOffsetLimit(rows []rowcodec.Row, offset, limit *int) []rowcodec.Row {
	if offset != nil && *offset > 0 {
		if *offset >= len(rows) {
			return nil
		}
		rows = rows[*offset:]
	}
	if limit != nil && *limit < len(rows) {
		if *limit < 0 {
			return nil
		}
		rows = rows[:*limit]
	}
	return rows
}
