// Package executor implements the CRUD + equi-JOIN operators from spec
// §4.7 (C7): WHERE evaluation, the access-method chooser, ORDER BY/LIMIT/
// OFFSET, constraint enforcement, and the observable execution plan every
// query records.
package executor

import (
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
)

// ColumnDef is the column-definition shape of CreateTableRequest.
type ColumnDef struct {
	Name         string
	DataType     schema.DataType
	MaxLength    *int
	Nullable     bool
	DefaultValue *string
}

// IndexDef is one explicit secondary index declaration.
type IndexDef struct {
	IndexName  string
	ColumnName string
	Unique     bool
}

// CreateTableRequest is the DTO from spec §6.
type CreateTableRequest struct {
	TableName   string
	Columns     []ColumnDef
	PrimaryKeys []string
	UniqueKeys  []string
	Indexes     []IndexDef
}

// InsertRequest is the DTO from spec §6.
type InsertRequest struct {
	TableName string
	Values    map[string]rowcodec.Value
}

// WhereOp enumerates the comparison operators spec §4.8 tokenizes.
type WhereOp string

const (
	OpEq       WhereOp = "="
	OpNe       WhereOp = "<>"
	OpGt       WhereOp = ">"
	OpGte      WhereOp = ">="
	OpLt       WhereOp = "<"
	OpLte      WhereOp = "<="
	OpLike     WhereOp = "LIKE"
	OpIsNull   WhereOp = "IS NULL"
	OpNotNull  WhereOp = "IS NOT NULL"
)

// WhereClause is one AND-combined predicate (spec §4.7 "WHERE evaluation
// semantics"). Order is preserved exactly as parsed, since the
// access-method chooser depends on insertion order for its tie-break rule.
type WhereClause struct {
	Column string
	Op     WhereOp
	Value  rowcodec.Value // unused for IS [NOT] NULL
}

// Where is an AND-combined, ordered sequence of clauses (OR is a
// non-goal, per spec §4.7).
type Where []WhereClause

// OrderTerm is one ORDER BY column.
type OrderTerm struct {
	Column string
	Desc   bool
}

// SelectRequest is the DTO from spec §6.
type SelectRequest struct {
	TableName string
	Columns   []string // nil/empty means all columns in schema order
	Where     Where
	OrderBy   []OrderTerm
	Limit     *int
	Offset    *int
}

// UpdateRequest is the DTO from spec §6.
type UpdateRequest struct {
	TableName string
	Set       map[string]rowcodec.Value
	Where     Where
}

// DeleteRequest is the DTO from spec §6.
type DeleteRequest struct {
	TableName string
	Where     Where
}

// JoinType enumerates the supported equi-join kinds (spec §4.7 "join").
type JoinType string

const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
)

// JoinRequest is the DTO from spec §6.
type JoinRequest struct {
	LeftTable   string
	RightTable  string
	LeftColumn  string
	RightColumn string
	JoinType    JoinType
	Columns     []string
	Where       Where
	Limit       *int
	Offset      *int
}

// IndexOperation enumerates the access-method chooser's outcomes (spec
// §4.7 "Execution plan").
type IndexOperation string

const (
	OpEqualityLookup IndexOperation = "EQUALITY_LOOKUP"
	OpRangeScanGT    IndexOperation = "RANGE_SCAN_GT"
	OpRangeScanGTE   IndexOperation = "RANGE_SCAN_GTE"
	OpRangeScanLT    IndexOperation = "RANGE_SCAN_LT"
	OpRangeScanLTE   IndexOperation = "RANGE_SCAN_LTE"
)

// QueryExecution is the execution-plan record every query stores after it
// runs (spec §4.7); EXPLAIN returns this instead of the normal result.
type QueryExecution struct {
	Table           string
	QueryType       string
	IndexUsed       bool
	IndexName       string
	IndexColumn     string
	IndexOperation  IndexOperation
	RowsScanned     int
	RowsReturned    int
	ExecutionTimeMs float64
	WhereClause     Where
}

// ResultRow is one projected output row (spec §6 "ordered sequence of
// maps"); Columns preserves either schema order or explicit projection
// order.
type ResultRow struct {
	Columns []string
	Values  map[string]rowcodec.Value
}

// Get returns the value for a (possibly table-qualified) column name.
func (r ResultRow) Get(name string) rowcodec.Value {
	if v, ok := r.Values[name]; ok {
		return v
	}
	return rowcodec.Null
}
