// Package schema implements the table schema catalog: spec §3 "TableSchema"
// and §4.3 (C3). The catalog owns every TableSchema exclusively; callers
// always get back a clone (spec §3 "Ownership").
package schema

import "time"

// DataType enumerates the column types spec §3 allows.
type DataType string

const (
	Varchar   DataType = "VARCHAR"
	Integer   DataType = "INTEGER"
	BigInt    DataType = "BIGINT"
	Decimal   DataType = "DECIMAL"
	Boolean   DataType = "BOOLEAN"
	Date      DataType = "DATE"
	Timestamp DataType = "TIMESTAMP"
	Text      DataType = "TEXT"
)

// KeyType enumerates PRIMARY/UNIQUE key declarations.
type KeyType string

const (
	KeyPrimary KeyType = "PRIMARY"
	KeyUnique  KeyType = "UNIQUE"
)

// ColumnSchema describes one column (spec §3).
type ColumnSchema struct {
	Name            string   `json:"name"`
	DataType        DataType `json:"data_type"`
	MaxLength       *int     `json:"max_length,omitempty"`
	Nullable        bool     `json:"nullable"`
	DefaultValue    *string  `json:"default_value,omitempty"`
	OrdinalPosition int      `json:"ordinal_position"`
}

// KeySchema describes a PRIMARY/UNIQUE key declaration over a single
// column (composite primary keys are a non-goal per spec §3).
type KeySchema struct {
	ColumnName string  `json:"column_name"`
	KeyType    KeyType `json:"key_type"`
}

// IndexSchema describes an explicit secondary index.
type IndexSchema struct {
	IndexName  string `json:"index_name"`
	ColumnName string `json:"column_name"`
	Unique     bool   `json:"unique"`
}

// TableSchema is the full schema document for one table (spec §3, §6).
type TableSchema struct {
	TableName string         `json:"table_name"`
	Columns   []ColumnSchema `json:"columns"`
	Keys      []KeySchema    `json:"keys"`
	Indexes   []IndexSchema  `json:"indexes"`

	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	RowCount   int64     `json:"row_count"`
	NextRowID  uint64    `json:"next_row_id"`
}

// Clone returns a deep copy, since the catalog must never hand out a
// reference callers could mutate in place.
func (t TableSchema) Clone() TableSchema {
	cols := make([]ColumnSchema, len(t.Columns))
	copy(cols, t.Columns)
	for i, c := range t.Columns {
		if c.MaxLength != nil {
			ml := *c.MaxLength
			cols[i].MaxLength = &ml
		}
		if c.DefaultValue != nil {
			dv := *c.DefaultValue
			cols[i].DefaultValue = &dv
		}
	}
	keys := make([]KeySchema, len(t.Keys))
	copy(keys, t.Keys)
	idx := make([]IndexSchema, len(t.Indexes))
	copy(idx, t.Indexes)

	n := t
	n.Columns = cols
	n.Keys = keys
	n.Indexes = idx
	return n
}

// Column looks up a column definition by name.
func (t TableSchema) Column(name string) (ColumnSchema, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSchema{}, false
}

// ColumnNames returns column names in schema (ordinal) order.
func (t TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeyColumn returns the single PRIMARY column, if any (spec §3:
// "primary may be composite only as independent single-column entries").
func (t TableSchema) PrimaryKeyColumn() (string, bool) {
	for _, k := range t.Keys {
		if k.KeyType == KeyPrimary {
			return k.ColumnName, true
		}
	}
	return "", false
}

// UniqueKeyColumns returns every column declared UNIQUE (not counting
// PRIMARY, which is handled separately by the index manager).
func (t TableSchema) UniqueKeyColumns() []string {
	var cols []string
	for _, k := range t.Keys {
		if k.KeyType == KeyUnique {
			cols = append(cols, k.ColumnName)
		}
	}
	return cols
}
