// Package schemaimport loads a bulk table-definition manifest from a TOML
// file (SPEC_FULL.md "Bulk schema import"), producing the same
// CreateTableRequest DTOs a hand-written CREATE TABLE statement would, so
// an operator can provision a whole schema in one call instead of one
// dispatcher statement per table.
package schemaimport

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/schema"
)

// manifest mirrors the TOML document shape:
//
//	[[table]]
//	name = "users"
//	primary_keys = ["id"]
//	unique_keys = ["email"]
//	  [[table.column]]
//	  name = "id"
//	  type = "INTEGER"
//	  nullable = false
//	  [[table.column]]
//	  name = "email"
//	  type = "VARCHAR"
//	  max_length = 255
//	  nullable = false
//	  [[table.index]]
//	  name = "idx_users_created_at"
//	  column = "created_at"
//	  unique = false
type manifest struct {
	Table []tableDef `toml:"table"`
}

type tableDef struct {
	Name        string      `toml:"name"`
	Column      []columnDef `toml:"column"`
	PrimaryKeys []string    `toml:"primary_keys"`
	UniqueKeys  []string    `toml:"unique_keys"`
	Index       []indexDef  `toml:"index"`
}

type columnDef struct {
	Name         string `toml:"name"`
	Type         string `toml:"type"`
	MaxLength    int    `toml:"max_length"`
	Nullable     bool   `toml:"nullable"`
	DefaultValue string `toml:"default_value"`
}

type indexDef struct {
	Name   string `toml:"name"`
	Column string `toml:"column"`
	Unique bool   `toml:"unique"`
}

// LoadFile decodes path as a TOML manifest and returns one
// CreateTableRequest per [[table]] entry, in file order.
func LoadFile(path string) ([]executor.CreateTableRequest, error) {
	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, errs.Wrap(errs.CodeInvalidSQL, err, "parse schema manifest %s", path)
	}
	return build(m)
}

func build(m manifest) ([]executor.CreateTableRequest, error) {
	reqs := make([]executor.CreateTableRequest, 0, len(m.Table))
	for _, t := range m.Table {
		req := executor.CreateTableRequest{
			TableName:   t.Name,
			PrimaryKeys: t.PrimaryKeys,
			UniqueKeys:  t.UniqueKeys,
		}
		for _, c := range t.Column {
			dt, ok := dataTypeFromString(c.Type)
			if !ok {
				return nil, fmt.Errorf("schemaimport: table %q column %q: unrecognized type %q", t.Name, c.Name, c.Type)
			}
			col := executor.ColumnDef{Name: c.Name, DataType: dt, Nullable: c.Nullable}
			if c.MaxLength > 0 {
				ml := c.MaxLength
				col.MaxLength = &ml
			}
			if c.DefaultValue != "" {
				dv := c.DefaultValue
				col.DefaultValue = &dv
			}
			req.Columns = append(req.Columns, col)
		}
		for _, ix := range t.Index {
			req.Indexes = append(req.Indexes, executor.IndexDef{IndexName: ix.Name, ColumnName: ix.Column, Unique: ix.Unique})
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func dataTypeFromString(s string) (schema.DataType, bool) {
	switch s {
	case string(schema.Varchar), string(schema.Integer), string(schema.BigInt),
		string(schema.Decimal), string(schema.Boolean), string(schema.Date),
		string(schema.Timestamp), string(schema.Text):
		return schema.DataType(s), true
	default:
		return "", false
	}
}
