package dispatcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/rowcodec"
)

var (
	keyDefPrimaryRe = regexp.MustCompile(`(?i)^PRIMARY\s+KEY\s*\(([^)]*)\)$`)
	keyDefUniqueRe  = regexp.MustCompile(`(?i)^UNIQUE\s*\(([^)]*)\)$`)
	keyDefIndexRe   = regexp.MustCompile(`(?i)^(?:INDEX|KEY)\s+(\w+)\s*\(([^)]*)\)$`)
	colDefRe        = regexp.MustCompile(`(?is)^(\w+)\s+([\w()]+)\s*(.*)$`)
	notNullRe       = regexp.MustCompile(`(?i)\bNOT\s+NULL\b`)
	defaultRe       = regexp.MustCompile(`(?is)\bDEFAULT\s+('(?:[^']*)'|\S+)`)
)

func parseCreateTable(tableName, body string) (*executor.CreateTableRequest, error) {
	req := &executor.CreateTableRequest{TableName: tableName}

	for _, part := range splitTopLevel(body, ',') {
		if part == "" {
			continue
		}
		if m := keyDefPrimaryRe.FindStringSubmatch(part); m != nil {
			req.PrimaryKeys = append(req.PrimaryKeys, splitCols(m[1])...)
			continue
		}
		if m := keyDefUniqueRe.FindStringSubmatch(part); m != nil {
			req.UniqueKeys = append(req.UniqueKeys, splitCols(m[1])...)
			continue
		}
		if m := keyDefIndexRe.FindStringSubmatch(part); m != nil {
			cols := splitCols(m[2])
			if len(cols) != 1 {
				return nil, errs.New(errs.CodeInvalidSQL, "index %q must name exactly one column", m[1]).WithSQL(part)
			}
			req.Indexes = append(req.Indexes, executor.IndexDef{IndexName: m[1], ColumnName: cols[0]})
			continue
		}

		col, err := parseColumnDef(part)
		if err != nil {
			return nil, err
		}
		req.Columns = append(req.Columns, col)
	}

	if len(req.Columns) == 0 {
		return nil, errs.New(errs.CodeInvalidSQL, "CREATE TABLE requires at least one column").WithSQL(body)
	}
	return req, nil
}

func splitCols(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		c = strings.TrimSpace(c)
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func parseColumnDef(s string) (executor.ColumnDef, error) {
	m := colDefRe.FindStringSubmatch(s)
	if m == nil {
		return executor.ColumnDef{}, errs.New(errs.CodeInvalidSQL, "malformed column definition %q", s).WithSQL(s)
	}
	name, typeStr, rest := m[1], m[2], m[3]

	dt, maxLen, ok := parseDataType(typeStr)
	if !ok {
		return executor.ColumnDef{}, errs.New(errs.CodeInvalidSQL, "unrecognized column type %q", typeStr).WithSQL(s)
	}

	col := executor.ColumnDef{Name: name, DataType: dt, MaxLength: maxLen, Nullable: true}
	if notNullRe.MatchString(rest) {
		col.Nullable = false
	}
	if dm := defaultRe.FindStringSubmatch(rest); dm != nil {
		raw := dm[1]
		if len(raw) >= 2 && raw[0] == '\'' && raw[len(raw)-1] == '\'' {
			raw = raw[1 : len(raw)-1]
		}
		col.DefaultValue = &raw
	}
	return col, nil
}

func parseInsert(tableName, colsPart, valsPart string) (*executor.InsertRequest, error) {
	cols := splitCols(colsPart)
	vals := splitTopLevel(valsPart, ',')
	if len(cols) != len(vals) {
		return nil, errs.New(errs.CodeInvalidSQL, "column/value count mismatch").WithSQL(fmt.Sprintf("(%s) VALUES (%s)", colsPart, valsPart))
	}

	req := &executor.InsertRequest{TableName: tableName, Values: make(map[string]rowcodec.Value, len(cols))}
	for i, c := range cols {
		req.Values[c] = parseLiteral(vals[i])
	}
	return req, nil
}
