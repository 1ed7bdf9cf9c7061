// Package dispatcher implements the bounded SQL grammar from spec §4.8
// (C8): a regex-driven tokenizer/parser, not a general-purpose AST parser,
// that turns SQL text into the executor's typed DTOs.
package dispatcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
)

var (
	createTableRe = regexp.MustCompile(`(?is)^CREATE\s+TABLE\s+(\w+)\s*\((.*)\)\s*;?$`)
	dropTableRe   = regexp.MustCompile(`(?is)^DROP\s+TABLE\s+(IF\s+EXISTS\s+)?(\w+)\s*;?$`)
	insertRe      = regexp.MustCompile(`(?is)^INSERT\s+INTO\s+(\w+)\s*\(([^)]*)\)\s*VALUES\s*\((.*)\)\s*;?$`)
	selectRe      = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(\w+)(.*?)$`)
	joinSelectRe  = regexp.MustCompile(`(?is)^SELECT\s+(.+?)\s+FROM\s+(\w+)\s+(INNER\s+|LEFT\s+|RIGHT\s+)?JOIN\s+(\w+)\s+ON\s+(\w+)\.(\w+)\s*=\s*(\w+)\.(\w+)(.*?)$`)
	updateRe      = regexp.MustCompile(`(?is)^UPDATE\s+(\w+)\s+SET\s+(.+?)(?:\s+WHERE\s+(.+))?\s*;?$`)
	deleteRe      = regexp.MustCompile(`(?is)^DELETE\s+FROM\s+(\w+)(?:\s+WHERE\s+(.+?))?\s*;?$`)
	showTablesRe  = regexp.MustCompile(`(?is)^SHOW\s+TABLES\s*;?$`)
	showIndexesRe = regexp.MustCompile(`(?is)^SHOW\s+INDEXES\s*;?$`)
	describeRe    = regexp.MustCompile(`(?is)^(?:DESCRIBE|DESC)\s+(\w+)\s*;?$`)
	explainRe     = regexp.MustCompile(`(?is)^EXPLAIN\s+(.+)$`)

	whereClauseRe = regexp.MustCompile(`(?is)\s+WHERE\s+(.+?)(\s+ORDER\s+BY\s+.+|\s+LIMIT\s+\d+.*|\s+OFFSET\s+\d+.*)?$`)
	orderByRe     = regexp.MustCompile(`(?is)ORDER\s+BY\s+(.+?)(?:\s+LIMIT\s+\d+.*|\s+OFFSET\s+\d+.*)?$`)
	limitRe       = regexp.MustCompile(`(?is)LIMIT\s+(\d+)`)
	offsetRe      = regexp.MustCompile(`(?is)OFFSET\s+(\d+)`)

	typeVarcharRe   = regexp.MustCompile(`(?i)^(VARCHAR|CHAR)\((\d+)\)$`)
	typeIntRe       = regexp.MustCompile(`(?i)^(INT|INTEGER)$`)
	typeBigIntRe    = regexp.MustCompile(`(?i)^BIGINT$`)
	typeDecimalRe   = regexp.MustCompile(`(?i)^(DECIMAL|NUMERIC|DOUBLE|FLOAT)$`)
	typeBoolRe      = regexp.MustCompile(`(?i)^(BOOLEAN|BOOL)$`)
	typeDateRe      = regexp.MustCompile(`(?i)^DATE$`)
	typeTimestampRe = regexp.MustCompile(`(?i)^(TIMESTAMP|DATETIME)$`)
	typeTextRe      = regexp.MustCompile(`(?i)^(TEXT|CLOB)$`)

	decimalLiteralRe = regexp.MustCompile(`^-?\d+\.\d+$`)
	integerLiteralRe = regexp.MustCompile(`^-?\d+$`)
)

// Statement is the parsed, typed result of Parse: besides Kind, at most one
// field is populated, matching the statement kind (SHOW_TABLES and
// SHOW_INDEXES populate none).
type Statement struct {
	Kind          string // CREATE_TABLE, DROP_TABLE, INSERT, SELECT, JOIN, UPDATE, DELETE, SHOW_TABLES, SHOW_INDEXES, DESCRIBE, EXPLAIN
	CreateTable   *executor.CreateTableRequest
	DropTable     *DropTableStatement
	Insert        *executor.InsertRequest
	Select        *executor.SelectRequest
	Join          *executor.JoinRequest
	Update        *executor.UpdateRequest
	Delete        *executor.DeleteRequest
	DescribeTable string
	Explain       *Statement
}

// DropTableStatement is the parsed form of DROP TABLE [IF EXISTS] <name>.
type DropTableStatement struct {
	TableName string
	IfExists  bool
}

// Parse dispatches sql to the matching grammar rule (spec §4.8). Any
// syntactic mismatch fails with INVALID_SQL carrying the failing text.
func Parse(sql string) (*Statement, error) {
	trimmed := strings.TrimSpace(sql)

	if explainRe.MatchString(trimmed) {
		m := explainRe.FindStringSubmatch(trimmed)
		inner, err := Parse(m[1])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "EXPLAIN", Explain: inner}, nil
	}
	if showTablesRe.MatchString(trimmed) {
		return &Statement{Kind: "SHOW_TABLES"}, nil
	}
	if showIndexesRe.MatchString(trimmed) {
		return &Statement{Kind: "SHOW_INDEXES"}, nil
	}
	if m := describeRe.FindStringSubmatch(trimmed); m != nil {
		return &Statement{Kind: "DESCRIBE", DescribeTable: m[1]}, nil
	}
	if m := createTableRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseCreateTable(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "CREATE_TABLE", CreateTable: req}, nil
	}
	if m := dropTableRe.FindStringSubmatch(trimmed); m != nil {
		return &Statement{Kind: "DROP_TABLE", DropTable: &DropTableStatement{TableName: m[2], IfExists: m[1] != ""}}, nil
	}
	if m := insertRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseInsert(m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "INSERT", Insert: req}, nil
	}
	if m := joinSelectRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseJoin(m)
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "JOIN", Join: req}, nil
	}
	if m := selectRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseSelect(m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "SELECT", Select: req}, nil
	}
	if m := updateRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseUpdate(m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "UPDATE", Update: req}, nil
	}
	if m := deleteRe.FindStringSubmatch(trimmed); m != nil {
		req, err := parseDelete(m[1], m[2])
		if err != nil {
			return nil, err
		}
		return &Statement{Kind: "DELETE", Delete: req}, nil
	}

	return nil, errs.New(errs.CodeInvalidSQL, "unrecognized statement").WithSQL(sql)
}

// splitTopLevel splits s on sep at paren-depth 0, trimming each part
// (spec §4.8 "split on commas while respecting nested parentheses").
func splitTopLevel(s string, sep rune) []string {
	var parts []string
	depth := 0
	var cur strings.Builder
	inString := false
	for _, r := range s {
		switch {
		case r == '\'' && !inString:
			inString = true
			cur.WriteRune(r)
		case r == '\'' && inString:
			inString = false
			cur.WriteRune(r)
		case inString:
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			depth--
			cur.WriteRune(r)
		case r == sep && depth == 0:
			parts = append(parts, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 || len(parts) > 0 {
		parts = append(parts, strings.TrimSpace(cur.String()))
	}
	return parts
}

func parseDataType(s string) (schema.DataType, *int, bool) {
	s = strings.TrimSpace(s)
	if m := typeVarcharRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[2])
		return schema.Varchar, &n, true
	}
	if typeIntRe.MatchString(s) {
		return schema.Integer, nil, true
	}
	if typeBigIntRe.MatchString(s) {
		return schema.BigInt, nil, true
	}
	if typeDecimalRe.MatchString(s) {
		return schema.Decimal, nil, true
	}
	if typeBoolRe.MatchString(s) {
		return schema.Boolean, nil, true
	}
	if typeDateRe.MatchString(s) {
		return schema.Date, nil, true
	}
	if typeTimestampRe.MatchString(s) {
		return schema.Timestamp, nil, true
	}
	if typeTextRe.MatchString(s) {
		return schema.Text, nil, true
	}
	return "", nil, false
}

// parseLiteral implements spec §4.8's literal parsing rules: single-quoted
// string → string; true/false → boolean; integer regex → i32; decimal
// regex → f64; NULL → null; bare word → string.
func parseLiteral(s string) rowcodec.Value {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return rowcodec.String(s[1 : len(s)-1])
	}
	switch strings.ToUpper(s) {
	case "NULL":
		return rowcodec.Null
	case "TRUE":
		return rowcodec.Bool(true)
	case "FALSE":
		return rowcodec.Bool(false)
	}
	if integerLiteralRe.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 32); err == nil {
			return rowcodec.Int32(int32(n))
		}
	}
	if decimalLiteralRe.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return rowcodec.Float64(f)
		}
	}
	return rowcodec.String(s)
}
