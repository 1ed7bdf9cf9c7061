package dispatcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
)

var (
	likeClauseRe   = regexp.MustCompile(`(?i)^(\S+)\s+LIKE\s+(.+)$`)
	isNullClauseRe = regexp.MustCompile(`(?i)^(\S+)\s+IS\s+(NOT\s+)?NULL$`)
	opClauseRe     = regexp.MustCompile(`(?i)^(\S+)\s*(>=|<=|<>|!=|>|<|=)\s*(.+)$`)
	andSplitRe     = regexp.MustCompile(`(?i)\s+AND\s+`)
)

// parseWhere implements spec §4.8's WHERE clause tokenization: split on AND
// (case-insensitive), then match IS [NOT] NULL / LIKE / a comparison
// operator, in that priority order.
func parseWhere(s string) (executor.Where, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var where executor.Where
	for _, part := range andSplitRe.Split(s, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		clause, err := parseWhereClause(part)
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
	}
	return where, nil
}

func parseWhereClause(part string) (executor.WhereClause, error) {
	if m := isNullClauseRe.FindStringSubmatch(part); m != nil {
		op := executor.OpIsNull
		if m[2] != "" {
			op = executor.OpNotNull
		}
		return executor.WhereClause{Column: m[1], Op: op}, nil
	}
	if m := likeClauseRe.FindStringSubmatch(part); m != nil {
		return executor.WhereClause{Column: m[1], Op: executor.OpLike, Value: parseLiteral(m[2])}, nil
	}
	if m := opClauseRe.FindStringSubmatch(part); m != nil {
		op := executor.WhereOp(normalizeOp(m[2]))
		return executor.WhereClause{Column: m[1], Op: op, Value: parseLiteral(m[3])}, nil
	}
	return executor.WhereClause{}, errs.New(errs.CodeInvalidSQL, "malformed WHERE clause %q", part).WithSQL(part)
}

func normalizeOp(op string) string {
	if op == "!=" {
		return string(executor.OpNe)
	}
	return op
}

func parseSelect(colsPart, tableName, tail string) (*executor.SelectRequest, error) {
	req := &executor.SelectRequest{TableName: tableName}

	colsPart = strings.TrimSpace(colsPart)
	if colsPart != "*" && colsPart != "" {
		req.Columns = splitCols(colsPart)
	}

	if err := applyTail(tail, req); err != nil {
		return nil, err
	}
	return req, nil
}

// applyTail extracts WHERE/ORDER BY/LIMIT/OFFSET from whatever remains
// after "FROM <table>".
func applyTail(tail string, req *executor.SelectRequest) error {
	if wm := whereClauseRe.FindStringSubmatch(tail); wm != nil {
		where, err := parseWhere(wm[1])
		if err != nil {
			return err
		}
		req.Where = where
	}
	if om := orderByRe.FindStringSubmatch(tail); om != nil {
		terms, err := parseOrderBy(om[1])
		if err != nil {
			return err
		}
		req.OrderBy = terms
	}
	if lm := limitRe.FindStringSubmatch(tail); lm != nil {
		n, _ := strconv.Atoi(lm[1])
		req.Limit = &n
	}
	if om := offsetRe.FindStringSubmatch(tail); om != nil {
		n, _ := strconv.Atoi(om[1])
		req.Offset = &n
	}
	return nil
}

func parseOrderBy(s string) ([]executor.OrderTerm, error) {
	var terms []executor.OrderTerm
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		term := executor.OrderTerm{Column: fields[0]}
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			term.Desc = true
		}
		terms = append(terms, term)
	}
	return terms, nil
}
