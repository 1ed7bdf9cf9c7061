package dispatcher

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/rowcodec"
)

var setAssignRe = regexp.MustCompile(`^(\w+)\s*=\s*(.+)$`)

func parseUpdate(tableName, setPart, wherePart string) (*executor.UpdateRequest, error) {
	req := &executor.UpdateRequest{TableName: tableName, Set: make(map[string]rowcodec.Value)}
	for _, assign := range splitTopLevel(setPart, ',') {
		m := setAssignRe.FindStringSubmatch(strings.TrimSpace(assign))
		if m == nil {
			return nil, errs.New(errs.CodeInvalidSQL, "malformed SET clause %q", assign).WithSQL(assign)
		}
		req.Set[m[1]] = parseLiteral(m[2])
	}
	if wherePart != "" {
		where, err := parseWhere(wherePart)
		if err != nil {
			return nil, err
		}
		req.Where = where
	}
	return req, nil
}

func parseDelete(tableName, wherePart string) (*executor.DeleteRequest, error) {
	req := &executor.DeleteRequest{TableName: tableName}
	if wherePart != "" {
		where, err := parseWhere(wherePart)
		if err != nil {
			return nil, err
		}
		req.Where = where
	}
	return req, nil
}

// parseJoin builds a JoinRequest from joinSelectRe's submatches:
// [0]=full, [1]=cols, [2]=leftTable, [3]=joinKind, [4]=rightTable,
// [5]=onLeftTable, [6]=onLeftCol, [7]=onRightTable, [8]=onRightCol,
// [9]=tail.
func parseJoin(m []string) (*executor.JoinRequest, error) {
	req := &executor.JoinRequest{
		LeftTable:  m[2],
		RightTable: m[4],
		JoinType:   executor.JoinInner,
	}
	switch strings.ToUpper(strings.TrimSpace(m[3])) {
	case "LEFT":
		req.JoinType = executor.JoinLeft
	case "RIGHT":
		req.JoinType = executor.JoinRight
	}

	switch {
	case m[5] == req.LeftTable:
		req.LeftColumn, req.RightColumn = m[6], m[8]
	case m[5] == req.RightTable:
		req.LeftColumn, req.RightColumn = m[8], m[6]
	default:
		return nil, errs.New(errs.CodeInvalidSQL, "JOIN ON references unknown table %q", m[5])
	}

	colsPart := strings.TrimSpace(m[1])
	if colsPart != "*" && colsPart != "" {
		req.Columns = splitCols(colsPart)
	}

	tail := m[9]
	if wm := whereClauseRe.FindStringSubmatch(tail); wm != nil {
		where, err := parseWhere(wm[1])
		if err != nil {
			return nil, err
		}
		req.Where = where
	}
	if lm := limitRe.FindStringSubmatch(tail); lm != nil {
		n, _ := strconv.Atoi(lm[1])
		req.Limit = &n
	}
	if om := offsetRe.FindStringSubmatch(tail); om != nil {
		n, _ := strconv.Atoi(om[1])
		req.Offset = &n
	}
	return req, nil
}
