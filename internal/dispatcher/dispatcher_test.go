package dispatcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/schema"
)

func TestParseCreateTable(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE users (
		id INT NOT NULL,
		name VARCHAR(100) NOT NULL,
		age INT,
		PRIMARY KEY (id),
		UNIQUE (name),
		INDEX idx_age (age)
	)`)
	require.NoError(t, err)
	require.Equal(t, "CREATE_TABLE", stmt.Kind)

	req := stmt.CreateTable
	assert.Equal(t, "users", req.TableName)
	require.Len(t, req.Columns, 3)
	assert.Equal(t, schema.Integer, req.Columns[0].DataType)
	assert.False(t, req.Columns[0].Nullable)
	assert.Equal(t, schema.Varchar, req.Columns[1].DataType)
	require.NotNil(t, req.Columns[1].MaxLength)
	assert.Equal(t, 100, *req.Columns[1].MaxLength)
	assert.True(t, req.Columns[2].Nullable)

	assert.Equal(t, []string{"id"}, req.PrimaryKeys)
	assert.Equal(t, []string{"name"}, req.UniqueKeys)
	require.Len(t, req.Indexes, 1)
	assert.Equal(t, "age", req.Indexes[0].ColumnName)
}

func TestParseCreateTableWithDefault(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE t (status VARCHAR(20) NOT NULL DEFAULT 'pending')`)
	require.NoError(t, err)
	col := stmt.CreateTable.Columns[0]
	require.NotNil(t, col.DefaultValue)
	assert.Equal(t, "pending", *col.DefaultValue)
}

func TestParseCreateTableDistinguishesDateAndTimestamp(t *testing.T) {
	stmt, err := Parse(`CREATE TABLE events (d DATE, ts TIMESTAMP, dt DATETIME)`)
	require.NoError(t, err)

	req := stmt.CreateTable
	require.Len(t, req.Columns, 3)
	assert.Equal(t, schema.Date, req.Columns[0].DataType)
	assert.Equal(t, schema.Timestamp, req.Columns[1].DataType)
	assert.Equal(t, schema.Timestamp, req.Columns[2].DataType)
}

func TestParseInsert(t *testing.T) {
	stmt, err := Parse(`INSERT INTO users (id, name, age) VALUES (1, 'alice', 30)`)
	require.NoError(t, err)
	require.Equal(t, "INSERT", stmt.Kind)
	assert.Equal(t, "users", stmt.Insert.TableName)
	assert.Equal(t, int32(1), stmt.Insert.Values["id"].I32)
	assert.Equal(t, "alice", stmt.Insert.Values["name"].S)
	assert.Equal(t, int32(30), stmt.Insert.Values["age"].I32)
}

func TestParseSelectWithWhereOrderLimitOffset(t *testing.T) {
	stmt, err := Parse(`SELECT id, name FROM users WHERE age > 20 ORDER BY age DESC LIMIT 10 OFFSET 5`)
	require.NoError(t, err)
	require.Equal(t, "SELECT", stmt.Kind)
	req := stmt.Select
	assert.Equal(t, []string{"id", "name"}, req.Columns)
	require.Len(t, req.Where, 1)
	assert.Equal(t, executor.OpGt, req.Where[0].Op)
	require.Len(t, req.OrderBy, 1)
	assert.True(t, req.OrderBy[0].Desc)
	require.NotNil(t, req.Limit)
	assert.Equal(t, 10, *req.Limit)
	require.NotNil(t, req.Offset)
	assert.Equal(t, 5, *req.Offset)
}

func TestParseSelectStar(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users`)
	require.NoError(t, err)
	assert.Empty(t, stmt.Select.Columns)
}

func TestParseWhereIsNullAndLike(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users WHERE name LIKE '%an%' AND age IS NOT NULL`)
	require.NoError(t, err)
	require.Len(t, stmt.Select.Where, 2)
	assert.Equal(t, executor.OpLike, stmt.Select.Where[0].Op)
	assert.Equal(t, executor.OpNotNull, stmt.Select.Where[1].Op)
}

func TestParseJoin(t *testing.T) {
	stmt, err := Parse(`SELECT * FROM users LEFT JOIN orders ON users.id = orders.user_id WHERE orders.total > 5 LIMIT 3`)
	require.NoError(t, err)
	require.Equal(t, "JOIN", stmt.Kind)
	req := stmt.Join
	assert.Equal(t, "users", req.LeftTable)
	assert.Equal(t, "orders", req.RightTable)
	assert.Equal(t, "id", req.LeftColumn)
	assert.Equal(t, "user_id", req.RightColumn)
	assert.Equal(t, executor.JoinLeft, req.JoinType)
	require.Len(t, req.Where, 1)
	require.NotNil(t, req.Limit)
}

func TestParseUpdate(t *testing.T) {
	stmt, err := Parse(`UPDATE users SET name = 'bob', age = 31 WHERE id = 1`)
	require.NoError(t, err)
	req := stmt.Update
	assert.Equal(t, "bob", req.Set["name"].S)
	assert.Equal(t, int32(31), req.Set["age"].I32)
	require.Len(t, req.Where, 1)
}

func TestParseDeleteNoWhere(t *testing.T) {
	stmt, err := Parse(`DELETE FROM users`)
	require.NoError(t, err)
	assert.Empty(t, stmt.Delete.Where)
}

func TestParseDropTableIfExists(t *testing.T) {
	stmt, err := Parse(`DROP TABLE IF EXISTS users`)
	require.NoError(t, err)
	assert.True(t, stmt.DropTable.IfExists)
	assert.Equal(t, "users", stmt.DropTable.TableName)
}

func TestParseShowAndDescribeAndExplain(t *testing.T) {
	s1, err := Parse("SHOW TABLES")
	require.NoError(t, err)
	assert.Equal(t, "SHOW_TABLES", s1.Kind)

	s2, err := Parse("SHOW INDEXES")
	require.NoError(t, err)
	assert.Equal(t, "SHOW_INDEXES", s2.Kind)

	s3, err := Parse("DESCRIBE users")
	require.NoError(t, err)
	assert.Equal(t, "users", s3.DescribeTable)

	s4, err := Parse("EXPLAIN SELECT * FROM users WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, "EXPLAIN", s4.Kind)
	require.NotNil(t, s4.Explain)
	assert.Equal(t, "SELECT", s4.Explain.Kind)
}

func TestParseInvalidSQLFails(t *testing.T) {
	_, err := Parse("NONSENSE STATEMENT HERE")
	require.Error(t, err)
	assert.Equal(t, errs.CodeInvalidSQL, errs.CodeOf(err))
}
