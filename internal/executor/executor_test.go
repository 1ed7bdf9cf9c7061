package executor

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/config"
	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/indexmgr"
	"github.com/corestore/reldb/internal/pagecache"
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
	"github.com/corestore/reldb/internal/txlock"
)

func newEngine(t *testing.T) *Engine {
	cfg := config.Default()
	cfg.DataDirectory = filepath.Join(t.TempDir(), "data")
	require.NoError(t, cfg.EnsureDirs())

	cat, err := schema.Open(cfg)
	require.NoError(t, err)
	cache := pagecache.Open(cfg, cat)
	idx, err := indexmgr.Open(cfg)
	require.NoError(t, err)
	locks := txlock.NewRegistry()

	return New(cfg, cat, cache, idx, locks)
}

func createUsers(t *testing.T, e *Engine) {
	_, err := e.CreateTable(CreateTableRequest{
		TableName: "users",
		Columns: []ColumnDef{
			{Name: "id", DataType: schema.Integer, Nullable: false},
			{Name: "name", DataType: schema.Varchar, Nullable: false},
			{Name: "age", DataType: schema.Integer, Nullable: true},
		},
		PrimaryKeys: []string{"id"},
		UniqueKeys:  []string{"name"},
	})
	require.NoError(t, err)
}

func TestCreateTableAndInsert(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)

	row, err := e.Insert(InsertRequest{TableName: "users", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "name": rowcodec.String("alice"), "age": rowcodec.Int32(30),
	}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), row.RowID)
}

func TestInsertPrimaryKeyViolation(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)

	_, err := e.Insert(InsertRequest{TableName: "users", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "name": rowcodec.String("alice"),
	}})
	require.NoError(t, err)

	_, err = e.Insert(InsertRequest{TableName: "users", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "name": rowcodec.String("bob"),
	}})
	require.Error(t, err)
	assert.Equal(t, errs.CodePrimaryKeyViolation, errs.CodeOf(err))
}

func TestInsertNotNullViolation(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)

	_, err := e.Insert(InsertRequest{TableName: "users", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1),
	}})
	require.Error(t, err)
	assert.Equal(t, errs.CodeNotNullViolation, errs.CodeOf(err))
}

func seedUsers(t *testing.T, e *Engine) {
	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		_, err := e.Insert(InsertRequest{TableName: "users", Values: map[string]rowcodec.Value{
			"id": rowcodec.Int32(int32(i + 1)), "name": rowcodec.String(name), "age": rowcodec.Int32(int32(20 + i*10)),
		}})
		require.NoError(t, err)
	}
}

func TestSelectEqualityUsesIndex(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	rows, err := e.Select(SelectRequest{
		TableName: "users",
		Where:     Where{{Column: "id", Op: OpEq, Value: rowcodec.Int32(2)}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "bob", rows[0].Get("name").S)

	plan := e.LastPlan()
	assert.True(t, plan.IndexUsed)
	assert.Equal(t, OpEqualityLookup, plan.IndexOperation)
}

func TestSelectNonIndexedColumnFullScan(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	rows, err := e.Select(SelectRequest{
		TableName: "users",
		Where:     Where{{Column: "age", Op: OpGte, Value: rowcodec.Int32(30)}},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	plan := e.LastPlan()
	assert.False(t, plan.IndexUsed)
}

func TestSelectOrderByLimitOffset(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	limit := 2
	offset := 1
	rows, err := e.Select(SelectRequest{
		TableName: "users",
		OrderBy:   []OrderTerm{{Column: "age", Desc: true}},
		Limit:     &limit,
		Offset:    &offset,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "carol", rows[0].Get("name").S)
	assert.Equal(t, "bob", rows[1].Get("name").S)
}

func TestUpdateRevalidatesUniqueAgainstOtherRows(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	_, err := e.Update(UpdateRequest{
		TableName: "users",
		Set:       map[string]rowcodec.Value{"name": rowcodec.String("bob")},
		Where:     Where{{Column: "id", Op: OpEq, Value: rowcodec.Int32(1)}},
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeUniqueKeyViolation, errs.CodeOf(err))
}

func TestUpdateAllowsNoopRenameOfSameRow(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	n, err := e.Update(UpdateRequest{
		TableName: "users",
		Set:       map[string]rowcodec.Value{"name": rowcodec.String("alice"), "age": rowcodec.Int32(99)},
		Where:     Where{{Column: "id", Op: OpEq, Value: rowcodec.Int32(1)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDeleteTombstonesMatchingRows(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	seedUsers(t, e)

	n, err := e.Delete(DeleteRequest{
		TableName: "users",
		Where:     Where{{Column: "age", Op: OpGte, Value: rowcodec.Int32(40)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := e.Select(SelectRequest{TableName: "users"})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func createOrders(t *testing.T, e *Engine) {
	_, err := e.CreateTable(CreateTableRequest{
		TableName: "orders",
		Columns: []ColumnDef{
			{Name: "id", DataType: schema.Integer, Nullable: false},
			{Name: "user_id", DataType: schema.Integer, Nullable: false},
			{Name: "total", DataType: schema.Decimal, Nullable: false},
		},
		PrimaryKeys: []string{"id"},
	})
	require.NoError(t, err)
}

func TestJoinInner(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	createOrders(t, e)
	seedUsers(t, e)

	_, err := e.Insert(InsertRequest{TableName: "orders", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "user_id": rowcodec.Int32(1), "total": rowcodec.Float64(9.99),
	}})
	require.NoError(t, err)
	_, err = e.Insert(InsertRequest{TableName: "orders", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(2), "user_id": rowcodec.Int32(2), "total": rowcodec.Float64(19.99),
	}})
	require.NoError(t, err)

	rows, err := e.Join(JoinRequest{
		LeftTable: "users", RightTable: "orders",
		LeftColumn: "id", RightColumn: "user_id",
		JoinType: JoinInner,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "alice", rows[0].Get("users.name").S)
}

func TestJoinLeftWithOrphan(t *testing.T) {
	e := newEngine(t)
	createUsers(t, e)
	createOrders(t, e)
	seedUsers(t, e)

	_, err := e.Insert(InsertRequest{TableName: "orders", Values: map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "user_id": rowcodec.Int32(1), "total": rowcodec.Float64(9.99),
	}})
	require.NoError(t, err)

	rows, err := e.Join(JoinRequest{
		LeftTable: "users", RightTable: "orders",
		LeftColumn: "id", RightColumn: "user_id",
		JoinType: JoinLeft,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 4)

	var orphanCount int
	for _, r := range rows {
		if r.Get("orders.id").IsNull() {
			orphanCount++
		}
	}
	assert.Equal(t, 3, orphanCount)
}
