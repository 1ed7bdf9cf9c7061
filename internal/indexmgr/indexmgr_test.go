package indexmgr

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/config"
	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
)

func testSchema() schema.TableSchema {
	return schema.TableSchema{
		TableName: "users",
		Keys: []schema.KeySchema{
			{ColumnName: "id", KeyType: schema.KeyPrimary},
			{ColumnName: "email", KeyType: schema.KeyUnique},
		},
	}
}

func setupManager(t *testing.T) *Manager {
	cfg := config.Default()
	cfg.DataDirectory = filepath.Join(t.TempDir(), "data")
	require.NoError(t, cfg.EnsureDirs())

	m, err := Open(cfg)
	require.NoError(t, err)
	m.EnsureTableIndexes(testSchema())
	return m
}

func TestPrimaryKeyConstraintEnforced(t *testing.T) {
	m := setupManager(t)

	values := map[string]rowcodec.Value{"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com")}
	require.NoError(t, m.OnRowInserted("users", 1, values))

	assert.True(t, m.PrimaryKeyExists("users", rowcodec.Int32(1)))

	dup := map[string]rowcodec.Value{"id": rowcodec.Int32(1), "email": rowcodec.String("b@x.com")}
	err := m.OnRowInserted("users", 2, dup)
	require.Error(t, err)
	assert.Equal(t, errs.CodePrimaryKeyViolation, errs.CodeOf(err))
}

func TestUniqueKeyConstraintEnforced(t *testing.T) {
	m := setupManager(t)

	require.NoError(t, m.OnRowInserted("users", 1, map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com"),
	}))

	err := m.OnRowInserted("users", 2, map[string]rowcodec.Value{
		"id": rowcodec.Int32(2), "email": rowcodec.String("a@x.com"),
	})
	require.Error(t, err)
	assert.Equal(t, errs.CodeUniqueKeyViolation, errs.CodeOf(err))
	assert.True(t, m.UniqueKeyExists("users", "email", rowcodec.String("a@x.com")))
}

func TestOnRowUpdatedMovesKeys(t *testing.T) {
	m := setupManager(t)
	old := map[string]rowcodec.Value{"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com")}
	require.NoError(t, m.OnRowInserted("users", 1, old))

	next := map[string]rowcodec.Value{"id": rowcodec.Int32(1), "email": rowcodec.String("new@x.com")}
	require.NoError(t, m.OnRowUpdated("users", 1, old, next))

	assert.False(t, m.UniqueKeyExists("users", "email", rowcodec.String("a@x.com")))
	assert.True(t, m.UniqueKeyExists("users", "email", rowcodec.String("new@x.com")))
}

func TestOnRowDeletedRemovesKeys(t *testing.T) {
	m := setupManager(t)
	values := map[string]rowcodec.Value{"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com")}
	require.NoError(t, m.OnRowInserted("users", 1, values))

	m.OnRowDeleted("users", 1, values)
	assert.False(t, m.PrimaryKeyExists("users", rowcodec.Int32(1)))
}

func TestSaveAllIndexesAndReopen(t *testing.T) {
	cfg := config.Default()
	cfg.DataDirectory = filepath.Join(t.TempDir(), "data")
	require.NoError(t, cfg.EnsureDirs())

	m, err := Open(cfg)
	require.NoError(t, err)
	m.EnsureTableIndexes(testSchema())
	require.NoError(t, m.OnRowInserted("users", 1, map[string]rowcodec.Value{
		"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com"),
	}))
	require.NoError(t, m.SaveAllIndexes())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	assert.True(t, reopened.PrimaryKeyExists("users", rowcodec.Int32(1)))
	assert.True(t, reopened.UniqueKeyExists("users", "email", rowcodec.String("a@x.com")))
}

func TestRebuildIndexesFromRows(t *testing.T) {
	m := setupManager(t)
	rows := []rowcodec.Row{
		rowcodec.NewRow(1, []string{"id", "email"}, map[string]rowcodec.Value{
			"id": rowcodec.Int32(1), "email": rowcodec.String("a@x.com"),
		}),
		rowcodec.NewRow(2, []string{"id", "email"}, map[string]rowcodec.Value{
			"id": rowcodec.Int32(2), "email": rowcodec.String("b@x.com"),
		}),
	}
	require.NoError(t, m.RebuildIndexes("users", rows))
	assert.True(t, m.PrimaryKeyExists("users", rowcodec.Int32(1)))
	assert.True(t, m.PrimaryKeyExists("users", rowcodec.Int32(2)))
}
