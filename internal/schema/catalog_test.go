package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/config"
)

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	cfg.DataDirectory = filepath.Join(t.TempDir(), "data")
	return cfg
}

func TestCreateAndGetTable(t *testing.T) {
	cat, err := Open(testConfig(t))
	require.NoError(t, err)

	ts := TableSchema{
		TableName: "users",
		Columns: []ColumnSchema{
			{Name: "id", DataType: Integer, OrdinalPosition: 0},
			{Name: "name", DataType: Varchar, Nullable: true, OrdinalPosition: 1},
		},
		Keys: []KeySchema{{ColumnName: "id", KeyType: KeyPrimary}},
	}
	require.NoError(t, cat.CreateTable(ts))

	got, err := cat.Get("users")
	require.NoError(t, err)
	assert.Equal(t, "users", got.TableName)
	assert.Equal(t, uint64(1), got.NextRowID)

	err = cat.CreateTable(ts)
	require.Error(t, err)
}

func TestAllocateRowID_Monotonic(t *testing.T) {
	cat, err := Open(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable(TableSchema{TableName: "t"}))

	id1, err := cat.AllocateRowID("t")
	require.NoError(t, err)
	id2, err := cat.AllocateRowID("t")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id1)
	assert.Equal(t, uint64(2), id2)
}

func TestDropTable_RemovesFromCache(t *testing.T) {
	cat, err := Open(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable(TableSchema{TableName: "t"}))
	require.NoError(t, cat.DropTable("t"))
	assert.False(t, cat.Exists("t"))

	_, err = cat.Get("t")
	require.Error(t, err)
}

func TestOpen_ReloadsPersistedSchemas(t *testing.T) {
	cfg := testConfig(t)
	cat, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, cat.CreateTable(TableSchema{TableName: "t"}))

	reopened, err := Open(cfg)
	require.NoError(t, err)
	assert.True(t, reopened.Exists("t"))
}
