package schemaimport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestore/reldb/internal/schema"
)

const sampleManifest = `
[[table]]
name = "users"
primary_keys = ["id"]
unique_keys = ["email"]

  [[table.column]]
  name = "id"
  type = "INTEGER"
  nullable = false

  [[table.column]]
  name = "email"
  type = "VARCHAR"
  max_length = 255
  nullable = false

  [[table.index]]
  name = "idx_users_email_domain"
  column = "email"
  unique = false
`

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	reqs, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, "users", req.TableName)
	require.Len(t, req.Columns, 2)
	assert.Equal(t, schema.Integer, req.Columns[0].DataType)
	assert.Equal(t, schema.Varchar, req.Columns[1].DataType)
	require.NotNil(t, req.Columns[1].MaxLength)
	assert.Equal(t, 255, *req.Columns[1].MaxLength)
	assert.Equal(t, []string{"id"}, req.PrimaryKeys)
	assert.Equal(t, []string{"email"}, req.UniqueKeys)
	require.Len(t, req.Indexes, 1)
}

func TestLoadFileUnknownType(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[table]]
name = "t"
  [[table.column]]
  name = "x"
  type = "NOT_A_TYPE"
`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
}
