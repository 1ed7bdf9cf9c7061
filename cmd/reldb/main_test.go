package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStatementsHandlesQuotedSemicolons(t *testing.T) {
	stmts := splitStatements(`INSERT INTO t (name) VALUES ('a;b'); SELECT * FROM t;`)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "'a;b'")
	assert.Contains(t, stmts[1], "SELECT")
}

func TestSplitStatementsTrailingStatementWithoutSemicolon(t *testing.T) {
	stmts := splitStatements(`SELECT * FROM t`)
	require.Len(t, stmts, 1)
}

// captureOutput runs fn with an *os.File that writers can Fprintf into, and
// returns everything written to it once fn returns.
func captureOutput(t *testing.T, fn func(out *os.File)) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	fn(w)
	require.NoError(t, w.Close())

	var sb strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteString("\n")
	}
	return sb.String()
}

func testEngine(t *testing.T) *appEngine {
	t.Helper()
	eng, _ := testEngineAt(t, t.TempDir())
	return eng
}

// testEngineAt opens an engine rooted at dir's reldb.yaml/data layout,
// returning the config path so a test can close this engine and reopen a
// fresh one against the same on-disk directory (simulating a restart).
func testEngineAt(t *testing.T, dir string) (*appEngine, string) {
	t.Helper()
	cfgPath := filepath.Join(dir, "reldb.yaml")
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		require.NoError(t, os.WriteFile(cfgPath, []byte("data_directory: "+filepath.Join(dir, "data")+"\n"), 0o644))
	}
	eng, err := openEngine(cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng, cfgPath
}

func TestEndToEndCreateInsertSelect(t *testing.T) {
	eng := testEngine(t)

	require.NoError(t, execOne(eng, `CREATE TABLE users (id INT NOT NULL, name VARCHAR(50) NOT NULL, PRIMARY KEY (id))`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO users (id, name) VALUES (1, 'alice')`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO users (id, name) VALUES (2, 'bob')`, os.Stdout))

	out := captureOutput(t, func(w *os.File) {
		require.NoError(t, execOne(eng, `SELECT * FROM users WHERE id = 1`, w))
	})
	assert.Contains(t, out, "alice")
	assert.NotContains(t, out, "bob")
}

func TestEndToEndDuplicatePrimaryKeyFails(t *testing.T) {
	eng := testEngine(t)
	require.NoError(t, execOne(eng, `CREATE TABLE t (id INT NOT NULL, PRIMARY KEY (id))`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO t (id) VALUES (1)`, os.Stdout))
	err := execOne(eng, `INSERT INTO t (id) VALUES (1)`, os.Stdout)
	require.Error(t, err)
}

func TestEndToEndShowTablesAndDescribe(t *testing.T) {
	eng := testEngine(t)
	require.NoError(t, execOne(eng, `CREATE TABLE t (id INT NOT NULL, PRIMARY KEY (id))`, os.Stdout))

	out := captureOutput(t, func(w *os.File) {
		require.NoError(t, execOne(eng, `SHOW TABLES`, w))
	})
	assert.Contains(t, out, "t")

	out = captureOutput(t, func(w *os.File) {
		require.NoError(t, execOne(eng, `DESCRIBE t`, w))
	})
	assert.Contains(t, out, "id")
}

// TestEndToEndRecoversIndexesAfterRestart simulates a crash that lost the
// persisted .idx files: the primary key index must be rebuilt from row data
// on reopen rather than silently starting empty.
func TestEndToEndRecoversIndexesAfterRestart(t *testing.T) {
	dir := t.TempDir()
	eng, cfgPath := testEngineAt(t, dir)

	require.NoError(t, execOne(eng, `CREATE TABLE t (id INT NOT NULL, PRIMARY KEY (id))`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO t (id) VALUES (1)`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO t (id) VALUES (2)`, os.Stdout))
	require.NoError(t, eng.Close())

	require.NoError(t, os.RemoveAll(eng.cfg.IndexesDir()))

	reopened, err := openEngine(cfgPath)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	// The rebuilt primary key index must still reject a duplicate...
	err = execOne(reopened, `INSERT INTO t (id) VALUES (1)`, os.Stdout)
	require.Error(t, err)

	// ...and an equality lookup on it must report index usage, not a scan.
	out := captureOutput(t, func(w *os.File) {
		require.NoError(t, execOne(reopened, `EXPLAIN SELECT * FROM t WHERE id = 2`, w))
	})
	assert.Contains(t, out, "index_used=true")
}

func TestEndToEndExplainReportsIndexUsage(t *testing.T) {
	eng := testEngine(t)
	require.NoError(t, execOne(eng, `CREATE TABLE t (id INT NOT NULL, PRIMARY KEY (id))`, os.Stdout))
	require.NoError(t, execOne(eng, `INSERT INTO t (id) VALUES (1)`, os.Stdout))

	out := captureOutput(t, func(w *os.File) {
		require.NoError(t, execOne(eng, `EXPLAIN SELECT * FROM t WHERE id = 1`, w))
	})
	assert.Contains(t, out, "index_used=true")
}
