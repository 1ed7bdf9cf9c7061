// Package indexmgr implements the index manager from spec §4.6 (C6): it
// owns every BTreeIndex for every table, maintains them as rows are
// inserted/updated/deleted, and enforces PRIMARY/UNIQUE constraints before
// the page cache ever sees the write.
package indexmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/corestore/reldb/internal/btree"
	"github.com/corestore/reldb/internal/config"
	"github.com/corestore/reldb/internal/errs"
	"github.com/corestore/reldb/internal/rowcodec"
	"github.com/corestore/reldb/internal/schema"
)

// pkPrefix distinguishes an index file backing a PRIMARY KEY from a regular
// or UNIQUE secondary index, per spec §4.6's startup scan.
const pkPrefix = "pk_"

// Manager owns every table's indexes, keyed by table name then column name.
type Manager struct {
	cfg config.Config

	mu      sync.RWMutex
	primary map[string]*btree.Index            // table -> PK index
	regular map[string]map[string]*btree.Index // table -> column -> index
}

// Open scans data/indexes/*.idx and loads every persisted index, classifying
// pk_-prefixed files as the table's primary index (spec §4.6 "startup
// scan").
func Open(cfg config.Config) (*Manager, error) {
	m := &Manager{
		cfg:     cfg,
		primary: make(map[string]*btree.Index),
		regular: make(map[string]map[string]*btree.Index),
	}

	entries, err := os.ReadDir(cfg.IndexesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, errs.Wrap(errs.CodeStorageReadError, err, "scan index directory")
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".idx") {
			continue
		}
		path := filepath.Join(cfg.IndexesDir(), e.Name())
		ix, err := btree.Load(path)
		if err != nil {
			return nil, errs.Wrap(errs.CodeIndexError, err, "load index %s", e.Name())
		}
		m.register(ix, strings.HasPrefix(e.Name(), pkPrefix))
	}
	return m, nil
}

func (m *Manager) register(ix *btree.Index, isPrimary bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if isPrimary {
		m.primary[ix.TableName] = ix
		return
	}
	cols, ok := m.regular[ix.TableName]
	if !ok {
		cols = make(map[string]*btree.Index)
		m.regular[ix.TableName] = cols
	}
	cols[ix.ColumnName] = ix
}

// EnsureTableIndexes builds (or re-registers) the indexes a TableSchema
// declares: one primary index for the PRIMARY key column, one for every
// UNIQUE key column, and one for every explicit IndexSchema entry. Called
// from CREATE TABLE.
func (m *Manager) EnsureTableIndexes(t schema.TableSchema) {
	if pk, ok := t.PrimaryKeyColumn(); ok {
		m.mu.Lock()
		m.primary[t.TableName] = btree.New(pkPrefix+t.TableName+"_"+pk, t.TableName, pk, true)
		m.mu.Unlock()
	}
	for _, col := range t.UniqueKeyColumns() {
		m.addRegular(t.TableName, "uq_"+t.TableName+"_"+col, col, true)
	}
	for _, idx := range t.Indexes {
		m.addRegular(t.TableName, idx.IndexName, idx.ColumnName, idx.Unique)
	}
}

func (m *Manager) addRegular(table, indexName, column string, unique bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cols, ok := m.regular[table]
	if !ok {
		cols = make(map[string]*btree.Index)
		m.regular[table] = cols
	}
	if _, exists := cols[column]; !exists {
		cols[column] = btree.New(indexName, table, column, unique)
	}
}

// DropTable discards every index owned by table and removes their
// persisted .idx files; a failed removal is ignored.
func (m *Manager) DropTable(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pk, ok := m.primary[table]; ok {
		_ = os.Remove(m.cfg.IndexPath(pk.IndexName))
	}
	for _, ix := range m.regular[table] {
		_ = os.Remove(m.cfg.IndexPath(ix.IndexName))
	}
	delete(m.primary, table)
	delete(m.regular, table)
}

// IsIndexed reports whether column has any registered index (primary,
// unique, or regular) on table — used by the executor's access-method
// chooser (spec §4.7).
func (m *Manager) IsIndexed(table, column string) (*btree.Index, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if pk, ok := m.primary[table]; ok && pk.ColumnName == column {
		return pk, true
	}
	if cols, ok := m.regular[table]; ok {
		if ix, ok := cols[column]; ok {
			return ix, true
		}
	}
	return nil, false
}

// PrimaryKeyExists reports whether value is already registered in table's
// primary index (PRIMARY_KEY_VIOLATION constraint check).
func (m *Manager) PrimaryKeyExists(table string, value rowcodec.Value) bool {
	m.mu.RLock()
	ix, ok := m.primary[table]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	return ix.ContainsKey(btree.NewKey(value))
}

// UniqueKeyExists reports whether value is already registered in the named
// column's unique index, if any.
func (m *Manager) UniqueKeyExists(table, column string, value rowcodec.Value) bool {
	m.mu.RLock()
	cols, ok := m.regular[table]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	ix, ok := cols[column]
	if !ok || !ix.Unique {
		return false
	}
	return ix.ContainsKey(btree.NewKey(value))
}

// OnRowInserted updates every index on table with the new row's values
// (spec §4.6 "on_row_inserted"). Constraint checks happen before the row
// ever reaches the page cache (see PrimaryKeyExists/UniqueKeyExists); this
// call assumes the row is already known to be admissible. NULL values are
// not indexed.
func (m *Manager) OnRowInserted(table string, rowID uint64, values map[string]rowcodec.Value) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pk, ok := m.primary[table]; ok {
		if v, ok := values[pk.ColumnName]; ok {
			if err := pk.Insert(btree.NewKey(v), rowID); err != nil {
				return errs.Wrap(errs.CodePrimaryKeyViolation, err, "duplicate primary key").WithConstraint(table, pk.ColumnName, v.Native())
			}
		}
	}
	for col, ix := range m.regular[table] {
		v, ok := values[col]
		if !ok || v.IsNull() {
			continue
		}
		if err := ix.Insert(btree.NewKey(v), rowID); err != nil {
			return errs.Wrap(errs.CodeUniqueKeyViolation, err, "duplicate unique key").WithConstraint(table, col, v.Native())
		}
	}
	return nil
}

// OnRowUpdated moves rowID's index entries from old to new values (spec
// §4.6 "on_row_updated"). Callers must re-check constraints for any
// changed unique column before calling this (see the executor's UPDATE
// path, which never compares the changed row against itself).
func (m *Manager) OnRowUpdated(table string, rowID uint64, oldValues, newValues map[string]rowcodec.Value) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pk, ok := m.primary[table]; ok {
		ov, oldOK := oldValues[pk.ColumnName]
		nv, newOK := newValues[pk.ColumnName]
		if oldOK && newOK && !ov.Equal(nv) {
			if err := pk.Update(btree.NewKey(ov), btree.NewKey(nv), rowID); err != nil {
				return errs.Wrap(errs.CodePrimaryKeyViolation, err, "duplicate primary key").WithConstraint(table, pk.ColumnName, nv.Native())
			}
		}
	}
	for col, ix := range m.regular[table] {
		ov, oldOK := oldValues[col]
		nv, newOK := newValues[col]
		if !oldOK || !newOK || ov.Equal(nv) {
			continue
		}
		ix.Delete(btree.NewKey(ov), rowID)
		if nv.IsNull() {
			continue
		}
		if err := ix.Insert(btree.NewKey(nv), rowID); err != nil {
			return errs.Wrap(errs.CodeUniqueKeyViolation, err, "duplicate unique key").WithConstraint(table, col, nv.Native())
		}
	}
	return nil
}

// OnRowDeleted removes rowID's entries from every index on table (spec
// §4.6 "on_row_deleted").
func (m *Manager) OnRowDeleted(table string, rowID uint64, values map[string]rowcodec.Value) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if pk, ok := m.primary[table]; ok {
		if v, ok := values[pk.ColumnName]; ok {
			pk.Delete(btree.NewKey(v), rowID)
		}
	}
	for col, ix := range m.regular[table] {
		if v, ok := values[col]; ok {
			ix.Delete(btree.NewKey(v), rowID)
		}
	}
}

// RebuildIndexes clears and repopulates every index on table from rows,
// used after a bulk load or a corrupted-index recovery (spec §4.6
// "rebuild_indexes").
func (m *Manager) RebuildIndexes(table string, rows []rowcodec.Row) error {
	m.mu.RLock()
	pk := m.primary[table]
	cols := m.regular[table]
	m.mu.RUnlock()

	if pk != nil {
		pk.Clear()
	}
	for _, ix := range cols {
		ix.Clear()
	}

	for _, row := range rows {
		if row.Deleted {
			continue
		}
		if err := m.OnRowInserted(table, row.RowID, row.Values); err != nil {
			return fmt.Errorf("rebuild %s: %w", table, err)
		}
	}
	return nil
}

// SaveTableIndexes persists every index owned by table, retrying a
// transient write failure with bounded exponential backoff — the same
// cenkalti/backoff convention the page cache uses for page flushes.
func (m *Manager) SaveTableIndexes(table string) error {
	m.mu.RLock()
	pk := m.primary[table]
	cols := m.regular[table]
	m.mu.RUnlock()

	if pk != nil {
		if err := saveWithRetry(pk, m.cfg.IndexPath(pk.IndexName)); err != nil {
			return err
		}
	}
	for _, ix := range cols {
		if err := saveWithRetry(ix, m.cfg.IndexPath(ix.IndexName)); err != nil {
			return err
		}
	}
	return nil
}

// SaveAllIndexes persists every index for every table (spec §5 "shutdown
// flushes every dirty page" extended to indexes).
func (m *Manager) SaveAllIndexes() error {
	m.mu.RLock()
	tables := make(map[string]struct{}, len(m.primary)+len(m.regular))
	for t := range m.primary {
		tables[t] = struct{}{}
	}
	for t := range m.regular {
		tables[t] = struct{}{}
	}
	m.mu.RUnlock()

	for t := range tables {
		if err := m.SaveTableIndexes(t); err != nil {
			return err
		}
	}
	return nil
}

// IndexInfo summarizes one registered index for SHOW INDEXES/DESCRIBE
// (SPEC_FULL.md "richer output" supplement to spec §4.5's stats
// operation).
type IndexInfo struct {
	IndexName  string
	TableName  string
	ColumnName string
	Unique     bool
	Primary    bool
	Stats      btree.Stats
}

// TableIndexes lists every index registered on table (primary first, then
// regular indexes), each carrying its live btree.Stats.
func (m *Manager) TableIndexes(table string) []IndexInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []IndexInfo
	if pk, ok := m.primary[table]; ok {
		out = append(out, IndexInfo{
			IndexName: pk.IndexName, TableName: pk.TableName, ColumnName: pk.ColumnName,
			Unique: pk.Unique, Primary: true, Stats: pk.Stats(),
		})
	}
	for _, ix := range m.regular[table] {
		out = append(out, IndexInfo{
			IndexName: ix.IndexName, TableName: ix.TableName, ColumnName: ix.ColumnName,
			Unique: ix.Unique, Stats: ix.Stats(),
		})
	}
	return out
}

// AllIndexes lists every index across every table, for SHOW INDEXES with
// no table filter.
func (m *Manager) AllIndexes() []IndexInfo {
	m.mu.RLock()
	tables := make(map[string]struct{}, len(m.primary)+len(m.regular))
	for t := range m.primary {
		tables[t] = struct{}{}
	}
	for t := range m.regular {
		tables[t] = struct{}{}
	}
	m.mu.RUnlock()

	var out []IndexInfo
	for t := range tables {
		out = append(out, m.TableIndexes(t)...)
	}
	return out
}

func saveWithRetry(ix *btree.Index, path string) error {
	operation := func() error { return ix.Save(path) }
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Second
	if err := backoff.Retry(operation, b); err != nil {
		return errs.Wrap(errs.CodeStorageWriteError, err, "save index %s", path)
	}
	return nil
}
