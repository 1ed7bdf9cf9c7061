package main

import (
	"errors"
	"fmt"

	"github.com/corestore/reldb/internal/config"
	"github.com/corestore/reldb/internal/executor"
	"github.com/corestore/reldb/internal/indexmgr"
	"github.com/corestore/reldb/internal/pagecache"
	"github.com/corestore/reldb/internal/schema"
	"github.com/corestore/reldb/internal/txlock"
)

// appEngine composes every storage/index layer plus the operator set on top
// of them, the same grouping the teacher's cmd/bd wires around a single
// storage.Store before dispatching commands against it.
type appEngine struct {
	cfg     config.Config
	catalog *schema.Catalog
	cache   *pagecache.Cache
	indexes *indexmgr.Manager
	locks   *txlock.Registry
	exec    *executor.Engine
}

// openEngine loads (or creates) the on-disk corpus rooted at the
// data_directory of the config file at cfgPath: schema catalog, page cache,
// and index manager, matching the teacher's
// AcquireAccessLock/Close pairing for process lifecycle.
func openEngine(cfgPath string) (*appEngine, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("ensure data directories: %w", err)
	}

	catalog, err := schema.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open schema catalog: %w", err)
	}
	cache := pagecache.Open(cfg, catalog)
	indexes, err := indexmgr.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open index manager: %w", err)
	}
	if err := recoverMissingIndexes(catalog, cache, indexes); err != nil {
		return nil, err
	}
	locks := txlock.NewRegistry()

	return &appEngine{
		cfg:     cfg,
		catalog: catalog,
		cache:   cache,
		indexes: indexes,
		locks:   locks,
		exec:    executor.New(cfg, catalog, cache, indexes, locks),
	}, nil
}

// recoverMissingIndexes implements spec.md's crash-recovery rule: if an
// extant table's schema declares a primary key, a unique key, or an
// explicit index, but indexmgr.Open found no persisted index files for it
// (the .idx files were lost in a crash), the indexes must be rebuilt from
// the table's row data rather than silently starting empty — otherwise
// PRIMARY/UNIQUE constraints stop being enforced and SELECT silently falls
// back to a full scan.
func recoverMissingIndexes(catalog *schema.Catalog, cache *pagecache.Cache, indexes *indexmgr.Manager) error {
	for _, table := range catalog.ListTables() {
		ts, err := catalog.Get(table)
		if err != nil {
			return fmt.Errorf("load schema for %s: %w", table, err)
		}
		_, hasPK := ts.PrimaryKeyColumn()
		if !hasPK && len(ts.UniqueKeyColumns()) == 0 && len(ts.Indexes) == 0 {
			continue // table declares no indexes; nothing to recover
		}
		if len(indexes.TableIndexes(table)) > 0 {
			continue // at least one index file was found for this table
		}

		indexes.EnsureTableIndexes(ts)
		rows, err := cache.ReadAllRows(table)
		if err != nil {
			return fmt.Errorf("read rows to rebuild indexes for %s: %w", table, err)
		}
		if err := indexes.RebuildIndexes(table, rows); err != nil {
			return fmt.Errorf("rebuild indexes for %s: %w", table, err)
		}
	}
	return nil
}

// Close flushes dirty pages, persists every index, and closes the schema
// catalog, joining any errors from those steps rather than dropping one
// silently.
func (a *appEngine) Close() error {
	return errors.Join(a.cache.Close(), a.indexes.SaveAllIndexes(), a.catalog.Close())
}
