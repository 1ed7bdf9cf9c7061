// Package config holds the process-wide configuration for the engine:
// where data lives on disk and the page layout constants that any on-disk
// corpus must agree with (spec §6 "Configuration").
//
// Loading follows the same convention as the teacher's LoadLocalConfig: a
// missing config file yields Default(), not an error, since reldb must be
// usable with no config file at all. A file that exists but cannot be read
// or parsed is reported as an error.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Page layout constants (spec §3 Page, §6 Configuration). These are
// compile-time in the sense that an on-disk corpus written with different
// values is not portable; Config only lets data_directory vary freely.
const (
	DefaultPageSize       = 4096
	DefaultPageHeaderSize = 32
	DefaultSlotSize       = 8
)

// Config is the process-wide engine configuration.
type Config struct {
	DataDirectory  string `yaml:"data_directory"`
	PageSize       int    `yaml:"page_size"`
	PageHeaderSize int    `yaml:"page_header_size"`
	SlotSize       int    `yaml:"slot_size"`

	// WatchSchemas enables internal/schema.Catalog's fsnotify-driven
	// hot-reload of data/schemas/*.schema.json (SPEC_FULL.md "Schema
	// hot-reload watch"). Off by default; the engine never needs it to
	// operate correctly, only to tolerate an external editor touching the
	// schema directory.
	WatchSchemas bool `yaml:"watch_schemas"`
}

// Default returns the engine configuration used when no config file is
// present, with data rooted at "data" per spec §6.
func Default() Config {
	return Config{
		DataDirectory:  "data",
		PageSize:       DefaultPageSize,
		PageHeaderSize: DefaultPageHeaderSize,
		SlotSize:       DefaultSlotSize,
	}
}

// Load reads path (a YAML document) and overlays it on Default(). A missing
// file returns Default() with no error, mirroring LoadLocalConfig's
// "absent config is not an error" contract.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path) // #nosec G304 - path supplied by caller/CLI flag
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.PageHeaderSize <= 0 {
		cfg.PageHeaderSize = DefaultPageHeaderSize
	}
	if cfg.SlotSize <= 0 {
		cfg.SlotSize = DefaultSlotSize
	}
	return cfg, nil
}

// SchemasDir is data/schemas.
func (c Config) SchemasDir() string { return filepath.Join(c.DataDirectory, "schemas") }

// TablesDir is data/tables.
func (c Config) TablesDir() string { return filepath.Join(c.DataDirectory, "tables") }

// IndexesDir is data/indexes.
func (c Config) IndexesDir() string { return filepath.Join(c.DataDirectory, "indexes") }

// SchemaPath returns the schema document path for a table.
func (c Config) SchemaPath(table string) string {
	return filepath.Join(c.SchemasDir(), table+".schema.json")
}

// TableDataPath returns the page-file path for a table.
func (c Config) TableDataPath(table string) string {
	return filepath.Join(c.TablesDir(), table+".dat")
}

// IndexPath returns the persisted index file path for an index name.
func (c Config) IndexPath(name string) string {
	return filepath.Join(c.IndexesDir(), name+".idx")
}

// EnsureDirs creates the schemas/tables/indexes directories if absent.
func (c Config) EnsureDirs() error {
	for _, dir := range []string{c.SchemasDir(), c.TablesDir(), c.IndexesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}
