package database

import (
	"fmt"
	"os"
	"path/filepath"

	"notes-go/internal/config"
)

// FileName is the database file created under data_dir.
const FileName = "notes.db"

// NewDatabaseFromConfig opens the database selected by cfg.Type.
// In-memory databases are migrated immediately since they start empty;
// file databases are left for the caller to check or migrate.
func NewDatabaseFromConfig(cfg config.DatabaseConfig) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data_dir: %w", err)
		}
		return NewSQLiteDatabase(filepath.Join(cfg.DataDir, FileName))
	case "memory":
		db, err := NewSQLiteDatabase(MemoryPath)
		if err != nil {
			return nil, err
		}
		if err := db.MigrateUp(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
