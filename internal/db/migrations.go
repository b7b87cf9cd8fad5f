package db

import (
	"context"
	"fmt"
)

// migrate runs all database migrations
func (db *DB) migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateRecords,
		migrationIndexRecordKind,
	}

	for i, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

// Records and indexes share one table; indexes use kind 'Index'
const migrationCreateRecords = `
CREATE TABLE IF NOT EXISTS records (
    kind TEXT NOT NULL,
    id TEXT NOT NULL,
    data TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (kind, id)
);
`

const migrationIndexRecordKind = `
CREATE INDEX IF NOT EXISTS idx_records_kind ON records(kind);
`
