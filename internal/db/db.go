package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/existflow/oahu/internal/errs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL driver and placeholder style
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps the SQL connection and stores records as JSON rows
type DB struct {
	*sql.DB
	dialect Dialect
}

// DefaultDBPath returns the default database path (~/.oahu/cache.db)
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".oahu", "cache.db"), nil
}

// Open opens or creates the database and runs migrations
func Open(ctx context.Context, dialect Dialect, dsn string) (*DB, error) {
	switch dialect {
	case DialectSQLite:
		if dsn == "" {
			path, err := DefaultDBPath()
			if err != nil {
				return nil, err
			}
			dsn = path
		}
		// Ensure directory exists
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DialectPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres store requires a dsn")
		}
	default:
		return nil, fmt.Errorf("unknown dialect %q", dialect)
	}

	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == DialectSQLite {
		// One writer at a time; sqlite would otherwise report SQLITE_BUSY
		sqlDB.SetMaxOpenConns(1)
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	db := &DB{DB: sqlDB, dialect: dialect}

	// Run migrations
	if err := db.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// Dialect returns the SQL dialect in use
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// rebind rewrites ? placeholders to $n for postgres
func (db *DB) rebind(query string) string {
	if db.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const (
	queryGetRecord    = `SELECT data FROM records WHERE kind = ? AND id = ?`
	queryUpsertRecord = `INSERT INTO records (kind, id, data, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (kind, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	queryDeleteRecord = `DELETE FROM records WHERE kind = ? AND id = ?`
	queryListIDs      = `SELECT id FROM records WHERE kind = ? ORDER BY id`
)

// Get returns the stored payload of (kind, id)
func (db *DB) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data string
	err := db.QueryRowContext(ctx, db.rebind(queryGetRecord), kind, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("db.Get", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", kind, id, err)
	}
	return []byte(data), nil
}

// Put inserts or replaces the payload of (kind, id)
func (db *DB) Put(ctx context.Context, kind, id string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := db.ExecContext(ctx, db.rebind(queryUpsertRecord), kind, id, string(data), now); err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", kind, id, err)
	}
	return nil
}

// Delete removes (kind, id); missing rows are not an error
func (db *DB) Delete(ctx context.Context, kind, id string) error {
	if _, err := db.ExecContext(ctx, db.rebind(queryDeleteRecord), kind, id); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", kind, id, err)
	}
	return nil
}

// IDs lists the stored ids of kind, bypassing the index
func (db *DB) IDs(ctx context.Context, kind string) ([]string, error) {
	rows, err := db.QueryContext(ctx, db.rebind(queryListIDs), kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
