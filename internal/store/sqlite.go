package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/tasklists/internal/model"
)

// SQLiteStore implements Store on a single SQLite table.
type SQLiteStore struct {
	db *sqlx.DB
}

// itemRow is the physical shape of a row in the items table.
type itemRow struct {
	Type       string `db:"type"`
	UniqueID   string `db:"unique_id"`
	Attributes string `db:"attributes"`
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	memory := strings.Contains(dbPath, ":memory:")

	db, err := sqlx.Open("sqlite", sqliteDSN(dbPath, memory))
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to ":memory:" gets its own empty database.
	if memory {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// sqliteDSN adds the per-connection settings for a file database. Writers
// wait up to 5s for the lock, and transactions take the write lock at BEGIN
// so a read-then-write cannot fail halfway with SQLITE_BUSY.
func sqliteDSN(dbPath string, memory bool) string {
	if memory {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=busy_timeout(5000)&_txlock=immediate"
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Find retrieves a single row by key.
func (s *SQLiteStore) Find(ctx context.Context, key model.Key) (model.Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var row itemRow
	err := s.db.GetContext(ctx, &row,
		"SELECT type, unique_id, attributes FROM items WHERE type = ? AND unique_id = ?",
		string(key.Type), key.UniqueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finding %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", key, err)
	}
	return row.item()
}

// Query retrieves every row of q.Type, narrowed by q.Filter when set.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]model.Item, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := "SELECT type, unique_id, attributes FROM items WHERE type = ?"
	args := []any{string(q.Type)}
	if q.Filter != nil {
		// The literal path matches the expression indexes.
		query += fmt.Sprintf(" AND json_extract(attributes, '$.%s') = ?", q.Filter.Attr)
		args = append(args, q.Filter.Value)
	}
	query += " ORDER BY created_at, unique_id"

	var rows []itemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying %s items: %w", q.Type, err)
	}
	return rowsToItems(rows)
}

// Scan retrieves every row in the table.
func (s *SQLiteStore) Scan(ctx context.Context) ([]model.Item, error) {
	var rows []itemRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT type, unique_id, attributes FROM items ORDER BY type, created_at, unique_id")
	if err != nil {
		return nil, fmt.Errorf("scanning items: %w", err)
	}
	return rowsToItems(rows)
}

// Save inserts item or replaces the attributes of the existing row.
func (s *SQLiteStore) Save(ctx context.Context, item model.Item) error {
	key := item.Key()
	if err := validateKey(key); err != nil {
		return err
	}
	attrs, err := json.Marshal(item.Attributes())
	if err != nil {
		return fmt.Errorf("marshaling attributes for %s: %w", key, err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO items (type, unique_id, attributes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(type, unique_id) DO UPDATE SET
			attributes = excluded.attributes,
			updated_at = excluded.updated_at`,
		string(key.Type), key.UniqueID, string(attrs), now, now,
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// UpdateFields merges fields into the row's attributes inside a transaction.
func (s *SQLiteStore) UpdateFields(
	ctx context.Context,
	key model.Key,
	fields map[string]any,
) (model.Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	updated, err := model.ItemOf(fields)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.GetContext(ctx, &raw,
		"SELECT attributes FROM items WHERE type = ? AND unique_id = ?",
		string(key.Type), key.UniqueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("updating %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", key, err)
	}

	attrs := model.Item{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes for %s: %w", key, err)
		}
	}
	for k, v := range updated {
		attrs[k] = v
	}
	merged, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshaling attributes for %s: %w", key, err)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE items SET attributes = ?, updated_at = ? WHERE type = ? AND unique_id = ?",
		string(merged), time.Now().UTC(), string(key.Type), key.UniqueID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing update of %s: %w", key, err)
	}

	return updated, nil
}

// Delete removes a row and returns what it held.
func (s *SQLiteStore) Delete(ctx context.Context, key model.Key) (model.Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var row itemRow
	err := s.db.GetContext(ctx, &row, `
		DELETE FROM items WHERE type = ? AND unique_id = ?
		RETURNING type, unique_id, attributes`,
		string(key.Type), key.UniqueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deleting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("deleting %s: %w", key, err)
	}
	return row.item()
}

func (r itemRow) item() (model.Item, error) {
	it := model.Item{}
	if r.Attributes != "" {
		if err := json.Unmarshal([]byte(r.Attributes), &it); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes for %s/%s: %w", r.Type, r.UniqueID, err)
		}
	}
	return it.WithKey(model.Key{Type: model.Type(r.Type), UniqueID: r.UniqueID}), nil
}

func rowsToItems(rows []itemRow) ([]model.Item, error) {
	items := make([]model.Item, 0, len(rows))
	for _, r := range rows {
		it, err := r.item()
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
