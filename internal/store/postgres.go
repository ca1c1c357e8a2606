package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/nhle/tasklists/internal/model"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresStore implements Store on a Postgres table with jsonb attributes.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore applies pending migrations and opens a connection pool.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := runPostgresMigrations(dsn); err != nil {
		return nil, err
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func runPostgresMigrations(dsn string) error {
	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	if err := goose.Up(db, "migrations/postgres"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// Find retrieves a single row by key.
func (s *PostgresStore) Find(ctx context.Context, key model.Key) (model.Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT attributes FROM items WHERE type = $1 AND unique_id = $2`,
		string(key.Type), key.UniqueID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("finding %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", key, err)
	}
	return decodeAttributes(key, raw)
}

// Query retrieves every row of q.Type, narrowed by q.Filter when set.
func (s *PostgresStore) Query(ctx context.Context, q Query) ([]model.Item, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	query := `SELECT type, unique_id, attributes FROM items WHERE type = $1`
	args := []any{string(q.Type)}
	if q.Filter != nil {
		query += fmt.Sprintf(` AND attributes ->> '%s' = $2`, q.Filter.Attr)
		args = append(args, q.Filter.Value)
	}
	query += ` ORDER BY created_at, unique_id`

	items, err := s.collect(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s items: %w", q.Type, err)
	}
	return items, nil
}

// Scan retrieves every row in the table.
func (s *PostgresStore) Scan(ctx context.Context) ([]model.Item, error) {
	items, err := s.collect(ctx,
		`SELECT type, unique_id, attributes FROM items ORDER BY type, created_at, unique_id`)
	if err != nil {
		return nil, fmt.Errorf("scanning items: %w", err)
	}
	return items, nil
}

// Save inserts item or replaces the attributes of the existing row.
func (s *PostgresStore) Save(ctx context.Context, item model.Item) error {
	key := item.Key()
	if err := validateKey(key); err != nil {
		return err
	}
	attrs, err := json.Marshal(item.Attributes())
	if err != nil {
		return fmt.Errorf("marshaling attributes for %s: %w", key, err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO items (type, unique_id, attributes)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (type, unique_id) DO UPDATE SET
			attributes = EXCLUDED.attributes,
			updated_at = NOW()`,
		string(key.Type), key.UniqueID, string(attrs),
	)
	if err != nil {
		return fmt.Errorf("saving %s: %w", key, err)
	}
	return nil
}

// UpdateFields merges fields into the row's attributes with jsonb concatenation.
func (s *PostgresStore) UpdateFields(
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
	patch, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("marshaling fields for %s: %w", key, err)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE items SET attributes = attributes || $3::jsonb, updated_at = NOW()
		WHERE type = $1 AND unique_id = $2`,
		string(key.Type), key.UniqueID, string(patch),
	)
	if err != nil {
		return nil, fmt.Errorf("updating %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("updating %s: %w", key, ErrNotFound)
	}
	return updated, nil
}

// Delete removes a row and returns what it held.
func (s *PostgresStore) Delete(ctx context.Context, key model.Key) (model.Item, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.QueryRow(ctx,
		`DELETE FROM items WHERE type = $1 AND unique_id = $2 RETURNING attributes`,
		string(key.Type), key.UniqueID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("deleting %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("deleting %s: %w", key, err)
	}
	return decodeAttributes(key, raw)
}

func (s *PostgresStore) collect(ctx context.Context, query string, args ...any) ([]model.Item, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Item{}
	for rows.Next() {
		var (
			typ, id string
			raw     []byte
		)
		if err := rows.Scan(&typ, &id, &raw); err != nil {
			return nil, err
		}
		it, err := decodeAttributes(model.Key{Type: model.Type(typ), UniqueID: id}, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func decodeAttributes(key model.Key, raw []byte) (model.Item, error) {
	it := model.Item{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshaling attributes for %s: %w", key, err)
		}
	}
	return it.WithKey(key), nil
}
