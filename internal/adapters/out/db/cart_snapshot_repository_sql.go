package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	cartdom "storefront/internal/domain/cart"
)

// CartSnapshotRepositorySQL implements cart.SnapshotStore and cart.SnapshotSweeper
// on database/sql. The statements are valid for both PostgreSQL (pgx / lib/pq)
// and SQLite (modernc.org/sqlite).
//
// Timestamps are stored as unix milliseconds so both dialects scan them the same way.
type CartSnapshotRepositorySQL struct {
	DB  *sql.DB
	TTL time.Duration
	now func() time.Time
}

func NewCartSnapshotRepositorySQL(db *sql.DB) *CartSnapshotRepositorySQL {
	return &CartSnapshotRepositorySQL{DB: db, TTL: cartdom.DefaultSnapshotTTL, now: time.Now}
}

// ========================
// Schema
// ========================

const cartSchema = `
CREATE TABLE IF NOT EXISTS cart_snapshots (
  snapshot_key TEXT PRIMARY KEY,
  lines        TEXT NOT NULL,
  line_count   INTEGER NOT NULL DEFAULT 0,
  updated_at   BIGINT NOT NULL,
  expires_at   BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cart_snapshots_expires_at ON cart_snapshots (expires_at);
CREATE TABLE IF NOT EXISTS cart_device_state (
  device_id  TEXT NOT NULL,
  state_key  TEXT NOT NULL,
  value      TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (device_id, state_key)
);`

// EnsureSchema creates the cart tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("cart_snapshot_repository_sql: db is nil")
	}
	for _, stmt := range strings.Split(cartSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("cart_snapshot_repository_sql: ensure schema: %w", err)
		}
	}
	return nil
}

// ========================
// SnapshotStore impl
// ========================

// Read returns (nil, nil) if not found.
func (r *CartSnapshotRepositorySQL) Read(ctx context.Context, key string) (*cartdom.Cart, error) {
	k, err := r.key(key)
	if err != nil {
		return nil, err
	}

	const q = `SELECT lines FROM cart_snapshots WHERE snapshot_key = $1`
	var raw string
	if err := r.DB.QueryRowContext(ctx, q, k).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	c, err := cartdom.Decode([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartSnapshotRepositorySQL) Write(ctx context.Context, key string, c cartdom.Cart) error {
	k, err := r.key(key)
	if err != nil {
		return err
	}

	raw, err := cartdom.Encode(c)
	if err != nil {
		return err
	}
	now := r.clock().UTC()

	const q = `
INSERT INTO cart_snapshots (snapshot_key, lines, line_count, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (snapshot_key) DO UPDATE SET
  lines      = excluded.lines,
  line_count = excluded.line_count,
  updated_at = excluded.updated_at,
  expires_at = excluded.expires_at`
	_, err = r.DB.ExecContext(ctx, q,
		k,
		string(raw),
		cartdom.New(c.Lines...).LineCount(),
		now.UnixMilli(),
		now.Add(r.ttl()).UnixMilli(),
	)
	return err
}

func (r *CartSnapshotRepositorySQL) Delete(ctx context.Context, key string) error {
	k, err := r.key(key)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE snapshot_key = $1`, k)
	return err
}

// ========================
// SnapshotSweeper impl
// ========================

func (r *CartSnapshotRepositorySQL) List(ctx context.Context, limit int) ([]cartdom.SnapshotInfo, error) {
	if r == nil || r.DB == nil {
		return nil, errors.New("cart_snapshot_repository_sql: db is nil")
	}
	if limit <= 0 {
		limit = 1000
	}

	const q = `
SELECT snapshot_key, line_count, updated_at, expires_at
FROM cart_snapshots
ORDER BY snapshot_key ASC
LIMIT $1`
	rows, err := r.DB.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cartdom.SnapshotInfo
	for rows.Next() {
		var (
			info             cartdom.SnapshotInfo
			updated, expires int64
		)
		if err := rows.Scan(&info.Key, &info.Lines, &updated, &expires); err != nil {
			return nil, err
		}
		info.UpdatedAt = time.UnixMilli(updated).UTC()
		info.ExpiresAt = time.UnixMilli(expires).UTC()
		out = append(out, info)
	}
	return out, rows.Err()
}

func (r *CartSnapshotRepositorySQL) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if r == nil || r.DB == nil {
		return 0, errors.New("cart_snapshot_repository_sql: db is nil")
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE expires_at <= $1`, now.UTC().UnixMilli())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ========================
// helpers
// ========================

func (r *CartSnapshotRepositorySQL) key(key string) (string, error) {
	if r == nil || r.DB == nil {
		return "", errors.New("cart_snapshot_repository_sql: db is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return "", errors.New("cart_snapshot_repository_sql: key is empty")
	}
	return k, nil
}

func (r *CartSnapshotRepositorySQL) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

func (r *CartSnapshotRepositorySQL) ttl() time.Duration {
	if r.TTL <= 0 {
		return cartdom.DefaultSnapshotTTL
	}
	return r.TTL
}
