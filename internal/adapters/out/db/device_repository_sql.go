package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/session"
)

// DeviceRepositorySQL implements session.DeviceRepository on the
// cart_device_state table (see EnsureSchema).
type DeviceRepositorySQL struct {
	DB *sql.DB
}

func NewDeviceRepositorySQL(db *sql.DB) *DeviceRepositorySQL {
	return &DeviceRepositorySQL{DB: db}
}

func (r *DeviceRepositorySQL) ForDevice(deviceID string) (session.LocalStore, error) {
	if r == nil || r.DB == nil {
		return nil, errors.New("device_repository_sql: db is nil")
	}
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, session.ErrDeviceIDRequired
	}
	return &deviceStoreSQL{db: r.DB, deviceID: id}, nil
}

type deviceStoreSQL struct {
	db       *sql.DB
	deviceID string
}

func (s *deviceStoreSQL) Get(ctx context.Context, key string) (string, bool, error) {
	const q = `SELECT value FROM cart_device_state WHERE device_id = $1 AND state_key = $2`
	var v string
	if err := s.db.QueryRowContext(ctx, q, s.deviceID, key).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *deviceStoreSQL) Set(ctx context.Context, key, value string) error {
	const q = `
INSERT INTO cart_device_state (device_id, state_key, value, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (device_id, state_key) DO UPDATE SET
  value      = excluded.value,
  updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, q, s.deviceID, key, value, time.Now().UTC().UnixMilli())
	return err
}

func (s *deviceStoreSQL) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cart_device_state WHERE device_id = $1 AND state_key = $2`,
		s.deviceID, key,
	)
	return err
}
