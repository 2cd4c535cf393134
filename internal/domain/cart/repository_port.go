// internal/domain/cart/repository_port.go
package cart

import (
	"context"
	"time"
)

// DefaultSnapshotTTL is the inactivity window after which a saved snapshot
// becomes eligible for deletion (Firestore TTL / cartctl sweep on expiresAt).
const DefaultSnapshotTTL = 30 * 24 * time.Hour

// SnapshotStore persists the last known cart per identity key
// ("guest" or an account id).
//
// Contract:
//   - Read returns (nil, nil) when nothing is stored for key.
//   - Read returns ErrMalformedSnapshot (wrapped) when stored data cannot be decoded.
//   - Write is a full overwrite; writing the same cart twice is harmless.
//   - Delete of an absent key is not an error.
//
// Implementations may be remote; callers never rely on read-your-write
// across devices (last writer wins).
type SnapshotStore interface {
	Read(ctx context.Context, key string) (*Cart, error)
	Write(ctx context.Context, key string, c Cart) error
	Delete(ctx context.Context, key string) error
}

// SnapshotInfo describes a stored snapshot for housekeeping.
type SnapshotInfo struct {
	Key       string
	Lines     int
	UpdatedAt time.Time
	ExpiresAt time.Time
}

// SnapshotSweeper is implemented by stores that can enumerate and expire
// snapshots (used by cartctl).
type SnapshotSweeper interface {
	List(ctx context.Context, limit int) ([]SnapshotInfo, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
