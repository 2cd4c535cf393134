package shared

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dbadapter "storefront/internal/adapters/out/db"
	fsadapter "storefront/internal/adapters/out/firestore"
	gcsadapter "storefront/internal/adapters/out/gcs"
	"storefront/internal/adapters/out/memory"
	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/session"
	appcfg "storefront/internal/infra/config"
)

// Stores is the storage wiring selected by SNAPSHOT_BACKEND / DEVICE_BACKEND.
type Stores struct {
	Snapshots cartdom.SnapshotStore
	Sweeper   cartdom.SnapshotSweeper // nil if the backend cannot enumerate
	Devices   session.DeviceRepository
}

// NewStores builds the configured stores on top of inf's clients.
// SQL schemas are created if missing.
func NewStores(ctx context.Context, inf *Infra) (*Stores, error) {
	if inf == nil || inf.Config == nil {
		return nil, fmt.Errorf("shared.stores: infra is nil")
	}
	cfg := inf.Config
	log := inf.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if cfg.UsesSQL() {
		if inf.DB == nil {
			return nil, fmt.Errorf("shared.stores: sql backend without db")
		}
		if err := dbadapter.EnsureSchema(ctx, inf.DB.Client); err != nil {
			return nil, err
		}
	}

	out := &Stores{}

	switch cfg.SnapshotBackend {
	case appcfg.BackendMemory:
		r := memory.NewCartSnapshotRepositoryMem()
		r.TTL = cfg.SnapshotTTL
		out.Snapshots, out.Sweeper = r, r
	case appcfg.BackendFirestore:
		r := fsadapter.NewCartSnapshotRepositoryFS(inf.Firestore)
		r.TTL = cfg.SnapshotTTL
		out.Snapshots, out.Sweeper = r, r
	case appcfg.BackendPostgres, appcfg.BackendSQLite:
		r := dbadapter.NewCartSnapshotRepositorySQL(inf.DB.Client)
		r.TTL = cfg.SnapshotTTL
		out.Snapshots, out.Sweeper = r, r
	case appcfg.BackendGCS:
		r := gcsadapter.NewCartSnapshotRepositoryGCS(inf.GCS, cfg.SnapshotBucket)
		r.TTL = cfg.SnapshotTTL
		out.Snapshots, out.Sweeper = r, r
	default:
		return nil, fmt.Errorf("shared.stores: unknown snapshot backend %q", cfg.SnapshotBackend)
	}

	switch cfg.DeviceBackend {
	case appcfg.BackendMemory:
		out.Devices = memory.NewDeviceRepositoryMem()
	case appcfg.BackendFirestore:
		out.Devices = fsadapter.NewDeviceRepositoryFS(inf.Firestore)
	case appcfg.BackendPostgres, appcfg.BackendSQLite:
		out.Devices = dbadapter.NewDeviceRepositorySQL(inf.DB.Client)
	default:
		return nil, fmt.Errorf("shared.stores: unknown device backend %q", cfg.DeviceBackend)
	}

	log.Named("shared.stores").Info("stores ready",
		zap.String("snapshots", cfg.SnapshotBackend),
		zap.String("devices", cfg.DeviceBackend),
	)
	return out, nil
}
