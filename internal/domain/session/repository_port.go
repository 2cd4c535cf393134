// internal/domain/session/repository_port.go
package session

import "context"

// LocalStore is the per-device key-value state (browser storage analogue).
// Get returns ok=false when key is absent.
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// DeviceRepository hands out the LocalStore of one device.
//
// Storage recommendation (Firestore):
//   - collection: cart_devices
//   - docId: deviceId
//   - fields: one field per key, plus updatedAt
type DeviceRepository interface {
	ForDevice(deviceID string) (LocalStore, error)
}
