// internal/adapters/out/firestore/device_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"storefront/internal/domain/session"
)

const defaultDevicesCollection = "cart_devices"

// DeviceRepositoryFS implements session.DeviceRepository using Firestore.
//
// Collection design:
//   - collection: cart_devices
//   - docId: deviceId
//   - fields: kv(map key -> value), updatedAt
type DeviceRepositoryFS struct {
	Client     *firestore.Client
	Collection string
}

func NewDeviceRepositoryFS(client *firestore.Client) *DeviceRepositoryFS {
	return &DeviceRepositoryFS{Client: client, Collection: defaultDevicesCollection}
}

func (r *DeviceRepositoryFS) ForDevice(deviceID string) (session.LocalStore, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("device_repository_fs: firestore client is nil")
	}
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, session.ErrDeviceIDRequired
	}
	name := strings.TrimSpace(r.Collection)
	if name == "" {
		name = defaultDevicesCollection
	}
	return &deviceStoreFS{doc: r.Client.Collection(name).Doc(id)}, nil
}

type deviceStoreFS struct {
	doc *firestore.DocumentRef
}

func (s *deviceStoreFS) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.doc.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, err
	}

	kv, _ := snap.Data()["kv"].(map[string]any)
	v, ok := kv[key]
	if !ok || v == nil {
		return "", false, nil
	}
	return asString(v), true, nil
}

func (s *deviceStoreFS) Set(ctx context.Context, key, value string) error {
	// map keys are taken literally as field path components, so keys like
	// "welcome-shown-for" need no quoting.
	_, err := s.doc.Set(ctx, map[string]any{
		"kv":        map[string]any{key: value},
		"updatedAt": time.Now().UTC(),
	}, firestore.MergeAll)
	return err
}

func (s *deviceStoreFS) Delete(ctx context.Context, key string) error {
	_, err := s.doc.Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"kv", key}, Value: firestore.Delete},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}
