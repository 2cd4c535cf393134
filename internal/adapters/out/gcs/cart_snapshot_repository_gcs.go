// internal/adapters/out/gcs/cart_snapshot_repository_gcs.go
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	cartdom "storefront/internal/domain/cart"
)

const (
	cartSnapshotPrefix = "cart-snapshots/"
	metaExpiresAt      = "expires-at"
	metaLineCount      = "line-count"
)

// CartSnapshotRepositoryGCS implements cart.SnapshotStore backed by Google Cloud Storage.
//
// Object layout:
//   - gs://<bucket>/cart-snapshots/<path-escaped key>.json
//   - body: cart codec JSON
//   - metadata: expires-at (unix seconds), line-count
//
// A bucket lifecycle rule on object age is the usual TTL; DeleteExpired covers
// buckets without one.
type CartSnapshotRepositoryGCS struct {
	Client *storage.Client
	Bucket string
	TTL    time.Duration
	now    func() time.Time
}

func NewCartSnapshotRepositoryGCS(client *storage.Client, bucket string) *CartSnapshotRepositoryGCS {
	return &CartSnapshotRepositoryGCS{
		Client: client,
		Bucket: strings.TrimSpace(bucket),
		TTL:    cartdom.DefaultSnapshotTTL,
		now:    time.Now,
	}
}

func (r *CartSnapshotRepositoryGCS) bucket() (*storage.BucketHandle, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("CartSnapshotRepositoryGCS: nil storage client")
	}
	b := strings.TrimSpace(r.Bucket)
	if b == "" {
		return nil, errors.New("CartSnapshotRepositoryGCS: bucket is empty")
	}
	return r.Client.Bucket(b), nil
}

// snapshotObjectName maps an identity key to its object path.
func snapshotObjectName(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("CartSnapshotRepositoryGCS: key is empty")
	}
	return cartSnapshotPrefix + escapeKeySegment(key) + ".json", nil
}

// Read returns (nil, nil) if the object does not exist.
func (r *CartSnapshotRepositoryGCS) Read(ctx context.Context, key string) (*cartdom.Cart, error) {
	bh, err := r.bucket()
	if err != nil {
		return nil, err
	}
	name, err := snapshotObjectName(key)
	if err != nil {
		return nil, err
	}

	rd, err := bh.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer rd.Close()

	raw, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}
	c, err := cartdom.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CartSnapshotRepositoryGCS) Write(ctx context.Context, key string, c cartdom.Cart) error {
	bh, err := r.bucket()
	if err != nil {
		return err
	}
	name, err := snapshotObjectName(key)
	if err != nil {
		return err
	}
	raw, err := cartdom.Encode(c)
	if err != nil {
		return err
	}

	ttl := r.TTL
	if ttl <= 0 {
		ttl = cartdom.DefaultSnapshotTTL
	}
	now := time.Now
	if r.now != nil {
		now = r.now
	}

	w := bh.Object(name).NewWriter(ctx)
	w.ContentType = "application/json; charset=utf-8"
	w.CacheControl = "no-store"
	w.Metadata = map[string]string{
		metaExpiresAt: strconv.FormatInt(now().Add(ttl).Unix(), 10),
		metaLineCount: strconv.Itoa(cartdom.New(c.Lines...).LineCount()),
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (r *CartSnapshotRepositoryGCS) Delete(ctx context.Context, key string) error {
	bh, err := r.bucket()
	if err != nil {
		return err
	}
	name, err := snapshotObjectName(key)
	if err != nil {
		return err
	}
	if err := bh.Object(name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return err
	}
	return nil
}

func (r *CartSnapshotRepositoryGCS) List(ctx context.Context, limit int) ([]cartdom.SnapshotInfo, error) {
	bh, err := r.bucket()
	if err != nil {
		return nil, err
	}

	it := bh.Objects(ctx, &storage.Query{Prefix: cartSnapshotPrefix})
	var out []cartdom.SnapshotInfo
	for limit <= 0 || len(out) < limit {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		if info, ok := snapshotInfoFromAttrs(attrs); ok {
			out = append(out, info)
		}
	}
	return out, nil
}

func (r *CartSnapshotRepositoryGCS) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	bh, err := r.bucket()
	if err != nil {
		return 0, err
	}

	it := bh.Objects(ctx, &storage.Query{Prefix: cartSnapshotPrefix})
	n := 0
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return n, err
		}
		info, ok := snapshotInfoFromAttrs(attrs)
		if !ok || info.ExpiresAt.IsZero() || info.ExpiresAt.After(now) {
			continue
		}
		if err := bh.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return n, fmt.Errorf("CartSnapshotRepositoryGCS: delete %s: %w", attrs.Name, err)
		}
		n++
	}
	return n, nil
}

func snapshotInfoFromAttrs(attrs *storage.ObjectAttrs) (cartdom.SnapshotInfo, bool) {
	if attrs == nil || isKeepObject(attrs.Name) {
		return cartdom.SnapshotInfo{}, false
	}
	seg, ok := strings.CutPrefix(attrs.Name, cartSnapshotPrefix)
	if !ok {
		return cartdom.SnapshotInfo{}, false
	}
	seg, ok = strings.CutSuffix(seg, ".json")
	if !ok {
		return cartdom.SnapshotInfo{}, false
	}
	key, ok := unescapeKeySegment(seg)
	if !ok {
		return cartdom.SnapshotInfo{}, false
	}

	info := cartdom.SnapshotInfo{Key: key, UpdatedAt: attrs.Updated}
	if n, err := strconv.Atoi(attrs.Metadata[metaLineCount]); err == nil {
		info.Lines = n
	}
	if sec, err := strconv.ParseInt(attrs.Metadata[metaExpiresAt], 10, 64); err == nil {
		info.ExpiresAt = time.Unix(sec, 0).UTC()
	}
	return info, true
}
