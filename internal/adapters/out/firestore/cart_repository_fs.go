// internal/adapters/out/firestore/cart_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartdom "storefront/internal/domain/cart"
)

const defaultCartSnapshotsCollection = "cart_snapshots"

// CartSnapshotRepositoryFS implements cart.SnapshotStore using Firestore.
//
// Collection design:
//   - collection: cart_snapshots
//   - docId: identity key (account uid)
//   - fields: lines(map productId -> line), updatedAt, expiresAt
//
// TTL:
//   - Configure Firestore TTL on "expiresAt" (cartctl sweep covers projects without it).
type CartSnapshotRepositoryFS struct {
	Client     *firestore.Client
	Collection string
	TTL        time.Duration
	now        func() time.Time
}

func NewCartSnapshotRepositoryFS(client *firestore.Client) *CartSnapshotRepositoryFS {
	return &CartSnapshotRepositoryFS{
		Client:     client,
		Collection: defaultCartSnapshotsCollection,
		TTL:        cartdom.DefaultSnapshotTTL,
		now:        time.Now,
	}
}

func (r *CartSnapshotRepositoryFS) col() *firestore.CollectionRef {
	name := strings.TrimSpace(r.Collection)
	if name == "" {
		name = defaultCartSnapshotsCollection
	}
	return r.Client.Collection(name)
}

// Read returns (nil, nil) if not found (nil policy).
func (r *CartSnapshotRepositoryFS) Read(ctx context.Context, key string) (*cartdom.Cart, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("cart_snapshot_repository_fs: firestore client is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("cart_snapshot_repository_fs: key is empty")
	}

	snap, err := r.col().Doc(k).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	// snap.Data() is parsed by hand: a doc written by an older schema must
	// degrade to dropped lines rather than fail DataTo.
	doc, err := snapshotDocFromData(snap.Data())
	if err != nil {
		return nil, err
	}
	c := doc.toDomain()
	return &c, nil
}

// Write overwrites the full doc (simple & predictable).
func (r *CartSnapshotRepositoryFS) Write(ctx context.Context, key string, c cartdom.Cart) error {
	if r == nil || r.Client == nil {
		return errors.New("cart_snapshot_repository_fs: firestore client is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("cart_snapshot_repository_fs: key is empty")
	}

	now := r.clock().UTC()
	doc := snapshotDocFromDomain(c)
	doc.UpdatedAt = now
	doc.ExpiresAt = now.Add(r.ttl())

	_, err := r.col().Doc(k).Set(ctx, doc)
	return err
}

func (r *CartSnapshotRepositoryFS) Delete(ctx context.Context, key string) error {
	if r == nil || r.Client == nil {
		return errors.New("cart_snapshot_repository_fs: firestore client is nil")
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("cart_snapshot_repository_fs: key is empty")
	}

	_, err := r.col().Doc(k).Delete(ctx)
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

// List returns snapshot metadata ordered by docId.
func (r *CartSnapshotRepositoryFS) List(ctx context.Context, limit int) ([]cartdom.SnapshotInfo, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("cart_snapshot_repository_fs: firestore client is nil")
	}
	q := r.col().OrderBy(firestore.DocumentID, firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	it := q.Documents(ctx)
	defer it.Stop()

	var out []cartdom.SnapshotInfo
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		info := cartdom.SnapshotInfo{Key: snap.Ref.ID}
		if doc, err := snapshotDocFromData(snap.Data()); err == nil {
			info.Lines = len(doc.Lines)
			info.UpdatedAt = doc.UpdatedAt
			info.ExpiresAt = doc.ExpiresAt
		}
		out = append(out, info)
	}
	return out, nil
}

// DeleteExpired removes docs whose expiresAt <= now.
func (r *CartSnapshotRepositoryFS) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if r == nil || r.Client == nil {
		return 0, errors.New("cart_snapshot_repository_fs: firestore client is nil")
	}

	it := r.col().Where("expiresAt", "<=", now.UTC()).Documents(ctx)
	defer it.Stop()

	n := 0
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return n, err
		}
		if _, err := snap.Ref.Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
			return n, fmt.Errorf("cart_snapshot_repository_fs: delete %s: %w", snap.Ref.ID, err)
		}
		n++
	}
	return n, nil
}

func (r *CartSnapshotRepositoryFS) clock() time.Time {
	if r.now == nil {
		return time.Now()
	}
	return r.now()
}

func (r *CartSnapshotRepositoryFS) ttl() time.Duration {
	if r.TTL <= 0 {
		return cartdom.DefaultSnapshotTTL
	}
	return r.TTL
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type snapshotDoc struct {
	// Lines: productId -> line
	Lines map[string]snapshotLineDoc `firestore:"lines"`

	UpdatedAt time.Time `firestore:"updatedAt"`
	ExpiresAt time.Time `firestore:"expiresAt"`
}

type snapshotLineDoc struct {
	ProductID string  `firestore:"productId"`
	Name      string  `firestore:"name"`
	UnitPrice int64   `firestore:"unitPrice"`
	Quantity  int     `firestore:"quantity"`
	ImageRef  *string `firestore:"imageRef"`
}

// snapshotDocFromData parses Firestore document data.
//
// Supported line shapes:
//  1. lines: map[productId] = {productId, name, unitPrice, quantity, imageRef}
//  2. lines: map[productId] = quantity (legacy; name/price unknown)
//
// A "lines" field of any other type is ErrMalformedSnapshot.
func snapshotDocFromData(raw map[string]any) (snapshotDoc, error) {
	out := snapshotDoc{Lines: map[string]snapshotLineDoc{}}
	if raw == nil {
		return out, nil
	}

	if t, ok := asTime(raw["updatedAt"]); ok {
		out.UpdatedAt = t
	}
	if t, ok := asTime(raw["expiresAt"]); ok {
		out.ExpiresAt = t
	}

	linesAny, present := raw["lines"]
	if !present || linesAny == nil {
		return out, nil
	}
	m, ok := linesAny.(map[string]any)
	if !ok {
		return snapshotDoc{}, fmt.Errorf("%w: lines is %T", cartdom.ErrMalformedSnapshot, linesAny)
	}

	for k, v := range m {
		pid := strings.TrimSpace(k)
		if pid == "" {
			continue
		}

		if mv, ok := v.(map[string]any); ok {
			qty := asInt(mv["quantity"])
			if qty <= 0 {
				continue
			}
			if id := strings.TrimSpace(asString(mv["productId"])); id != "" {
				pid = id
			}
			var img *string
			if s := strings.TrimSpace(asString(mv["imageRef"])); s != "" {
				img = &s
			}
			out.Lines[pid] = snapshotLineDoc{
				ProductID: pid,
				Name:      strings.TrimSpace(asString(mv["name"])),
				UnitPrice: asInt64(mv["unitPrice"]),
				Quantity:  qty,
				ImageRef:  img,
			}
			continue
		}

		// legacy shape: quantity only
		qty := asInt(v)
		if qty <= 0 {
			continue
		}
		out.Lines[pid] = snapshotLineDoc{ProductID: pid, Quantity: qty}
	}

	return out, nil
}

func snapshotDocFromDomain(c cartdom.Cart) snapshotDoc {
	lines := make(map[string]snapshotLineDoc, len(c.Lines))
	for _, l := range cartdom.New(c.Lines...).Lines {
		lines[l.ProductID] = snapshotLineDoc{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
		}
	}
	return snapshotDoc{Lines: lines}
}

func (d snapshotDoc) toDomain() cartdom.Cart {
	lines := make([]cartdom.CartLine, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, cartdom.CartLine{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
		})
	}
	return cartdom.New(lines...)
}
