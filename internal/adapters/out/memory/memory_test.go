package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/session"
)

func TestCartSnapshotRepositoryMem_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	r := NewCartSnapshotRepositoryMem()

	img := "a.png"
	in := cartdom.New(cartdom.CartLine{ProductID: "p1", Quantity: 1, ImageRef: &img})
	require.NoError(t, r.Write(ctx, "u1", in))

	// mutating the caller's copy must not leak into the store
	in.Lines[0].Quantity = 9
	*in.Lines[0].ImageRef = "b.png"

	got, err := r.Read(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, got.Lines[0].Quantity)
	assert.Equal(t, "a.png", *got.Lines[0].ImageRef)

	missing, err := r.Read(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = r.Read(ctx, "")
	assert.Error(t, err)
}

func TestCartSnapshotRepositoryMem_Sweep(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := NewCartSnapshotRepositoryMem()
	r.TTL = time.Hour

	r.now = func() time.Time { return base }
	require.NoError(t, r.Write(ctx, "b", cartdom.New(cartdom.CartLine{ProductID: "p1", Quantity: 1})))
	r.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, r.Write(ctx, "a", cartdom.Cart{}))

	infos, err := r.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Key)

	n, err := r.DeleteExpired(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	infos, err = r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Key)
}

func TestDeviceRepositoryMem(t *testing.T) {
	ctx := context.Background()
	r := NewDeviceRepositoryMem()

	a1, err := r.ForDevice("dev-a")
	require.NoError(t, err)
	a2, err := r.ForDevice(" dev-a ")
	require.NoError(t, err)
	require.NoError(t, a1.Set(ctx, session.KeyCart, "x"))

	v, ok, err := a2.Get(ctx, session.KeyCart)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, err = r.ForDevice(" ")
	assert.ErrorIs(t, err, session.ErrDeviceIDRequired)
}
