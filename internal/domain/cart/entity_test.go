package cart

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestAdd_IncrementsExistingLine(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(CartLine{ProductID: "p1", Name: "Tee", UnitPrice: 3000, Quantity: 1}))
	require.NoError(t, c.Add(CartLine{ProductID: " p1 ", Name: "Tee v2", UnitPrice: 3200, Quantity: 2}))

	require.Equal(t, 1, c.LineCount())
	l, ok := c.Line("p1")
	require.True(t, ok)
	assert.Equal(t, 3, l.Quantity)
	assert.Equal(t, "Tee v2", l.Name)
	assert.Equal(t, int64(3200), l.UnitPrice)
}

func TestAdd_RejectsInvalidLine(t *testing.T) {
	var c Cart
	for _, l := range []CartLine{
		{ProductID: "", Quantity: 1},
		{ProductID: "p1", Quantity: 0},
		{ProductID: "p1", Quantity: 1, UnitPrice: -1},
	} {
		err := c.Add(l)
		assert.True(t, errors.Is(err, ErrInvalidCart), "line %+v", l)
	}
	assert.True(t, c.IsEmpty())
}

func TestLinesSortedByProductID(t *testing.T) {
	var c Cart
	require.NoError(t, c.Add(CartLine{ProductID: "p3", Quantity: 1}))
	require.NoError(t, c.Add(CartLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, c.Add(CartLine{ProductID: "p2", Quantity: 1}))

	ids := []string{}
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	assert.Equal(t, []string{"p1", "p2", "p3"}, ids)
}

func TestSetQty(t *testing.T) {
	c := New(CartLine{ProductID: "p1", Quantity: 2}, CartLine{ProductID: "p2", Quantity: 1})

	require.NoError(t, c.SetQty("p1", 5))
	l, _ := c.Line("p1")
	assert.Equal(t, 5, l.Quantity)

	require.NoError(t, c.SetQty("p2", 0))
	_, ok := c.Line("p2")
	assert.False(t, ok)

	assert.ErrorIs(t, c.SetQty("missing", 1), ErrInvalidCart)
	assert.NoError(t, c.Remove("missing"))
}

func TestNew_MergesDuplicates(t *testing.T) {
	c := New(
		CartLine{ProductID: "p1", Quantity: 1},
		CartLine{ProductID: "p1", Quantity: 2},
		CartLine{ProductID: "bad", Quantity: 0},
	)
	require.Equal(t, 1, c.LineCount())
	assert.Equal(t, 3, c.TotalQuantity())
	assert.NoError(t, c.Validate())
}

func TestClone_DoesNotShareImageRef(t *testing.T) {
	c := New(CartLine{ProductID: "p1", Quantity: 1, ImageRef: strPtr("a.png")})
	cp := c.Clone()
	*cp.Lines[0].ImageRef = "b.png"

	assert.Equal(t, "a.png", *c.Lines[0].ImageRef)
	assert.False(t, c.Equal(cp))
}

func TestEqual_IgnoresOrder(t *testing.T) {
	a := Cart{Lines: []CartLine{{ProductID: "p2", Quantity: 1}, {ProductID: "p1", Quantity: 2}}}
	b := Cart{Lines: []CartLine{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}}}
	assert.True(t, a.Equal(b))
	assert.True(t, Cart{}.Equal(Cart{Lines: []CartLine{}}))
}

func TestSubtotal(t *testing.T) {
	c := New(
		CartLine{ProductID: "p1", UnitPrice: 1000, Quantity: 2},
		CartLine{ProductID: "p2", UnitPrice: 500, Quantity: 3},
	)
	assert.Equal(t, int64(3500), c.Subtotal())
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", `{"lines": 3}`} {
		_, err := Decode([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedSnapshot, "input %q", in)
	}
}

func TestDecode_DropsInvalidLines(t *testing.T) {
	c, err := Decode([]byte(`{"lines":[{"productId":"p1","quantity":2},{"productId":"","quantity":1},{"productId":"p2","quantity":-1}]}`))
	require.NoError(t, err)
	require.Equal(t, 1, c.LineCount())
	assert.Equal(t, "p1", c.Lines[0].ProductID)
}

func TestEncode_EmptyCart(t *testing.T) {
	b, err := Encode(Cart{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"lines":[]}`, string(b))
}
