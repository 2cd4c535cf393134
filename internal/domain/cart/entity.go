// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidCart       = errors.New("cart: invalid")
	ErrMalformedSnapshot = errors.New("cart: malformed snapshot")
)

// CartLine is one product line in a cart.
// Uniqueness is defined by ProductID.
type CartLine struct {
	ProductID string  `json:"productId" firestore:"productId"`
	Name      string  `json:"name" firestore:"name"`
	UnitPrice int64   `json:"unitPrice" firestore:"unitPrice"` // JPY
	Quantity  int     `json:"quantity" firestore:"quantity"`
	ImageRef  *string `json:"imageRef" firestore:"imageRef"`
}

// Cart is a set of lines keyed by ProductID.
//   - at most one line per ProductID (repeated adds increment quantity)
//   - Lines is kept in ProductID order so two equal carts encode identically
//
// The zero value is an empty cart.
type Cart struct {
	Lines []CartLine `json:"lines" firestore:"lines"`
}

// New builds a cart from lines, merging duplicates and dropping invalid lines.
func New(lines ...CartLine) Cart {
	return Cart{Lines: normalizeAndMerge(lines)}
}

// Add increases quantity for line.ProductID, creating the line when absent.
// Name/UnitPrice/ImageRef of an existing line are refreshed from the argument.
func (c *Cart) Add(line CartLine) error {
	if c == nil {
		return ErrInvalidCart
	}
	pid := strings.TrimSpace(line.ProductID)
	if pid == "" || line.Quantity <= 0 || line.UnitPrice < 0 {
		return ErrInvalidCart
	}
	line.ProductID = pid

	idx := findLineIndex(c.Lines, pid)
	if idx >= 0 {
		line.Quantity += c.Lines[idx].Quantity
		c.Lines[idx] = line
	} else {
		c.Lines = append(c.Lines, line)
	}

	c.Lines = normalizeAndMerge(c.Lines)
	return nil
}

// SetQty sets the quantity of productID.
// qty <= 0 removes the line; setting an absent line is ErrInvalidCart
// because name and price would be unknown.
func (c *Cart) SetQty(productID string, qty int) error {
	if c == nil {
		return ErrInvalidCart
	}
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return ErrInvalidCart
	}

	idx := findLineIndex(c.Lines, pid)
	if qty <= 0 {
		if idx >= 0 {
			c.Lines = removeIndex(c.Lines, idx)
		}
		return nil
	}
	if idx < 0 {
		return ErrInvalidCart
	}
	c.Lines[idx].Quantity = qty
	return nil
}

// Remove removes productID from the cart. Removing an absent line is a no-op.
func (c *Cart) Remove(productID string) error {
	return c.SetQty(productID, 0)
}

// Line returns the line for productID.
func (c Cart) Line(productID string) (CartLine, bool) {
	idx := findLineIndex(c.Lines, strings.TrimSpace(productID))
	if idx < 0 {
		return CartLine{}, false
	}
	return c.Lines[idx], true
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }

func (c Cart) LineCount() int { return len(c.Lines) }

// TotalQuantity sums quantities across all lines.
func (c Cart) TotalQuantity() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Subtotal is the sum of unitPrice*quantity.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

// Clone returns a deep copy (ImageRef pointers are not shared).
func (c Cart) Clone() Cart {
	if len(c.Lines) == 0 {
		return Cart{}
	}
	out := make([]CartLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ImageRef != nil {
			ref := *l.ImageRef
			l.ImageRef = &ref
		}
		out = append(out, l)
	}
	return Cart{Lines: out}
}

// Equal compares carts by content, independent of line order.
func (c Cart) Equal(o Cart) bool {
	a := normalizeAndMerge(c.Lines)
	b := normalizeAndMerge(o.Lines)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !lineEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Validate reports ErrInvalidCart when a line is unusable or duplicated.
func (c Cart) Validate() error {
	seen := make(map[string]struct{}, len(c.Lines))
	for _, l := range c.Lines {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" || l.Quantity <= 0 || l.UnitPrice < 0 {
			return ErrInvalidCart
		}
		if _, dup := seen[pid]; dup {
			return ErrInvalidCart
		}
		seen[pid] = struct{}{}
	}
	return nil
}

// ----------------------------
// Helpers
// ----------------------------

func findLineIndex(lines []CartLine, pid string) int {
	for i := range lines {
		if lines[i].ProductID == pid {
			return i
		}
	}
	return -1
}

func removeIndex(lines []CartLine, idx int) []CartLine {
	if idx < 0 || idx >= len(lines) {
		return lines
	}
	// preserve order
	return append(lines[:idx], lines[idx+1:]...)
}

func lineEqual(a, b CartLine) bool {
	if a.ProductID != b.ProductID || a.Name != b.Name || a.UnitPrice != b.UnitPrice || a.Quantity != b.Quantity {
		return false
	}
	switch {
	case a.ImageRef == nil && b.ImageRef == nil:
		return true
	case a.ImageRef == nil || b.ImageRef == nil:
		return false
	default:
		return *a.ImageRef == *b.ImageRef
	}
}

// normalizeAndMerge trims ids, drops invalid lines, merges duplicates
// (quantities add up, the last seen line wins for name/price/image)
// and sorts by ProductID.
func normalizeAndMerge(src []CartLine) []CartLine {
	if len(src) == 0 {
		return nil
	}

	m := make(map[string]CartLine, len(src))
	for _, l := range src {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" || l.Quantity <= 0 || l.UnitPrice < 0 {
			continue
		}
		l.ProductID = pid

		if exist, ok := m[pid]; ok {
			l.Quantity += exist.Quantity
		}
		m[pid] = l
	}
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]CartLine, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
