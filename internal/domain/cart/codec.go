package cart

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Encode returns the JSON form used by the device-local store, the SQL store
// and the blob store.
func Encode(c Cart) ([]byte, error) {
	c.Lines = normalizeAndMerge(c.Lines)
	if c.Lines == nil {
		c.Lines = []CartLine{}
	}
	return json.Marshal(c)
}

// Decode parses data produced by Encode.
// Invalid lines are dropped; undecodable input is ErrMalformedSnapshot.
func Decode(data []byte) (Cart, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Cart{}, fmt.Errorf("%w: empty payload", ErrMalformedSnapshot)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return Cart{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	c.Lines = normalizeAndMerge(c.Lines)
	return c, nil
}
