// internal/domain/identity/entity.go
package identity

import (
	"context"
	"strings"
)

// GuestKey is the snapshot/marker key of the unauthenticated identity.
const GuestKey = "guest"

// Identity is either Guest or Account(id). The zero value is Guest.
type Identity struct {
	accountID string
	email     string
}

func Guest() Identity { return Identity{} }

// Account returns Account(id). An empty id yields Guest.
func Account(id string) Identity {
	return Identity{accountID: strings.TrimSpace(id)}
}

// WithEmail attaches the (optional) e-mail claim of an account identity.
// It does not take part in equality.
func (i Identity) WithEmail(email string) Identity {
	i.email = strings.TrimSpace(email)
	return i
}

func (i Identity) IsGuest() bool { return i.accountID == "" }

func (i Identity) AccountID() string { return i.accountID }

func (i Identity) Email() string { return i.email }

// Key is "guest" or the account id.
func (i Identity) Key() string {
	if i.IsGuest() {
		return GuestKey
	}
	return i.accountID
}

// Equal compares identities by account id only.
func (i Identity) Equal(o Identity) bool { return i.accountID == o.accountID }

func (i Identity) String() string {
	if i.IsGuest() {
		return "Guest"
	}
	return "Account(" + i.accountID + ")"
}

// Parse inverts Key. An empty or "guest" key is Guest.
func Parse(key string) Identity {
	k := strings.TrimSpace(key)
	if k == "" || k == GuestKey {
		return Guest()
	}
	return Account(k)
}

type ctxKey struct{}

// WithContext stores the request identity on ctx.
func WithContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithContext.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
