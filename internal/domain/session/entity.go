// internal/domain/session/entity.go
package session

import (
	"errors"
	"strings"

	"storefront/internal/domain/identity"
)

var (
	ErrDeviceIDRequired = errors.New("session: device id is required")
)

// Device-local keys (browser storage analogue).
const (
	KeyAuthState    = "auth-state"
	KeyWelcomeShown = "welcome-shown-for"
	KeyCart         = "cart"
)

// Kind classifies what happened to the identity between two ticks.
type Kind int

const (
	NoChange Kind = iota
	GuestToAccount
	AccountToGuest
	AccountToAccount
)

func (k Kind) String() string {
	switch k {
	case GuestToAccount:
		return "guest_to_account"
	case AccountToGuest:
		return "account_to_guest"
	case AccountToAccount:
		return "account_to_account"
	default:
		return "no_change"
	}
}

// Transition is the tagged variant emitted once per tick.
//   - GuestToAccount:   To set
//   - AccountToGuest:   From set
//   - AccountToAccount: From and To set
//
// Current is the identity observed on the tick in every case.
type Transition struct {
	Kind    Kind
	From    identity.Identity
	To      identity.Identity
	Current identity.Identity
}

// Classify compares the previously recorded identity with the current one.
// hasPrev=false (first visit / cleared storage) is always NoChange.
func Classify(prev identity.Identity, hasPrev bool, cur identity.Identity) Transition {
	t := Transition{Kind: NoChange, Current: cur}
	if !hasPrev || prev.Equal(cur) {
		return t
	}

	switch {
	case prev.IsGuest() && !cur.IsGuest():
		t.Kind = GuestToAccount
		t.To = cur
	case !prev.IsGuest() && cur.IsGuest():
		t.Kind = AccountToGuest
		t.From = prev
	default:
		t.Kind = AccountToAccount
		t.From = prev
		t.To = cur
	}
	return t
}

// WelcomeMark records the account for which the restore notice was shown.
// The zero value is NotShown.
type WelcomeMark struct {
	ShownFor string
}

func (m WelcomeMark) ShownTo(accountID string) bool {
	a := strings.TrimSpace(accountID)
	return a != "" && m.ShownFor == a
}

func (m WelcomeMark) IsShown() bool { return m.ShownFor != "" }
