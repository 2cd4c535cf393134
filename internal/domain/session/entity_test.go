package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"storefront/internal/domain/identity"
)

func TestClassify(t *testing.T) {
	guest := identity.Guest()
	a := identity.Account("a")
	b := identity.Account("b")

	tests := []struct {
		name    string
		prev    identity.Identity
		hasPrev bool
		cur     identity.Identity
		want    Kind
	}{
		{"first visit guest", guest, false, guest, NoChange},
		{"first visit account", guest, false, a, NoChange},
		{"guest stays guest", guest, true, guest, NoChange},
		{"reload as same account", a, true, a, NoChange},
		{"sign in", guest, true, a, GuestToAccount},
		{"sign out", a, true, guest, AccountToGuest},
		{"switch", a, true, b, AccountToAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.prev, tt.hasPrev, tt.cur)
			assert.Equal(t, tt.want, got.Kind)
			assert.True(t, got.Current.Equal(tt.cur))
		})
	}
}

func TestClassify_Fields(t *testing.T) {
	tr := Classify(identity.Account("a"), true, identity.Account("b"))
	assert.Equal(t, "a", tr.From.AccountID())
	assert.Equal(t, "b", tr.To.AccountID())
	assert.Equal(t, "account_to_account", tr.Kind.String())

	tr = Classify(identity.Account("a"), true, identity.Guest())
	assert.Equal(t, "a", tr.From.AccountID())
	assert.True(t, tr.To.IsGuest())
}

func TestWelcomeMark(t *testing.T) {
	var m WelcomeMark
	assert.False(t, m.IsShown())
	assert.False(t, m.ShownTo(""))

	m.ShownFor = "a"
	assert.True(t, m.ShownTo("a"))
	assert.False(t, m.ShownTo("b"))
}
