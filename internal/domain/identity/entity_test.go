package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyAndParse(t *testing.T) {
	assert.Equal(t, "guest", Guest().Key())
	assert.Equal(t, "u1", Account(" u1 ").Key())
	assert.True(t, Account("").IsGuest())

	assert.True(t, Parse("guest").IsGuest())
	assert.True(t, Parse("").IsGuest())
	assert.True(t, Parse("u1").Equal(Account("u1")))
}

func TestEqual_IgnoresEmail(t *testing.T) {
	a := Account("u1").WithEmail("a@example.com")
	b := Account("u1")
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Account("u2")))
	assert.Equal(t, "a@example.com", a.Email())
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithContext(context.Background(), Account("u1"))
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Account(u1)", id.String())
}
