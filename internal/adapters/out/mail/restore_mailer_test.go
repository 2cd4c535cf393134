package mail

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"storefront/internal/application/usecase"
)

type sentMail struct {
	from, to, subject, body string
}

type fakeEmailClient struct {
	mu   sync.Mutex
	sent []sentMail
}

func (c *fakeEmailClient) Send(_ context.Context, from, to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMail{from, to, subject, body})
	return nil
}

func (c *fakeEmailClient) Sent() []sentMail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentMail(nil), c.sent...)
}

func TestRestoreMailer_SendsQueuedNotice(t *testing.T) {
	defer goleak.VerifyNone(t)

	client := &fakeEmailClient{}
	m := NewRestoreMailer(client, "no-reply@shop.example", "https://shop.example/", nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		m.Run(context.Background())
	}()

	require.NoError(t, m.NotifyRestored(context.Background(), usecase.RestoreNotice{
		AccountID: "u1", Email: "u1@example.com", ItemCount: 3,
	}))

	require.Eventually(t, func() bool { return len(client.Sent()) == 1 }, time.Second, 5*time.Millisecond)
	m.Close()
	<-done

	got := client.Sent()[0]
	assert.Equal(t, "no-reply@shop.example", got.from)
	assert.Equal(t, "u1@example.com", got.to)
	assert.Contains(t, got.body, "3 items")
	assert.Contains(t, got.body, "https://shop.example/cart")
}

func TestRestoreMailer_SkipsWithoutEmail(t *testing.T) {
	client := &fakeEmailClient{}
	m := NewRestoreMailer(client, "no-reply@shop.example", "", nil)

	require.NoError(t, m.NotifyRestored(context.Background(), usecase.RestoreNotice{AccountID: "u1", ItemCount: 1}))
	m.Close()
	m.Run(context.Background())
	assert.Empty(t, client.Sent())
}

func TestRestoreMailer_ClosedRejects(t *testing.T) {
	m := NewRestoreMailer(&fakeEmailClient{}, "a@b", "", nil)
	m.Close()
	err := m.NotifyRestored(context.Background(), usecase.RestoreNotice{AccountID: "u1", Email: "u1@example.com"})
	assert.ErrorIs(t, err, ErrMailerClosed)
}

func TestRestoreMailer_DrainsOnClose(t *testing.T) {
	client := &fakeEmailClient{}
	m := NewRestoreMailer(client, "a@b", "", nil)
	require.NoError(t, m.NotifyRestored(context.Background(), usecase.RestoreNotice{AccountID: "u1", Email: "u1@example.com", ItemCount: 1}))

	m.Close()
	m.Run(context.Background())

	require.Len(t, client.Sent(), 1)
	assert.Contains(t, client.Sent()[0].body, "1 item ")
}
