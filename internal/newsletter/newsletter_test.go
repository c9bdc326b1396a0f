package newsletter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/peripatos/internal/logger"
	"github.com/s/peripatos/internal/storage/memstore"
	"github.com/s/peripatos/internal/validation"
)

type fakeMailer struct {
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.sent = append(m.sent, msg)
	return m.err
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	store := memstore.New()
	svc := NewService(store, mailer, logger.NewNop())

	sub, created, err := svc.Subscribe(ctx, SubscribeInput{Email: " Hypatia@Example.com ", Name: "Hypatia", ReceiveUpdates: true})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "hypatia@example.com", sub.Email)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, welcomeSubject, mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].Text, "Hello Hypatia")
	assert.Contains(t, mailer.sent[0].Text, "keep you posted")

	again, created, err := svc.Subscribe(ctx, SubscribeInput{Email: "hypatia@example.com"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sub.ID, again.ID)
	assert.False(t, again.ReceiveUpdates)
	assert.Len(t, mailer.sent, 1)
	assert.Equal(t, 1, store.Len())
}

func TestSubscribe_MailFailureIsNotFatal(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	svc := NewService(memstore.New(), mailer, logger.NewNop())

	_, created, err := svc.Subscribe(context.Background(), SubscribeInput{Email: "a@b.co"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	mailer := &fakeMailer{}
	svc := NewService(memstore.New(), mailer, logger.NewNop())

	_, _, err := svc.Subscribe(context.Background(), SubscribeInput{Email: "not-an-email"})
	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "email")
	assert.Empty(t, mailer.sent)
}

func TestSendgridPrepare(t *testing.T) {
	m := NewSendgridMailer("key", "hello@peripatos.io", "Peripatos")
	v3 := m.prepare(Message{ToName: "Ada", ToAddress: "ada@example.com", Subject: "Hi", Text: "t", HTML: "<p>t</p>"})
	assert.Equal(t, "hello@peripatos.io", v3.From.Address)
	require.Len(t, v3.Personalizations, 1)
	assert.Equal(t, "ada@example.com", v3.Personalizations[0].To[0].Address)
	assert.Len(t, v3.Content, 2)
}
