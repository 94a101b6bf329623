package mailer

import (
	"context"
	"testing"

	"cozzyhub/config"
	"cozzyhub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizationMessage(t *testing.T) {
	url := "http://localhost:3000/api/auth/authorize/aB3dE5gH7jK9mN1p"
	msg, err := AuthorizationMessage("a@b.com", "Test <User>", url)
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", msg.To)
	assert.Contains(t, msg.Text, url)
	assert.Contains(t, msg.HTML, url)
	assert.Contains(t, msg.HTML, "Test &lt;User&gt;")
}

func TestOrderConfirmationMessage(t *testing.T) {
	order := &models.Order{
		ID:    "0f8fad5b-d9cb-469f-a165-70867728950e",
		Total: 1299,
		Items: []models.OrderItem{
			{Title: "Linen Throw", Quantity: 2, LineTotal: 1299},
		},
	}
	msg, err := OrderConfirmationMessage("a@b.com", "", order)
	require.NoError(t, err)

	assert.Equal(t, "Your CozzyHub order 0F8FAD5B", msg.Subject)
	assert.Contains(t, msg.Text, "Linen Throw x 2")
	assert.Contains(t, msg.HTML, "Linen Throw")
}

func TestNew_FallsBackToLogSender(t *testing.T) {
	s := New(config.SMTPConfig{})
	_, ok := s.(LogSender)
	require.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), Message{To: "a@b.com", Subject: "hi"}))
}
