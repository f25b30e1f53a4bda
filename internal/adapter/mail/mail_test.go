package mail

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btcinvest/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendGridMailer_SendDepositConfirmation(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key-123", srv.URL, "BTC Invest", "no-reply@example.com", discardLogger())
	err := m.SendDepositConfirmation(context.Background(), model.DepositConfirmation{
		UserEmail: "ana@example.com",
		Subject:   "Deposit confirmed",
		Text:      "R$ 10.50 was added to your balance",
	})
	require.NoError(t, err)

	assert.Equal(t, "Deposit confirmed", got["subject"])
	from := got["from"].(map[string]any)
	assert.Equal(t, "no-reply@example.com", from["email"])
}

func TestSendGridMailer_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"errors":[{"message":"bad key"}]}`)
	}))
	defer srv.Close()

	m := NewSendGridMailer("bad", srv.URL, "", "no-reply@example.com", discardLogger())
	err := m.SendDepositConfirmation(context.Background(), model.DepositConfirmation{UserEmail: "ana@example.com"})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	m := NewLogMailer(discardLogger())
	assert.NoError(t, m.SendDepositConfirmation(context.Background(), model.DepositConfirmation{UserEmail: "a@b.co"}))
}
