package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostmarkProvider(t *testing.T) {
	t.Run("Should require a server token and sender", func(t *testing.T) {
		_, err := NewPostmarkProvider(PostmarkConfig{})

		var nc *NotConfiguredError
		require.ErrorAs(t, err, &nc)
		assert.Equal(t, []string{"POSTMARK_SERVER_TOKEN", "SENDER_EMAIL"}, nc.Missing)
	})

	newServer := func(t *testing.T, errorCode int, got *map[string]any) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "server-token", r.Header.Get("X-Postmark-Server-Token"))
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"To":        "jane@example.com",
				"MessageID": "0a129aee-e1cd-480d-b08d-4f48548ff48d",
				"ErrorCode": errorCode,
				"Message":   map[bool]string{true: "OK", false: "Inactive recipient"}[errorCode == 0],
			})
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	send := func(t *testing.T, srv *httptest.Server) error {
		p, err := NewPostmarkProvider(PostmarkConfig{ServerToken: "server-token", Sender: "noreply@almeone.com"})
		require.NoError(t, err)
		p.client.BaseURL = srv.URL
		p.client.HTTPClient = srv.Client()

		return p.Send(context.Background(), Message{
			To:       "jane@example.com",
			ReplyTo:  "reply@example.com",
			Subject:  "Hello",
			HTMLBody: "<p>Hi</p>",
			Tag:      "customer-ack",
		})
	}

	t.Run("Should send through the API", func(t *testing.T) {
		var got map[string]any
		srv := newServer(t, 0, &got)

		require.NoError(t, send(t, srv))
		assert.Equal(t, "noreply@almeone.com", got["From"])
		assert.Equal(t, "jane@example.com", got["To"])
		assert.Equal(t, "reply@example.com", got["ReplyTo"])
		assert.Equal(t, "customer-ack", got["Tag"])
	})

	t.Run("Should surface API error codes", func(t *testing.T) {
		var got map[string]any
		srv := newServer(t, 406, &got)

		err := send(t, srv)
		assert.ErrorIs(t, err, ErrSendFailed)
		assert.Contains(t, err.Error(), "406")
	})
}
