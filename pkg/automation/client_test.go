package automation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Trigger(t *testing.T) {
	t.Run("Success - posts signed payload", func(t *testing.T) {
		var received Payload
		var signature, auth string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			signature = r.Header.Get("X-Automation-Signature")
			auth = r.Header.Get("Authorization")
			assert.Equal(t, Sign(body, "secret"), signature)
			require.NoError(t, json.Unmarshal(body, &received))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "secret")
		err := client.Trigger(context.Background(), EventAffiliateConversion, map[string]any{"conversion_id": "c1"})

		require.NoError(t, err)
		assert.Equal(t, EventAffiliateConversion, received.Event)
		assert.Equal(t, "c1", received.Data["conversion_id"])
		assert.Equal(t, "Bearer secret", auth)
		assert.NotEmpty(t, signature)
	})

	t.Run("Failure - non 2xx status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		err := NewClient(srv.URL, "").Trigger(context.Background(), EventAffiliateConversion, nil)
		assert.ErrorContains(t, err, "502")
	})

	t.Run("Success - disabled client is a no-op", func(t *testing.T) {
		client := NewClient("", "")
		assert.False(t, client.Enabled())
		assert.NoError(t, client.Trigger(context.Background(), EventAffiliateConversion, nil))
	})
}
