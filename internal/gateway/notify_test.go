package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyCompleted(t *testing.T) {
	t.Run("posts the evaluation id", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		notifier := NewCompletionNotifier(server.URL, zap.NewNop())
		require.NoError(t, notifier.NotifyCompleted(context.Background(), "eval-1"))

		assert.Equal(t, "/internal/notify-completed", gotPath)
		assert.Equal(t, "eval-1", gotBody["evaluationId"])
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		notifier := NewCompletionNotifier(server.URL, zap.NewNop())
		assert.Error(t, notifier.NotifyCompleted(context.Background(), "eval-1"))
	})

	t.Run("unreachable endpoint is an error", func(t *testing.T) {
		notifier := NewCompletionNotifier("http://127.0.0.1:1", zap.NewNop())
		assert.Error(t, notifier.NotifyCompleted(context.Background(), "eval-1"))
	})
}
