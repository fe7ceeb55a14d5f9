package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEconomyClient(t *testing.T) {
	var gotKeys []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/v1/wallets/alice/balance":
			_ = json.NewEncoder(w).Encode(balanceResponse{PlayerID: "alice", Balance: 250})
		case "/v1/wallets/alice/debit", "/v1/wallets/alice/credit":
			var req transferRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			gotKeys = append(gotKeys, r.Header.Get("Idempotency-Key"))
			if req.Amount > 250 {
				w.WriteHeader(http.StatusPaymentRequired)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewEconomyClient(srv.URL, "secret")

	b, err := c.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(250), b)

	require.NoError(t, c.Debit(ctx, "alice", 100, "lobby-1"))
	require.NoError(t, c.Credit(ctx, "alice", 200, "session-1"))
	assert.Equal(t, []string{"debit:alice:lobby-1", "credit:alice:session-1"}, gotKeys)

	err = c.Debit(ctx, "alice", 300, "lobby-2")
	assert.ErrorIs(t, err, gameerr.ErrInsufficientFunds)

	_, err = c.Balance(ctx, "nobody")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}
