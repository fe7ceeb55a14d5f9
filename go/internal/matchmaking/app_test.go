package matchmaking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/economy"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/mcdev12/ladders/go/internal/rpcjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, *Queue, *economy.Ledger) {
	t.Helper()
	queue := NewQueue()
	ledger := economy.NewLedger(0)
	return NewApp(queue, ledger, testCatalog(t), clockwork.NewFakeClock()), queue, ledger
}

func TestRequestMatch_UsesBalanceAsAffordability(t *testing.T) {
	app, queue, ledger := newTestApp(t)
	ledger.Deposit("alice", 450)

	got, err := app.RequestMatch(context.Background(), models.Player{ID: "alice", Address: "addr-alice"})
	require.NoError(t, err)
	assert.Equal(t, int64(450), got.Affordability)
	assert.True(t, queue.Contains("alice"))
}

func TestRequestMatch_RejectsBelowCheapestDuel(t *testing.T) {
	app, queue, ledger := newTestApp(t)
	ledger.Deposit("bob", 99)

	_, err := app.RequestMatch(context.Background(), models.Player{ID: "bob"})
	assert.ErrorIs(t, err, gameerr.ErrInsufficientFunds)
	assert.False(t, queue.Contains("bob"))
}

func TestRequestMatch_AlreadyQueued(t *testing.T) {
	app, _, ledger := newTestApp(t)
	ledger.Deposit("alice", 500)

	_, err := app.RequestMatch(context.Background(), models.Player{ID: "alice"})
	require.NoError(t, err)
	_, err = app.RequestMatch(context.Background(), models.Player{ID: "alice"})
	assert.ErrorIs(t, err, gameerr.ErrAlreadyQueued)
}

func TestService_OverHTTP(t *testing.T) {
	app, queue, ledger := newTestApp(t)
	ledger.Deposit("alice", 500)

	mux := http.NewServeMux()
	mux.Handle(NewHandler(NewService(app)))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	request := connect.NewClient[RequestMatchRequest, RequestMatchResponse](srv.Client(),
		srv.URL+MatchmakingServiceRequestMatchProcedure, connect.WithCodec(rpcjson.Codec{}))
	cancelMatch := connect.NewClient[CancelMatchRequest, CancelMatchResponse](srv.Client(),
		srv.URL+MatchmakingServiceCancelMatchProcedure, connect.WithCodec(rpcjson.Codec{}))

	req := connect.NewRequest(&RequestMatchRequest{Address: "addr-alice", DisplayName: "Alice"})
	req.Header().Set(rpcjson.PlayerHeader, "alice")
	res, err := request.CallUnary(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Msg.Entry.PlayerID)
	assert.Equal(t, 1, queue.Len())

	req = connect.NewRequest(&RequestMatchRequest{})
	req.Header().Set(rpcjson.PlayerHeader, "broke")
	_, err = request.CallUnary(context.Background(), req)
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

	creq := connect.NewRequest(&CancelMatchRequest{})
	creq.Header().Set(rpcjson.PlayerHeader, "alice")
	cres, err := cancelMatch.CallUnary(context.Background(), creq)
	require.NoError(t, err)
	assert.True(t, cres.Msg.Cancelled)
	assert.Equal(t, 0, queue.Len())

	_, err = cancelMatch.CallUnary(context.Background(), connect.NewRequest(&CancelMatchRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}
