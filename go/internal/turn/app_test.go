package turn

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/board"
	"github.com/mcdev12/ladders/go/internal/economy"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/mcdev12/ladders/go/internal/sessionstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lobbyRecorder struct {
	mu        sync.Mutex
	completed []uuid.UUID
}

func (l *lobbyRecorder) MarkCompleted(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.completed = append(l.completed, id)
	return nil
}

type fixture struct {
	app      *App
	store    *sessionstore.Store
	ledger   *economy.Ledger
	notifier *events.Recorder
	lobbies  *lobbyRecorder
}

func newFixture(t *testing.T, dice Dice) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	boards, err := board.NewRegistry([]models.BoardLayout{
		{ID: "classic", Rows: 10, Cols: 10, Jumps: map[int]int{16: 67, 47: 26}},
	})
	require.NoError(t, err)

	store, err := sessionstore.NewStore(sessionstore.Config{
		SessionTTL:  time.Hour,
		FinishedTTL: time.Hour,
		Workers:     1,
		QueueSize:   8,
	}, clock, sessionstore.NewMemoryTier(clock))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	f := &fixture{
		store:    store,
		ledger:   economy.NewLedger(0),
		notifier: &events.Recorder{},
		lobbies:  &lobbyRecorder{},
	}
	f.app = NewApp(store, boards, dice, f.ledger, f.lobbies, f.notifier, clock)
	return f
}

// seed stores an in-progress session on the classic board. positions are
// given in turn order.
func (f *fixture) seed(t *testing.T, players []string, positions ...int) *models.Session {
	t.Helper()
	s := &models.Session{
		ID:         uuid.New(),
		LobbyID:    uuid.New(),
		BoardID:    "classic",
		Status:     models.SessionStatusInProgress,
		EntryStake: 10,
		PrizePool:  int64(10 * len(players)),
	}
	for i, p := range players {
		pos := 0
		if i < len(positions) {
			pos = positions[i]
		}
		s.Participants = append(s.Participants, models.Participant{
			PlayerID:  p,
			Address:   "addr-" + p,
			Position:  pos,
			TurnOrder: i,
			Status:    models.ParticipantStatusActive,
		})
	}
	s.CurrentTurn = players[0]
	require.NoError(t, f.store.Put(context.Background(), s))
	return s
}

func TestRoll_AdvancesTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(3))
	s := f.seed(t, []string{"alice", "bob"})

	res, err := f.app.Roll(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Roll.To)
	assert.False(t, res.Roll.Jumped)
	assert.Equal(t, "bob", res.NextTurn)
	assert.False(t, res.Won)

	rolls := f.notifier.OfType(events.TypeRollResult)
	require.Len(t, rolls, 2)
	payload, err := events.ParsePayload(rolls[0])
	require.NoError(t, err)
	assert.Equal(t, 3, payload.(*events.RollResultPayload).Positions["alice"])
}

func TestRoll_RejectsOutOfTurn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(3))
	s := f.seed(t, []string{"alice", "bob"})

	_, err := f.app.Roll(ctx, s.ID, "bob")
	assert.ErrorIs(t, err, gameerr.ErrNotYourTurn)
	assert.ErrorIs(t, err, gameerr.ErrInvalidTransition)

	got, err := f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Version)
	assert.Equal(t, "alice", got.CurrentTurn)
	assert.Empty(t, f.notifier.Sent())
}

func TestRoll_Moves(t *testing.T) {
	tests := []struct {
		name       string
		start      int
		die        int
		wantTo     int
		wantJumped bool
	}{
		{"ladder", 10, 6, 67, true},
		{"snake", 44, 3, 26, true},
		{"overshoot keeps position", 97, 4, 97, false},
		{"six gives no extra turn", 0, 6, 6, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, NewFixedDice(tt.die))
			s := f.seed(t, []string{"alice", "bob"}, tt.start)

			res, err := f.app.Roll(ctx, s.ID, "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.wantTo, res.Roll.To)
			assert.Equal(t, tt.wantJumped, res.Roll.Jumped)
			assert.Equal(t, "bob", res.NextTurn)
			assert.Equal(t, models.SessionStatusInProgress, res.Session.Status)
		})
	}
}

func TestRoll_SkipsPlayersWhoLeft(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(2))
	s := f.seed(t, []string{"alice", "bob", "carol"})

	_, err := f.app.Leave(ctx, s.ID, "bob")
	require.NoError(t, err)

	res, err := f.app.Roll(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "carol", res.NextTurn)

	res, err = f.app.Roll(ctx, s.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, "alice", res.NextTurn)
}

func TestRoll_ExactFinishWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(6))
	s := f.seed(t, []string{"alice", "bob"}, 94, 50)

	res, err := f.app.Roll(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.Equal(t, "alice", res.NextTurn)
	assert.Equal(t, models.SessionStatusFinished, res.Session.Status)
	require.NotNil(t, res.Session.WinnerID)
	assert.Equal(t, "alice", *res.Session.WinnerID)
	assert.True(t, res.Session.PrizeAwarded)
	assert.NotNil(t, res.Session.FinishedAt)

	balance, _ := f.ledger.Balance(ctx, "alice")
	assert.Equal(t, int64(20), balance)
	assert.Equal(t, []uuid.UUID{s.LobbyID}, f.lobbies.completed)
	assert.Len(t, f.notifier.OfType(events.TypeSessionEnded), 2)

	_, err = f.app.Roll(ctx, s.ID, "alice")
	assert.ErrorIs(t, err, gameerr.ErrSessionFinished)

	// no second award on a repeated finish
	_, _, err = f.app.finish(ctx, s.ID, res.Session.WinnerID)
	require.NoError(t, err)
	balance, _ = f.ledger.Balance(ctx, "alice")
	assert.Equal(t, int64(20), balance)
}

// updateless rejects every general update, leaving ApplyRoll as the only
// write that can reach the store.
type updateless struct {
	*sessionstore.Store
}

func (u updateless) Update(context.Context, uuid.UUID, func(*models.Session) error) (*models.Session, error) {
	return nil, errors.New("store stopped")
}

func TestRoll_WinIsStoredWithTheRoll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(6))
	s := f.seed(t, []string{"alice", "bob"}, 94, 50)

	clock := clockwork.NewFakeClock()
	boards, err := board.NewRegistry([]models.BoardLayout{{ID: "classic", Rows: 10, Cols: 10}})
	require.NoError(t, err)
	app := NewApp(updateless{f.store}, boards, NewFixedDice(6), f.ledger, f.lobbies, f.notifier, clock)

	res, err := app.Roll(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.True(t, res.Won)

	got, err := f.store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFinished, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, "alice", *got.WinnerID)
	assert.True(t, got.PrizeAwarded)
	assert.Equal(t, 100, got.Participants[0].Position)
	require.NotNil(t, got.LastRoll)
	assert.True(t, got.LastRoll.Won)

	balance, _ := f.ledger.Balance(ctx, "alice")
	assert.Equal(t, int64(20), balance)
	assert.Equal(t, []uuid.UUID{s.LobbyID}, f.lobbies.completed)
}

func TestRoll_ConcurrentRequestsMoveOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(2))
	s := f.seed(t, []string{"alice", "bob"})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.app.Roll(ctx, s.ID, "alice"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, gameerr.ErrNotYourTurn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	got, err := f.app.State(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Participants[0].Position)
}

func TestRoll_UnknownSessionAndBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(1))

	_, err := f.app.Roll(ctx, uuid.New(), "alice")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)

	s := f.seed(t, []string{"alice", "bob"})
	_, err = f.store.Update(ctx, s.ID, func(sess *models.Session) error {
		sess.BoardID = "missing"
		return nil
	})
	require.NoError(t, err)

	_, err = f.app.Roll(ctx, s.ID, "alice")
	assert.ErrorIs(t, err, gameerr.ErrConfiguration)
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, NewFixedDice(1))
	s := f.seed(t, []string{"alice", "bob", "carol"})

	got, err := f.app.Leave(ctx, s.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "bob", got.CurrentTurn)
	assert.Equal(t, models.SessionStatusInProgress, got.Status)

	_, err = f.app.Leave(ctx, s.ID, "alice")
	assert.ErrorIs(t, err, gameerr.ErrInvalidTransition)

	got, err = f.app.Leave(ctx, s.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusFinished, got.Status)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, "bob", *got.WinnerID)

	balance, _ := f.ledger.Balance(ctx, "bob")
	assert.Equal(t, int64(30), balance)

	ended := f.notifier.OfType(events.TypeSessionEnded)
	require.Len(t, ended, 1)
	payload, err := events.ParsePayload(ended[0])
	require.NoError(t, err)
	assert.Equal(t, events.EndReasonForfeited, payload.(*events.SessionEndedPayload).Reason)

	_, err = f.app.Leave(ctx, s.ID, "bob")
	assert.ErrorIs(t, err, gameerr.ErrSessionFinished)
}

func TestLeave_UnknownPlayer(t *testing.T) {
	f := newFixture(t, NewFixedDice(1))
	s := f.seed(t, []string{"alice", "bob"})

	_, err := f.app.Leave(context.Background(), s.ID, "mallory")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestSeededDice_Range(t *testing.T) {
	d, err := NewSeededDice()
	require.NoError(t, err)

	seen := make(map[int]bool)
	for i := 0; i < 600; i++ {
		v := d.Roll()
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 6)
		seen[v] = true
	}
	assert.Len(t, seen, 6)
}
