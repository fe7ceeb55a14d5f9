package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Finish(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := &Session{
		Status:    SessionStatusInProgress,
		PrizePool: 20,
		Participants: []Participant{
			{PlayerID: "alice", Status: ParticipantStatusActive},
			{PlayerID: "bob", Status: ParticipantStatusActive},
		},
	}

	winner := "alice"
	assert.Equal(t, int64(20), s.Finish(&winner, at))
	assert.Equal(t, SessionStatusFinished, s.Status)
	require.NotNil(t, s.WinnerID)
	assert.Equal(t, "alice", *s.WinnerID)
	assert.True(t, s.PrizeAwarded)
	assert.Equal(t, ParticipantStatusFinished, s.Participants[0].Status)
	require.NotNil(t, s.FinishedAt)
	assert.Equal(t, at, *s.FinishedAt)

	// finishing again claims nothing
	assert.Zero(t, s.Finish(&winner, at.Add(time.Minute)))
	assert.Equal(t, at, *s.FinishedAt)
}

func TestSession_FinishWithoutWinner(t *testing.T) {
	s := &Session{Status: SessionStatusInProgress, PrizePool: 20}

	assert.Zero(t, s.Finish(nil, time.Now()))
	assert.Equal(t, SessionStatusFinished, s.Status)
	assert.Nil(t, s.WinnerID)
	assert.False(t, s.PrizeAwarded)
}
