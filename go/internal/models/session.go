package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus defines the status of a game session.
type SessionStatus string

const (
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusFinished   SessionStatus = "FINISHED"
)

// ParticipantStatus defines the status of a participant inside a session.
type ParticipantStatus string

const (
	ParticipantStatusActive   ParticipantStatus = "ACTIVE"
	ParticipantStatusFinished ParticipantStatus = "FINISHED"
	ParticipantStatusLeft     ParticipantStatus = "LEFT"
)

// Participant is one player seated in a running session.
type Participant struct {
	PlayerID    string            `json:"player_id"`
	Address     string            `json:"address"`
	DisplayName string            `json:"display_name"`
	Avatar      *string           `json:"avatar,omitempty"`
	Position    int               `json:"position"`
	TurnOrder   int               `json:"turn_order"`
	Status      ParticipantStatus `json:"status"`
}

// Roll records the most recent die roll applied to a session.
type Roll struct {
	PlayerID string    `json:"player_id"`
	Die      int       `json:"die"`
	From     int       `json:"from"`
	To       int       `json:"to"`
	Jumped   bool      `json:"jumped"`
	Won      bool      `json:"won"`
	At       time.Time `json:"at"`
}

// Session represents one game instance with live board positions.
type Session struct {
	ID           uuid.UUID     `json:"id"`
	LobbyID      uuid.UUID     `json:"lobby_id"`
	BoardID      string        `json:"board_id"`
	Participants []Participant `json:"participants"`
	CurrentTurn  string        `json:"current_turn,omitempty"`
	Status       SessionStatus `json:"status"`
	WinnerID     *string       `json:"winner_id,omitempty"`
	EntryStake   int64         `json:"entry_stake"`
	PrizePool    int64         `json:"prize_pool"`
	PrizeAwarded bool          `json:"prize_awarded"`
	LastRoll     *Roll         `json:"last_roll,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
}

// Participant returns the participant for a player and its index, or -1.
func (s *Session) Participant(playerID string) (*Participant, int) {
	for i := range s.Participants {
		if s.Participants[i].PlayerID == playerID {
			return &s.Participants[i], i
		}
	}
	return nil, -1
}

// ActiveParticipants returns the participants still playing, in turn order.
func (s *Session) ActiveParticipants() []Participant {
	active := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Status == ParticipantStatusActive {
			active = append(active, p)
		}
	}
	return active
}

// NextActiveAfter returns the player id of the next active participant after
// playerID in turn order, wrapping around. It returns "" if nobody is active.
func (s *Session) NextActiveAfter(playerID string) string {
	n := len(s.Participants)
	if n == 0 {
		return ""
	}
	_, start := s.Participant(playerID)
	for step := 1; step <= n; step++ {
		p := s.Participants[(start+step+n)%n]
		if p.Status == ParticipantStatusActive {
			return p.PlayerID
		}
	}
	return ""
}

// Finish ends the session. When winner is set it is recorded and the prize
// pool is claimed; the returned amount is what the caller still has to pay
// out, and is zero if the session had already finished or the prize was
// claimed before.
func (s *Session) Finish(winner *string, at time.Time) int64 {
	if s.Status == SessionStatusFinished {
		return 0
	}
	s.Status = SessionStatusFinished
	s.FinishedAt = &at

	if winner == nil {
		return 0
	}
	w := *winner
	s.WinnerID = &w
	if p, _ := s.Participant(w); p != nil {
		p.Status = ParticipantStatusFinished
	}
	if s.PrizeAwarded || s.PrizePool <= 0 {
		return 0
	}
	s.PrizeAwarded = true
	return s.PrizePool
}

// Addresses returns the transport addresses of every participant that has one.
func (s *Session) Addresses() []string {
	addrs := make([]string, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.Address != "" && p.Status != ParticipantStatusLeft {
			addrs = append(addrs, p.Address)
		}
	}
	return addrs
}

// Clone returns a deep copy so cached sessions are never shared between callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Participants = make([]Participant, len(s.Participants))
	for i, p := range s.Participants {
		if p.Avatar != nil {
			a := *p.Avatar
			p.Avatar = &a
		}
		c.Participants[i] = p
	}
	if s.WinnerID != nil {
		w := *s.WinnerID
		c.WinnerID = &w
	}
	if s.LastRoll != nil {
		r := *s.LastRoll
		c.LastRoll = &r
	}
	if s.FinishedAt != nil {
		f := *s.FinishedAt
		c.FinishedAt = &f
	}
	return &c
}
