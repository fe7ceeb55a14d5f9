package models

import (
	"time"

	"github.com/google/uuid"
)

// LobbyProgress defines where a lobby is in its lifecycle.
type LobbyProgress string

const (
	LobbyProgressLobby     LobbyProgress = "LOBBY"
	LobbyProgressActive    LobbyProgress = "ACTIVE"
	LobbyProgressCompleted LobbyProgress = "COMPLETED"
)

// Seat is a joined player waiting in a lobby.
type Seat struct {
	PlayerID    string    `json:"player_id"`
	Address     string    `json:"address"`
	DisplayName string    `json:"display_name"`
	Avatar      *string   `json:"avatar,omitempty"`
	Ready       bool      `json:"ready"`
	JoinedAt    time.Time `json:"joined_at"`
}

// Lobby is the pre-game room players assemble in before a session starts.
type Lobby struct {
	ID         uuid.UUID     `json:"id"`
	TierID     string        `json:"tier_id"`
	BoardID    string        `json:"board_id"`
	Capacity   int           `json:"capacity"`
	EntryStake int64         `json:"entry_stake"`
	OwnerID    string        `json:"owner_id"`
	Seats      []Seat        `json:"seats"`
	Progress   LobbyProgress `json:"progress"`
	SessionID  *uuid.UUID    `json:"session_id,omitempty"`
	Matched    bool          `json:"matched"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Seat returns the seat held by playerID and its index, or -1.
func (l *Lobby) Seat(playerID string) (*Seat, int) {
	for i := range l.Seats {
		if l.Seats[i].PlayerID == playerID {
			return &l.Seats[i], i
		}
	}
	return nil, -1
}

// Full reports whether every seat is taken.
func (l *Lobby) Full() bool {
	return len(l.Seats) >= l.Capacity
}

// AllReady reports whether every occupied seat is ready.
func (l *Lobby) AllReady() bool {
	for _, s := range l.Seats {
		if !s.Ready {
			return false
		}
	}
	return true
}

// Addresses returns the transport addresses of all seated players.
func (l *Lobby) Addresses() []string {
	addrs := make([]string, 0, len(l.Seats))
	for _, s := range l.Seats {
		if s.Address != "" {
			addrs = append(addrs, s.Address)
		}
	}
	return addrs
}

// Clone returns a deep copy of the lobby.
func (l *Lobby) Clone() *Lobby {
	if l == nil {
		return nil
	}
	c := *l
	c.Seats = make([]Seat, len(l.Seats))
	for i, s := range l.Seats {
		if s.Avatar != nil {
			a := *s.Avatar
			s.Avatar = &a
		}
		c.Seats[i] = s
	}
	if l.SessionID != nil {
		id := *l.SessionID
		c.SessionID = &id
	}
	return &c
}
