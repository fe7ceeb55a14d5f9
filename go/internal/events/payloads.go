package events

import "github.com/mcdev12/ladders/go/internal/models"

// WelcomePayload tells a freshly connected client its address.
type WelcomePayload struct {
	Address string `json:"address"`
}

// RollResultPayload is sent to every participant after a roll is applied.
type RollResultPayload struct {
	SessionID string         `json:"session_id"`
	PlayerID  string         `json:"player_id"`
	Die       int            `json:"die"`
	From      int            `json:"from"`
	To        int            `json:"to"`
	Jumped    bool           `json:"jumped"`
	NextTurn  string         `json:"next_turn,omitempty"`
	Won       bool           `json:"won"`
	Positions map[string]int `json:"positions"`
}

// LobbyDeltaKind names what changed in a lobby.
type LobbyDeltaKind string

const (
	LobbyJoined       LobbyDeltaKind = "joined"
	LobbyLeft         LobbyDeltaKind = "left"
	LobbyReady        LobbyDeltaKind = "ready"
	LobbyOwnerChanged LobbyDeltaKind = "owner_changed"
	LobbyStarted      LobbyDeltaKind = "started"
	LobbyCompleted    LobbyDeltaKind = "completed"
	LobbyDeleted      LobbyDeltaKind = "deleted"
)

// LobbyDeltaPayload carries a lobby change and the lobby as it is afterwards.
type LobbyDeltaPayload struct {
	LobbyID  string         `json:"lobby_id"`
	Kind     LobbyDeltaKind `json:"kind"`
	PlayerID string         `json:"player_id,omitempty"`
	Lobby    *models.Lobby  `json:"lobby,omitempty"`
}

// MatchFoundPayload is sent to every player the scheduler grouped.
type MatchFoundPayload struct {
	LobbyID    string   `json:"lobby_id"`
	TierID     string   `json:"tier_id"`
	EntryStake int64    `json:"entry_stake"`
	PlayerIDs  []string `json:"player_ids"`
}

// SessionEndedPayload announces the end of a session.
type SessionEndedPayload struct {
	SessionID string  `json:"session_id"`
	LobbyID   string  `json:"lobby_id"`
	WinnerID  *string `json:"winner_id,omitempty"`
	Prize     int64   `json:"prize"`
	Reason    string  `json:"reason"`
}

const (
	EndReasonWon       = "won"
	EndReasonForfeited = "forfeited"
	EndReasonAbandoned = "abandoned"
)
