package models

import "time"

// Player is an already-authenticated identity handed to the core by the request layer.
type Player struct {
	ID          string  `json:"id"`
	Address     string  `json:"address"`
	DisplayName string  `json:"display_name"`
	Avatar      *string `json:"avatar,omitempty"`
}

// WaitQueueEntry is a player waiting to be paired by the matchmaking scheduler.
type WaitQueueEntry struct {
	PlayerID      string    `json:"player_id"`
	Address       string    `json:"address"`
	DisplayName   string    `json:"display_name"`
	Avatar        *string   `json:"avatar,omitempty"`
	Affordability int64     `json:"affordability"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}

// Player converts the queue entry back to the identity it was created from.
func (e WaitQueueEntry) Player() Player {
	return Player{
		ID:          e.PlayerID,
		Address:     e.Address,
		DisplayName: e.DisplayName,
		Avatar:      e.Avatar,
	}
}
