package domain

import "time"

// RollRecord is one roll-result submission as seen by a room's turn engine.
// Accepted is false when the roll came from a player whose turn it was not.
type RollRecord struct {
	RoomID     string    `json:"roomId"`
	ClientID   string    `json:"clientId"`
	Won        int       `json:"won"`
	Lost       int       `json:"lost"`
	Accepted   bool      `json:"accepted"`
	RecordedAt time.Time `json:"recordedAt"`
}
