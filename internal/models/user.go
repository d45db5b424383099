package models

import "time"

// User carries the profile fields this service owns: a denormalized copy of
// the user's latest Stats, refreshed at the end of every recalc pass.
type User struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`

	Rating      float64 `json:"elo" db:"elo"`
	GamesPlayed int     `json:"gamesPlayed" db:"games_played"`
	GamesWon    int     `json:"gamesWon" db:"games_won"`
	Provisional bool    `json:"provisional" db:"provisional"`
	LastPlayed  *int64  `json:"lastPlayed,omitempty" db:"last_played"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
