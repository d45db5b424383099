package models

// Stats is one user's rating snapshot as of a specific match. The elo_history
// table stores one row per (user, match) pair; the latest row doubles as the
// user's current standing.
type Stats struct {
	UserID  string `json:"userId" db:"user_id"`
	MatchID string `json:"matchId" db:"match_id"`

	Rating      float64 `json:"elo" db:"elo"`
	GamesPlayed int     `json:"gamesPlayed" db:"games_played"`
	GamesWon    int     `json:"gamesWon" db:"games_won"`

	SpymasterGames       int `json:"spymasterGames" db:"spymaster_games"`
	SpymasterWins        int `json:"spymasterWins" db:"spymaster_wins"`
	SpymasterStreak      int `json:"spymasterStreak" db:"spymaster_streak"`
	SpymasterBestStreak  int `json:"spymasterBestStreak" db:"spymaster_best_streak"`
	AssassinsAsSpymaster int `json:"assassinsAsSpymaster" db:"assassins_as_spymaster"`

	CurrentStreak int `json:"currentStreak" db:"current_streak"`
	BestStreak    int `json:"bestStreak" db:"best_streak"`

	Provisional bool `json:"provisional" db:"provisional"`

	// Epoch milliseconds of the match that produced this snapshot.
	Timestamp int64 `json:"timestamp" db:"timestamp"`
}
