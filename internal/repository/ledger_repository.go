package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/pkg/batch"
	"github.com/brikr/codetango/pkg/database"
)

// LedgerRepository owns the elo_history table: one snapshot row per
// (user, match) pair, ordered for queries by the producing match's timestamp.
type LedgerRepository struct {
	db *database.DB
}

func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const statsColumns = `user_id, match_id, elo, games_played, games_won,
       spymaster_games, spymaster_wins, spymaster_streak, spymaster_best_streak,
       assassins_as_spymaster, current_streak, best_streak, provisional, timestamp`

// LatestBefore returns the most recent snapshot for the user strictly before
// ts, or nil when the user has no history yet.
func (r *LedgerRepository) LatestBefore(ctx context.Context, userID string, ts int64) (*models.Stats, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM elo_history
		WHERE user_id = $1 AND timestamp < $2
		ORDER BY timestamp DESC
		LIMIT 1
	`, statsColumns)

	stats := &models.Stats{}
	err := r.db.QueryRowContext(ctx, query, userID, ts).Scan(
		&stats.UserID,
		&stats.MatchID,
		&stats.Rating,
		&stats.GamesPlayed,
		&stats.GamesWon,
		&stats.SpymasterGames,
		&stats.SpymasterWins,
		&stats.SpymasterStreak,
		&stats.SpymasterBestStreak,
		&stats.AssassinsAsSpymaster,
		&stats.CurrentStreak,
		&stats.BestStreak,
		&stats.Provisional,
		&stats.Timestamp,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query elo history: %w", err)
	}

	return stats, nil
}

// HighestRating returns the user's best rating across non-provisional
// snapshots, or nil when they have none.
func (r *LedgerRepository) HighestRating(ctx context.Context, userID string) (*float64, error) {
	query := `
		SELECT elo
		FROM elo_history
		WHERE user_id = $1 AND provisional = FALSE
		ORDER BY elo DESC
		LIMIT 1
	`

	var rating float64
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&rating)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query highest rating: %w", err)
	}

	return &rating, nil
}

// UpsertOp queues a snapshot write keyed by (user_id, match_id). Replaying
// the same match overwrites the row with identical values, which is what
// makes recalc passes safe to repeat.
func (r *LedgerRepository) UpsertOp(s *models.Stats) batch.Op {
	query := fmt.Sprintf(`
		INSERT INTO elo_history (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (user_id, match_id) DO UPDATE SET
			elo = EXCLUDED.elo,
			games_played = EXCLUDED.games_played,
			games_won = EXCLUDED.games_won,
			spymaster_games = EXCLUDED.spymaster_games,
			spymaster_wins = EXCLUDED.spymaster_wins,
			spymaster_streak = EXCLUDED.spymaster_streak,
			spymaster_best_streak = EXCLUDED.spymaster_best_streak,
			assassins_as_spymaster = EXCLUDED.assassins_as_spymaster,
			current_streak = EXCLUDED.current_streak,
			best_streak = EXCLUDED.best_streak,
			provisional = EXCLUDED.provisional,
			timestamp = EXCLUDED.timestamp
	`, statsColumns)

	return batch.Op{
		Kind:  "elo_history.upsert",
		Query: query,
		Args: []interface{}{
			s.UserID,
			s.MatchID,
			s.Rating,
			s.GamesPlayed,
			s.GamesWon,
			s.SpymasterGames,
			s.SpymasterWins,
			s.SpymasterStreak,
			s.SpymasterBestStreak,
			s.AssassinsAsSpymaster,
			s.CurrentStreak,
			s.BestStreak,
			s.Provisional,
			s.Timestamp,
		},
	}
}

// DeleteByMatch removes every ledger row tied to the match, across all users.
// A single statement, so it is all-or-nothing.
func (r *LedgerRepository) DeleteByMatch(ctx context.Context, matchID string) error {
	query := `DELETE FROM elo_history WHERE match_id = $1`

	if _, err := r.db.ExecContext(ctx, query, matchID); err != nil {
		return fmt.Errorf("failed to delete elo history for match: %w", err)
	}

	return nil
}
