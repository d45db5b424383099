package repository

import (
	"context"
	"fmt"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/pkg/batch"
	"github.com/brikr/codetango/pkg/database"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Exists reports whether the user has a profile row. Rosters referencing
// unknown users are a data-integrity problem the recalc pass surfaces early.
func (r *UserRepository) Exists(ctx context.Context, id string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// UpdateStatsOp queues a refresh of the user's denormalized stats fields from
// their final working snapshot.
func (r *UserRepository) UpdateStatsOp(userID string, s *models.Stats) batch.Op {
	return batch.Op{
		Kind: "users.update_stats",
		Query: `
			UPDATE users SET
				elo = $1,
				games_played = $2,
				games_won = $3,
				spymaster_games = $4,
				spymaster_wins = $5,
				spymaster_streak = $6,
				spymaster_best_streak = $7,
				assassins_as_spymaster = $8,
				current_streak = $9,
				best_streak = $10,
				provisional = $11,
				last_played = $12
			WHERE id = $13
		`,
		Args: []interface{}{
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
			userID,
		},
	}
}

// TopByRating returns the highest-rated profiles for the leaderboard.
func (r *UserRepository) TopByRating(ctx context.Context, limit int) ([]*models.User, error) {
	query := `
		SELECT id, username, elo, games_played, games_won, provisional, last_played, created_at
		FROM users
		WHERE games_played > 0
		ORDER BY elo DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Rating,
			&user.GamesPlayed,
			&user.GamesWon,
			&user.Provisional,
			&user.LastPlayed,
			&user.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user rows: %w", err)
	}

	return users, nil
}
