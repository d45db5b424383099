package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/pkg/batch"
	"github.com/brikr/codetango/pkg/database"
)

type MatchRepository struct {
	db *database.DB
}

func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `id, room_id, status,
       blue_user_ids, blue_spymaster,
       red_user_ids, red_spymaster,
       blue_agents, red_agents,
       completed_at, created_at`

// CompletedSince returns completed matches with completed_at >= since,
// oldest first, capped at limit.
func (r *MatchRepository) CompletedSince(ctx context.Context, since int64, limit int) ([]*models.Match, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM games
		WHERE completed_at IS NOT NULL AND completed_at >= $1
		ORDER BY completed_at ASC
		LIMIT $2
	`, matchColumns)

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match rows: %w", err)
	}

	return matches, nil
}

// FindByID returns the match or nil when it does not exist.
func (r *MatchRepository) FindByID(ctx context.Context, id string) (*models.Match, error) {
	query := fmt.Sprintf(`SELECT %s FROM games WHERE id = $1`, matchColumns)

	match, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return match, nil
}

// FlattenRosterOp queues an update of the match's denormalized user_ids
// column from both team rosters.
func (r *MatchRepository) FlattenRosterOp(m *models.Match) batch.Op {
	return batch.Op{
		Kind:  "games.flatten_roster",
		Query: `UPDATE games SET user_ids = $1 WHERE id = $2`,
		Args:  []interface{}{pq.Array(m.Participants()), m.ID},
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	match := &models.Match{}
	err := row.Scan(
		&match.ID,
		&match.RoomID,
		&match.Status,
		pq.Array(&match.BlueTeam.UserIDs),
		&match.BlueTeam.Spymaster,
		pq.Array(&match.RedTeam.UserIDs),
		&match.RedTeam.Spymaster,
		&match.BlueAgents,
		&match.RedAgents,
		&match.CompletedAt,
		&match.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}

	return match, nil
}
