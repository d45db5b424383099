package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/brikr/codetango/pkg/database"
)

// CursorRepository holds the single recalc watermark row. A present row means
// a continuation pass is owed from that timestamp.
type CursorRepository struct {
	db *database.DB
}

func NewCursorRepository(db *database.DB) *CursorRepository {
	return &CursorRepository{db: db}
}

// Get returns the stored watermark, or 0 when no cursor is set.
func (r *CursorRepository) Get(ctx context.Context) (int64, error) {
	query := `SELECT timestamp FROM recalc_cursor LIMIT 1`

	var ts int64
	err := r.db.QueryRowContext(ctx, query).Scan(&ts)

	if err == sql.ErrNoRows {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to read recalc cursor: %w", err)
	}

	return ts, nil
}

// Set replaces the watermark with delete-then-insert, tolerating a missing
// row on either side.
func (r *CursorRepository) Set(ctx context.Context, ts int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cursor transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM recalc_cursor`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to clear recalc cursor: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO recalc_cursor (timestamp) VALUES ($1)`, ts); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to set recalc cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recalc cursor: %w", err)
	}

	return nil
}

// Clear removes the watermark. A missing row is fine.
func (r *CursorRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recalc_cursor`); err != nil {
		return fmt.Errorf("failed to clear recalc cursor: %w", err)
	}

	return nil
}
