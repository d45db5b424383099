// Package batch queues an unbounded sequence of write operations and commits
// them in enqueue order, split into provider-size-limited transactional
// chunks. Postgres has no hard per-transaction statement cap, but recalc
// batches can reach tens of thousands of statements; bounded chunks keep
// transactions short and lock footprints small.
package batch

import (
	"context"
	"fmt"

	"github.com/brikr/codetango/pkg/database"
)

// DefaultChunkSize is the number of operations committed per transaction.
const DefaultChunkSize = 500

// Op is a single queued write. Kind labels the operation for logs and errors;
// the executor only cares about Query and Args.
type Op struct {
	Kind  string
	Query string
	Args  []interface{}
}

// Writer accepts ordered operations and commits them all at once. Commit
// order matches Add order, within and across chunks.
type Writer interface {
	Add(op Op)
	Len() int
	Commit(ctx context.Context) error
}

// PartialCommitError reports a commit that failed after some chunks had
// already been applied. Earlier chunks are durable; the caller must treat the
// store as inconsistent until the same range is replayed.
type PartialCommitError struct {
	CommittedChunks int
	TotalChunks     int
	Err             error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("batch commit failed after %d/%d chunks: %v",
		e.CommittedChunks, e.TotalChunks, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// SQLWriter commits queued operations against Postgres, one transaction per
// chunk, chunks in order.
type SQLWriter struct {
	db        *database.DB
	chunkSize int
	ops       []Op
}

func NewSQLWriter(db *database.DB) *SQLWriter {
	return &SQLWriter{
		db:        db,
		chunkSize: DefaultChunkSize,
	}
}

func (w *SQLWriter) Add(op Op) {
	w.ops = append(w.ops, op)
}

func (w *SQLWriter) Len() int {
	return len(w.ops)
}

// Commit applies every queued operation. On success the queue is drained; on
// failure the queue is left intact and the error reports how many chunks made
// it in before the failure.
func (w *SQLWriter) Commit(ctx context.Context) error {
	chunks := splitChunks(w.ops, w.chunkSize)

	for i, chunk := range chunks {
		if err := w.commitChunk(ctx, chunk); err != nil {
			return &PartialCommitError{
				CommittedChunks: i,
				TotalChunks:     len(chunks),
				Err:             err,
			}
		}
	}

	w.ops = nil
	return nil
}

func (w *SQLWriter) commitChunk(ctx context.Context, chunk []Op) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, op := range chunk {
		if _, err := tx.ExecContext(ctx, op.Query, op.Args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to exec %s: %w", op.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunk: %w", err)
	}

	return nil
}

func splitChunks(ops []Op, size int) [][]Op {
	if len(ops) == 0 {
		return nil
	}

	chunks := make([][]Op, 0, (len(ops)+size-1)/size)
	for start := 0; start < len(ops); start += size {
		end := start + size
		if end > len(ops) {
			end = len(ops)
		}
		chunks = append(chunks, ops[start:end])
	}

	return chunks
}
