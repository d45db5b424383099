package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/pkg/batch"
)

// Narrow capabilities of each storage collaborator, so every one of them can
// be faked independently in tests.

type MatchSource interface {
	CompletedSince(ctx context.Context, since int64, limit int) ([]*models.Match, error)
	FlattenRosterOp(m *models.Match) batch.Op
}

type LedgerStore interface {
	LatestBefore(ctx context.Context, userID string, ts int64) (*models.Stats, error)
	HighestRating(ctx context.Context, userID string) (*float64, error)
	UpsertOp(s *models.Stats) batch.Op
	DeleteByMatch(ctx context.Context, matchID string) error
}

type ProfileStore interface {
	Exists(ctx context.Context, userID string) (bool, error)
	UpdateStatsOp(userID string, s *models.Stats) batch.Op
}

type CursorStore interface {
	Get(ctx context.Context) (int64, error)
	Set(ctx context.Context, ts int64) error
	Clear(ctx context.Context) error
}

// RecalcService replays completed matches in completion order, rebuilding the
// elo_history ledger and the denormalized user profiles. Passes are bounded
// to a page of matches; the cursor requests a continuation when more remain.
//
// A pass is a single sequential job. Concurrent passes over overlapping
// ranges would race on the cursor and on ledger upserts; the caller holds a
// distributed lock around Recalculate (see RecalcCoordinator).
type RecalcService struct {
	matches  MatchSource
	ledger   LedgerStore
	profiles ProfileStore
	cursor   CursorStore
	elo      *EloService
	newBatch func() batch.Writer
	pageSize int
	logger   *zap.Logger
}

func NewRecalcService(
	matches MatchSource,
	ledger LedgerStore,
	profiles ProfileStore,
	cursor CursorStore,
	elo *EloService,
	newBatch func() batch.Writer,
	pageSize int,
	logger *zap.Logger,
) *RecalcService {
	return &RecalcService{
		matches:  matches,
		ledger:   ledger,
		profiles: profiles,
		cursor:   cursor,
		elo:      elo,
		newBatch: newBatch,
		pageSize: pageSize,
		logger:   logger,
	}
}

// Recalculate runs one pass starting from the given watermark (epoch millis).
// A zero `from` falls back to the stored cursor. When a match was just
// deleted, pass it as deleted so its participants' profiles get refreshed
// even if no other match of theirs falls inside this page.
//
// Returns the watermark a continuation pass should start from, or 0 when the
// ledger is caught up. Nothing commits until the final batch commit, so a
// failed pass can be retried from the same watermark.
func (s *RecalcService) Recalculate(ctx context.Context, from int64, deleted *models.Match) (int64, error) {
	watermark := from
	if watermark == 0 {
		var err error
		watermark, err = s.cursor.Get(ctx)
		if err != nil {
			return 0, err
		}
	}

	matches, err := s.matches.CompletedSince(ctx, watermark, s.pageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch completed matches: %w", err)
	}

	s.logger.Info("Starting recalc pass",
		zap.Int64("watermark", watermark),
		zap.Int("matches", len(matches)),
		zap.Bool("compensating", deleted != nil))

	cache := newUserCache(s.ledger, s.profiles, s.elo)
	writer := s.newBatch()

	// Users from a deleted match go into the cache up front so their
	// profiles get rewritten from surviving history. An incomplete match has
	// no completion time to hydrate against, so compensating for one would
	// rebuild its participants from empty history.
	if deleted != nil {
		if !deleted.Completed() {
			return 0, fmt.Errorf("cannot compensate for incomplete match %s", deleted.ID)
		}
		if err := cache.hydrateRoster(ctx, deleted); err != nil {
			return 0, err
		}
	}

	// Drop incomplete rows before touching CompletedAt; the page query filters
	// them, but a misbehaving source must not panic the pass.
	completed := make([]*models.Match, 0, len(matches))
	for _, match := range matches {
		if match.Completed() {
			completed = append(completed, match)
		}
	}

	// The page arrives ordered by completion time, but order is load-bearing
	// for streaks and cumulative counters, so enforce it here rather than
	// trusting the source.
	sort.SliceStable(completed, func(i, j int) bool {
		return *completed[i].CompletedAt < *completed[j].CompletedAt
	})

	var lastTimestamp int64
	for _, match := range completed {
		writer.Add(s.matches.FlattenRosterOp(match))

		if err := cache.hydrateRoster(ctx, match); err != nil {
			return 0, err
		}

		applyMatchOutcome(s.elo, match, cache.users)

		for _, userID := range match.Participants() {
			snapshot := *cache.users[userID]
			snapshot.MatchID = match.ID
			snapshot.Timestamp = *match.CompletedAt
			writer.Add(s.ledger.UpsertOp(&snapshot))
		}

		lastTimestamp = *match.CompletedAt
	}

	// One profile update per touched user, carrying the final working
	// snapshot of the pass.
	for userID, snapshot := range cache.users {
		writer.Add(s.profiles.UpdateStatsOp(userID, snapshot))
	}

	if err := writer.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit recalc batch: %w", err)
	}

	// More matches may exist past the page cap; leave a cursor behind so a
	// continuation pass picks up where this one stopped.
	if lastTimestamp > watermark {
		if err := s.cursor.Set(ctx, lastTimestamp); err != nil {
			return 0, err
		}

		s.logger.Info("Recalc pass needs continuation", zap.Int64("nextWatermark", lastTimestamp))
		return lastTimestamp, nil
	}

	// Processed the tail of the log: drop the cursor so the catch-up poller
	// stops re-triggering. An empty page never touches the cursor.
	if lastTimestamp > 0 {
		if err := s.cursor.Clear(ctx); err != nil {
			return 0, err
		}
	}

	s.logger.Info("Recalc pass caught up", zap.Int("usersTouched", len(cache.users)))
	return 0, nil
}

// PurgeMatch removes every ledger entry tied to the match. The deletion is
// atomic; once it returns, a compensation pass is safe to run.
func (s *RecalcService) PurgeMatch(ctx context.Context, matchID string) error {
	return s.ledger.DeleteByMatch(ctx, matchID)
}

// HighestRating returns the user's best non-provisional rating, or nil when
// they have no non-provisional history.
func (s *RecalcService) HighestRating(ctx context.Context, userID string) (*float64, error) {
	return s.ledger.HighestRating(ctx, userID)
}

// LatestBefore returns the user's most recent snapshot strictly before ts,
// defaulting to a fresh base snapshot when they have no history.
func (s *RecalcService) LatestBefore(ctx context.Context, userID string, ts int64) (*models.Stats, error) {
	stats, err := s.ledger.LatestBefore(ctx, userID, ts)
	if err != nil {
		return nil, err
	}

	if stats == nil {
		stats = s.elo.NewBaseStats(userID, "", ts)
	}

	return stats, nil
}

// userCache is the pass-scoped working state: each user hydrates from the
// ledger at most once per pass, then every later match in the pass sees the
// in-memory rating left behind by the earlier ones. Discarded with the pass.
type userCache struct {
	ledger   LedgerStore
	profiles ProfileStore
	elo      *EloService
	users    map[string]*models.Stats
}

func newUserCache(ledger LedgerStore, profiles ProfileStore, elo *EloService) *userCache {
	return &userCache{
		ledger:   ledger,
		profiles: profiles,
		elo:      elo,
		users:    make(map[string]*models.Stats),
	}
}

// hydrateRoster ensures every participant of the match has a working
// snapshot, reading the last ledger entry strictly before the match's
// completion time for users seen for the first time this pass.
func (c *userCache) hydrateRoster(ctx context.Context, m *models.Match) error {
	asOf := int64(0)
	if m.CompletedAt != nil {
		asOf = *m.CompletedAt
	}

	for _, userID := range m.Participants() {
		if _, ok := c.users[userID]; ok {
			continue
		}

		exists, err := c.profiles.Exists(ctx, userID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s (match %s)", ErrUnknownUser, userID, m.ID)
		}

		stats, err := c.ledger.LatestBefore(ctx, userID, asOf)
		if err != nil {
			return err
		}
		if stats == nil {
			stats = c.elo.NewBaseStats(userID, m.ID, asOf)
		}

		c.users[userID] = stats
	}

	return nil
}
