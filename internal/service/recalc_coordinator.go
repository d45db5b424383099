package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brikr/codetango/internal/models"
	"github.com/brikr/codetango/pkg/distributed"
)

const (
	recalcChannel = "ratings:recalc"
	recalcLockKey = "ratings:recalc:lock"

	recalcLockTTL = 2 * time.Minute
)

// RecalcRequest is one recalculation trigger: an explicit watermark, a
// continuation from a previous pass, or a compensation run for a match whose
// ledger entries were just purged.
type RecalcRequest struct {
	From         int64         `json:"from"`
	DeletedMatch *models.Match `json:"deletedMatch,omitempty"`
	Attempts     int           `json:"attempts,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// RecalcCoordinator serializes recalc passes across instances: requests are
// published on a Redis channel, and whichever subscriber wins the distributed
// lock runs the pass. The engine itself never guards against concurrent
// passes, so every invocation must come through here.
type RecalcCoordinator struct {
	client      *redis.Client
	lockManager *distributed.RedisLockManager
	recalc      *RecalcService
	logger      *zap.Logger
	instanceID  string

	stopChan  chan struct{}
	cancelSub context.CancelFunc
}

func NewRecalcCoordinator(client *redis.Client, recalc *RecalcService, logger *zap.Logger) *RecalcCoordinator {
	return &RecalcCoordinator{
		client:      client,
		lockManager: distributed.NewRedisLockManager(client),
		recalc:      recalc,
		logger:      logger,
		instanceID:  uuid.New().String(),
		stopChan:    make(chan struct{}),
	}
}

// Start subscribes and handles recalc requests until Stop or context
// cancellation. Blocks; run it on its own goroutine.
func (c *RecalcCoordinator) Start(ctx context.Context) error {
	subCtx, cancel := context.WithCancel(ctx)
	c.cancelSub = cancel

	pubsub := c.client.Subscribe(subCtx, recalcChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logger.Info("Recalc coordinator started",
		zap.String("instance_id", c.instanceID),
		zap.String("channel", recalcChannel))

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				continue
			}

			var req RecalcRequest
			if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
				c.logger.Error("Failed to unmarshal recalc request", zap.Error(err))
				continue
			}

			if err := c.handleWithLock(req); err != nil {
				c.logger.Error("Recalc request failed", zap.Error(err))
			}

		case <-c.stopChan:
			c.logger.Info("Recalc coordinator stopped")
			return nil

		case <-subCtx.Done():
			return subCtx.Err()
		}
	}
}

func (c *RecalcCoordinator) Stop() {
	close(c.stopChan)
	if c.cancelSub != nil {
		c.cancelSub()
	}
}

// Publish broadcasts a recalc request to whichever instance picks it up.
func (c *RecalcCoordinator) Publish(ctx context.Context, req RecalcRequest) error {
	req.Timestamp = time.Now()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal recalc request: %w", err)
	}

	if err := c.client.Publish(ctx, recalcChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish recalc request: %w", err)
	}

	c.logger.Debug("Published recalc request",
		zap.Int64("from", req.From),
		zap.Bool("compensating", req.DeletedMatch != nil))

	return nil
}

// handleWithLock runs one pass under the recalc lock and queues a
// continuation when the pass left a cursor behind.
func (c *RecalcCoordinator) handleWithLock(req RecalcRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), recalcLockTTL)
	defer cancel()

	lock, err := c.lockManager.AcquireWithRetry(
		ctx,
		recalcLockKey,
		c.instanceID,
		recalcLockTTL,
		3,
		500*time.Millisecond,
	)

	if err == distributed.ErrLockNotAcquired {
		// A plain watermark request is covered by the cursor the running pass
		// leaves behind. A compensation request is not: the deleted match's
		// roster exists only in this message, so it goes back on the channel
		// until the lock frees. The lock TTL bounds how long that can churn.
		if req.DeletedMatch == nil {
			c.logger.Debug("Recalc lock held elsewhere, skipping request")
			return nil
		}

		req.Attempts++
		c.logger.Info("Recalc lock held elsewhere, requeueing compensation request",
			zap.String("match_id", req.DeletedMatch.ID),
			zap.Int("attempts", req.Attempts))
		return c.Publish(ctx, req)
	}

	if err != nil {
		return fmt.Errorf("failed to acquire recalc lock: %w", err)
	}

	defer func() {
		if err := lock.Release(context.Background()); err != nil {
			c.logger.Error("Failed to release recalc lock", zap.Error(err))
		}
	}()

	next, err := c.recalc.Recalculate(ctx, req.From, req.DeletedMatch)
	if err != nil {
		return err
	}

	if next > 0 {
		return c.Publish(ctx, RecalcRequest{From: next})
	}

	return nil
}
