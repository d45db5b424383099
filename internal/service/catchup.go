package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// CatchupJob periodically republishes a recalc request from the stored
// cursor. Continuation requests normally flow through the coordinator, but a
// crash between the batch commit and the publish would otherwise strand the
// cursor forever.
type CatchupJob struct {
	cursor      CursorStore
	coordinator *RecalcCoordinator
	interval    time.Duration
	logger      *zap.Logger
	scheduler   gocron.Scheduler
}

func NewCatchupJob(cursor CursorStore, coordinator *RecalcCoordinator, interval time.Duration, logger *zap.Logger) *CatchupJob {
	return &CatchupJob{
		cursor:      cursor,
		coordinator: coordinator,
		interval:    interval,
		logger:      logger,
	}
}

func (j *CatchupJob) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(j.run),
	); err != nil {
		return err
	}

	sched.Start()
	j.scheduler = sched

	j.logger.Info("Recalc catch-up job started", zap.Duration("interval", j.interval))
	return nil
}

func (j *CatchupJob) Stop() {
	if j.scheduler != nil {
		_ = j.scheduler.Shutdown()
	}
}

func (j *CatchupJob) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ts, err := j.cursor.Get(ctx)
	if err != nil {
		j.logger.Error("Catch-up job failed to read cursor", zap.Error(err))
		return
	}

	if ts == 0 {
		return
	}

	j.logger.Info("Catch-up job found pending cursor", zap.Int64("watermark", ts))

	if err := j.coordinator.Publish(ctx, RecalcRequest{From: ts}); err != nil {
		j.logger.Error("Catch-up job failed to publish recalc request", zap.Error(err))
	}
}
