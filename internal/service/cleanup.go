package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

type roomSweepRepo interface {
	DeleteOlderThan(ctx context.Context, cutoff int64) (int, error)
}

// CleanupService periodically deletes rooms older than the configured TTL,
// whatever their status. A failed sweep is logged and retried on the next
// tick, never fatal.
type CleanupService struct {
	logger    *slog.Logger
	roomRepo  roomSweepRepo
	ttl       time.Duration
	interval  time.Duration
	scheduler gocron.Scheduler
}

func NewCleanupService(logger *slog.Logger, roomRepo roomSweepRepo, ttl, interval time.Duration) *CleanupService {
	return &CleanupService{
		logger:   logger.With("component", "cleanup"),
		roomRepo: roomRepo,
		ttl:      ttl,
		interval: interval,
	}
}

func (that *CleanupService) Start(ctx context.Context) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(that.interval),
		gocron.NewTask(func() {
			that.Sweep(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule room sweep: %w", err)
	}

	scheduler.Start()
	that.scheduler = scheduler

	return nil
}

// Sweep - deletes every room whose createdAt is older than the TTL.
func (that *CleanupService) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-that.ttl).UnixMilli()

	deleted, err := that.roomRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		that.logger.Error("failed to sweep expired rooms", "error", err)
		return
	}

	if deleted > 0 {
		that.logger.Info("cleaned up expired rooms", "count", deleted)
	}
}

func (that *CleanupService) Stop() {
	if that.scheduler == nil {
		return
	}

	if err := that.scheduler.Shutdown(); err != nil {
		that.logger.Error("failed to stop scheduler", "error", err)
	}
}
