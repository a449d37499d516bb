package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

const notificationRetentionDays = 30

type notificationPruner interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationCleanupJobParams configure the notification retention job.
type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications notificationPruner
}

// NewNotificationCleanupJob builds the cron job that prunes read notifications
// past the retention window.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &notificationCleanupJob{
		logg:          params.Logger,
		notifications: params.Notifications,
		now:           time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg          *logger.Logger
	notifications notificationPruner
	now           func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-notificationRetentionDays * 24 * time.Hour)
	deleted, err := j.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune read notifications: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"deleted": deleted})
	j.logg.Info(logCtx, "notification cleanup complete")
	return nil
}
