package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type stkExpirer interface {
	ExpirePendingStkPushes(ctx context.Context, now time.Time) (int, error)
}

// StkExpiryJobParams configure the pending push sweeper.
type StkExpiryJobParams struct {
	Logger   *logger.Logger
	Payments stkExpirer
}

// NewStkExpiryJob builds the cron job that fails M-Pesa prompts the customer
// never answered.
func NewStkExpiryJob(params StkExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &stkExpiryJob{
		logg:     params.Logger,
		payments: params.Payments,
		now:      time.Now,
	}, nil
}

type stkExpiryJob struct {
	logg     *logger.Logger
	payments stkExpirer
	now      func() time.Time
}

func (j *stkExpiryJob) Name() string { return "stk-expiry" }

func (j *stkExpiryJob) Run(ctx context.Context) error {
	expired, err := j.payments.ExpirePendingStkPushes(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("expire pending stk pushes: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"expired": expired})
	j.logg.Info(logCtx, "stk expiry sweep complete")
	return nil
}
