package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/brianmwirigi/sokofresh-backend/pkg/logger"
)

type debtSweeper interface {
	MarkOverdueSales(ctx context.Context, now time.Time) (int, error)
	SendDueSoonWarnings(ctx context.Context, now time.Time) (int, error)
}

// DebtSweepJobParams configure the debt sweep scheduler.
type DebtSweepJobParams struct {
	Logger *logger.Logger
	Sales  debtSweeper
}

// NewDebtSweepJob builds the cron job that moves unpaid sales past their due
// date into overdue and warns customers whose due date is approaching.
func NewDebtSweepJob(params DebtSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales service required")
	}
	return &debtSweepJob{
		logg:  params.Logger,
		sales: params.Sales,
		now:   time.Now,
	}, nil
}

type debtSweepJob struct {
	logg  *logger.Logger
	sales debtSweeper
	now   func() time.Time
}

func (j *debtSweepJob) Name() string { return "debt-sweep" }

func (j *debtSweepJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs []error

	overdue, err := j.sales.MarkOverdueSales(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("mark overdue sales: %w", err))
	}
	warned, err := j.sales.SendDueSoonWarnings(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("send due soon warnings: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"overdue": overdue,
		"warned":  warned,
	})
	j.logg.Info(logCtx, "debt sweep complete")
	return multierr.Combine(errs...)
}
