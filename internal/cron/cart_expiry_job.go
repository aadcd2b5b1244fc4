package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/harborline/storefront-backend/pkg/logger"
)

// cartRetirer covers the retention sweeps the job performs.
type cartRetirer interface {
	MarkExpired(ctx context.Context, now time.Time) (int64, error)
	PurgeRetired(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartExpiryJobParams configure the cart retention job.
type CartExpiryJobParams struct {
	Logger     *logger.Logger
	Carts      cartRetirer
	PurgeAfter time.Duration
}

// NewCartExpiryJob builds the cron job that abandons lapsed carts and
// purges retired ones once they age past the purge window.
func NewCartExpiryJob(params CartExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.PurgeAfter <= 0 {
		return nil, fmt.Errorf("purge window must be positive")
	}
	return &cartExpiryJob{
		logg:       params.Logger,
		carts:      params.Carts,
		purgeAfter: params.PurgeAfter,
		now:        time.Now,
	}, nil
}

type cartExpiryJob struct {
	logg       *logger.Logger
	carts      cartRetirer
	purgeAfter time.Duration
	now        func() time.Time
}

func (j *cartExpiryJob) Name() string { return "cart-expiry" }

// Run performs both sweeps even when the first fails; the purge pass
// does not depend on this cycle's abandonments.
func (j *cartExpiryJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.abandonExpired(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.purgeRetired(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *cartExpiryJob) abandonExpired(ctx context.Context) error {
	count, err := j.carts.MarkExpired(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("mark expired carts: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "count", count)
	j.logg.Info(logCtx, "cart abandonment sweep complete")
	return nil
}

func (j *cartExpiryJob) purgeRetired(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.purgeAfter)
	count, err := j.carts.PurgeRetired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("purge retired carts: %w", err)
	}
	logCtx := j.logg.WithField(ctx, "count", count)
	j.logg.Info(logCtx, "cart purge sweep complete")
	return nil
}
