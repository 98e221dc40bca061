package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/bazarkala/bazarkala-backend/pkg/db/models"
	"github.com/bazarkala/bazarkala-backend/pkg/logger"
	"github.com/bazarkala/bazarkala-backend/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// RequestExpiryJobParams configure the purchase request expiry sweeper.
type RequestExpiryJobParams struct {
	Logger     *logger.Logger
	Candidates expiredRequestReader
	Expirer    requestExpirer
	Metrics    *metrics.CronJobMetrics
}

type expiredRequestReader interface {
	FindExpiredCandidates(ctx context.Context, now time.Time) ([]models.PurchaseRequest, error)
}

type requestExpirer interface {
	ExpireRequest(ctx context.Context, requestID uuid.UUID) error
}

// NewRequestExpiryJob builds the job that reclaims lapsed reservations.
func NewRequestExpiryJob(params RequestExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Candidates == nil {
		return nil, fmt.Errorf("expired request reader required")
	}
	if params.Expirer == nil {
		return nil, fmt.Errorf("request expirer required")
	}
	return &requestExpiryJob{
		logg:       params.Logger,
		candidates: params.Candidates,
		expirer:    params.Expirer,
		metrics:    params.Metrics,
		now:        time.Now,
	}, nil
}

type requestExpiryJob struct {
	logg       *logger.Logger
	candidates expiredRequestReader
	expirer    requestExpirer
	metrics    *metrics.CronJobMetrics
	now        func() time.Time
}

func (j *requestExpiryJob) Name() string { return "purchase-request-expiry" }

// Run expires every lapsed candidate in its own transaction; one failure is
// collected and does not stop the sweep of the rest.
func (j *requestExpiryJob) Run(ctx context.Context) error {
	candidates, err := j.candidates.FindExpiredCandidates(ctx, j.now().UTC())
	if err != nil {
		return fmt.Errorf("query expired purchase requests: %w", err)
	}

	var errs []error
	count := 0
	for _, req := range candidates {
		if err := j.expirer.ExpireRequest(ctx, req.ID); err != nil {
			reqCtx := j.logg.WithRequestID(ctx, req.ID.String())
			j.logg.Error(reqCtx, "failed to expire purchase request", err)
			errs = append(errs, fmt.Errorf("expire request %s: %w", req.ID, err))
			continue
		}
		count++
	}

	if j.metrics != nil {
		j.metrics.AddExpired(j.Name(), count)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(candidates),
		"expired":    count,
	})
	j.logg.Info(logCtx, "purchase request expiry loop complete")
	return multierr.Combine(errs...)
}
