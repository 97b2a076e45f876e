package sellthru

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
	"github.com/jegsons/sellthru/jobs"
)

type reportGenerator interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// JobConfig wires dependencies required by the worker job.
type JobConfig struct {
	Service reportGenerator
	Logger  *slog.Logger
	Now     func() time.Time
}

// Job processes weekly report requests coming from the queue.
type Job struct {
	service reportGenerator
	logger  *slog.Logger
	now     func() time.Time
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Job{service: cfg.Service, logger: cfg.Logger, now: now}
}

// Handle fulfils the asynq.HandlerFunc contract. Inputs that can never succeed
// are not retried; a concurrent run for the same week is.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.service == nil {
		return fmt.Errorf("sellthru job not configured")
	}
	payload, err := jobs.ParseWeeklyReportPayload(task)
	if err != nil {
		return fmt.Errorf("sellthru: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	req := Request{Year: payload.Year, Week: payload.Week, VendorID: payload.VendorID}
	if payload.PreviousWeek {
		req.Year, req.Week = week.Previous(j.now())
	}

	result, err := j.service.Generate(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, week.ErrInvalidWeekSpec), errors.Is(err, ledger.ErrMissingOnHand):
		j.log().Warn("sell-through job rejected", slog.Any("error", err), slog.String("vendor", req.VendorID),
			slog.Int("year", req.Year), slog.Int("week", req.Week))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	default:
		return err
	}
	j.log().Info("sell-through job done",
		slog.String("run_id", result.RunID),
		slog.String("file", result.FileName),
		slog.String("requested_by", payload.RequestedBy))
	return nil
}

func (j *Job) log() *slog.Logger {
	if j.logger == nil {
		return slog.Default()
	}
	return j.logger
}
