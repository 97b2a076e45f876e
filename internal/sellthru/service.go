package sellthru

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	jobmetrics "github.com/jegsons/sellthru/internal/jobs"
	"github.com/jegsons/sellthru/internal/platform/storage"
	"github.com/jegsons/sellthru/internal/shared"
	"github.com/jegsons/sellthru/internal/week"
)

// JobName labels report runs in metrics.
const JobName = "sellthru_weekly"

// Renderer turns a finished report into a document.
type Renderer interface {
	Render(ctx context.Context, report Report) (Artifact, error)
}

// Locker serialises runs that share a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (func(context.Context) error, error)
}

type reportBuilder interface {
	Build(ctx context.Context, req Request) (Report, error)
}

// ServiceConfig wires dependencies required by the service.
type ServiceConfig struct {
	Builder    reportBuilder
	Renderer   Renderer
	Store      storage.Store
	Locker     Locker
	Metrics    *jobmetrics.Metrics
	Logger     *slog.Logger
	FilePrefix string
}

// Service orchestrates validation, locking, building, rendering and archiving.
type Service struct {
	builder    reportBuilder
	renderer   Renderer
	store      storage.Store
	locker     Locker
	metrics    *jobmetrics.Metrics
	logger     *slog.Logger
	filePrefix string
	validate   *validator.Validate
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		builder:    cfg.Builder,
		renderer:   cfg.Renderer,
		store:      cfg.Store,
		locker:     cfg.Locker,
		metrics:    cfg.Metrics,
		logger:     logger,
		filePrefix: cfg.FilePrefix,
		validate:   validator.New(),
	}
}

// Validate normalises the request and checks its fields. Year and week bounds
// belong to the week resolver, so range failures match both ErrInvalidRequest
// and week.ErrInvalidWeekSpec.
func (s *Service) Validate(req Request) (Request, error) {
	req = req.Normalise()
	if _, err := week.Resolve(req.Year, req.Week, time.Time{}); err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := s.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return req, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
		}
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// Preview builds the report tables without rendering or archiving them.
func (s *Service) Preview(ctx context.Context, req Request) (Report, error) {
	req, err := s.Validate(req)
	if err != nil {
		return Report{}, err
	}
	return s.builder.Build(ctx, req)
}

// Generate produces and archives the workbook for one vendor week. A second
// run for the same vendor week fails fast with ErrReportInProgress.
func (s *Service) Generate(ctx context.Context, req Request) (Result, error) {
	if s == nil || s.builder == nil || s.renderer == nil || s.store == nil {
		return Result{}, errors.New("sellthru: service not configured")
	}
	req, err := s.Validate(req)
	if err != nil {
		return Result{}, err
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, req.LockKey())
		if err != nil {
			if errors.Is(err, shared.ErrLockHeld) {
				return Result{}, ErrReportInProgress
			}
			return Result{}, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release report lock", slog.String("key", req.LockKey()), slog.Any("error", err))
			}
		}()
	}

	tracker := s.metrics.Track(JobName)
	result, err := s.generate(ctx, req)
	return result, tracker.End(err)
}

func (s *Service) generate(ctx context.Context, req Request) (Result, error) {
	report, err := s.builder.Build(ctx, req)
	if err != nil {
		return Result{}, err
	}
	logger := s.logger.With(slog.String("run_id", report.RunID), slog.String("vendor", report.VendorID),
		slog.Int("year", report.Week.Year), slog.Int("week", report.Week.Week))

	artifact, err := s.renderer.Render(ctx, report)
	if err != nil {
		return Result{}, fmt.Errorf("sellthru: render: %w", err)
	}
	name := FileName(s.filePrefix, report.Week)
	obj, err := s.store.Put(ctx, name, artifact.Data, artifact.ContentType)
	if err != nil {
		return Result{}, fmt.Errorf("sellthru: store: %w", err)
	}

	result := Result{
		RunID:         report.RunID,
		FileName:      name,
		Location:      obj.Location,
		Size:          obj.Size,
		SummaryRows:   len(report.Summary),
		BreakdownRows: len(report.Breakdown),
		SerialRows:    len(report.Serials),
	}
	for _, row := range report.Summary {
		result.TotalSellThru += row.SellThru
		result.TotalWarehouse += row.Warehouse
	}
	s.metrics.ObserveReport(report.VendorID, jobmetrics.RowCounts{
		Summary:   result.SummaryRows,
		Breakdown: result.BreakdownRows,
		Serials:   result.SerialRows,
	}, result.TotalSellThru, result.TotalWarehouse)
	logger.Info("sell-through report stored",
		slog.String("file", name),
		slog.String("location", obj.Location),
		slog.Int("summary_rows", result.SummaryRows),
		slog.Int("breakdown_rows", result.BreakdownRows),
		slog.Int("imei_rows", result.SerialRows))
	return result, nil
}

// Open streams an archived workbook by file name.
func (s *Service) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s == nil || s.store == nil {
		return nil, errors.New("sellthru: service not configured")
	}
	return s.store.Open(ctx, name)
}
