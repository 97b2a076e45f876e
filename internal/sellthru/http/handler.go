package sellthruhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/platform/httpx"
	"github.com/jegsons/sellthru/internal/platform/storage"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/internal/sellthru/export"
	"github.com/jegsons/sellthru/internal/week"
	"github.com/jegsons/sellthru/jobs"
)

type reportService interface {
	Preview(ctx context.Context, req sellthru.Request) (sellthru.Report, error)
	Generate(ctx context.Context, req sellthru.Request) (sellthru.Result, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type enqueuer interface {
	EnqueueWeeklyReport(ctx context.Context, payload jobs.WeeklyReportPayload) (*asynq.TaskInfo, error)
}

// Config wires dependencies required by the HTTP handler.
type Config struct {
	Logger        *slog.Logger
	Service       reportService
	Renderer      sellthru.Renderer
	Jobs          enqueuer
	DefaultVendor string
	FilePrefix    string
	Now           func() time.Time
}

// Handler exposes sell-through report endpoints.
type Handler struct {
	logger        *slog.Logger
	service       reportService
	renderer      sellthru.Renderer
	jobs          enqueuer
	defaultVendor string
	filePrefix    string
	now           func() time.Time
}

// NewHandler constructs a Handler value.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		logger:        logger,
		service:       cfg.Service,
		renderer:      cfg.Renderer,
		jobs:          cfg.Jobs,
		defaultVendor: cfg.DefaultVendor,
		filePrefix:    cfg.FilePrefix,
		now:           now,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports/sellthru", func(r chi.Router) {
		r.Get("/weekly", h.weekly)
		r.Post("/weekly", h.generate)
		r.Post("/jobs", h.enqueue)
		r.Get("/archive/{name}", h.archive)
	})
}

var errBadQuery = errors.New("invalid query parameter")

var errorMappings = []httpx.ErrorMapping{
	{Err: errBadQuery, Status: http.StatusBadRequest, Title: "Invalid Request"},
	{Err: sellthru.ErrInvalidRequest, Status: http.StatusBadRequest, Title: "Invalid Request"},
	{Err: week.ErrInvalidWeekSpec, Status: http.StatusBadRequest, Title: "Invalid Week"},
	{Err: storage.ErrInvalidName, Status: http.StatusBadRequest, Title: "Invalid File Name"},
	{Err: storage.ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Err: sellthru.ErrReportInProgress, Status: http.StatusConflict, Title: "Report In Progress"},
	{Err: asynq.ErrTaskIDConflict, Status: http.StatusConflict, Title: "Report Already Queued"},
	{Err: asynq.ErrDuplicateTask, Status: http.StatusConflict, Title: "Report Already Queued"},
	{Err: ledger.ErrMissingOnHand, Status: http.StatusUnprocessableEntity, Title: "Inconsistent Source Data"},
	{Err: sellthru.ErrSourceSchema, Status: http.StatusBadGateway, Title: "Source Unavailable"},
	{Err: context.DeadlineExceeded, Status: http.StatusGatewayTimeout, Title: "Timeout"},
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		return
	}
	h.logger.Warn("sell-through request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", chimw.GetReqID(r.Context())),
		slog.Any("error", err))
	httpx.RespondError(w, err, errorMappings...)
}

// weekly builds the report for a vendor week and returns it as a workbook
// download or, with format=json, as the three tables.
func (h *Handler) weekly(w http.ResponseWriter, r *http.Request) {
	req, err := h.requestFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "json" {
		h.fail(w, r, fmt.Errorf("%w: format %q", errBadQuery, format))
		return
	}

	val, err, _ := singleflightBuild(r.Context(), req.LockKey(), func(ctx context.Context) (any, error) {
		return h.service.Preview(ctx, req)
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report := val.(sellthru.Report)

	if format == "json" {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	if h.renderer == nil {
		h.fail(w, r, errors.New("sellthru: renderer not configured"))
		return
	}
	artifact, err := h.renderer.Render(r.Context(), report)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	name := sellthru.FileName(h.filePrefix, report.Week)
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

type weekBody struct {
	Year         int    `json:"year"`
	Week         int    `json:"week"`
	VendorID     string `json:"vendor"`
	PreviousWeek bool   `json:"previous_week"`
}

func (h *Handler) decodeBody(r *http.Request) (weekBody, error) {
	var body weekBody
	if r.ContentLength == 0 {
		body.PreviousWeek = true
	} else if err := httpx.DecodeJSON(r, &body); err != nil {
		return body, fmt.Errorf("%w: %v", errBadQuery, err)
	}
	if strings.TrimSpace(body.VendorID) == "" {
		body.VendorID = h.defaultVendor
	}
	if body.Year == 0 && body.Week == 0 {
		body.PreviousWeek = true
	}
	return body, nil
}

// generate runs the report synchronously and archives the workbook.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	req := sellthru.Request{Year: body.Year, Week: body.Week, VendorID: body.VendorID}
	if body.PreviousWeek {
		req.Year, req.Week = week.Previous(h.now())
	}
	result, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

type enqueueResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

// enqueue hands the run to the worker.
func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "job queue is not configured")
		return
	}
	body, err := h.decodeBody(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	info, err := h.jobs.EnqueueWeeklyReport(r.Context(), jobs.WeeklyReportPayload{
		Year:         body.Year,
		Week:         body.Week,
		VendorID:     strings.ToUpper(strings.TrimSpace(body.VendorID)),
		PreviousWeek: body.PreviousWeek,
		RequestedBy:  "api:" + chimw.GetReqID(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, enqueueResponse{TaskID: info.ID, Queue: info.Queue})
}

// archive streams a previously stored workbook.
func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rc, err := h.service.Open(r.Context(), name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = export.ContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("stream archived report", slog.String("file", name), slog.Any("error", err))
	}
}

func (h *Handler) requestFromQuery(r *http.Request) (sellthru.Request, error) {
	q := r.URL.Query()
	vendor := strings.TrimSpace(q.Get("vendor"))
	if vendor == "" {
		vendor = h.defaultVendor
	}
	yearText, weekText := strings.TrimSpace(q.Get("year")), strings.TrimSpace(q.Get("week"))
	req := sellthru.Request{VendorID: vendor}
	if yearText == "" && weekText == "" {
		req.Year, req.Week = week.Previous(h.now())
		return req.Normalise(), nil
	}
	wk, err := week.Parse(yearText, weekText, h.now())
	if err != nil {
		return req, err
	}
	req.Year, req.Week = wk.Year, wk.Week
	return req.Normalise(), nil
}
