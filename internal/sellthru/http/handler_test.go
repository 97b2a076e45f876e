package sellthruhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/platform/storage"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/internal/week"
	"github.com/jegsons/sellthru/jobs"
)

type stubService struct {
	previews []sellthru.Request
	generate []sellthru.Request
	err      error
	files    map[string]string
}

func (s *stubService) Preview(ctx context.Context, req sellthru.Request) (sellthru.Report, error) {
	s.previews = append(s.previews, req)
	if s.err != nil {
		return sellthru.Report{}, s.err
	}
	wk, err := week.Resolve(req.Year, req.Week, time.Date(2024, time.March, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		return sellthru.Report{}, err
	}
	return sellthru.Report{
		RunID:    "run-1",
		VendorID: req.VendorID,
		Week:     wk,
		Summary:  []sellthru.SummaryRow{{Week: wk.Label(), ProductCode: "HQ100", SellThru: 10}},
	}, nil
}

func (s *stubService) Generate(ctx context.Context, req sellthru.Request) (sellthru.Result, error) {
	s.generate = append(s.generate, req)
	if s.err != nil {
		return sellthru.Result{}, s.err
	}
	return sellthru.Result{RunID: "run-2", FileName: "P_SALES_Inventory_Weekly_2024 W11.xlsx"}, nil
}

func (s *stubService) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	body, ok := s.files[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type stubRenderer struct{}

func (stubRenderer) Render(ctx context.Context, report sellthru.Report) (sellthru.Artifact, error) {
	return sellthru.Artifact{Data: []byte("xlsx:" + report.RunID), ContentType: "application/test"}, nil
}

type stubQueue struct {
	payloads []jobs.WeeklyReportPayload
	err      error
}

func (q *stubQueue) EnqueueWeeklyReport(ctx context.Context, payload jobs.WeeklyReportPayload) (*asynq.TaskInfo, error) {
	q.payloads = append(q.payloads, payload)
	if q.err != nil {
		return nil, q.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: jobs.QueueReports}, nil
}

func newTestRouter(svc *stubService, queue *stubQueue) http.Handler {
	cfg := Config{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Service:       svc,
		Renderer:      stubRenderer{},
		DefaultVendor: "HMDGLOBAL",
		FilePrefix:    "P",
		Now: func() time.Time {
			return time.Date(2024, time.March, 19, 9, 0, 0, 0, time.UTC)
		},
	}
	if queue != nil {
		cfg.Jobs = queue
	}
	r := chi.NewRouter()
	NewHandler(cfg).MountRoutes(r)
	return r
}

func serve(h http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, target, body))
	return rr
}

func TestWeeklyDownloadsWorkbook(t *testing.T) {
	svc := &stubService{}
	rr := serve(newTestRouter(svc, nil), http.MethodGet, "/reports/sellthru/weekly?year=2024&week=11&vendor=hmdglobal", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/test", rr.Header().Get("Content-Type"))
	require.Contains(t, rr.Header().Get("Content-Disposition"), `filename="P_SALES_Inventory_Weekly_2024 W11.xlsx"`)
	require.Equal(t, "xlsx:run-1", rr.Body.String())
	require.Equal(t, []sellthru.Request{{Year: 2024, Week: 11, VendorID: "HMDGLOBAL"}}, svc.previews)
}

func TestWeeklyJSONDefaultsToPreviousWeek(t *testing.T) {
	svc := &stubService{}
	rr := serve(newTestRouter(svc, nil), http.MethodGet, "/reports/sellthru/weekly?format=json", nil)

	require.Equal(t, http.StatusOK, rr.Code)
	var report sellthru.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	require.Equal(t, "HMDGLOBAL", report.VendorID)
	require.Len(t, report.Summary, 1)
	require.Equal(t, []sellthru.Request{{Year: 2024, Week: 11, VendorID: "HMDGLOBAL"}}, svc.previews)
}

func TestWeeklyRejectsBadInput(t *testing.T) {
	router := newTestRouter(&stubService{}, nil)

	for _, target := range []string{
		"/reports/sellthru/weekly?year=abc&week=11",
		"/reports/sellthru/weekly?year=2024&week=11&format=pdf",
		"/reports/sellthru/weekly?year=2021&week=53",
	} {
		rr := serve(router, http.MethodGet, target, nil)
		require.Equal(t, http.StatusBadRequest, rr.Code, target)
		require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	}
}

func TestWeeklyMapsDomainErrors(t *testing.T) {
	cases := map[error]int{
		ledger.ErrMissingOnHand:      http.StatusUnprocessableEntity,
		sellthru.ErrReportInProgress: http.StatusConflict,
		sellthru.ErrSourceSchema:     http.StatusBadGateway,
		errors.New("boom"):           http.StatusInternalServerError,
	}
	for cause, status := range cases {
		rr := serve(newTestRouter(&stubService{err: cause}, nil), http.MethodGet, "/reports/sellthru/weekly?year=2024&week=10&format=json", nil)
		require.Equal(t, status, rr.Code, cause.Error())
	}
}

func TestGenerateStoresReport(t *testing.T) {
	svc := &stubService{}
	rr := serve(newTestRouter(svc, nil), http.MethodPost, "/reports/sellthru/weekly",
		bytes.NewBufferString(`{"year":2024,"week":9,"vendor":"HMDGLOBAL"}`))

	require.Equal(t, http.StatusCreated, rr.Code)
	var result sellthru.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Equal(t, "run-2", result.RunID)
	require.Equal(t, []sellthru.Request{{Year: 2024, Week: 9, VendorID: "HMDGLOBAL"}}, svc.generate)
}

func TestEnqueueWeeklyReport(t *testing.T) {
	queue := &stubQueue{}
	router := newTestRouter(&stubService{}, queue)

	rr := serve(router, http.MethodPost, "/reports/sellthru/jobs", bytes.NewBufferString(`{"year":2024,"week":11,"vendor":"hmdglobal"}`))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.JSONEq(t, `{"task_id":"task-1","queue":"reports"}`, rr.Body.String())
	require.Len(t, queue.payloads, 1)
	require.Equal(t, "HMDGLOBAL", queue.payloads[0].VendorID)
	require.False(t, queue.payloads[0].PreviousWeek)

	rr = serve(router, http.MethodPost, "/reports/sellthru/jobs", nil)
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.True(t, queue.payloads[1].PreviousWeek)
	require.Equal(t, "HMDGLOBAL", queue.payloads[1].VendorID)

	queue.err = asynq.ErrTaskIDConflict
	rr = serve(router, http.MethodPost, "/reports/sellthru/jobs", bytes.NewBufferString(`{"year":2024,"week":11}`))
	require.Equal(t, http.StatusConflict, rr.Code)
}

func TestEnqueueWithoutQueue(t *testing.T) {
	rr := serve(newTestRouter(&stubService{}, nil), http.MethodPost, "/reports/sellthru/jobs", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestArchiveStreamsStoredFile(t *testing.T) {
	svc := &stubService{files: map[string]string{"P_SALES_Inventory_Weekly_2024 W11.xlsx": "stored"}}
	router := newTestRouter(svc, nil)

	rr := serve(router, http.MethodGet, "/reports/sellthru/archive/P_SALES_Inventory_Weekly_2024%20W11.xlsx", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "stored", rr.Body.String())
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))

	rr = serve(router, http.MethodGet, "/reports/sellthru/archive/missing.xlsx", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}
