package perf

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/jegsons/sellthru/internal/jobs"
	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/sellthru"
	"github.com/jegsons/sellthru/internal/week"
)

const (
	benchItems   = 400
	benchEntries = 200_000
)

// syntheticWeek mimics a busy vendor: a year of postings ending in 2024 W11
// plus a few days after it.
func syntheticWeek(tb testing.TB) (week.Range, []sellthru.Item, []ledger.Transaction, []sellthru.Customer) {
	tb.Helper()
	wk, err := week.Resolve(2024, 11, time.Date(2024, time.March, 19, 0, 0, 0, 0, time.UTC))
	if err != nil {
		tb.Fatalf("resolve week: %v", err)
	}
	items := make([]sellthru.Item, benchItems)
	for i := range items {
		items[i] = sellthru.Item{
			ID:             fmt.Sprintf("ITEM%04d", i),
			Description:    fmt.Sprintf("Handset %d", i%40),
			VendorID:       "HMDGLOBAL",
			VendorItemCode: fmt.Sprintf("HQ%04d", i%200),
			OnHand:         int64(1000 + i),
			ProductGroup:   sellthru.TrackedProductGroup,
			ItemCategory:   sellthru.TrackedItemCategory,
		}
	}
	customers := make([]sellthru.Customer, 50)
	for i := range customers {
		customers[i] = sellthru.Customer{ID: fmt.Sprintf("C%03d", i), Name: fmt.Sprintf("Store %d", i), City: "Austin", CountryCode: "US"}
	}
	span := int(wk.FetchEnd.Sub(wk.Start).Hours()/24) + 1
	txns := make([]ledger.Transaction, benchEntries)
	for i := range txns {
		tx := ledger.Transaction{
			ItemID:      items[i%benchItems].ID,
			PostingDate: wk.Start.AddDate(0, 0, i%span),
		}
		switch i % 4 {
		case 0:
			tx.EntryType, tx.DocumentType, tx.Quantity = ledger.EntryPurchase, ledger.DocumentInvoice, 5
		case 1, 2:
			tx.EntryType, tx.DocumentType, tx.Quantity = ledger.EntrySale, ledger.DocumentOrder, -2
			tx.NumberSeries = ledger.ShipmentSeries
			tx.SourceID = customers[i%len(customers)].ID
			tx.DocumentNo = fmt.Sprintf("SS-%d", i)
		default:
			tx.EntryType, tx.Quantity = ledger.EntryNegativeAdjustment, -1
		}
		txns[i] = tx
	}
	return wk, items, txns, customers
}

func runPipeline(tb testing.TB, wk week.Range, items []sellthru.Item, txns []ledger.Transaction, customers []sellthru.Customer) {
	tb.Helper()
	reconciled, err := ledger.Reconstruct(txns, sellthru.OnHandByItem(items))
	if err != nil {
		tb.Fatalf("reconstruct: %v", err)
	}
	if rows := sellthru.SummarizeItems(items, reconciled, nil, wk); len(rows) != len(items) {
		tb.Fatalf("summary rows: got %d want %d", len(rows), len(items))
	}
	if rows := sellthru.SummarizeSalesBreakdown(reconciled, items, customers, wk); len(rows) == 0 {
		tb.Fatal("expected breakdown rows")
	}
}

func TestReportPipelineWithinBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("perf budget skipped in short mode")
	}
	wk, items, txns, customers := syntheticWeek(t)
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)

	samples := make([]time.Duration, 0, 10)
	for i := 0; i < 10; i++ {
		tracker := metrics.Track(sellthru.JobName)
		start := time.Now()
		runPipeline(t, wk, items, txns, customers)
		samples = append(samples, time.Since(start))
		if err := tracker.End(nil); err != nil {
			t.Fatalf("unexpected error ending tracker: %v", err)
		}
	}

	if p95 := percentile95(samples); p95 > 2*time.Second {
		t.Fatalf("pipeline latency regression: p95=%s threshold=2s", p95)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if runs := metricValue(t, families, "sellthru_jobs_total", map[string]string{"job": sellthru.JobName, "status": "success"}); runs != 10 {
		t.Fatalf("expected 10 recorded runs, got %f", runs)
	}
	if mean := histogramMean(t, families, "sellthru_job_duration_seconds", map[string]string{"job": sellthru.JobName}); mean > 2.0 {
		t.Fatalf("mean run duration above budget: %f", mean)
	}
}

func BenchmarkReconstruct(b *testing.B) {
	_, items, txns, _ := syntheticWeek(b)
	onHand := sellthru.OnHandByItem(items)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ledger.Reconstruct(txns, onHand); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReportPipeline(b *testing.B) {
	wk, items, txns, customers := syntheticWeek(b)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runPipeline(b, wk, items, txns, customers)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	return sorted[index]
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; ok {
			if lp.GetValue() != val {
				return false
			}
		}
	}
	for key := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
