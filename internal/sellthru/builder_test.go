package sellthru

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

type stubSource struct {
	mu        sync.Mutex
	calls     []string
	txns      []ledger.Transaction
	items     []Item
	poLines   []PurchaseOrderLine
	customers []Customer
	lines     []PackageLine
	itemsErr  error

	ledgerFrom, ledgerTo time.Time
	packageIDs           []string
}

func (s *stubSource) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, name)
}

func (s *stubSource) LedgerEntries(ctx context.Context, vendorID string, from, to time.Time) ([]ledger.Transaction, error) {
	s.record("ledger")
	s.ledgerFrom, s.ledgerTo = from, to
	return s.txns, nil
}

func (s *stubSource) Items(ctx context.Context, vendorID string) ([]Item, error) {
	s.record("items")
	return s.items, s.itemsErr
}

func (s *stubSource) OpenPurchaseLines(ctx context.Context, vendorID string, orderedOnOrBefore time.Time) ([]PurchaseOrderLine, error) {
	s.record("po")
	return s.poLines, nil
}

func (s *stubSource) Customers(ctx context.Context) ([]Customer, error) {
	s.record("customers")
	return s.customers, nil
}

func (s *stubSource) PackageLines(ctx context.Context, from, to time.Time, itemIDs []string) ([]PackageLine, error) {
	s.record("packages")
	s.packageIDs = itemIDs
	return s.lines, nil
}

func fixedClock() time.Time {
	return time.Date(2024, time.March, 19, 9, 30, 0, 0, time.UTC)
}

func TestBuilderBuildProducesThreeTables(t *testing.T) {
	src := &stubSource{
		items: []Item{
			phone("N100", "HQ100", "Nokia 100", 50),
			{ID: "CASE", VendorID: testVendor, OnHand: 3},
		},
		txns: []ledger.Transaction{
			receipt("N100", 20, 11),
			shipment("N100", "C1", "SS-1", -10, 13),
			{ItemID: "CASE", PostingDate: day(14), EntryType: ledger.EntrySale, DocumentType: ledger.DocumentOrder, Quantity: -1},
		},
		customers: []Customer{{ID: "C1", Name: "BEST BUY", City: "Richfield", CountryCode: "US"}},
		lines:     []PackageLine{packed("N100", "359000000000001", "SS-1", 13)},
	}
	b := NewBuilder(src)
	b.WithNow(fixedClock)
	b.newID = func() string { return "run-1" }

	report, err := b.Build(context.Background(), Request{Year: 2024, Week: 11, VendorID: " hmdglobal "})
	require.NoError(t, err)
	require.Equal(t, "run-1", report.RunID)
	require.Equal(t, testVendor, report.VendorID)
	require.Equal(t, fixedClock(), report.GeneratedAt)
	require.Equal(t, day(11), src.ledgerFrom)
	require.Equal(t, week.Date(fixedClock()), src.ledgerTo)
	require.Equal(t, []string{"N100"}, src.packageIDs)

	require.Len(t, report.Summary, 1)
	require.Equal(t, int64(40), report.Summary[0].OpeningInventory)
	require.Equal(t, int64(10), report.Summary[0].SellThru)
	require.Len(t, report.Breakdown, 1)
	require.Equal(t, int64(10), report.Breakdown[0].VolumeSales)
	require.Len(t, report.Serials, 1)
	require.Equal(t, "BEST BUY", *report.Serials[0].StoreName)
}

func TestBuilderRejectsInvalidWeekBeforeFetching(t *testing.T) {
	src := &stubSource{}
	b := NewBuilder(src)
	b.WithNow(fixedClock)

	_, err := b.Build(context.Background(), Request{Year: 2021, Week: 53, VendorID: testVendor})
	require.ErrorIs(t, err, week.ErrInvalidWeekSpec)
	require.Empty(t, src.calls)
}

func TestBuilderSkipsPackageFetchWithoutTrackedItems(t *testing.T) {
	src := &stubSource{items: []Item{{ID: "CASE", VendorID: testVendor, OnHand: 1}}}
	b := NewBuilder(src)
	b.WithNow(fixedClock)

	report, err := b.Build(context.Background(), Request{Year: 2024, Week: 11, VendorID: testVendor})
	require.NoError(t, err)
	require.NotContains(t, src.calls, "packages")
	require.Empty(t, report.Summary)
	require.Empty(t, report.Breakdown)
	require.Empty(t, report.Serials)
}

func TestBuilderPropagatesFetchErrors(t *testing.T) {
	boom := errors.New("connection reset")
	src := &stubSource{itemsErr: boom}
	b := NewBuilder(src)
	b.WithNow(fixedClock)

	_, err := b.Build(context.Background(), Request{Year: 2024, Week: 11, VendorID: testVendor})
	require.ErrorIs(t, err, boom)
}

func TestBuilderFailsOnMissingOnHand(t *testing.T) {
	src := &stubSource{
		items: []Item{phone("N100", "HQ100", "Nokia 100", 5)},
		txns:  []ledger.Transaction{receipt("GHOST", 1, 12)},
	}
	b := NewBuilder(src)
	b.WithNow(fixedClock)

	_, err := b.Build(context.Background(), Request{Year: 2024, Week: 11, VendorID: testVendor})
	require.ErrorIs(t, err, ledger.ErrMissingOnHand)
}
