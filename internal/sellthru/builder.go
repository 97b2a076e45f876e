package sellthru

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

// Source exposes the ERP record sets the builder reads. Implementations are
// parameterised by dates and vendor only.
type Source interface {
	LedgerEntries(ctx context.Context, vendorID string, from, to time.Time) ([]ledger.Transaction, error)
	Items(ctx context.Context, vendorID string) ([]Item, error)
	OpenPurchaseLines(ctx context.Context, vendorID string, orderedOnOrBefore time.Time) ([]PurchaseOrderLine, error)
	Customers(ctx context.Context) ([]Customer, error)
	PackageLines(ctx context.Context, from, to time.Time, itemIDs []string) ([]PackageLine, error)
}

// Builder fetches one vendor week and runs it through reconstruction and the
// three aggregations.
type Builder struct {
	source Source
	now    func() time.Time
	newID  func() string
}

// NewBuilder constructs a Builder instance.
func NewBuilder(source Source) *Builder {
	return &Builder{source: source, now: time.Now, newID: func() string { return uuid.NewString() }}
}

// WithNow overrides the clock for deterministic tests.
func (b *Builder) WithNow(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}

// Build resolves the week before touching the source, so an invalid week never
// costs a query.
func (b *Builder) Build(ctx context.Context, req Request) (Report, error) {
	req = req.Normalise()
	now := b.now()
	wk, err := week.Resolve(req.Year, req.Week, now)
	if err != nil {
		return Report{}, err
	}

	var (
		txns      []ledger.Transaction
		items     []Item
		poLines   []PurchaseOrderLine
		customers []Customer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := b.source.LedgerEntries(gctx, req.VendorID, wk.Start, wk.FetchEnd)
		if err != nil {
			return fmt.Errorf("sellthru: load ledger entries: %w", err)
		}
		txns = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.source.Items(gctx, req.VendorID)
		if err != nil {
			return fmt.Errorf("sellthru: load items: %w", err)
		}
		items = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.source.OpenPurchaseLines(gctx, req.VendorID, wk.End)
		if err != nil {
			return fmt.Errorf("sellthru: load purchase lines: %w", err)
		}
		poLines = rows
		return nil
	})
	g.Go(func() error {
		rows, err := b.source.Customers(gctx)
		if err != nil {
			return fmt.Errorf("sellthru: load customers: %w", err)
		}
		customers = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	tracked := TrackedItems(items, req.VendorID)
	var lines []PackageLine
	if len(tracked) > 0 {
		ids := make([]string, len(tracked))
		for i, item := range tracked {
			ids[i] = item.ID
		}
		lines, err = b.source.PackageLines(ctx, wk.Start, wk.End, ids)
		if err != nil {
			return Report{}, fmt.Errorf("sellthru: load package lines: %w", err)
		}
	}

	reconciled, err := ledger.Reconstruct(txns, OnHandByItem(items))
	if err != nil {
		return Report{}, err
	}

	return Report{
		RunID:       b.newID(),
		VendorID:    req.VendorID,
		Week:        wk,
		Summary:     SummarizeItems(tracked, reconciled, poLines, wk),
		Breakdown:   SummarizeSalesBreakdown(reconciled, tracked, customers, wk),
		Serials:     MapSerialSellThrough(lines, reconciled, tracked, customers, wk),
		GeneratedAt: now,
	}, nil
}
