package sellthru

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jegsons/sellthru/internal/ledger"
)

// DefaultCompany is the ERP company whose tables are read.
const DefaultCompany = "JEG_SONS, Inc_"

// ErrSourceSchema indicates the replicated ERP tables are missing or renamed.
var ErrSourceSchema = errors.New("sellthru: source schema mismatch")

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository reads the ERP tables replicated into PostgreSQL. Table names keep
// their ERP form "<company>$<table>".
type Repository struct {
	db      querier
	company string
}

// NewRepository constructs a repository wrapper. An empty company falls back to DefaultCompany.
func NewRepository(db querier, company string) *Repository {
	if strings.TrimSpace(company) == "" {
		company = DefaultCompany
	}
	return &Repository{db: db, company: company}
}

func (r *Repository) table(name string) string {
	return pgx.Identifier{r.company + "$" + name}.Sanitize()
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if r == nil || r.db == nil {
		return nil, fmt.Errorf("sellthru: repository not initialised")
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", "42703":
			return fmt.Errorf("%w: %s", ErrSourceSchema, pgErr.Message)
		}
	}
	return err
}

// LedgerEntries returns item ledger entries of the vendor's items posted in
// [from, to], in entry order.
func (r *Repository) LedgerEntries(ctx context.Context, vendorID string, from, to time.Time) ([]ledger.Transaction, error) {
	query := fmt.Sprintf(`SELECT e."Item No_", e."Posting Date", e."Entry Type", e."Source No_", e."Document No_",
	e."Location Code", e."Quantity"::bigint, e."No_ Series", e."Document Type"
FROM %s e
JOIN %s i ON i."No_" = e."Item No_"
WHERE i."Vendor No_" = $1 AND e."Posting Date" >= $2 AND e."Posting Date" <= $3
ORDER BY e."Entry No_"`, r.table("Item Ledger Entry"), r.table("Item"))
	rows, err := r.query(ctx, query, vendorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ledger.Transaction
	for rows.Next() {
		var (
			tx        ledger.Transaction
			entryType int
			docType   int
		)
		if err := rows.Scan(&tx.ItemID, &tx.PostingDate, &entryType, &tx.SourceID, &tx.DocumentNo,
			&tx.LocationCode, &tx.Quantity, &tx.NumberSeries, &docType); err != nil {
			return nil, err
		}
		tx.EntryType = ledger.EntryType(entryType)
		tx.DocumentType = ledger.DocumentType(docType)
		out = append(out, tx)
	}
	return out, classify(rows.Err())
}

// Items returns the vendor's item master rows with their current available stock.
func (r *Repository) Items(ctx context.Context, vendorID string) ([]Item, error) {
	query := fmt.Sprintf(`SELECT "No_", "Description", "Vendor No_", "Vendor Item No_", "Inventory Available"::bigint,
	"Product Group Code", "Item Category Code"
FROM %s
WHERE "Vendor No_" = $1
ORDER BY "No_"`, r.table("Item"))
	rows, err := r.query(ctx, query, vendorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Description, &item.VendorID, &item.VendorItemCode, &item.OnHand,
			&item.ProductGroup, &item.ItemCategory); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, classify(rows.Err())
}

// OpenPurchaseLines returns item lines of the vendor's purchase orders dated on or before the cutoff.
func (r *Repository) OpenPurchaseLines(ctx context.Context, vendorID string, orderedOnOrBefore time.Time) ([]PurchaseOrderLine, error) {
	query := fmt.Sprintf(`SELECT "Document Type", "Buy-from Vendor No_", "Type", "No_", "Outstanding Quantity"::bigint, "Order Date"
FROM %s
WHERE "Document Type" = $1 AND "Buy-from Vendor No_" = $2 AND "Type" = $3 AND "Order Date" <= $4`, r.table("Purchase Line"))
	rows, err := r.query(ctx, query, int(PurchaseDocumentOrder), vendorID, int(PurchaseLineItem), orderedOnOrBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PurchaseOrderLine
	for rows.Next() {
		var (
			line     PurchaseOrderLine
			docType  int
			lineType int
		)
		if err := rows.Scan(&docType, &line.VendorID, &lineType, &line.ItemID, &line.OutstandingQuantity, &line.OrderDate); err != nil {
			return nil, err
		}
		line.DocumentType = PurchaseDocumentType(docType)
		line.LineType = PurchaseLineType(lineType)
		out = append(out, line)
	}
	return out, classify(rows.Err())
}

// Customers returns the whole customer master.
func (r *Repository) Customers(ctx context.Context) ([]Customer, error) {
	query := fmt.Sprintf(`SELECT "No_", "Name", "City", "Country_Region Code" FROM %s`, r.table("Customer"))
	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.City, &c.CountryCode); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, classify(rows.Err())
}

// PackageLines returns serials packed on posted sales shipments in [from, to] for the given items.
func (r *Repository) PackageLines(ctx context.Context, from, to time.Time, itemIDs []string) ([]PackageLine, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`SELECT "No_", "Serial No_", "Packing Date", "Type", "Source Type", "Source Subtype", "Posted Source ID"
FROM %s
WHERE "Type" = $1 AND "Source Type" = $2 AND "Source Subtype" = $3
	AND "Packing Date" >= $4 AND "Packing Date" <= $5 AND "No_" = ANY($6)`, r.table("Posted Package Line"))
	rows, err := r.query(ctx, query, PackageTypeItem, PackageSourceSalesLine, PackageSourceSubtypeOrder, from, to, itemIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PackageLine
	for rows.Next() {
		var line PackageLine
		if err := rows.Scan(&line.ItemID, &line.SerialNo, &line.PackingDate, &line.Type, &line.SourceType,
			&line.SourceSubtype, &line.PostedSourceID); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, classify(rows.Err())
}
