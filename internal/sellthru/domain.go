package sellthru

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jegsons/sellthru/internal/shared"
	"github.com/jegsons/sellthru/internal/week"
)

// Item is a row from the item master. OnHand is the stock snapshot taken now.
type Item struct {
	ID             string
	Description    string
	VendorID       string
	VendorItemCode string
	OnHand         int64
	ProductGroup   string
	ItemCategory   string
}

const (
	// TrackedProductGroup and TrackedItemCategory select new handsets of the brand.
	TrackedProductGroup = "NOKIA"
	TrackedItemCategory = "PHONE-NEW"
)

// IsTracked reports whether the item belongs in the weekly report for vendorID.
func (i Item) IsTracked(vendorID string) bool {
	return i.VendorID == vendorID &&
		i.VendorItemCode != "" &&
		i.ProductGroup == TrackedProductGroup &&
		i.ItemCategory == TrackedItemCategory
}

// TrackedItems filters items down to the report scope, keeping fetch order.
func TrackedItems(items []Item, vendorID string) []Item {
	tracked := make([]Item, 0, len(items))
	for _, item := range items {
		if item.IsTracked(vendorID) {
			tracked = append(tracked, item)
		}
	}
	return tracked
}

// OnHandByItem indexes the snapshot quantities by item id.
func OnHandByItem(items []Item) map[string]int64 {
	out := make(map[string]int64, len(items))
	for _, item := range items {
		out[item.ID] = item.OnHand
	}
	return out
}

// PurchaseDocumentType and PurchaseLineType are purchase line option codes.
type (
	PurchaseDocumentType int
	PurchaseLineType     int
)

const (
	PurchaseDocumentOrder PurchaseDocumentType = 1
	PurchaseLineItem      PurchaseLineType     = 2
)

// PurchaseOrderLine is an open purchase order line; OutstandingQuantity is
// what has been ordered but not yet received.
type PurchaseOrderLine struct {
	DocumentType        PurchaseDocumentType
	VendorID            string
	LineType            PurchaseLineType
	ItemID              string
	OutstandingQuantity int64
	OrderDate           time.Time
}

// Customer is a row from the customer master.
type Customer struct {
	ID          string
	Name        string
	City        string
	CountryCode string
}

// Package line option codes identifying serials packed on a posted sales shipment.
const (
	PackageTypeItem           = 2
	PackageSourceSalesLine    = 36
	PackageSourceSubtypeOrder = 1
)

// Alias applied to the returns desk customer on the serial sheet.
const (
	ReturnCenterCustomerName = "RETURN CENTER"
	ReturnCenterDisplayName  = "WALMART DROPSHIP"
)

// PackageLine records one serial number packed into a posted shipment.
type PackageLine struct {
	ItemID         string
	SerialNo       string
	PackingDate    time.Time
	Type           int
	SourceType     int
	SourceSubtype  int
	PostedSourceID string
}

// IsPostedShipmentItem reports lines for items packed on a posted sales shipment.
func (p PackageLine) IsPostedShipmentItem() bool {
	return p.Type == PackageTypeItem &&
		p.SourceType == PackageSourceSalesLine &&
		p.SourceSubtype == PackageSourceSubtypeOrder
}

// SummaryRow is one line of the "Summary" sheet.
type SummaryRow struct {
	Week             string `json:"week"`
	SalesPack        string `json:"sales_pack"`
	ProductCode      string `json:"product_code"`
	OpeningInventory int64  `json:"opening_inventory"`
	GoodsReceived    int64  `json:"goods_received"`
	SellThru         int64  `json:"sell_thru"`
	Adjustment       int64  `json:"adjustment"`
	ClosingInventory int64  `json:"closing_inventory"`
	InTransit        int64  `json:"in_transit"`
	Warehouse        int64  `json:"warehouse"`
}

// BreakdownRow is one line of the "Sales breakdown" sheet. Customer fields stay
// nil when the ship-to customer is unknown.
type BreakdownRow struct {
	Week         string  `json:"week"`
	CustomerID   string  `json:"pos_id"`
	CustomerName *string `json:"pos_name"`
	City         *string `json:"city"`
	Country      *string `json:"country"`
	Model        string  `json:"model"`
	ProductCode  string  `json:"product_code"`
	VolumeSales  int64   `json:"volume_sales"`
}

// SerialRow is one line of the "Imei Sell thru" sheet.
type SerialRow struct {
	StoreName *string `json:"retail_store_name"`
	StoreID   *string `json:"retail_store_id"`
	Serial    string  `json:"imei"`
}

// Sheet names handed to the renderer.
const (
	SheetSummary   = "Summary"
	SheetBreakdown = "Sales breakdown"
	SheetSerials   = "Imei Sell thru"
)

// Request is the stateless input of a report run.
type Request struct {
	Year     int    `json:"year"`
	Week     int    `json:"week"`
	VendorID string `json:"vendor" validate:"required,max=20"`
}

// Normalise trims and upper-cases the vendor id the way the ERP stores codes.
func (r Request) Normalise() Request {
	r.VendorID = strings.ToUpper(strings.TrimSpace(r.VendorID))
	return r
}

// LockKey scopes concurrent runs to one vendor week.
func (r Request) LockKey() string {
	return shared.ReportLockKey(r.VendorID, r.Year, r.Week)
}

// Report is the finished output of one run: three tables plus context.
type Report struct {
	RunID       string         `json:"run_id"`
	VendorID    string         `json:"vendor"`
	Week        week.Range     `json:"week"`
	Summary     []SummaryRow   `json:"summary"`
	Breakdown   []BreakdownRow `json:"sales_breakdown"`
	Serials     []SerialRow    `json:"imei_sell_thru"`
	GeneratedAt time.Time      `json:"generated_at"`
}

// FileName follows the naming the vendor portal expects.
func FileName(prefix string, r week.Range) string {
	return fmt.Sprintf("%s_SALES_Inventory_Weekly_%d W%d.xlsx", prefix, r.Year, r.Week)
}

// Artifact is a rendered report document.
type Artifact struct {
	Data        []byte
	ContentType string
}

// Result describes a stored report artefact.
type Result struct {
	RunID          string `json:"run_id"`
	FileName       string `json:"file_name"`
	Location       string `json:"location"`
	Size           int64  `json:"size"`
	SummaryRows    int    `json:"summary_rows"`
	BreakdownRows  int    `json:"breakdown_rows"`
	SerialRows     int    `json:"serial_rows"`
	TotalSellThru  int64  `json:"total_sell_thru"`
	TotalWarehouse int64  `json:"total_warehouse"`
}

var (
	// ErrReportInProgress is returned when the same vendor week is already being generated.
	ErrReportInProgress = errors.New("sellthru: report generation already in progress")
	// ErrInvalidRequest wraps request validation failures.
	ErrInvalidRequest = errors.New("sellthru: invalid request")
)

func stringPtr(v string) *string {
	return &v
}
