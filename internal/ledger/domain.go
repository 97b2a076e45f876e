package ledger

import (
	"errors"
	"strconv"
	"time"
)

// EntryType mirrors the item ledger "Entry Type" option codes.
type EntryType int

const (
	// EntryPurchase records goods received from a vendor.
	EntryPurchase EntryType = 0
	// EntrySale records goods shipped to or returned by a customer.
	EntrySale EntryType = 1
	// EntryPositiveAdjustment is a manual stock increase.
	EntryPositiveAdjustment EntryType = 2
	// EntryNegativeAdjustment is a manual stock decrease.
	EntryNegativeAdjustment EntryType = 3
	EntryTransfer           EntryType = 4
	EntryConsumption        EntryType = 5
	EntryOutput             EntryType = 6
)

func (e EntryType) String() string {
	switch e {
	case EntryPurchase:
		return "Purchase"
	case EntrySale:
		return "Sale"
	case EntryPositiveAdjustment:
		return "Positive Adjmt."
	case EntryNegativeAdjustment:
		return "Negative Adjmt."
	case EntryTransfer:
		return "Transfer"
	case EntryConsumption:
		return "Consumption"
	case EntryOutput:
		return "Output"
	default:
		return "EntryType(" + strconv.Itoa(int(e)) + ")"
	}
}

// DocumentType mirrors the item ledger "Document Type" option codes. Only the
// codes the report classifies on are named; anything else is carried verbatim.
type DocumentType int

const (
	DocumentNone DocumentType = 0
	// DocumentOrder marks postings originating from a sales order shipment.
	DocumentOrder DocumentType = 1
	// DocumentCreditMemo marks customer returns booked through a credit memo.
	DocumentCreditMemo DocumentType = 3
	// DocumentInvoice marks purchase receipts booked against a vendor invoice.
	DocumentInvoice DocumentType = 5
)

func (d DocumentType) String() string {
	switch d {
	case DocumentNone:
		return "None"
	case DocumentOrder:
		return "Order"
	case DocumentCreditMemo:
		return "Credit Memo"
	case DocumentInvoice:
		return "Invoice"
	default:
		return "DocumentType(" + strconv.Itoa(int(d)) + ")"
	}
}

// ShipmentSeries is the number series tag stamped on posted sales shipments.
const ShipmentSeries = "S-SHPT"

// Transaction is one item ledger entry as fetched. Quantity is signed: positive
// values increase stock.
type Transaction struct {
	ItemID       string
	PostingDate  time.Time
	EntryType    EntryType
	SourceID     string
	DocumentNo   string
	LocationCode string
	Quantity     int64
	NumberSeries string
	DocumentType DocumentType
}

// IsReceipt reports purchase postings invoiced by the vendor.
func (t Transaction) IsReceipt() bool {
	return t.EntryType == EntryPurchase && t.DocumentType == DocumentInvoice
}

// IsSellThru reports sales postings shipped against an order.
func (t Transaction) IsSellThru() bool {
	return t.EntryType == EntrySale && t.DocumentType == DocumentOrder
}

// IsCreditMemo reports sales postings reversed through a credit memo.
func (t Transaction) IsCreditMemo() bool {
	return t.EntryType == EntrySale && t.DocumentType == DocumentCreditMemo
}

// IsAdjustment reports manual positive or negative adjustments.
func (t Transaction) IsAdjustment() bool {
	return t.EntryType == EntryPositiveAdjustment || t.EntryType == EntryNegativeAdjustment
}

// IsShipment reports postings created by a posted sales shipment.
func (t Transaction) IsShipment() bool {
	return t.NumberSeries == ShipmentSeries
}

// PostedOnOrBefore compares calendar dates only.
func (t Transaction) PostedOnOrBefore(day time.Time) bool {
	return !dateOf(t.PostingDate).After(dateOf(day))
}

// Reconciled is a Transaction together with the stock level right after it.
type Reconciled struct {
	Transaction
	BalanceAfter int64
}

// BalanceBefore is the stock level immediately preceding the transaction.
func (r Reconciled) BalanceBefore() int64 {
	return r.BalanceAfter - r.Quantity
}

// ErrMissingOnHand is returned when a ledger entry references an item that has
// no on-hand snapshot to anchor its balances.
var ErrMissingOnHand = errors.New("ledger: missing on-hand quantity")

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
