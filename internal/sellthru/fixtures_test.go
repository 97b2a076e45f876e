package sellthru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

const testVendor = "HMDGLOBAL"

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

// testWeek is 2024 W11, Monday March 11 to Sunday March 17.
func testWeek(t *testing.T) week.Range {
	t.Helper()
	wk, err := week.Resolve(2024, 11, day(19))
	require.NoError(t, err)
	return wk
}

func phone(id, code, desc string, onHand int64) Item {
	return Item{
		ID:             id,
		Description:    desc,
		VendorID:       testVendor,
		VendorItemCode: code,
		OnHand:         onHand,
		ProductGroup:   TrackedProductGroup,
		ItemCategory:   TrackedItemCategory,
	}
}

func shipment(item, customer, doc string, qty int64, d int) ledger.Transaction {
	return ledger.Transaction{
		ItemID:       item,
		PostingDate:  day(d),
		EntryType:    ledger.EntrySale,
		SourceID:     customer,
		DocumentNo:   doc,
		Quantity:     qty,
		NumberSeries: ledger.ShipmentSeries,
		DocumentType: ledger.DocumentOrder,
	}
}

func receipt(item string, qty int64, d int) ledger.Transaction {
	return ledger.Transaction{
		ItemID:       item,
		PostingDate:  day(d),
		EntryType:    ledger.EntryPurchase,
		DocumentType: ledger.DocumentInvoice,
		Quantity:     qty,
	}
}

func reconcile(t *testing.T, txns []ledger.Transaction, items []Item) []ledger.Reconciled {
	t.Helper()
	out, err := ledger.Reconstruct(txns, OnHandByItem(items))
	require.NoError(t, err)
	return out
}
