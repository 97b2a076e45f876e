package sellthru

import (
	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

// itemActivity accumulates one item's ledger activity in a single ledger pass.
type itemActivity struct {
	seen       bool
	opening    int64
	hasWeek    bool
	warehouse  int64
	received   int64
	sold       int64
	adjusted   int64
	creditMemo int64
}

func (a *itemActivity) add(tx ledger.Reconciled, wk week.Range) {
	if !a.seen {
		a.seen = true
		a.opening = tx.BalanceBefore()
	}
	if !tx.PostedOnOrBefore(wk.End) {
		return
	}
	a.hasWeek = true
	a.warehouse = tx.BalanceAfter
	switch {
	case tx.IsReceipt():
		a.received += tx.Quantity
	case tx.IsSellThru():
		a.sold -= tx.Quantity
	case tx.IsCreditMemo():
		a.creditMemo += tx.Quantity
	case tx.IsAdjustment():
		a.adjusted += tx.Quantity
	}
}

// SummarizeItems builds one Summary row per tracked item, in tracked order.
//
// Opening inventory is the balance before the item's first transaction in the
// fetched window, which starts on the week's Monday. It is not re-anchored to
// the week itself.
func SummarizeItems(tracked []Item, txns []ledger.Reconciled, poLines []PurchaseOrderLine, wk week.Range) []SummaryRow {
	activity := make(map[string]*itemActivity, len(tracked))
	for _, item := range tracked {
		activity[item.ID] = &itemActivity{}
	}
	for _, tx := range txns {
		if acc, ok := activity[tx.ItemID]; ok {
			acc.add(tx, wk)
		}
	}
	inTransit := OutstandingByItem(poLines)

	label := wk.Label()
	rows := make([]SummaryRow, 0, len(tracked))
	for _, item := range tracked {
		acc := activity[item.ID]
		row := SummaryRow{
			Week:             label,
			SalesPack:        item.Description,
			ProductCode:      item.VendorItemCode,
			OpeningInventory: item.OnHand,
			InTransit:        inTransit[item.ID],
		}
		if acc.seen {
			row.OpeningInventory = acc.opening
		}
		if acc.hasWeek {
			row.GoodsReceived = acc.received
			row.SellThru = acc.sold
			row.Adjustment = acc.adjusted + acc.creditMemo
			row.Warehouse = acc.warehouse
		}
		row.ClosingInventory = row.Warehouse + row.InTransit
		rows = append(rows, row)
	}
	return rows
}

// OutstandingByItem sums open purchase quantities per item.
func OutstandingByItem(lines []PurchaseOrderLine) map[string]int64 {
	out := make(map[string]int64)
	for _, line := range lines {
		out[line.ItemID] += line.OutstandingQuantity
	}
	return out
}
