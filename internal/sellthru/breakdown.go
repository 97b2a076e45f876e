package sellthru

import (
	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

// weekShipments returns shipment postings of tracked items dated within the
// report week, in ledger order.
func weekShipments(txns []ledger.Reconciled, tracked map[string]Item, wk week.Range) []ledger.Reconciled {
	out := make([]ledger.Reconciled, 0)
	for _, tx := range txns {
		if _, ok := tracked[tx.ItemID]; !ok {
			continue
		}
		if tx.IsShipment() && tx.PostedOnOrBefore(wk.End) {
			out = append(out, tx)
		}
	}
	return out
}

func indexItems(items []Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

func indexCustomers(customers []Customer) map[string]Customer {
	out := make(map[string]Customer, len(customers))
	for _, c := range customers {
		if _, dup := out[c.ID]; !dup {
			out[c.ID] = c
		}
	}
	return out
}

type breakdownKey struct {
	productCode string
	customerID  string
}

// SummarizeSalesBreakdown groups the week's shipments by product code and
// ship-to customer. Groups keep first-seen order; volume is reported as a
// positive unit count.
func SummarizeSalesBreakdown(txns []ledger.Reconciled, tracked []Item, customers []Customer, wk week.Range) []BreakdownRow {
	items := indexItems(tracked)
	descriptions := make(map[string]string, len(tracked))
	for _, item := range tracked {
		if _, ok := descriptions[item.VendorItemCode]; !ok {
			descriptions[item.VendorItemCode] = item.Description
		}
	}

	var order []breakdownKey
	totals := make(map[breakdownKey]int64)
	for _, tx := range weekShipments(txns, items, wk) {
		key := breakdownKey{productCode: items[tx.ItemID].VendorItemCode, customerID: tx.SourceID}
		if _, ok := totals[key]; !ok {
			order = append(order, key)
		}
		totals[key] += tx.Quantity
	}

	byID := indexCustomers(customers)
	label := wk.Label()
	rows := make([]BreakdownRow, 0, len(order))
	for _, key := range order {
		row := BreakdownRow{
			Week:        label,
			CustomerID:  key.customerID,
			Model:       descriptions[key.productCode],
			ProductCode: key.productCode,
			VolumeSales: -totals[key],
		}
		if c, ok := byID[key.customerID]; ok {
			row.CustomerName = stringPtr(c.Name)
			row.City = stringPtr(c.City)
			row.Country = stringPtr(c.CountryCode)
		}
		rows = append(rows, row)
	}
	return rows
}
