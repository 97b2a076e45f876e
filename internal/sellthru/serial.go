package sellthru

import (
	"github.com/jegsons/sellthru/internal/ledger"
	"github.com/jegsons/sellthru/internal/week"
)

// MapSerialSellThrough attaches the ship-to store to every serial packed on a
// posted shipment during the week. Lines that cannot be traced to a shipment
// or customer are kept with nil store fields.
func MapSerialSellThrough(lines []PackageLine, txns []ledger.Reconciled, tracked []Item, customers []Customer, wk week.Range) []SerialRow {
	items := indexItems(tracked)

	shipTo := make(map[string]string)
	for _, tx := range weekShipments(txns, items, wk) {
		if _, ok := shipTo[tx.DocumentNo]; !ok {
			shipTo[tx.DocumentNo] = tx.SourceID
		}
	}
	byID := indexCustomers(customers)

	rows := make([]SerialRow, 0, len(lines))
	for _, line := range lines {
		if !line.IsPostedShipmentItem() || !wk.Contains(line.PackingDate) {
			continue
		}
		if _, ok := items[line.ItemID]; !ok {
			continue
		}
		row := SerialRow{Serial: line.SerialNo}
		if sourceID, ok := shipTo[line.PostedSourceID]; ok {
			row.StoreID = stringPtr(sourceID)
			if c, ok := byID[sourceID]; ok {
				row.StoreName = stringPtr(storeName(c.Name))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func storeName(name string) string {
	if name == ReturnCenterCustomerName {
		return ReturnCenterDisplayName
	}
	return name
}
