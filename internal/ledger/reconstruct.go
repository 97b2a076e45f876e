package ledger

import "fmt"

// Reconstruct walks the ledger backwards from the on-hand snapshot and returns
// every transaction with the balance right after it. Output order and length
// match txns; the input is not modified.
//
// Each item keeps a running sum of the quantities posted after the current
// row, so a single right-to-left pass is enough.
func Reconstruct(txns []Transaction, onHand map[string]int64) ([]Reconciled, error) {
	out := make([]Reconciled, len(txns))
	later := make(map[string]int64)
	for i := len(txns) - 1; i >= 0; i-- {
		tx := txns[i]
		anchor, ok := onHand[tx.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s", ErrMissingOnHand, tx.ItemID)
		}
		out[i] = Reconciled{Transaction: tx, BalanceAfter: anchor - later[tx.ItemID]}
		later[tx.ItemID] += tx.Quantity
	}
	return out, nil
}
