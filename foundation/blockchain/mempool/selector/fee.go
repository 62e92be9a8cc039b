package selector

import (
	"sort"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// feeSelect returns the transactions paying the highest fees regardless of
// how many transactions each sender has pending. The positions taken by a
// sender are then refilled with that sender's picks in nonce order.
var feeSelect = func(m map[database.Address][]database.Tx, howMany int) []database.Tx {

	// Flatten the pool and sort every transaction by fee.
	var all []database.Tx
	for _, txs := range m {
		all = append(all, txs...)
	}
	sort.Sort(byFee(all))

	if howMany >= 0 && len(all) > howMany {
		all = all[:howMany]
	}

	// Group the picks per sender in nonce order.
	picked := make(map[database.Address][]database.Tx)
	for _, tx := range all {
		from, err := tx.Sender()
		if err != nil {
			continue
		}
		picked[from] = append(picked[from], tx)
	}
	sortByNonce(picked)

	// Keep the fee ordered slots but hand each sender's slot to its lowest
	// remaining nonce.
	final := make([]database.Tx, 0, len(all))
	for _, tx := range all {
		from, err := tx.Sender()
		if err != nil {
			continue
		}
		final = append(final, picked[from][0])
		picked[from] = picked[from][1:]
	}

	return final
}
