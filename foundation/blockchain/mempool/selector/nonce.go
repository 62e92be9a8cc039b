package selector

import (
	"sort"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
)

// nonceSelect returns transactions row by row, where a row holds the next
// pending nonce of every sender. A row that does not fit entirely is sorted
// by fee before it is cut.
var nonceSelect = func(m map[database.Address][]database.Tx, howMany int) []database.Tx {
	if howMany < 0 {
		howMany = 0
		for _, txs := range m {
			howMany += len(txs)
		}
	}

	/*
		Alice: {Nonce: 2, Fee: 250}, {Nonce: 1, Fee: 150}
		Bob:   {Nonce: 2, Fee: 200}, {Nonce: 1, Fee: 75}
		Carol: {Nonce: 2, Fee: 75},  {Nonce: 1, Fee: 100}
	*/

	// Sort the transactions per sender by nonce.
	sortByNonce(m)

	/*
		Alice: {Nonce: 1, Fee: 150}, {Nonce: 2, Fee: 250}
		Bob:   {Nonce: 1, Fee: 75},  {Nonce: 2, Fee: 200}
		Carol: {Nonce: 1, Fee: 100}, {Nonce: 2, Fee: 75}
	*/

	// Pick the first transaction in the slice for each sender. Each iteration
	// represents a new row of selections. Keep doing that until all the
	// transactions have been selected.
	var rows [][]database.Tx
	for {
		var row []database.Tx
		for key := range m {
			if len(m[key]) > 0 {
				row = append(row, m[key][0])
				m[key] = m[key][1:]
			}
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}

	/*
		0: Alice {Nonce: 1, Fee: 150}, Bob {Nonce: 1, Fee: 75}, Carol {Nonce: 1, Fee: 100}
		1: Alice {Nonce: 2, Fee: 250}, Bob {Nonce: 2, Fee: 200}, Carol {Nonce: 2, Fee: 75}
	*/

	// Sort each row by fee unless we will take all transactions from that row
	// anyway. Then try to select the number of requested transactions.
	final := []database.Tx{}
done:
	for _, row := range rows {
		need := howMany - len(final)
		if len(row) > need {
			sort.Sort(byFee(row))
			final = append(final, row[:need]...)
			break done
		}
		final = append(final, row...)
	}

	/*
		howMany 4:
		Alice {Nonce: 1, Fee: 150}, Bob {Nonce: 1, Fee: 75}, Carol {Nonce: 1, Fee: 100}, Alice {Nonce: 2, Fee: 250}
	*/

	return final
}
