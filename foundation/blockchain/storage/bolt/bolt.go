// Package bolt implements the ability to read and write blocks to a bbolt
// database, indexing blocks by id and the main chain by height.
package bolt

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ardanlabs/zimcoin/foundation/blockchain/database"
	bolt "go.etcd.io/bbolt"
)

// FileName is the name of the database file created in the db path.
const FileName = "chain.db"

// Bucket names.
var (
	bucketBlocks  = []byte("blocks")  // block id -> block json
	bucketHeights = []byte("heights") // height (big endian) -> block id
)

// Bolt represents the serialization implementation for reading and storing
// blocks in a bbolt database. This implements the database.Storage interface.
type Bolt struct {
	db *bolt.DB
}

// New opens or creates the chain database in the specified directory.
func New(dbPath string) (*Bolt, error) {
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dbPath, FileName), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlocks, bucketHeights} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Close closes the database file.
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Write stores the block by id and makes it the main chain block at its
// height. The parent height must already be stored.
func (b *Bolt) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		heights := tx.Bucket(bucketHeights)

		if blockData.Height > 0 && heights.Get(heightKey(blockData.Height-1)) == nil {
			return fmt.Errorf("%w: missing parent of height %d", database.ErrBlockOutOfOrder, blockData.Height)
		}

		if err := tx.Bucket(bucketBlocks).Put(blockData.BlockID, data); err != nil {
			return err
		}

		return heights.Put(heightKey(blockData.Height), blockData.BlockID)
	})
}

// GetBlock returns the main chain block at the specified height.
func (b *Bolt) GetBlock(height uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketHeights).Get(heightKey(height))
		if id == nil {
			return fmt.Errorf("%w: height %d", database.ErrBlockNotFound, height)
		}

		data := tx.Bucket(bucketBlocks).Get(id)
		if data == nil {
			return fmt.Errorf("%w: id %x", database.ErrBlockNotFound, id)
		}

		return json.Unmarshal(data, &blockData)
	})

	return blockData, err
}

// GetBlockByID returns the stored block with the specified id, whether or not
// it is still on the main chain.
func (b *Bolt) GetBlockByID(id []byte) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBlocks).Get(id)
		if data == nil {
			return fmt.Errorf("%w: id %x", database.ErrBlockNotFound, id)
		}

		return json.Unmarshal(data, &blockData)
	})

	return blockData, err
}

// ForEach returns an iterator to walk through the main chain starting with
// the genesis block.
func (b *Bolt) ForEach() database.Iterator {
	return &boltIterator{store: b}
}

// Truncate removes the main chain entries from the specified height on. The
// blocks themselves stay addressable by id.
func (b *Bolt) Truncate(height uint64) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		heights := tx.Bucket(bucketHeights)

		var keys [][]byte
		c := heights.Cursor()
		for k, _ := c.Seek(heightKey(height)); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}

		for _, k := range keys {
			if err := heights.Delete(k); err != nil {
				return err
			}
		}

		return nil
	})
}

// Reset removes every block from the database.
func (b *Bolt) Reset() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketBlocks, bucketHeights} {
			if err := tx.DeleteBucket(bucket); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(bucket); err != nil {
				return err
			}
		}
		return nil
	})
}

// =============================================================================

// heightKey encodes the height so keys sort in height order.
func heightKey(height uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, height)
	return key
}

// boltIterator represents the iteration implementation for walking through
// the main chain. This implements the database Iterator interface.
type boltIterator struct {
	store   *Bolt  // Access to the bolt storage API.
	current uint64 // Current block height being iterated over.
	eoc     bool   // Represents the iterator is at the end of the chain.
}

// Next retrieves the next block from the database.
func (bi *boltIterator) Next() (database.BlockData, error) {
	if bi.eoc {
		return database.BlockData{}, database.ErrChainEnd
	}

	blockData, err := bi.store.GetBlock(bi.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		bi.eoc = true
		return database.BlockData{}, database.ErrChainEnd
	}

	bi.current++

	return blockData, err
}

// Done returns the end of chain value.
func (bi *boltIterator) Done() bool {
	return bi.eoc
}
