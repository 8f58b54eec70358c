package docstore

import (
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerBackend persists document blocks in an embedded badger database
// under <data_dir>/badger (spec.md §6). badger was chosen over the
// teacher's own flat-JSON-file convention because this package needs
// ordered prefix iteration to reassemble a document's change log in
// sequence order, which a directory of files gives only by re-parsing
// names; jinterlante1206-AleutianLocal already exercises badger/v4 for
// exactly this local-metadata-store shape of workload.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (creating if absent) a badger database at dir.
func OpenBadger(dir string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store %q: %w", dir, err)
	}
	return &BadgerBackend{db: db}, nil
}

func blockKey(documentID, blockID string) []byte {
	return []byte(documentID + "/" + blockID)
}

// SaveBlock writes one block inside a synchronous transaction; badger's
// Update commits (and, per its WAL, fsyncs) before returning, satisfying
// "save is durable after return".
func (b *BadgerBackend) SaveBlock(documentID, blockID string, data []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(documentID, blockID), data)
	})
	if err != nil {
		return fmt.Errorf("save block %s/%s: %w", documentID, blockID, err)
	}
	return nil
}

// LoadBlocks reassembles every block saved for documentID via a prefix
// scan; the caller is responsible for ordering by blockID.
func (b *BadgerBackend) LoadBlocks(documentID string) (map[string][]byte, error) {
	prefix := []byte(documentID + "/")
	out := make(map[string][]byte)

	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := string(item.Key())
			blockID := key[len(prefix):]
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			out[blockID] = val
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load blocks for %q: %w", documentID, err)
	}
	return out, nil
}

// Close releases the underlying badger database.
func (b *BadgerBackend) Close() error {
	return b.db.Close()
}
