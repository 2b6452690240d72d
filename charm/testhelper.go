// ABOUTME: Test utilities for creating isolated charm clients
// ABOUTME: Backs the client with in-memory BadgerDB so no server is needed

package charm

import (
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// memKV is a badger-backed stand-in for charm's kv.KV.
type memKV struct {
	db *badger.DB
}

func (m *memKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	return result, err
}

func (m *memKV) Set(key, value []byte) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (m *memKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

func (m *memKV) Sync() error { return nil }

func (m *memKV) Reset() error { return m.db.DropAll() }

// NewTestClient returns a client over an in-memory store. It is closed when
// the test ends.
func NewTestClient(t testing.TB) *Client {
	t.Helper()

	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("Failed to open badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return &Client{
		kv:     &memKV{db: db},
		config: &Config{Host: "localhost", AutoSync: false},
	}
}
