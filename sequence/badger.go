// ABOUTME: Badger-backed allocator for single-node deployments
// ABOUTME: One persistent badger.Sequence per counter
package sequence

import (
	"context"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v3"
)

// badgerBandwidth is how many values a Sequence leases per disk write.
const badgerBandwidth = 100

// BadgerAllocator keeps counters in an embedded Badger database. It is safe
// for concurrent use within one process. A crash before Close skips the rest
// of the leased range.
type BadgerAllocator struct {
	db *badger.DB

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

// NewBadgerAllocator wraps an open Badger database.
func NewBadgerAllocator(db *badger.DB) *BadgerAllocator {
	return &BadgerAllocator{db: db, seqs: make(map[string]*badger.Sequence)}
}

// OpenBadgerAllocator opens (or creates) a Badger database at dir.
func OpenBadgerAllocator(dir string) (*BadgerAllocator, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return NewBadgerAllocator(db), nil
}

// Next returns the next value for counter, starting at 1.
func (a *BadgerAllocator) Next(ctx context.Context, counter string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	seq, ok := a.seqs[counter]
	if !ok {
		var err error
		seq, err = a.db.GetSequence([]byte("counter/"+counter), badgerBandwidth)
		if err != nil {
			return 0, fmt.Errorf("badger sequence %s: %w", counter, err)
		}
		a.seqs[counter] = seq
	}

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("badger next %s: %w", counter, err)
	}
	// Badger sequences start at 0
	return int64(n) + 1, nil
}

// Close releases leased ranges and closes the database.
func (a *BadgerAllocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, seq := range a.seqs {
		if err := seq.Release(); err != nil {
			return fmt.Errorf("release %s: %w", name, err)
		}
		delete(a.seqs, name)
	}
	return a.db.Close()
}
