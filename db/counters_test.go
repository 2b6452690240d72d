// ABOUTME: Tests for named counters
// ABOUTME: Covers monotonic and concurrent allocation
package db

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterNextIsMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository(setupTestDB(t))

	cur, err := repo.Current(ctx, "contractNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(0), cur)

	for want := int64(1); want <= 3; want++ {
		got, err := repo.Next(ctx, "contractNumber")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other, err := repo.Next(ctx, "invoice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)

	cur, err = repo.Current(ctx, "contractNumber")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cur)
}

func TestCounterNextConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewCounterRepository(setupTestDB(t))

	const workers = 20
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := repo.Next(ctx, "contractNumber")
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing %d", i)
	}
}
