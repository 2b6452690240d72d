// ABOUTME: Atomic, monotonic counters used to mint contract numbers
// ABOUTME: Defines the Allocator contract and the contract-number formatter
package sequence

import (
	"context"
	"fmt"
	"strconv"
)

// Allocator hands out increasing integers per counter name. Implementations
// must be safe for concurrent use and never return the same value twice for
// one counter.
type Allocator interface {
	Next(ctx context.Context, counter string) (int64, error)
}

// AllocatorFunc adapts a function to the Allocator interface.
type AllocatorFunc func(ctx context.Context, counter string) (int64, error)

// Next calls f.
func (f AllocatorFunc) Next(ctx context.Context, counter string) (int64, error) {
	return f(ctx, counter)
}

// Format renders allocated values as contract numbers.
type Format struct {
	Prefix string
	// Width zero-pads the numeric part; 0 leaves it unpadded.
	Width int
}

// Render formats n, e.g. Format{Prefix: "GB-", Width: 5}.Render(42) is "GB-00042".
func (f Format) Render(n int64) string {
	if f.Width > 0 {
		return fmt.Sprintf("%s%0*d", f.Prefix, f.Width, n)
	}
	return f.Prefix + strconv.FormatInt(n, 10)
}

// NextNumber allocates the next value from a and renders it.
func NextNumber(ctx context.Context, a Allocator, counter string, f Format) (string, error) {
	n, err := a.Next(ctx, counter)
	if err != nil {
		return "", fmt.Errorf("allocate %s: %w", counter, err)
	}
	return f.Render(n), nil
}
