package providers

import (
	"context"
	"errors"
	"fmt"

	"marketdash/backend-go/internal/models"
)

// ErrUnavailable marks transient provider failures: network errors,
// timeouts, 5xx responses. The resolver moves on to the next provider in the
// chain when it sees this.
var ErrUnavailable = errors.New("provider unavailable")

// ErrRejected marks an explicit per-symbol refusal (unknown ticker, bad
// format). The symbol is not retried against the same provider but other
// providers still get a shot at it.
var ErrRejected = errors.New("symbol rejected by provider")

// Result holds everything a single adapter call produced. Quotes contains an
// entry for every symbol the provider answered; symbols it silently could not
// answer are simply absent. Rejected records explicit refusals.
type Result struct {
	Quotes   map[string]models.Quote
	Rejected map[string]error
}

// Adapter wraps one upstream market-data API behind the normalized Quote
// shape. A non-nil error means the call as a whole failed (ErrUnavailable);
// adapters never panic or leak raw transport errors across this boundary,
// and never write to any cache.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context, symbols []string) (Result, error)
}

// Unavailablef wraps err as an ErrUnavailable for provider name.
func Unavailablef(name string, err error) error {
	return fmt.Errorf("%s: %w: %w", name, ErrUnavailable, err)
}

// Rejectedf builds the per-symbol rejection entry for Result.Rejected.
func Rejectedf(name, symbol, reason string) error {
	return fmt.Errorf("%s: %w: %s %s", name, ErrRejected, symbol, reason)
}

// Chunk splits symbols into batches of at most size. A size <= 0 yields a
// single batch.
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 || len(symbols) <= size {
		if len(symbols) == 0 {
			return nil
		}
		return [][]string{symbols}
	}
	out := make([][]string, 0, (len(symbols)+size-1)/size)
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}

// Dedupe returns the unique symbols preserving first-seen order.
func Dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
