package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketdash/backend-go/internal/models"
	"marketdash/backend-go/internal/providers"
)

// fakeAdapter answers the symbols it knows, rejects the ones listed in
// reject, and fails the whole call when down is set.
type fakeAdapter struct {
	name   string
	quotes map[string]models.Quote
	reject map[string]struct{}
	down   bool

	calls [][]string
	log   *[]string
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, symbols []string) (providers.Result, error) {
	if f.log != nil {
		*f.log = append(*f.log, f.name)
	}
	f.calls = append(f.calls, append([]string(nil), symbols...))
	if f.down {
		return providers.Result{}, providers.Unavailablef(f.name, errors.New("connection refused"))
	}
	res := providers.Result{
		Quotes:   make(map[string]models.Quote),
		Rejected: make(map[string]error),
	}
	for _, s := range symbols {
		if _, ok := f.reject[s]; ok {
			res.Rejected[s] = providers.Rejectedf(f.name, s, "unknown ticker")
			continue
		}
		if q, ok := f.quotes[s]; ok {
			res.Quotes[s] = q
		}
	}
	return res, nil
}

func quote(sym, source string, price, prev float64) models.Quote {
	return models.Quote{
		Symbol:        sym,
		Price:         price,
		PreviousClose: prev,
		AsOf:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Source:        source,
	}.Normalize()
}

func TestResolveFallsBackInConfiguredOrder(t *testing.T) {
	var order []string
	a := &fakeAdapter{name: "a", down: true, log: &order}
	b := &fakeAdapter{name: "b", quotes: map[string]models.Quote{"AAPL": quote("AAPL", "b", 150, 148.5)}, log: &order}

	res, err := NewResolver(a, b).Resolve(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, order, "providers must be tried strictly in chain order")
	require.Equal(t, "b", res.Quotes["AAPL"].Source)
	require.InDelta(t, 1.0101, res.Quotes["AAPL"].ChangePct, 0.001)
	require.Empty(t, res.Unsatisfied)
}

func TestResolveStopsEarlyWhenSatisfied(t *testing.T) {
	a := &fakeAdapter{name: "a", quotes: map[string]models.Quote{"AAPL": quote("AAPL", "a", 150, 148.5)}}
	b := &fakeAdapter{name: "b", quotes: map[string]models.Quote{"AAPL": quote("AAPL", "b", 151, 148.5)}}

	res, err := NewResolver(a, b).Resolve(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	require.Equal(t, "a", res.Quotes["AAPL"].Source)
	require.Empty(t, b.calls, "second provider must not be called once the set is satisfied")
}

func TestResolveOnlyAsksForRemainingSymbols(t *testing.T) {
	a := &fakeAdapter{name: "a", quotes: map[string]models.Quote{"AAPL": quote("AAPL", "a", 150, 148.5)}}
	b := &fakeAdapter{name: "b", quotes: map[string]models.Quote{"MSFT": quote("MSFT", "b", 400, 395)}}

	res, err := NewResolver(a, b).Resolve(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 2)
	require.Equal(t, [][]string{{"MSFT"}}, b.calls, "satisfied symbols must not be re-requested")
	require.Equal(t, "a+b", res.Source)
}

func TestResolvePartialSatisfaction(t *testing.T) {
	a := &fakeAdapter{name: "a", down: true}
	b := &fakeAdapter{name: "b",
		quotes: map[string]models.Quote{"AAPL": quote("AAPL", "b", 150, 148.5)},
		reject: map[string]struct{}{"ZZZZ": {}},
	}

	res, err := NewResolver(a, b).Resolve(context.Background(), []string{"AAPL", "ZZZZ"})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 1)
	require.Contains(t, res.Quotes, "AAPL")
	require.NotContains(t, res.Quotes, "ZZZZ", "unsatisfied symbols must not appear as placeholder quotes")
	require.Equal(t, []string{"ZZZZ"}, res.Unsatisfied)
}

func TestResolveTotalFailure(t *testing.T) {
	a := &fakeAdapter{name: "a", down: true}
	b := &fakeAdapter{name: "b", down: true}

	res, err := NewResolver(a, b).Resolve(context.Background(), []string{"AAPL"})
	require.ErrorIs(t, err, providers.ErrUnavailable)
	require.Empty(t, res.Quotes)
	require.Equal(t, []string{"AAPL"}, res.Unsatisfied)
}

func TestResolveDedupesRequestedSymbols(t *testing.T) {
	a := &fakeAdapter{name: "a", quotes: map[string]models.Quote{"AAPL": quote("AAPL", "a", 150, 148.5)}}

	res, err := NewResolver(a).Resolve(context.Background(), []string{"AAPL", "AAPL"})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"AAPL"}}, a.calls)
	require.Len(t, res.Quotes, 1)
}
