package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketdash/backend-go/internal/providers"
	"marketdash/backend-go/internal/providers/httpx"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := New(Config{BaseURL: srv.URL}, httpx.New(2*time.Second))
	p.sleep = func(context.Context, time.Duration) error { return nil }
	return p
}

func TestFetchParsesQuoteResponse(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "AAPL,MSFT", r.URL.Query().Get("symbols"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":150,"regularMarketOpen":149,"regularMarketDayHigh":151,"regularMarketDayLow":148,"regularMarketPreviousClose":148.5,"regularMarketVolume":1000,"regularMarketTime":1772378000},
			{"symbol":"MSFT","regularMarketPrice":400,"regularMarketPreviousClose":0,"regularMarketVolume":500}
		],"error":null}}`))
	})

	res, err := p.Fetch(context.Background(), []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 2)

	aapl := res.Quotes["AAPL"]
	require.Equal(t, "yahoo", aapl.Source)
	require.InDelta(t, 1.0101, aapl.ChangePct, 0.001)
	require.Equal(t, time.Unix(1772378000, 0).UTC(), aapl.AsOf)

	msft := res.Quotes["MSFT"]
	require.Zero(t, msft.ChangePct, "zero previous close must yield zero change percent")
}

func TestFetchOmitsUnansweredSymbols(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":150,"regularMarketPreviousClose":148.5}],"error":null}}`))
	})

	res, err := p.Fetch(context.Background(), []string{"AAPL", "ZZZZ"})
	require.NoError(t, err)
	require.Contains(t, res.Quotes, "AAPL")
	require.NotContains(t, res.Quotes, "ZZZZ", "gaps are detected by set difference, not placeholders")
}

func TestFetchUpstreamErrorIsUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := p.Fetch(context.Background(), []string{"AAPL"})
	require.ErrorIs(t, err, providers.ErrUnavailable)
}

func TestFetchTimeoutIsUnavailable(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	p.client = httpx.New(50 * time.Millisecond)

	_, err := p.Fetch(context.Background(), []string{"AAPL"})
	require.ErrorIs(t, err, providers.ErrUnavailable, "timeout is a cause of unavailability, not a distinct kind")
}
