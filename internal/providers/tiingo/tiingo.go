package tiingo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"marketdash/backend-go/internal/models"
	"marketdash/backend-go/internal/providers"
	"marketdash/backend-go/internal/providers/httpx"
)

// Config for the Tiingo IEX adapter.
type Config struct {
	APIKey  string
	BaseURL string
	// SymbolMap translates request symbols into Tiingo's namespace
	// (e.g. "BTC-USD" -> "btcusd"). Unmapped symbols pass through.
	SymbolMap map[string]string
	// BatchSize caps tickers per request. Tiingo's IEX endpoint degrades
	// past 8 tickers, so that is the default.
	BatchSize int
	// BatchDelay is the fixed pause between consecutive batch calls.
	BatchDelay time.Duration
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tiingo.com/iex"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 8
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 120 * time.Millisecond
	}
	return &Provider{cfg: cfg, client: hc, sleep: sleepCtx}
}

func (p *Provider) Name() string { return "tiingo" }

// iexQuote mirrors one element of the IEX endpoint's response array.
type iexQuote struct {
	Ticker    string  `json:"ticker"`
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	TngoLast  float64 `json:"tngoLast"`
	Last      float64 `json:"last"`
	PrevClose float64 `json:"prevClose"`
	Volume    int64   `json:"volume"`
}

func (p *Provider) Fetch(ctx context.Context, symbols []string) (providers.Result, error) {
	res := providers.Result{
		Quotes:   make(map[string]models.Quote, len(symbols)),
		Rejected: make(map[string]error),
	}
	if len(symbols) == 0 {
		return res, nil
	}

	// Translate into Tiingo's namespace, remembering the way back.
	requested := providers.Dedupe(symbols)
	upstream := make([]string, 0, len(requested))
	back := make(map[string]string, len(requested))
	for _, s := range requested {
		u := s
		if v := p.cfg.SymbolMap[s]; v != "" {
			u = v
		}
		upstream = append(upstream, u)
		back[strings.ToUpper(u)] = s
	}

	var firstErr error
	batches := providers.Chunk(upstream, p.cfg.BatchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.BatchDelay); err != nil {
				if firstErr == nil {
					firstErr = providers.Unavailablef(p.Name(), err)
				}
				break
			}
		}
		if err := p.fetchBatch(ctx, batch, back, &res); err != nil {
			log.WithFields(log.Fields{"provider": p.Name(), "batch": i, "err": err}).Warn("batch failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if len(res.Quotes) == 0 && len(res.Rejected) == 0 && firstErr != nil {
		return res, firstErr
	}
	return res, nil
}

func (p *Provider) fetchBatch(ctx context.Context, batch []string, back map[string]string, res *providers.Result) error {
	u := fmt.Sprintf("%s/?tickers=%s&token=%s",
		strings.TrimRight(p.cfg.BaseURL, "/"),
		url.QueryEscape(strings.Join(batch, ",")),
		url.QueryEscape(p.cfg.APIKey))

	resp, err := p.client.Get(ctx, u)
	if err != nil {
		return providers.Unavailablef(p.Name(), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		return providers.Unavailablef(p.Name(), fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		// Explicit refusal covers every ticker in the batch.
		for _, t := range batch {
			sym := back[strings.ToUpper(t)]
			res.Rejected[sym] = providers.Rejectedf(p.Name(), sym, fmt.Sprintf("status %d", resp.StatusCode))
		}
		return nil
	}

	var quotes []iexQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return providers.Unavailablef(p.Name(), fmt.Errorf("decode: %w", err))
	}

	now := time.Now().UTC()
	for _, q := range quotes {
		sym, ok := back[strings.ToUpper(q.Ticker)]
		if !ok {
			continue
		}
		price := q.TngoLast
		if price == 0 {
			price = q.Last
		}
		asOf := now
		if ts, err := time.Parse(time.RFC3339, q.Timestamp); err == nil {
			asOf = ts
		}
		vol := q.Volume
		res.Quotes[sym] = models.Quote{
			Symbol:        sym,
			Price:         price,
			Open:          q.Open,
			High:          q.High,
			Low:           q.Low,
			PreviousClose: q.PrevClose,
			Volume:        vol,
			AsOf:          asOf,
			Source:        p.Name(),
		}.Normalize()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
