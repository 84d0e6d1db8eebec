package yahoo

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

type Config struct {
	BaseURL string
	// BatchSize caps symbols per request; the v7 quote endpoint handles
	// comfortably up to 50.
	BatchSize  int
	BatchDelay time.Duration
}

type Provider struct {
	cfg    Config
	client *httpx.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(cfg Config, hc *httpx.Client) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 120 * time.Millisecond
	}
	return &Provider{cfg: cfg, client: hc, sleep: sleepCtx}
}

func (p *Provider) Name() string { return "yahoo" }

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string  `json:"symbol"`
			RegularMarketPrice         float64 `json:"regularMarketPrice"`
			RegularMarketOpen          float64 `json:"regularMarketOpen"`
			RegularMarketDayHigh       float64 `json:"regularMarketDayHigh"`
			RegularMarketDayLow        float64 `json:"regularMarketDayLow"`
			RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
			RegularMarketVolume        int64   `json:"regularMarketVolume"`
			RegularMarketTime          int64   `json:"regularMarketTime"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

func (p *Provider) Fetch(ctx context.Context, symbols []string) (providers.Result, error) {
	res := providers.Result{
		Quotes:   make(map[string]models.Quote, len(symbols)),
		Rejected: make(map[string]error),
	}
	if len(symbols) == 0 {
		return res, nil
	}

	var firstErr error
	batches := providers.Chunk(providers.Dedupe(symbols), p.cfg.BatchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.BatchDelay); err != nil {
				if firstErr == nil {
					firstErr = providers.Unavailablef(p.Name(), err)
				}
				break
			}
		}
		if err := p.fetchBatch(ctx, batch, &res); err != nil {
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

func (p *Provider) fetchBatch(ctx context.Context, batch []string, res *providers.Result) error {
	u := fmt.Sprintf("%s?symbols=%s", p.cfg.BaseURL, url.QueryEscape(strings.Join(batch, ",")))
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
		for _, s := range batch {
			res.Rejected[s] = providers.Rejectedf(p.Name(), s, fmt.Sprintf("status %d", resp.StatusCode))
		}
		return nil
	}

	var payload quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return providers.Unavailablef(p.Name(), fmt.Errorf("decode: %w", err))
	}
	if e := payload.QuoteResponse.Error; e != nil {
		return providers.Unavailablef(p.Name(), fmt.Errorf("%s: %s", e.Code, e.Description))
	}

	for _, r := range payload.QuoteResponse.Result {
		asOf := time.Now().UTC()
		if r.RegularMarketTime > 0 {
			asOf = time.Unix(r.RegularMarketTime, 0).UTC()
		}
		res.Quotes[r.Symbol] = models.Quote{
			Symbol:        r.Symbol,
			Price:         r.RegularMarketPrice,
			Open:          r.RegularMarketOpen,
			High:          r.RegularMarketDayHigh,
			Low:           r.RegularMarketDayLow,
			PreviousClose: r.RegularMarketPreviousClose,
			Volume:        r.RegularMarketVolume,
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
