package polygon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	polymodels "github.com/polygon-io/client-go/rest/models"
	log "github.com/sirupsen/logrus"

	"marketdash/backend-go/internal/models"
	"marketdash/backend-go/internal/providers"
)

type Config struct {
	APIKey     string
	BatchSize  int
	BatchDelay time.Duration
}

// Provider serves US equity quotes from Polygon's snapshot endpoint.
type Provider struct {
	cfg    Config
	client *polygonrest.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(cfg Config) *Provider {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BatchDelay == 0 {
		cfg.BatchDelay = 120 * time.Millisecond
	}
	return &Provider{cfg: cfg, client: polygonrest.New(cfg.APIKey), sleep: sleepCtx}
}

func (p *Provider) Name() string { return "polygon" }

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
	params := polymodels.GetAllTickersSnapshotParams{
		Locale:     polymodels.US,
		MarketType: polymodels.Stocks,
	}.WithTickers(strings.Join(batch, ","))

	snap, err := p.client.GetAllTickersSnapshot(ctx, params)
	if err != nil {
		var errResp *polymodels.ErrorResponse
		if errors.As(err, &errResp) && errResp.StatusCode >= 400 && errResp.StatusCode < 500 && errResp.StatusCode != 429 {
			for _, s := range batch {
				res.Rejected[s] = providers.Rejectedf(p.Name(), s, fmt.Sprintf("status %d", errResp.StatusCode))
			}
			return nil
		}
		return providers.Unavailablef(p.Name(), err)
	}

	now := time.Now().UTC()
	for _, t := range snap.Tickers {
		price := t.LastTrade.Price
		if price == 0 {
			price = t.Day.Close
		}
		asOf := time.Time(t.Updated)
		if asOf.IsZero() {
			asOf = now
		}
		res.Quotes[t.Ticker] = models.Quote{
			Symbol:        t.Ticker,
			Price:         price,
			Open:          t.Day.Open,
			High:          t.Day.High,
			Low:           t.Day.Low,
			PreviousClose: t.PrevDay.Close,
			Volume:        int64(t.Day.Volume),
			AsOf:          asOf.UTC(),
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
