package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketdash/backend-go/internal/config"
	"marketdash/backend-go/internal/models"
)

// sectorETFs maps the SPDR sector funds to display names. Board order is
// fixed so the frontend never reshuffles.
var sectorETFs = []struct {
	Name   string
	Symbol string
}{
	{"Technology", "XLK"},
	{"Healthcare", "XLV"},
	{"Financial", "XLF"},
	{"Energy", "XLE"},
	{"Consumer Discretionary", "XLY"},
	{"Consumer Staples", "XLP"},
	{"Industrials", "XLI"},
	{"Materials", "XLB"},
	{"Utilities", "XLU"},
	{"Real Estate", "XLRE"},
	{"Communication", "XLC"},
}

// snapshotUniverse is the full watch universe grouped by category, served by
// the snapshot endpoint and warmed by the refresh loop.
var snapshotUniverse = map[string][]string{
	"us_large_cap": {
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "TSLA", "META", "BRK-B",
		"UNH", "XOM", "JNJ", "JPM", "PG", "V", "HD", "CVX", "MA", "PFE",
	},
	"technology": {
		"AAPL", "MSFT", "GOOGL", "NVDA", "META", "NFLX", "ADBE",
		"CRM", "ORCL", "INTC", "AMD", "PYPL", "UBER", "SNOW", "PLTR",
	},
	"etf_broad": {
		"SPY", "QQQ", "VOO", "VTI", "IVV", "VEA", "VWO",
		"EEM", "GLD", "SLV", "TLT", "IEF", "HYG", "LQD",
	},
	"etf_sectors": {
		"XLK", "XLV", "XLF", "XLE", "XLY", "XLP", "XLI", "XLB",
		"XLU", "XLRE", "XLC",
	},
	"crypto": {
		"BTC-USD", "ETH-USD", "SOL-USD", "ADA-USD", "AVAX-USD", "LINK-USD",
	},
}

// MarketService is the layer the route handlers talk to: every read goes
// through the coalescing cache, every miss through the provider chain.
type MarketService struct {
	cfg      config.Config
	cache    *Cache
	resolver *Resolver
}

func NewMarketService(cfg config.Config, cache *Cache, resolver *Resolver) *MarketService {
	return &MarketService{cfg: cfg, cache: cache, resolver: resolver}
}

// GetQuotes resolves an ad hoc symbol list, cached per symbol set.
func (s *MarketService) GetQuotes(ctx context.Context, symbols []string) (Resolution, error) {
	key := quotesKey(symbols)
	return GetOrFetch(ctx, s.cache, key, s.cfg.CacheTTLQuotes, func(ctx context.Context) (Resolution, error) {
		return s.resolver.Resolve(ctx, symbols)
	})
}

// SectorBoard is the cached sector-performance payload.
type SectorBoard struct {
	Sectors     []models.SectorPerformance `json:"sectors"`
	Unsatisfied []string                   `json:"unsatisfied,omitempty"`
	Source      string                     `json:"source"`
	FetchedAt   time.Time                  `json:"fetched_at"`
}

// SectorsKey is registered with the refresher.
const SectorsKey = "sectors:v1"

func (s *MarketService) GetSectors(ctx context.Context) (SectorBoard, error) {
	return GetOrFetch(ctx, s.cache, SectorsKey, s.cfg.CacheTTLSectors, func(ctx context.Context) (SectorBoard, error) {
		symbols := make([]string, 0, len(sectorETFs))
		for _, se := range sectorETFs {
			symbols = append(symbols, se.Symbol)
		}
		res, err := s.resolver.Resolve(ctx, symbols)
		if err != nil {
			return SectorBoard{}, err
		}

		board := SectorBoard{
			Sectors:     make([]models.SectorPerformance, 0, len(sectorETFs)),
			Unsatisfied: res.Unsatisfied,
			Source:      res.Source,
			FetchedAt:   time.Now().UTC(),
		}
		for _, se := range sectorETFs {
			q, ok := res.Quotes[se.Symbol]
			if !ok {
				continue
			}
			status := "neutral"
			if q.ChangePct > 0 {
				status = "positive"
			} else if q.ChangePct < 0 {
				status = "negative"
			}
			board.Sectors = append(board.Sectors, models.SectorPerformance{
				Name:      se.Name,
				Symbol:    se.Symbol,
				Price:     q.Price,
				Change:    q.Change,
				ChangePct: q.ChangePct,
				Volume:    q.Volume,
				Status:    status,
			})
		}
		return board, nil
	})
}

// MarketSnapshot is the cached full-universe payload.
type MarketSnapshot struct {
	ByCategory  map[string][]models.Quote `json:"by_category"`
	Unsatisfied []string                  `json:"unsatisfied,omitempty"`
	Source      string                    `json:"source"`
	FetchedAt   time.Time                 `json:"fetched_at"`
}

// SnapshotKey is registered with the refresher.
const SnapshotKey = "snapshot:v1"

func (s *MarketService) GetSnapshot(ctx context.Context) (MarketSnapshot, error) {
	return GetOrFetch(ctx, s.cache, SnapshotKey, s.cfg.CacheTTLSnapshot, func(ctx context.Context) (MarketSnapshot, error) {
		all := make([]string, 0, 64)
		for _, syms := range snapshotUniverse {
			all = append(all, syms...)
		}
		res, err := s.resolver.Resolve(ctx, all)
		if err != nil {
			return MarketSnapshot{}, err
		}

		snap := MarketSnapshot{
			ByCategory:  make(map[string][]models.Quote, len(snapshotUniverse)),
			Unsatisfied: res.Unsatisfied,
			Source:      res.Source,
			FetchedAt:   time.Now().UTC(),
		}
		for cat, syms := range snapshotUniverse {
			quotes := make([]models.Quote, 0, len(syms))
			for _, sym := range syms {
				if q, ok := res.Quotes[sym]; ok {
					quotes = append(quotes, q)
				}
			}
			sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
			snap.ByCategory[cat] = quotes
		}
		return snap, nil
	})
}

// RegisterWarmKeys hooks the long-TTL boards into the refresh loop. Refreshes
// run through the same GetOrFetch paths, so the coalescing guarantee holds.
func (s *MarketService) RegisterWarmKeys(r *Refresher) {
	r.Register(SectorsKey, func(ctx context.Context) error {
		_, err := s.GetSectors(ctx)
		return err
	})
	r.Register(SnapshotKey, func(ctx context.Context) error {
		_, err := s.GetSnapshot(ctx)
		return err
	})
}

func quotesKey(symbols []string) string {
	safe := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s == "" {
			continue
		}
		safe = append(safe, strings.ToUpper(s))
	}
	sort.Strings(safe)
	sum := sha1.Sum([]byte(strings.Join(safe, ",")))
	return fmt.Sprintf("quotes:v1:%s", hex.EncodeToString(sum[:8]))
}
