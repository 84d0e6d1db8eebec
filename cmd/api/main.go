package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"marketdash/backend-go/internal/config"
	"marketdash/backend-go/internal/handlers"
	internalhttp "marketdash/backend-go/internal/http"
	"marketdash/backend-go/internal/providers"
	"marketdash/backend-go/internal/providers/httpx"
	"marketdash/backend-go/internal/providers/polygon"
	"marketdash/backend-go/internal/providers/tiingo"
	"marketdash/backend-go/internal/providers/yahoo"
	"marketdash/backend-go/internal/services"
)

func main() {
	_ = godotenv.Load(".env", ".env.local")

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	snap := services.NewSnapshotStore(cfg)
	cache := services.NewCache(snap, cfg.CacheTTLHard)

	resolver := services.NewResolver(buildChain(cfg)...)
	market := services.NewMarketService(cfg, cache, resolver)

	refresher := services.NewRefresher(cache, cfg.RefreshInterval, cfg.RequestTimeout)
	market.RegisterWarmKeys(refresher)
	refresher.Start(context.Background())

	api := handlers.New(cfg, market)
	h := internalhttp.NewRouter(api, cfg.RateLimitPerMin)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.WithField("addr", srv.Addr).Info("marketdash backend listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

// buildChain assembles the provider fallback chain in configured order.
// Order is fixed at startup; the resolver never reorders adaptively.
func buildChain(cfg config.Config) []providers.Adapter {
	hc := httpx.New(cfg.RequestTimeout)

	chain := make([]providers.Adapter, 0, len(cfg.ProviderChain))
	for _, name := range cfg.ProviderChain {
		switch name {
		case "tiingo":
			if cfg.TiingoAPIKey == "" {
				log.Warn("tiingo in chain but TIINGO_API_KEY unset, skipping")
				continue
			}
			chain = append(chain, tiingo.New(tiingo.Config{
				APIKey:     cfg.TiingoAPIKey,
				BaseURL:    cfg.TiingoBaseURL,
				BatchDelay: cfg.BatchDelay,
				SymbolMap:  tiingoSymbolMap,
			}, hc))
		case "yahoo":
			chain = append(chain, yahoo.New(yahoo.Config{
				BaseURL:    cfg.YahooBaseURL,
				BatchDelay: cfg.BatchDelay,
			}, hc))
		case "polygon":
			if cfg.PolygonAPIKey == "" {
				log.Warn("polygon in chain but POLYGON_API_KEY unset, skipping")
				continue
			}
			chain = append(chain, polygon.New(polygon.Config{
				APIKey:     cfg.PolygonAPIKey,
				BatchDelay: cfg.BatchDelay,
			}))
		default:
			log.WithField("provider", name).Warn("unknown provider in chain, skipping")
		}
	}
	if len(chain) == 0 {
		log.Fatal("no usable providers configured")
	}
	return chain
}

// tiingoSymbolMap translates dashboard symbols into Tiingo's namespace.
var tiingoSymbolMap = map[string]string{
	"BTC-USD":  "btcusd",
	"ETH-USD":  "ethusd",
	"SOL-USD":  "solusd",
	"ADA-USD":  "adausd",
	"AVAX-USD": "avaxusd",
	"LINK-USD": "linkusd",
	"BRK-B":    "BRK.B",
}
