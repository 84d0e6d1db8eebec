package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	TiingoAPIKey  string
	TiingoBaseURL string
	YahooBaseURL  string
	PolygonAPIKey string
	ProviderChain []string

	RedisURL string

	CacheTTLQuotes   time.Duration
	CacheTTLSectors  time.Duration
	CacheTTLSnapshot time.Duration
	CacheTTLHard     time.Duration

	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	BatchDelay      time.Duration

	RateLimitPerMin int
	MaxWatchlist    int
}

func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		TiingoAPIKey:  getEnv("TIINGO_API_KEY", ""),
		TiingoBaseURL: getEnv("TIINGO_BASE_URL", ""),
		YahooBaseURL:  getEnv("YAHOO_BASE_URL", ""),
		PolygonAPIKey: getEnv("POLYGON_API_KEY", ""),
		ProviderChain: getEnvList("PROVIDER_CHAIN", []string{"tiingo", "yahoo"}),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		CacheTTLQuotes:   getEnvDuration("CACHE_TTL_QUOTES", 180*time.Second),
		CacheTTLSectors:  getEnvDuration("CACHE_TTL_SECTORS", 3600*time.Second),
		CacheTTLSnapshot: getEnvDuration("CACHE_TTL_SNAPSHOT", 21600*time.Second),
		CacheTTLHard:     getEnvDuration("CACHE_TTL_HARD", 86400*time.Second),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 1800*time.Second),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 8*time.Second),
		BatchDelay:      getEnvMillis("PROVIDER_BATCH_DELAY_MS", 120*time.Millisecond),

		RateLimitPerMin: getEnvInt("RATE_LIMIT_PER_MIN", 60),
		MaxWatchlist:    getEnvInt("MAX_WATCHLIST", 30),
	}
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Second
}

func getEnvMillis(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(i) * time.Millisecond
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return def
	}
	return out
}
