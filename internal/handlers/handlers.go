package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"marketdash/backend-go/internal/config"
	"marketdash/backend-go/internal/services"
)

type API struct {
	cfg    config.Config
	market *services.MarketService
}

func New(cfg config.Config, market *services.MarketService) *API {
	return &API{cfg: cfg, market: market}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func parseWatchlist(raw string, max int) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		out = append(out, p)
		if len(out) >= max {
			break
		}
	}
	return out
}

func timeboxed(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return r.Context(), func() {}
	}
	return context.WithTimeout(r.Context(), d)
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
