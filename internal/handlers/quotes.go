package handlers

import (
	"net/http"

	"marketdash/backend-go/internal/models"
)

// Quotes serves GET /api/v1/quotes?symbols=AAPL,MSFT. Symbols nobody could
// answer come back in the unsatisfied list, never as zero-value quotes.
func (a *API) Quotes(w http.ResponseWriter, r *http.Request) {
	symbols := parseWatchlist(r.URL.Query().Get("symbols"), a.cfg.MaxWatchlist)
	if len(symbols) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "symbols query parameter is required"})
		return
	}

	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	res, err := a.market.GetQuotes(ctx, symbols)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.QuotesResponse{
		Data:        res.Quotes,
		Unsatisfied: res.Unsatisfied,
		LastUpdated: nowISO(),
		Source:      res.Source,
	})
}
