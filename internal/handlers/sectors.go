package handlers

import (
	"net/http"
	"time"

	"marketdash/backend-go/internal/models"
)

// Sectors serves GET /api/v1/sectors: the SPDR sector board.
func (a *API) Sectors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	board, err := a.market.GetSectors(ctx)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SectorsResponse{
		Sectors:     board.Sectors,
		Unsatisfied: board.Unsatisfied,
		LastUpdated: board.FetchedAt.UTC().Format(time.RFC3339),
		Source:      board.Source,
	})
}
