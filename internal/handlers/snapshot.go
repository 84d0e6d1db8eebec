package handlers

import (
	"net/http"
	"sort"
	"time"

	"marketdash/backend-go/internal/models"
)

// Snapshot serves GET /api/v1/snapshot: the full watch universe grouped by
// category, normally warmed ahead of time by the refresh loop.
func (a *API) Snapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeboxed(r, a.cfg.RequestTimeout)
	defer cancel()

	snap, err := a.market.GetSnapshot(ctx)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}

	categories := make([]string, 0, len(snap.ByCategory))
	symbols := 0
	for cat, quotes := range snap.ByCategory {
		categories = append(categories, cat)
		symbols += len(quotes)
	}
	sort.Strings(categories)

	writeJSON(w, http.StatusOK, models.SnapshotResponse{
		Data: snap.ByCategory,
		Meta: models.SnapshotMeta{
			LastUpdated: snap.FetchedAt.UTC().Format(time.RFC3339),
			Symbols:     symbols,
			Categories:  categories,
			Source:      snap.Source,
		},
	})
}
