package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"marketdash/backend-go/internal/handlers"
	"marketdash/backend-go/internal/ratelimit"
)

func NewRouter(api *handlers.API, perMin int) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/health", api.Health).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/quotes", api.Quotes).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/sectors", api.Sectors).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/snapshot", api.Snapshot).Methods(http.MethodGet)

	lim := ratelimit.New(perMin, time.Minute)

	h := http.Handler(r)
	h = withRecovery(h)
	h = withLogging(h)
	h = withRateLimit(lim)(h)
	h = withCORS(h)
	return h
}
