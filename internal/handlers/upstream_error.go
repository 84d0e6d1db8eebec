package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"marketdash/backend-go/internal/providers"
)

// writeUpstreamError maps resolver failures onto gateway status codes. By the
// time an error reaches here the cache had no fresh, stale, or snapshot value
// to fall back on.
func writeUpstreamError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "upstream_timeout"})
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{"error": "upstream_timeout"})
		return
	}
	if errors.Is(err, providers.ErrUnavailable) {
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "providers_unavailable", "detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
}
