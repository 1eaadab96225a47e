package api

import (
	"net/http"
	"strconv"
)

// WatchlistHandler handles watchlist requests.
type WatchlistHandler struct {
	deps     WatchlistDependencies
	maxLimit int
}

// NewWatchlistHandler creates a new watchlist handler.
func NewWatchlistHandler(deps WatchlistDependencies, maxLimit int) *WatchlistHandler {
	return &WatchlistHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetWatchlist handles GET /watchlist?limit=N requests. A missing
// limit returns up to the configured maximum.
func (h *WatchlistHandler) HandleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_watchlist"
	n := h.maxLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, wrapKind(op, ErrBadRequest, err))
			return
		}
	}
	if n > h.maxLimit {
		writeError(w, wrapKind(op, ErrLimitExceeded, nil))
		return
	}
	entries, err := h.deps.Watchlist(r.Context(), n)
	respond(w, entries, err)
}
