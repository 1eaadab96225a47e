package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
	"github.com/okian/proctor/pkg/metrics"
)

const liveWriteWait = 5 * time.Second

// LiveDependencies is what the websocket feed reads snapshots from.
type LiveDependencies interface {
	Live(ctx context.Context, id string) (service.LiveSnapshot, error)
}

// LiveHandler pushes live snapshots to interviewer monitors.
type LiveHandler struct {
	deps     LiveDependencies
	interval time.Duration
	logger   logger.Logger
	upgrader websocket.Upgrader
}

// NewLiveHandler creates a feed that pushes a snapshot every interval.
func NewLiveHandler(deps LiveDependencies, interval time.Duration, l logger.Logger) *LiveHandler {
	return &LiveHandler{
		deps:     deps,
		interval: interval,
		logger:   l,
		upgrader: websocket.Upgrader{
			// CORS is enforced by the router for the REST surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// HandleFeed handles GET /sessions/{id}/live/ws. The first snapshot is sent
// right after the upgrade; the feed closes once the session has completed
// or the client goes away.
func (h *LiveHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	first, err := h.deps.Live(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Session(id), logger.Error(err))
		return
	}
	defer conn.Close()

	metrics.UpdateLiveClients(1)
	defer metrics.UpdateLiveClients(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		// Reads only detect the client closing; inbound messages are ignored.
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	snapshot := first
	for {
		if err := h.push(conn, snapshot); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug(ctx, "live feed write failed", logger.Session(id), logger.Error(err))
			}
			return
		}
		if snapshot.Status == model.StatusCompleted || snapshot.Status == model.StatusCancelled {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session "+string(snapshot.Status)),
				time.Now().Add(liveWriteWait))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if snapshot, err = h.deps.Live(ctx, id); err != nil {
			h.logger.Warn(ctx, "live snapshot failed", logger.Session(id), logger.Error(err))
			return
		}
	}
}

func (h *LiveHandler) push(conn *websocket.Conn, snapshot service.LiveSnapshot) error { //nolint:gocritic // hugeParam: snapshots travel by value
	if err := conn.SetWriteDeadline(time.Now().Add(liveWriteWait)); err != nil {
		return err
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		return err
	}
	metrics.RecordLiveSnapshotPushed()
	return nil
}
