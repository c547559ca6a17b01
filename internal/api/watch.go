package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rps-arena/pkg/logger"
)

const writeTimeout = 5 * time.Second

// Watch handles GET /sessions/{id}/watch. Every round resolved in the
// session is pushed to the client as a JSON text message.
func (h *Handler) Watch(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	rounds, unsubscribe, err := h.gameService.Subscribe(r.Context(), sessionID)
	if err != nil {
		h.respondServiceError(w, r, "failed to watch session", err)
		return
	}
	defer unsubscribe()

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", logger.Err(err), logger.F("session_id", sessionID))
		return
	}
	defer conn.CloseNow()

	// Nothing is expected from the client; CloseRead cancels ctx once it goes away.
	ctx := conn.CloseRead(r.Context())

	h.logger.Info("Watcher connected", logger.F("session_id", sessionID), logger.F("request_id", GetRequestID(r.Context())))

	for {
		select {
		case <-ctx.Done():
			return
		case round, ok := <-rounds:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "session deleted")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, conn, round)
			cancel()
			if err != nil {
				h.logger.Debug("Watcher write failed", logger.Err(err), logger.F("session_id", sessionID))
				return
			}
		}
	}
}
