package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dangerclosesec/masteradmin/internal/events"
	chmw "github.com/go-chi/chi/v5/middleware"
)

const heartbeatInterval = 15 * time.Second

// Events streams a snapshot to the client on connect and after every change
// as server-sent events. Slow clients only ever see the newest snapshot.
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	updates := make(chan events.Snapshot, 1)
	unsubscribe := h.engine.Publisher().Subscribe(func(s events.Snapshot) {
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, "snapshot", h.engine.Snapshot(r.Context())); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case s := <-updates:
			if err := writeEvent(w, "snapshot", s); err != nil {
				slog.WarnContext(r.Context(), "event stream write failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
