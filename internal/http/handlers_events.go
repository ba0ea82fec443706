package httpx

import (
	"net/http"
	"time"

	"github.com/mattbell19/wordgen-v2-production-sub006/internal/ws"
)

func (r *Router) handleEventsWS(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Register(info.UserID, client)
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.Ping(); err != nil {
					return
				}
			}
		}
	}()
	go func() {
		defer func() {
			close(done)
			r.hub.Unregister(info.UserID, client)
			client.Close()
		}()
		client.Drain()
	}()
}

// handleEventsSSE streams the caller's events until the request context ends.
func (r *Router) handleEventsSSE(w http.ResponseWriter, req *http.Request) {
	info, ok := r.mustAuth(w, req)
	if !ok {
		return
	}
	if r.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := ws.NewSSEClient(w, flusher, r.logger)
	if err := client.Heartbeat(); err != nil {
		return
	}
	r.hub.Register(info.UserID, client)
	defer func() {
		r.hub.Unregister(info.UserID, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeat / 5)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if !client.Idle(sseHeartbeat) {
				continue
			}
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
