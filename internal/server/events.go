package server

import (
	"net/http"
	"sync"
	"time"
)

// heartbeatInterval keeps idle SSE connections alive through proxies
// and lets stalled clients be detected.
const heartbeatInterval = 30 * time.Second

// eventHub fans archive-change notifications out to connected SSE
// clients. Slow clients are skipped for a batch rather than blocking
// the watcher; they catch up on the next change.
type eventHub struct {
	mu     sync.Mutex
	subs   map[chan []string]struct{}
	closed bool
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[chan []string]struct{})}
}

func (h *eventHub) subscribe() chan []string {
	ch := make(chan []string, 4)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	return ch
}

func (h *eventHub) unsubscribe(ch chan []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *eventHub) broadcast(paths []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- paths:
		default:
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// handleEvents streams archive-change notifications as SSE. Each
// debounced change batch emits a "change" event whose data is a JSON
// array of archive-relative paths; periodic "heartbeat" events keep
// the connection alive. Clients re-fetch the tree on "change".
func (s *Server) handleEvents(
	w http.ResponseWriter, r *http.Request,
) {
	stream, err := NewSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			"streaming not supported")
		return
	}

	updates := s.hub.subscribe()
	defer s.hub.unsubscribe(updates)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case paths, ok := <-updates:
			if !ok {
				return
			}
			if !stream.SendJSON("change", paths) {
				return
			}
		case <-heartbeat.C:
			if !stream.Send("heartbeat", "{}") {
				return
			}
		}
	}
}
