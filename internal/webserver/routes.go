package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/burnish-dev/burnish/internal/session"
	"github.com/burnish-dev/burnish/internal/webapi"
)

// registerRoutes sets up the REST and SSE routes on the given mux.
func registerRoutes(mux *http.ServeMux, cfg Config) {
	store := webapi.NewFileStore(cfg.ResultsDir)
	webapi.RegisterRoutes(mux, store)

	sse := &sseHandler{store: store, live: cfg.Live}
	mux.HandleFunc("GET /api/sessions/{id}/events", sse.handle)

	mux.HandleFunc("GET /", handleIndex)
}

// handleIndex describes the API surface; there is no bundled front-end.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"service": "burnish",
		"endpoints": []string{
			"/api/health",
			"/api/summary",
			"/api/sessions",
			"/api/sessions/{id}",
			"/api/sessions/{id}/events",
		},
	})
}

// sseHandler streams a session's event log as server-sent events. Recorded
// events are replayed first; if the session is still running in this process
// the stream stays open and follows the live bus.
type sseHandler struct {
	store webapi.SessionStore
	live  *session.BusRegistry
}

func (h *sseHandler) handle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var liveBus *session.EventBus
	if h.live != nil {
		liveBus, _ = h.live.Lookup(id)
	}

	detail, err := h.store.GetSession(id)
	if err != nil {
		if !errors.Is(err, webapi.ErrSessionNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		// A just-started session may not have persisted state yet.
		if liveBus == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before replay so no event falls between the log and the bus.
	var events <-chan session.Event
	var cancel func()
	if liveBus != nil {
		events, cancel = liveBus.Subscribe()
		defer cancel()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if detail != nil {
		for _, ev := range detail.Events {
			writeSSE(w, ev)
		}
		flusher.Flush()
	}

	if events == nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev session.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data) //nolint:errcheck
}
