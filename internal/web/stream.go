package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lucasnoah/prflow/internal/workflow"
)

type snapshotEvent struct {
	ID        string                    `json:"id"`
	FetchedAt string                    `json:"fetched_at"`
	Summary   workflow.AggregateSummary `json:"summary"`
}

// handleEvents serves a Server-Sent Events stream that emits a "snapshot"
// event whenever the latest snapshot changes. The current snapshot, if any,
// is sent immediately. The dashboard reloads on each event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering if present
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var lastID string
	send := func() {
		snap, ok := s.provider.Latest()
		if !ok || snap.ID == lastID {
			return
		}
		lastID = snap.ID
		data, err := json.Marshal(snapshotEvent{ID: snap.ID, FetchedAt: fmtStamp(snap.FetchedAt), Summary: snap.Report.Summary})
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
		flusher.Flush()
	}
	send()

	tick := time.NewTicker(s.streamInterval)
	defer tick.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick.C:
			send()
		}
	}
}
