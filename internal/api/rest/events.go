package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// heartbeatInterval keeps idle SSE connections from being reaped by proxies.
const heartbeatInterval = 30 * time.Second

// events streams playback notifications as server-sent events until the
// client disconnects.
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the headers go out so no event published after the
	// client sees the response can be missed.
	id, ch := a.broadcaster.Subscribe()
	defer a.broadcaster.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	zlog.Debug().Msgf("rest: event stream %s opened", id)
	defer zlog.Debug().Msgf("rest: event stream %s closed", id)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case n, ok := <-ch:
			if !ok {
				return
			}
			body, err := json.Marshal(jsonEvent(n.SequenceNo, n.Event))
			if err != nil {
				zlog.Error().Msgf("rest: marshal event %s: %v", n.Event.Type, err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Event.Type, body)
			flusher.Flush()
		}
	}
}
