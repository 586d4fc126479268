// Package rest provides the HTTP control surface for the playback daemon.
package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/app/notify"
	"github.com/amplfr/amplfrd/internal/app/player"
)

// API serves the player and queue endpoints.
type API struct {
	player      *player.Controller
	broadcaster *notify.Broadcaster
}

// NewRouter builds the HTTP router for the daemon.
func NewRouter(ctrl *player.Controller, broadcaster *notify.Broadcaster) chi.Router {
	api := &API{player: ctrl, broadcaster: broadcaster}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		r.Route("/player", func(r chi.Router) {
			r.Get("/", api.playerStatus)
			r.Post("/play", api.playerPlay)
			r.Post("/pause", api.playerPause)
			r.Post("/stop", api.playerStop)
			r.Post("/next", api.playerNext)
			r.Post("/previous", api.playerPrevious)
			r.Post("/seek", api.playerSeek)
			r.Post("/loop", api.playerLoop)
			r.Post("/itemloop", api.playerItemLoop)
		})
		r.Route("/queue", func(r chi.Router) {
			r.Get("/", api.queueContents)
			r.Post("/", api.queueAdd)
			r.Delete("/{id}", api.queueRemove)
			r.Post("/shuffle", api.queueShuffle)
			r.Post("/sort", api.queueSort)
			r.Post("/move", api.queueMove)
		})
		r.Get("/history", api.historyContents)
		r.Get("/events", api.events)
	})
	return r
}

func (a *API) playerStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerPlay(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Play(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerPause(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Pause(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerStop(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Stop(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerNext(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Next(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerPrevious(w http.ResponseWriter, r *http.Request) {
	if err := a.player.Previous(); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PositionMs int64 `json:"position_ms"`
		Precise    bool  `json:"precise"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d := time.Duration(req.PositionMs) * time.Millisecond
	if err := a.player.SeekTo(d, req.Precise); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerLoop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Loop bool `json:"loop"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a.player.SetLoop(req.Loop)
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) playerItemLoop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.player.SetItemLoop(req.Count); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, jsonStatus(a.player.Status()))
}

func (a *API) queueContents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"items": jsonItems(a.player.QueueItems())})
}

func (a *API) historyContents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"items": jsonItems(a.player.HistoryItems())})
}

// queueAdd resolves references and inserts them. The position defaults to
// appending; references that cannot be resolved are skipped, not fatal.
func (a *API) queueAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refs []string `json:"refs"`
		Pos  *int     `json:"pos"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Refs) == 0 {
		writeError(w, r, errors.Mark(errors.New("no refs given"), errBadRequest))
		return
	}
	pos := -1
	if req.Pos != nil {
		pos = *req.Pos
	}
	added := a.player.AddRefs(r.Context(), pos, req.Refs...)
	writeJSON(w, map[string]any{"added": jsonItems(added)})
}

// queueRemove removes the item by ID. Removal is idempotent, so an absent ID
// still yields 204.
func (a *API) queueRemove(w http.ResponseWriter, r *http.Request) {
	a.player.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) queueShuffle(w http.ResponseWriter, r *http.Request) {
	a.player.Shuffle()
	writeJSON(w, map[string]any{"items": jsonItems(a.player.QueueItems())})
}

func (a *API) queueSort(w http.ResponseWriter, r *http.Request) {
	a.player.Sort()
	writeJSON(w, map[string]any{"items": jsonItems(a.player.QueueItems())})
}

func (a *API) queueMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From int `json:"from"`
		To   int `json:"to"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a.player.Move(req.From, req.To)
	writeJSON(w, map[string]any{"items": jsonItems(a.player.QueueItems())})
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zlog.Error().Msgf("rest: encode response: %v", err)
	}
}

// writeError maps known player errors to 4xx and everything else to 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, player.ErrNoCurrent), errors.Is(err, player.ErrQueueEmpty):
		status = http.StatusConflict
	case errors.Is(err, player.ErrNoPlayableSource):
		status = http.StatusUnprocessableEntity
	}
	zlog.Warn().Msgf("rest: %s %s: %v", r.Method, r.URL.Path, err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var errBadRequest = errors.New("bad request")

// decodeBody decodes a JSON request body, tagging failures as client errors.
func decodeBody(r *http.Request, into any) error {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		return errors.Mark(errors.Wrap(err, "decode request"), errBadRequest)
	}
	return nil
}
