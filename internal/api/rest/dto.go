package rest

import (
	"github.com/amplfr/amplfrd/internal/app/player"
	"github.com/amplfr/amplfrd/internal/domain/item"
)

// itemJSON is the wire representation of an item.
type itemJSON struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Artists  []string `json:"artists,omitempty"`
	Album    string   `json:"album,omitempty"`
	Duration int64    `json:"duration_ms"`
}

type statusJSON struct {
	State      string    `json:"state"`
	Current    *itemJSON `json:"current,omitempty"`
	PositionMs int64     `json:"position_ms"`
	DurationMs int64     `json:"duration_ms"`
	Loaded     float64   `json:"loaded"`
	Loop       bool      `json:"loop"`
	QueueLen   int       `json:"queue_len"`
	HistoryLen int       `json:"history_len"`
}

func jsonItem(it item.Item) itemJSON {
	out := itemJSON{
		ID:       it.ID,
		Title:    it.Title,
		Artists:  it.ArtistNames(),
		Duration: it.Duration.Milliseconds(),
	}
	if it.Album != nil {
		out.Album = it.Album.Title
	}
	return out
}

func jsonItems(items []item.Item) []itemJSON {
	out := make([]itemJSON, len(items))
	for i, it := range items {
		out[i] = jsonItem(it)
	}
	return out
}

func jsonStatus(st player.Status) statusJSON {
	out := statusJSON{
		State:      st.State.String(),
		PositionMs: st.Position.Milliseconds(),
		DurationMs: st.Duration.Milliseconds(),
		Loaded:     st.Loaded,
		Loop:       st.Loop,
		QueueLen:   st.QueueLen,
		HistoryLen: st.HistoryLen,
	}
	if st.Current != nil {
		cur := jsonItem(*st.Current)
		out.Current = &cur
	}
	return out
}

// eventJSON is the SSE payload for one playback event.
type eventJSON struct {
	Seq        uint64    `json:"seq"`
	Type       string    `json:"type"`
	Item       *itemJSON `json:"item,omitempty"`
	IDs        []string  `json:"ids,omitempty"`
	State      string    `json:"state,omitempty"`
	PositionMs int64     `json:"position_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
}

func jsonEvent(seq uint64, e player.Event) eventJSON {
	out := eventJSON{
		Seq:        seq,
		Type:       e.Type.String(),
		IDs:        e.IDs,
		PositionMs: e.Position.Milliseconds(),
	}
	if e.Item != nil {
		it := jsonItem(*e.Item)
		out.Item = &it
	}
	if e.Type == player.EventStateChanged || e.Type == player.EventTimeUpdate {
		out.State = e.State.String()
	}
	if e.Err != nil {
		out.Error = e.Err.Error()
	}
	return out
}
