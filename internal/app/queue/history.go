package queue

import "github.com/amplfr/amplfrd/internal/domain/item"

// History holds previously-current items, most recent last, bounded by a
// retention limit. Items evicted past the limit are reported through the
// eviction callback so their media resources can be released.
type History struct {
	items   []item.Item
	limit   int
	onEvict func(item.Item)
}

// NewHistory creates a history with the given retention limit. A limit <= 0
// means unbounded.
func NewHistory(limit int, onEvict func(item.Item)) *History {
	return &History{
		items:   make([]item.Item, 0),
		limit:   limit,
		onEvict: onEvict,
	}
}

// Len returns the number of remembered items.
func (h *History) Len() int {
	return len(h.items)
}

// Items returns a copy of the history, oldest first.
func (h *History) Items() []item.Item {
	out := make([]item.Item, len(h.items))
	copy(out, h.items)
	return out
}

// IDs returns the remembered item IDs, oldest first.
func (h *History) IDs() []string {
	ids := make([]string, len(h.items))
	for i, it := range h.items {
		ids[i] = it.ID
	}
	return ids
}

// Contains reports whether an item with the given ID is remembered.
func (h *History) Contains(id string) bool {
	for _, it := range h.items {
		if it.ID == id {
			return true
		}
	}
	return false
}

// Push appends an item as the most recent entry, evicting the oldest entry
// when the retention limit is exceeded.
func (h *History) Push(it item.Item) {
	h.items = append(h.items, it)
	for h.limit > 0 && len(h.items) > h.limit {
		evicted := h.items[0]
		h.items = h.items[1:]
		if h.onEvict != nil {
			h.onEvict(evicted)
		}
	}
}

// Pop removes and returns the most recent entry.
func (h *History) Pop() (item.Item, bool) {
	if len(h.items) == 0 {
		return item.Item{}, false
	}
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last, true
}

// Drain removes and returns all entries, oldest first. Used when a looping
// collection wraps and played items return to the queue.
func (h *History) Drain() []item.Item {
	out := h.items
	h.items = make([]item.Item, 0)
	return out
}
