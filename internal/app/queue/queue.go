// Package queue provides the ordered playback queue and history.
package queue

import (
	"math/rand"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// Change describes a structural mutation of the queue. Observers receive the
// IDs that entered and left the queue in a single operation.
type Change struct {
	Added   []string
	Removed []string
}

// Observer receives queue change notifications.
type Observer func(Change)

// Queue is a mutable ordered collection of items awaiting playback.
// Insertion order is playback order. An item ID appears at most once.
//
// Queue is not safe for concurrent use; the owning controller serializes
// access.
type Queue struct {
	items     []item.Item
	snapshot  []string // Pre-shuffle order by ID, nil when no shuffle is pending undo
	observers []Observer
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		items: make([]item.Item, 0),
	}
}

// Notify registers an observer for structural mutations.
func (q *Queue) Notify(obs Observer) {
	q.observers = append(q.observers, obs)
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Items returns a copy of the queued items in playback order.
func (q *Queue) Items() []item.Item {
	out := make([]item.Item, len(q.items))
	copy(out, q.items)
	return out
}

// IDs returns the queued item IDs in playback order.
func (q *Queue) IDs() []string {
	ids := make([]string, len(q.items))
	for i, it := range q.items {
		ids[i] = it.ID
	}
	return ids
}

// Add inserts items at pos. A pos outside [0,len) appends at the end, so an
// insert into an empty queue is an append. Items whose ID is already queued
// are skipped; the add is best-effort and never fails.
func (q *Queue) Add(pos int, items ...item.Item) {
	fresh := make([]item.Item, 0, len(items))
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		if _, ok := q.indexOf(it.ID); ok {
			continue
		}
		fresh = append(fresh, it)
	}
	if len(fresh) == 0 {
		return
	}

	if pos < 0 || pos >= len(q.items) {
		pos = len(q.items)
	}
	q.items = append(q.items[:pos], append(fresh, q.items[pos:]...)...)

	added := make([]string, len(fresh))
	for i, it := range fresh {
		added[i] = it.ID
	}
	q.notify(Change{Added: added})
}

// Append adds items to the end of the queue.
func (q *Queue) Append(items ...item.Item) {
	q.Add(-1, items...)
}

// Prepend adds items to the front of the queue.
func (q *Queue) Prepend(items ...item.Item) {
	q.Add(0, items...)
}

// Remove removes the item with the given ID. Removing an ID that is not
// queued is a no-op; UI-driven removal is idempotent by design.
func (q *Queue) Remove(id string) {
	i, ok := q.indexOf(id)
	if !ok {
		return
	}
	q.removeAt(i)
}

// RemoveAt removes the item at the given zero-based index. Out-of-range
// indices are a no-op.
func (q *Queue) RemoveAt(i int) {
	if i < 0 || i >= len(q.items) {
		return
	}
	q.removeAt(i)
}

func (q *Queue) removeAt(i int) {
	removed := q.items[i].ID
	q.items = append(q.items[:i], q.items[i+1:]...)
	q.notify(Change{Removed: []string{removed}})
}

// Front returns the head of the queue without removing it.
func (q *Queue) Front() (item.Item, bool) {
	if len(q.items) == 0 {
		return item.Item{}, false
	}
	return q.items[0], true
}

// PopFront removes and returns the head of the queue.
func (q *Queue) PopFront() (item.Item, bool) {
	if len(q.items) == 0 {
		return item.Item{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	q.notify(Change{Removed: []string{head.ID}})
	return head, true
}

// At returns the item at index i.
//
// Compatibility note: i <= 0 counts back from the end (i becomes len+i), so
// At(-1) is the last item and At(0) is out of range on a non-empty queue.
// Callers wanting plain zero-based access should use Items().
func (q *Queue) At(i int) (item.Item, bool) {
	if i <= 0 {
		i = len(q.items) + i
	}
	if i < 0 || i >= len(q.items) {
		return item.Item{}, false
	}
	return q.items[i], true
}

// ByID returns the queued item with the given ID.
func (q *Queue) ByID(id string) (item.Item, bool) {
	if i, ok := q.indexOf(id); ok {
		return q.items[i], true
	}
	return item.Item{}, false
}

// Contains reports whether an item with the given ID is queued.
func (q *Queue) Contains(id string) bool {
	_, ok := q.indexOf(id)
	return ok
}

// Move moves the item at fromPos to toPos. Out-of-range positions are a
// no-op.
func (q *Queue) Move(fromPos, toPos int) {
	n := len(q.items)
	if fromPos < 0 || fromPos >= n || toPos < 0 || toPos >= n || fromPos == toPos {
		return
	}
	it := q.items[fromPos]
	q.items = append(q.items[:fromPos], q.items[fromPos+1:]...)
	q.items = append(q.items[:toPos], append([]item.Item{it}, q.items[toPos:]...)...)
	// A move changes order but not membership.
	q.notify(Change{})
}

// Shuffle permutes the queue in place. The pre-shuffle order is snapshotted
// the first time only; a second Shuffle without an intervening Sort keeps the
// original snapshot, so exactly one level of undo is retained.
func (q *Queue) Shuffle() {
	if q.snapshot == nil {
		q.snapshot = q.IDs()
	}
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
	q.notify(Change{})
}

// Sort restores the order snapshotted by the first Shuffle and clears the
// snapshot. Without a pending snapshot it is a no-op. Items removed since the
// snapshot are skipped; items added since keep their relative order at the
// end.
func (q *Queue) Sort() {
	if q.snapshot == nil {
		return
	}
	byID := make(map[string]item.Item, len(q.items))
	for _, it := range q.items {
		byID[it.ID] = it
	}
	restored := make([]item.Item, 0, len(q.items))
	for _, id := range q.snapshot {
		if it, ok := byID[id]; ok {
			restored = append(restored, it)
			delete(byID, id)
		}
	}
	for _, it := range q.items {
		if _, ok := byID[it.ID]; ok {
			restored = append(restored, it)
			delete(byID, it.ID)
		}
	}
	q.items = restored
	q.snapshot = nil
	q.notify(Change{})
}

// Shuffled reports whether a shuffle snapshot is pending undo.
func (q *Queue) Shuffled() bool {
	return q.snapshot != nil
}

// Clear removes all items.
func (q *Queue) Clear() {
	if len(q.items) == 0 {
		return
	}
	removed := q.IDs()
	q.items = q.items[:0]
	q.snapshot = nil
	q.notify(Change{Removed: removed})
}

func (q *Queue) indexOf(id string) (int, bool) {
	for i, it := range q.items {
		if it.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (q *Queue) notify(c Change) {
	for _, obs := range q.observers {
		obs(c)
	}
}
