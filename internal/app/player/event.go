package player

import (
	"time"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// EventType represents a playback event type.
type EventType int

const (
	EventItemAdded    EventType = iota // Items entered the queue
	EventItemRemoved                   // Items left the queue
	EventItemPromoted                  // An item became current
	EventItemLoaded                    // An item's media binding was materialized
	EventItemEnded                     // The current item finished playing
	EventQueueEnded                    // Queue and history exhausted, nothing left to play
	EventStateChanged                  // Transport state changed (play/pause/stop)
	EventTimeUpdate                    // Playback position progressed or was seeked
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventItemAdded:
		return "item_added"
	case EventItemRemoved:
		return "item_removed"
	case EventItemPromoted:
		return "item_promoted"
	case EventItemLoaded:
		return "item_loaded"
	case EventItemEnded:
		return "item_ended"
	case EventQueueEnded:
		return "queue_ended"
	case EventStateChanged:
		return "state_changed"
	case EventTimeUpdate:
		return "time_update"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	Item     *item.Item    // Affected item (nil for queue-level events)
	IDs      []string      // Affected IDs for added/removed events
	State    State         // Cursor state at emission time
	Position time.Duration // Playback position for time updates
	Err      error         // Non-nil for failure surfacing (unsupported media, transport errors)
}
