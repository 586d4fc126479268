// Package player provides the playback cursor state machine that drives the
// queue, the history, and the media bindings of a collection.
package player

// State represents the cursor state. Playing, Paused and Ended are transport
// substates of having a current item.
type State int

const (
	StateEmpty   State = iota // No current item
	StatePlaying              // Current item is playing
	StatePaused               // Current item is staged or paused
	StateEnded                // Current item finished, not yet advanced
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}
