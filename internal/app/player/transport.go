package player

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// Errors
var (
	// ErrNoPlayableSource means no source candidate survived playability
	// filtering. Fatal for the item, surfaced to the user.
	ErrNoPlayableSource = errors.New("no playable source")

	// ErrTransportStalled marks transient transport conditions (buffer
	// underrun, temporary network stall). Playback may recover; callers
	// surface a warning instead of failing the item.
	ErrTransportStalled = errors.New("transport stalled")
)

// IsTransient reports whether a transport error is recoverable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransportStalled)
}

// Range is a buffered time range of the underlying media.
type Range struct {
	Start time.Duration
	End   time.Duration
}

// Transport is the native playback handle behind a media binding. One
// transport plays one committed source.
//
// Implementations deliver the ended signal through the handler set with
// OnEnded, from their own goroutine.
type Transport interface {
	// Play starts or resumes playback.
	Play() error
	// Pause pauses playback, keeping the position.
	Pause()
	// SeekTo positions playback. precise=false permits a fast approximate
	// seek; precise=true forces exact positioning.
	SeekTo(d time.Duration, precise bool) error
	// Position returns the current playback position.
	Position() time.Duration
	// Duration returns the media duration, zero while unknown.
	Duration() time.Duration
	// Paused reports whether the transport is not advancing.
	Paused() bool
	// Ended reports whether the media played to its end.
	Ended() bool
	// Buffered returns the buffered ranges. Ranges may be disjoint.
	Buffered() []Range
	// OnEnded sets the handler invoked when the media ends. A nil handler
	// detaches. At most one handler is attached at a time.
	OnEnded(fn func())
	// Err returns the sticky transport error, if any. Transient conditions
	// are marked with ErrTransportStalled.
	Err() error
	// Close releases the underlying handle.
	Close() error
}

// TransportFactory creates transports for item sources and answers
// playability questions used to rank source candidates before committing one.
type TransportFactory interface {
	item.TypeChecker

	// Open commits a source and returns a transport for it.
	Open(it item.Item, src item.Source) (Transport, error)
}
