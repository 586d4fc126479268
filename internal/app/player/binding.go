package player

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// LoopInfinite makes a binding repeat its item until the loop is cleared.
const LoopInfinite = -1

// Binding ties one item to one transport for the item's active lifecycle.
// It owns source selection, trim-aware seeking, per-item looping and the
// ended-signal wiring.
//
// The owning controller serializes all calls except the transport's ended
// callback, which is guarded separately.
type Binding struct {
	item      item.Item
	source    item.Source
	transport Transport

	mu        sync.Mutex
	loopCount int    // Remaining repeats; 0 = no loop, LoopInfinite = forever
	onEnded   func() // Stable advance handler, stored so detaching matches
}

// NewBinding selects the best playable source for the item and opens a
// transport for it. Candidates the factory reports as probably playable are
// tried before maybe-playable ones; the first that opens wins.
func NewBinding(it item.Item, factory TransportFactory) (*Binding, error) {
	ranked := item.RankSources(it.Sources, factory)
	if len(ranked) == 0 {
		return nil, errors.Wrapf(ErrNoPlayableSource, "item %s", it.ID)
	}

	var lastErr error
	for _, src := range ranked {
		transport, err := factory.Open(it, src)
		if err != nil {
			zlog.Debug().Msgf("player: source %s for item %s failed to open: %v", src.URL, it.ID, err)
			lastErr = err
			continue
		}
		b := &Binding{
			item:      it,
			source:    src,
			transport: transport,
		}
		transport.OnEnded(b.handleEnded)
		return b, nil
	}
	return nil, errors.Wrapf(lastErr, "no source for item %s could be opened", it.ID)
}

// Item returns the bound item. The duration is filled in from the transport
// once the media reports it.
func (b *Binding) Item() item.Item {
	it := b.item
	if it.Duration == 0 {
		it.Duration = b.transport.Duration()
	}
	return it
}

// Source returns the committed source.
func (b *Binding) Source() item.Source {
	return b.source
}

// Play toggles playback: a playing binding pauses, a paused one starts. A
// binding that previously ended restarts from its start offset. Fatal
// transport errors refuse to start; transient ones only log.
func (b *Binding) Play() error {
	if err := b.transport.Err(); err != nil && !IsTransient(err) {
		return errors.Wrapf(err, "item %s is not playable", b.item.ID)
	}

	if !b.transport.Paused() {
		b.transport.Pause()
		return nil
	}
	if b.transport.Ended() {
		if err := b.transport.SeekTo(b.item.StartTime, false); err != nil {
			return errors.Wrap(err, "rewind after ended")
		}
	}
	return b.transport.Play()
}

// Pause pauses the transport.
func (b *Binding) Pause() {
	b.transport.Pause()
}

// Playing reports whether the transport is advancing.
func (b *Binding) Playing() bool {
	return !b.transport.Paused() && !b.transport.Ended()
}

// Ended reports whether the media played to its end.
func (b *Binding) Ended() bool {
	return b.transport.Ended()
}

// Position returns the current playback position.
func (b *Binding) Position() time.Duration {
	return b.transport.Position()
}

// Duration returns the media duration, falling back to the item metadata
// while the transport does not know yet.
func (b *Binding) Duration() time.Duration {
	if d := b.transport.Duration(); d > 0 {
		return d
	}
	return b.item.Duration
}

// FastSeek seeks approximately. Cheaper than an exact seek on compressed
// media.
func (b *Binding) FastSeek(d time.Duration) error {
	return b.SeekTo(d, false)
}

// SeekTo seeks to the given offset, clamped into the item's trim window. The
// transport-reported duration bounds the clamp once the item metadata knows
// no better.
func (b *Binding) SeekTo(d time.Duration, precise bool) error {
	it := b.Item()
	return b.transport.SeekTo(it.ClampOffset(d), precise)
}

// Loaded returns the buffered fraction in [0,1], summing all disjoint
// buffered ranges over the duration. Zero while the duration is unknown.
func (b *Binding) Loaded() float64 {
	total := b.Duration()
	if total <= 0 {
		return 0
	}
	var buffered time.Duration
	for _, r := range b.transport.Buffered() {
		if r.End > r.Start {
			buffered += r.End - r.Start
		}
	}
	frac := float64(buffered) / float64(total)
	if frac > 1 {
		frac = 1
	}
	return frac
}

// SetLoop sets the remaining repeat count for this item. n repeats the item
// n more times before the ended signal propagates; LoopInfinite repeats until
// cleared; 0 clears.
func (b *Binding) SetLoop(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.loopCount = n
}

// Loop returns the remaining repeat count.
func (b *Binding) Loop() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loopCount
}

// BindEnded attaches the advance handler invoked when the item finishes and
// no per-item loop is pending. The handler reference is stored so DropEnded
// detaches exactly what was attached; re-binding never stacks handlers.
func (b *Binding) BindEnded(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEnded = fn
}

// DropEnded detaches the advance handler.
func (b *Binding) DropEnded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEnded = nil
}

// Err returns the sticky transport error, if any.
func (b *Binding) Err() error {
	return b.transport.Err()
}

// Close releases the transport.
func (b *Binding) Close() error {
	b.transport.OnEnded(nil)
	b.DropEnded()
	return b.transport.Close()
}

// handleEnded runs on the transport's goroutine when the media ends. A
// pending per-item loop consumes the signal and restarts the item; otherwise
// the signal propagates to the bound advance handler.
func (b *Binding) handleEnded() {
	b.mu.Lock()
	if b.loopCount != 0 {
		if b.loopCount > 0 {
			b.loopCount--
		}
		b.mu.Unlock()
		if err := b.transport.SeekTo(b.item.StartTime, false); err != nil {
			zlog.Warn().Msgf("player: loop rewind failed for item %s: %v", b.item.ID, err)
			return
		}
		if err := b.transport.Play(); err != nil {
			zlog.Warn().Msgf("player: loop restart failed for item %s: %v", b.item.ID, err)
		}
		return
	}
	fn := b.onEnded
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}
