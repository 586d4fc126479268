package player

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/app/queue"
	"github.com/amplfr/amplfrd/internal/domain/item"
)

// Errors
var (
	ErrNoCurrent  = errors.New("no current item")
	ErrQueueEmpty = errors.New("queue is empty")
)

// DefaultHistoryLimit bounds how many previously-current items keep their
// media bindings alive for "previous".
const DefaultHistoryLimit = 100

// Config holds controller configuration.
type Config struct {
	PreloadCount int  // Upcoming queue entries to keep materialized
	HistoryLimit int  // Previously-current items to retain
	Loop         bool // Wrap to the first item when the queue runs out
}

// ItemResolver turns an external reference (URL or ID) into a resolved item.
// Implemented by the metadata resolver; the controller never parses wire
// formats itself.
type ItemResolver interface {
	Resolve(ctx context.Context, ref string) (item.Item, error)
}

// Controller is the playback cursor: it owns the queue, the history and the
// current item's media binding, and keeps the three pairwise disjoint. Every
// operation is a single atomic state transition under the mutex, even though
// the media work it kicks off is asynchronous.
type Controller struct {
	mu sync.Mutex

	queue   *queue.Queue
	history *queue.History
	preload *preloader

	current *item.Item // Current item, nil when empty
	binding *Binding   // Current item's binding, nil when the item is unplayable
	state   State
	loop    bool // Collection-level loop, independent of per-item loop counts

	resolver ItemResolver

	tickerCancel context.CancelFunc

	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewController creates a controller around an empty queue.
func NewController(cfg Config, factory TransportFactory, resolver ItemResolver) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	c := &Controller{
		queue:    queue.New(),
		preload:  newPreloader(cfg.PreloadCount, factory),
		state:    StateEmpty,
		loop:     cfg.Loop,
		resolver: resolver,
		eventCh:  make(chan Event, 64),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.history = queue.NewHistory(cfg.HistoryLimit, func(evicted item.Item) {
		c.preload.release(evicted.ID)
	})
	c.preload.onLoaded = func(it item.Item) {
		c.sendEventLocked(Event{Type: EventItemLoaded, Item: &it, State: c.state})
	}
	c.queue.Notify(func(ch queue.Change) {
		if len(ch.Added) > 0 {
			c.sendEventLocked(Event{Type: EventItemAdded, IDs: ch.Added, State: c.state})
		}
		if len(ch.Removed) > 0 {
			c.sendEventLocked(Event{Type: EventItemRemoved, IDs: ch.Removed, State: c.state})
		}
		c.preload.sync(c.queue.Items(), c.protectedLocked())
	})
	return c
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Add inserts resolved items at pos; a pos outside the queue appends. Items
// already present as current, queued or remembered are skipped, keeping the
// one-instance-per-ID invariant. If nothing is current, the new head is
// staged (promoted without playing).
func (c *Controller) Add(pos int, items ...item.Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(pos, items...)
}

// Append adds items to the end of the queue.
func (c *Controller) Append(items ...item.Item) {
	c.Add(-1, items...)
}

// Prepend adds items to the front of the queue.
func (c *Controller) Prepend(items ...item.Item) {
	c.Add(0, items...)
}

func (c *Controller) addLocked(pos int, items ...item.Item) {
	admitted := make([]item.Item, 0, len(items))
	for _, it := range items {
		if c.current != nil && c.current.ID == it.ID {
			zlog.Debug().Msgf("player: item %s is already current, skipping add", it.ID)
			continue
		}
		if c.history.Contains(it.ID) {
			zlog.Debug().Msgf("player: item %s is in history, skipping add", it.ID)
			continue
		}
		admitted = append(admitted, it)
	}
	c.queue.Add(pos, admitted...)

	if c.current == nil {
		if head, ok := c.queue.Front(); ok {
			c.promoteLocked(head, true, false)
		}
	}
}

// AddRefs resolves external references and appends the resolved items.
// Unresolvable references are logged and skipped; queue state is unaffected
// by them. The successfully resolved items are returned.
func (c *Controller) AddRefs(ctx context.Context, pos int, refs ...string) []item.Item {
	if c.resolver == nil {
		zlog.Warn().Msg("player: no resolver configured, dropping refs")
		return nil
	}
	resolved := make([]item.Item, 0, len(refs))
	for _, ref := range refs {
		it, err := c.resolver.Resolve(ctx, ref)
		if err != nil {
			zlog.Warn().Msgf("player: reference %q could not be resolved: %v", ref, err)
			continue
		}
		resolved = append(resolved, it)
	}
	if len(resolved) > 0 {
		c.Add(pos, resolved...)
	}
	return resolved
}

// Remove removes a queued item by ID. Missing IDs are a no-op.
func (c *Controller) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Remove(id)
}

// RemoveAt removes a queued item by zero-based index. Out-of-range indices
// are a no-op.
func (c *Controller) RemoveAt(i int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.RemoveAt(i)
}

// Move moves a queued item between zero-based positions.
func (c *Controller) Move(fromPos, toPos int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Move(fromPos, toPos)
}

// Shuffle permutes the queue, snapshotting the original order once.
func (c *Controller) Shuffle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Shuffle()
}

// Sort restores the pre-shuffle order, if a shuffle is pending undo.
func (c *Controller) Sort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Sort()
}

// Play toggles playback of the current item. With no current item, the queue
// head is promoted and played.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		head, ok := c.queue.Front()
		if !ok {
			return ErrQueueEmpty
		}
		c.promoteLocked(head, true, true)
		return nil
	}
	return c.playLocked()
}

// Pause pauses the current item.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoCurrent
	}
	if c.binding == nil || !c.binding.Playing() {
		return nil
	}
	c.binding.Pause()
	c.state = StatePaused
	c.stopTickerLocked()
	c.sendEventLocked(Event{Type: EventStateChanged, Item: c.current, State: c.state})
	return nil
}

// Stop pauses the current item and rewinds it to its start offset.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return ErrNoCurrent
	}
	if c.binding != nil {
		c.binding.Pause()
		if err := c.binding.SeekTo(0, true); err != nil {
			return errors.Wrap(err, "rewind")
		}
	}
	c.state = StatePaused
	c.stopTickerLocked()
	c.sendEventLocked(Event{Type: EventStateChanged, Item: c.current, State: c.state})
	return nil
}

// SeekTo positions playback of the current item, clamped into the item's trim
// window. precise=false permits a cheap approximate seek; fine scrubbing
// passes precise=true.
func (c *Controller) SeekTo(d time.Duration, precise bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.binding == nil {
		return ErrNoCurrent
	}
	if err := c.binding.SeekTo(d, precise); err != nil {
		return errors.Wrap(err, "seek")
	}
	c.sendEventLocked(Event{
		Type:     EventTimeUpdate,
		Item:     c.current,
		State:    c.state,
		Position: c.binding.Position(),
	})
	return nil
}

// Next advances to the queue head. Playback resumes only if the current item
// was playing. An exhausted queue wraps when the collection loop flag is set;
// otherwise the cursor empties and a queue-ended event fires.
func (c *Controller) Next() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextLocked(false)
}

// Previous returns to the most recent history entry, pushing the current item
// back onto the queue front. A no-op with empty history.
func (c *Controller) Previous() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.history.Pop()
	if !ok {
		return nil
	}
	wasPlaying := c.state == StatePlaying

	if c.current != nil {
		if c.binding != nil {
			c.binding.Pause()
			c.binding.DropEnded()
		}
		c.queue.Prepend(*c.current)
		c.current = nil
		c.binding = nil
	}

	c.promoteLocked(prev, false, wasPlaying)
	return nil
}

// SetLoop sets the collection-level loop flag.
func (c *Controller) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = loop
}

// Loop returns the collection-level loop flag.
func (c *Controller) Loop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

// SetItemLoop sets the current item's repeat count. Independent of the
// collection loop flag.
func (c *Controller) SetItemLoop(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.binding == nil {
		return ErrNoCurrent
	}
	c.binding.SetLoop(n)
	return nil
}

// State returns the cursor state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the current item.
func (c *Controller) Current() (item.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return item.Item{}, false
	}
	if c.binding != nil {
		return c.binding.Item(), true
	}
	return *c.current, true
}

// QueueItems returns the queued items in playback order.
func (c *Controller) QueueItems() []item.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Items()
}

// HistoryItems returns the previously-current items, oldest first.
func (c *Controller) HistoryItems() []item.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Items()
}

// Status is a point-in-time snapshot for status surfaces.
type Status struct {
	State      State
	Current    *item.Item
	Position   time.Duration
	Duration   time.Duration
	Loaded     float64
	Loop       bool
	QueueLen   int
	HistoryLen int
}

// Status returns a consistent snapshot of the cursor.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:      c.state,
		Loop:       c.loop,
		QueueLen:   c.queue.Len(),
		HistoryLen: c.history.Len(),
	}
	if c.current != nil {
		cur := *c.current
		if c.binding != nil {
			cur = c.binding.Item()
			st.Position = c.binding.Position()
			st.Duration = c.binding.Duration()
			st.Loaded = c.binding.Loaded()
		}
		st.Current = &cur
	}
	return st
}

// Close releases all bindings and closes the event channel.
func (c *Controller) Close() {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTickerLocked()
	if c.binding != nil {
		c.binding.DropEnded()
	}
	c.preload.releaseAll()
	c.current = nil
	c.binding = nil
	c.state = StateEmpty
	close(c.eventCh)
}

// promoteLocked stages an item as current. The previous current item is
// paused and archived to history. fromQueue removes the item from the queue
// after the cursor already points at it, so the preload window never drops
// the binding in between. Playback starts only when andPlay is set;
// promotion itself merely stages.
func (c *Controller) promoteLocked(it item.Item, fromQueue, andPlay bool) {
	if c.current != nil {
		if c.binding != nil {
			c.binding.Pause()
			c.binding.DropEnded()
		}
		c.history.Push(*c.current)
	}

	c.current = &it
	c.binding = nil
	if fromQueue {
		c.queue.Remove(it.ID)
	}

	b, err := c.preload.ensure(it)
	if err != nil {
		// Unsupported media marks the item, not the cursor; Next stays
		// usable.
		zlog.Warn().Msgf("player: item %s has no playable source: %v", it.ID, err)
		c.state = StatePaused
		c.stopTickerLocked()
		c.sendEventLocked(Event{Type: EventItemPromoted, Item: &it, State: c.state, Err: err})
		return
	}
	c.binding = b
	id := it.ID
	b.BindEnded(func() { c.onBindingEnded(id) })

	c.state = StatePaused
	c.sendEventLocked(Event{Type: EventItemPromoted, Item: &it, State: c.state})

	if andPlay {
		if err := c.playLocked(); err != nil {
			zlog.Warn().Msgf("player: starting item %s: %v", it.ID, err)
		}
	}
}

// playLocked toggles the current binding and enforces the single active
// transport rule.
func (c *Controller) playLocked() error {
	if c.binding == nil {
		return errors.Wrapf(ErrNoPlayableSource, "item %s", c.current.ID)
	}

	if !c.binding.Playing() {
		c.preload.pauseAllExcept(c.current.ID)
	}
	if err := c.binding.Play(); err != nil {
		c.sendEventLocked(Event{Type: EventStateChanged, Item: c.current, State: c.state, Err: err})
		return err
	}

	if c.binding.Playing() {
		c.state = StatePlaying
		c.startTickerLocked()
	} else {
		c.state = StatePaused
		c.stopTickerLocked()
	}
	c.sendEventLocked(Event{Type: EventStateChanged, Item: c.current, State: c.state})
	return nil
}

func (c *Controller) nextLocked(andPlay bool) error {
	wasPlaying := c.state == StatePlaying

	head, ok := c.queue.Front()
	if !ok && c.loop {
		// Wrap: archive the current item first so the drained history is
		// the full play order, then refill the queue from it.
		c.archiveCurrentLocked()
		if played := c.history.Drain(); len(played) > 0 {
			c.queue.Append(played...)
		}
		head, ok = c.queue.Front()
	}
	if !ok {
		c.archiveCurrentLocked()
		c.state = StateEmpty
		c.stopTickerLocked()
		c.sendEventLocked(Event{Type: EventQueueEnded, State: c.state})
		return nil
	}

	c.promoteLocked(head, true, andPlay || wasPlaying)
	return nil
}

// archiveCurrentLocked moves the current item to history and clears the
// cursor.
func (c *Controller) archiveCurrentLocked() {
	if c.current == nil {
		return
	}
	if c.binding != nil {
		c.binding.Pause()
		c.binding.DropEnded()
	}
	c.history.Push(*c.current)
	c.current = nil
	c.binding = nil
}

// onBindingEnded runs when the current item's media ends naturally. Per-item
// loops were already consumed inside the binding. Errors never reach here;
// auto-advance is reserved for a true ended signal.
func (c *Controller) onBindingEnded(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A stale signal from a superseded binding must not advance the cursor.
	if c.current == nil || c.current.ID != id {
		return
	}

	c.state = StateEnded
	c.stopTickerLocked()
	c.sendEventLocked(Event{Type: EventItemEnded, Item: c.current, State: c.state})

	if err := c.nextLocked(true); err != nil {
		zlog.Warn().Msgf("player: auto-advance after item %s: %v", id, err)
	}
}

// protectedLocked returns the IDs whose bindings must survive preload-window
// recomputation: the current item and everything remembered for "previous".
func (c *Controller) protectedLocked() map[string]bool {
	protected := make(map[string]bool, c.history.Len()+1)
	if c.current != nil {
		protected[c.current.ID] = true
	}
	for _, id := range c.history.IDs() {
		protected[id] = true
	}
	return protected
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	select {
	case c.eventCh <- e:
	case <-c.ctx.Done():
	default:
		// Channel full, drop the event rather than stall a transition.
	}
}

// startTickerLocked emits time updates while playing and watches for
// transport errors. Transport failures pause the item and surface a warning;
// they never auto-advance.
func (c *Controller) startTickerLocked() {
	if c.tickerCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.tickerCancel = cancel

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.tick()
			}
		}
	}()
}

func (c *Controller) stopTickerLocked() {
	if c.tickerCancel != nil {
		c.tickerCancel()
		c.tickerCancel = nil
	}
}

func (c *Controller) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePlaying || c.binding == nil {
		return
	}
	if err := c.binding.Err(); err != nil && !c.binding.Playing() {
		zlog.Warn().Msgf("player: transport error on item %s: %v", c.current.ID, err)
		c.state = StatePaused
		c.stopTickerLocked()
		c.sendEventLocked(Event{Type: EventStateChanged, Item: c.current, State: c.state, Err: err})
		return
	}
	c.sendEventLocked(Event{
		Type:     EventTimeUpdate,
		Item:     c.current,
		State:    c.state,
		Position: c.binding.Position(),
	})
}
