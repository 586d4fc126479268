package player

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

func newTestController(t *testing.T, cfg Config) (*Controller, *fakeFactory) {
	t.Helper()
	factory := newFakeFactory()
	c := NewController(cfg, factory, nil)
	t.Cleanup(c.Close)
	return c, factory
}

// drainAll empties the event channel.
func drainAll(c *Controller) []Event {
	var events []Event
	for {
		select {
		case e := <-c.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

// drainEvents empties the event channel and returns the event types seen.
func drainEvents(c *Controller) []EventType {
	events := drainAll(c)
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

// queueIDs extracts the queued IDs in order.
func queueIDs(c *Controller) []string {
	items := c.QueueItems()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func historyIDs(c *Controller) []string {
	items := c.HistoryItems()
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// assertDisjoint checks the core invariant: queue, history and current never
// share an ID.
func assertDisjoint(t *testing.T, c *Controller) {
	t.Helper()
	seen := map[string]string{}
	record := func(id, where string) {
		if prev, ok := seen[id]; ok {
			t.Fatalf("item %s appears in both %s and %s", id, prev, where)
		}
		seen[id] = where
	}
	for _, id := range queueIDs(c) {
		record(id, "queue")
	}
	for _, id := range historyIDs(c) {
		record(id, "history")
	}
	if cur, ok := c.Current(); ok {
		record(cur.ID, "current")
	}
}

func TestPlayPromotesQueueHead(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))

	// Adding into an empty cursor stages the head without playing it.
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, StatePaused, c.State())
	assert.Equal(t, []string{"b", "c"}, queueIDs(c))

	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())
	assertDisjoint(t, c)
}

func TestPlayTogglesToPause(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"))

	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())

	// Play on a playing item pauses it.
	require.NoError(t, c.Play())
	assert.Equal(t, StatePaused, c.State())

	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())
}

func TestNextExhaustsQueueAndEmitsQueueEnded(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))
	require.NoError(t, c.Play())
	drainEvents(c)

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "c", cur.ID)
	assert.Empty(t, queueIDs(c))
	assert.Equal(t, []string{"a", "b"}, historyIDs(c))
	// Advancing while playing keeps playing.
	assert.Equal(t, StatePlaying, c.State())
	assertDisjoint(t, c)

	drainEvents(c)
	require.NoError(t, c.Next())

	_, ok = c.Current()
	assert.False(t, ok)
	assert.Equal(t, StateEmpty, c.State())
	assert.Equal(t, []string{"a", "b", "c"}, historyIDs(c))
	assert.Contains(t, drainEvents(c), EventQueueEnded)
}

func TestNextWrapsWithCollectionLoop(t *testing.T) {
	c, _ := newTestController(t, Config{Loop: true})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))
	require.NoError(t, c.Play())

	require.NoError(t, c.Next())
	require.NoError(t, c.Next())
	drainEvents(c)

	// Third advance wraps back to the first item instead of emptying.
	require.NoError(t, c.Next())

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, []string{"b", "c"}, queueIDs(c))
	assert.Empty(t, historyIDs(c))
	assert.NotContains(t, drainEvents(c), EventQueueEnded)
	assertDisjoint(t, c)
}

func TestAddWhileCurrentLeavesCurrentAlone(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))

	c.Prepend(mp3Item("x"))

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, []string{"x", "b"}, queueIDs(c))
	assertDisjoint(t, c)
}

func TestRemoveMissingIsNoop(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))

	c.Remove("b")
	assert.Equal(t, []string{"c"}, queueIDs(c))

	c.Remove("b")
	c.Remove("never-existed")
	assert.Equal(t, []string{"c"}, queueIDs(c))

	cur, _ := c.Current()
	assert.Equal(t, "a", cur.ID)
	assert.Empty(t, historyIDs(c))
}

func TestAddSkipsCurrentAndHistory(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))
	require.NoError(t, c.Next()) // a -> history, b current

	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))

	assert.Equal(t, []string{"c"}, queueIDs(c))
	assertDisjoint(t, c)
}

func TestSeekClamping(t *testing.T) {
	c, factory := newTestController(t, Config{})
	factory.durations["a"] = 200 * time.Second
	c.Append(mp3Item("a"))

	require.NoError(t, c.SeekTo(-5*time.Second, true))
	assert.Equal(t, time.Duration(0), c.Status().Position)

	require.NoError(t, c.SeekTo(500*time.Second, true))
	assert.Equal(t, 200*time.Second, c.Status().Position)

	require.NoError(t, c.SeekTo(42*time.Second, false))
	assert.Equal(t, 42*time.Second, c.Status().Position)

	// precise=false goes through the fast seek path.
	tr := factory.last("a")
	require.NotNil(t, tr)
	assert.Equal(t, 1, tr.fastSeeks)
	assert.Equal(t, 2, tr.preciseSeeks)
}

func TestStopRewindsToStartOffset(t *testing.T) {
	c, factory := newTestController(t, Config{})
	factory.durations["a"] = 200 * time.Second
	trimmed := mp3Item("a")
	trimmed.StartTime = 10 * time.Second
	c.Append(trimmed)

	require.NoError(t, c.Play())
	require.NoError(t, c.SeekTo(90*time.Second, true))
	require.NoError(t, c.Stop())

	st := c.Status()
	assert.Equal(t, StatePaused, st.State)
	assert.Equal(t, 10*time.Second, st.Position)
}

func TestNextPreviousRoundTrip(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))
	require.NoError(t, c.Play())

	require.NoError(t, c.Next())
	cur, _ := c.Current()
	require.Equal(t, "b", cur.ID)

	require.NoError(t, c.Previous())

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur.ID)
	// The original queue head is restored.
	assert.Equal(t, []string{"b", "c"}, queueIDs(c))
	assert.Empty(t, historyIDs(c))
	assert.Equal(t, StatePlaying, c.State())
	assertDisjoint(t, c)
}

func TestPreviousWithEmptyHistoryIsNoop(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))

	require.NoError(t, c.Previous())

	cur, _ := c.Current()
	assert.Equal(t, "a", cur.ID)
	assert.Equal(t, []string{"b"}, queueIDs(c))
}

func TestAutoAdvanceOnEnded(t *testing.T) {
	c, factory := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))
	require.NoError(t, c.Play())
	drainEvents(c)

	factory.last("a").finish()

	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)
	// A natural end keeps playing.
	assert.Equal(t, StatePlaying, c.State())

	types := drainEvents(c)
	assert.Contains(t, types, EventItemEnded)
	assert.Contains(t, types, EventItemPromoted)
	assertDisjoint(t, c)
}

func TestStaleEndedSignalDoesNotAdvance(t *testing.T) {
	c, factory := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))
	require.NoError(t, c.Play())

	trA := factory.last("a")
	require.NoError(t, c.Next()) // b is current, a's handler dropped

	trA.finish()

	cur, _ := c.Current()
	assert.Equal(t, "b", cur.ID, "a stale ended signal must not advance the cursor")
}

func TestItemLoopRepeatsBeforeAdvance(t *testing.T) {
	c, factory := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))
	require.NoError(t, c.Play())
	require.NoError(t, c.SetItemLoop(1))

	tr := factory.last("a")
	tr.finish()

	// One repeat pending: the item restarts instead of advancing.
	cur, _ := c.Current()
	assert.Equal(t, "a", cur.ID)
	assert.False(t, tr.Paused())

	tr.finish()

	cur, _ = c.Current()
	assert.Equal(t, "b", cur.ID)
}

func TestCollectionLoopAndItemLoopAreIndependent(t *testing.T) {
	c, factory := newTestController(t, Config{Loop: true})
	c.Append(mp3Item("a"), mp3Item("b"))
	require.NoError(t, c.Play())
	require.NoError(t, c.SetItemLoop(1))

	tr := factory.last("a")
	tr.finish() // Consumed by the per-item loop
	cur, _ := c.Current()
	assert.Equal(t, "a", cur.ID)

	tr.finish() // Advances normally; collection loop untouched
	cur, _ = c.Current()
	assert.Equal(t, "b", cur.ID)
	assert.True(t, c.Loop())
}

func TestSinglePlayingTransport(t *testing.T) {
	c, factory := newTestController(t, Config{PreloadCount: 3})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"), mp3Item("d"))
	require.NoError(t, c.Play())

	assert.Equal(t, 1, factory.playingCount())

	require.NoError(t, c.Next())
	assert.Equal(t, 1, factory.playingCount())

	require.NoError(t, c.Previous())
	assert.Equal(t, 1, factory.playingCount())
}

func TestUnsupportedMediaDoesNotBreakCursor(t *testing.T) {
	c, _ := newTestController(t, Config{})
	flac := item.Item{
		ID:      "x",
		Title:   "Unplayable",
		Sources: []item.Source{{URL: "x.flac", MimeType: "audio/flac"}},
	}
	c.Append(flac, mp3Item("b"))

	// The unplayable item is staged but cannot start.
	cur, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "x", cur.ID)
	assert.Error(t, c.Play())

	// Next remains usable and reaches the playable item.
	require.NoError(t, c.Next())
	cur, _ = c.Current()
	assert.Equal(t, "b", cur.ID)
	require.NoError(t, c.Play())
	assert.Equal(t, StatePlaying, c.State())
}

func TestPreloadWindowBoundsBindings(t *testing.T) {
	c, factory := newTestController(t, Config{PreloadCount: 2})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"), mp3Item("d"), mp3Item("e"))

	// Current plus the first two queue entries are materialized; the rest
	// stay metadata-only.
	assert.Equal(t, 3, factory.openCount())
}

func TestPreloadReleasesRemovedItems(t *testing.T) {
	c, factory := newTestController(t, Config{PreloadCount: 2})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))

	trB := factory.last("b")
	require.NotNil(t, trB)

	c.Remove("b")

	trB.mu.Lock()
	closed := trB.closed
	trB.mu.Unlock()
	assert.True(t, closed, "binding of a removed never-played item is released")
}

func TestTransportErrorPausesWithoutAdvance(t *testing.T) {
	c, factory := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"))
	require.NoError(t, c.Play())
	drainEvents(c)

	factory.last("a").setErr(errors.New("decode failed"))
	c.tick()

	cur, _ := c.Current()
	assert.Equal(t, "a", cur.ID, "errors must not skip user-selected content")
	assert.Equal(t, StatePaused, c.State())

	var sawErr bool
	for _, e := range drainAll(c) {
		if e.Type == EventStateChanged && e.Err != nil {
			sawErr = true
		}
	}
	assert.True(t, sawErr, "transport error surfaces as a warning event")
}

func TestShuffleSortThroughController(t *testing.T) {
	c, _ := newTestController(t, Config{})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"), mp3Item("d"), mp3Item("e"), mp3Item("f"))
	original := queueIDs(c)

	c.Shuffle()
	c.Shuffle()
	c.Sort()

	assert.Equal(t, original, queueIDs(c))
	assertDisjoint(t, c)
}

func TestHistoryEvictionReleasesBindings(t *testing.T) {
	c, factory := newTestController(t, Config{HistoryLimit: 1})
	c.Append(mp3Item("a"), mp3Item("b"), mp3Item("c"))
	require.NoError(t, c.Play())

	trA := factory.last("a")
	require.NoError(t, c.Next())
	require.NoError(t, c.Next()) // a falls off the bounded history

	assert.Equal(t, []string{"b"}, historyIDs(c))
	trA.mu.Lock()
	closed := trA.closed
	trA.mu.Unlock()
	assert.True(t, closed)
}
