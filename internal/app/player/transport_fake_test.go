package player

import (
	"sync"
	"time"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// fakeTransport is an in-memory transport for tests. The ended signal is
// raised manually with finish().
type fakeTransport struct {
	mu       sync.Mutex
	src      item.Source
	paused   bool
	ended    bool
	pos      time.Duration
	dur      time.Duration
	buffered []Range
	err      error
	onEnded  func()
	closed   bool

	preciseSeeks int
	fastSeeks    int
}

func newFakeTransport(src item.Source, dur time.Duration) *fakeTransport {
	return &fakeTransport{src: src, paused: true, dur: dur}
}

func (f *fakeTransport) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && !IsTransient(f.err) {
		return f.err
	}
	f.paused = false
	f.ended = false
	return nil
}

func (f *fakeTransport) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paused = true
}

func (f *fakeTransport) SeekTo(d time.Duration, precise bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if precise {
		f.preciseSeeks++
	} else {
		f.fastSeeks++
	}
	f.pos = d
	f.ended = false
	return nil
}

func (f *fakeTransport) Position() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeTransport) Duration() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeTransport) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

func (f *fakeTransport) Ended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

func (f *fakeTransport) Buffered() []Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buffered
}

func (f *fakeTransport) OnEnded(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnded = fn
}

func (f *fakeTransport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// finish simulates the media playing to its end.
func (f *fakeTransport) finish() {
	f.mu.Lock()
	f.ended = true
	f.paused = true
	f.pos = f.dur
	fn := f.onEnded
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *fakeTransport) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
	f.paused = true
}

// fakeFactory opens fake transports and remembers them per item ID.
type fakeFactory struct {
	mu         sync.Mutex
	playable   map[string]item.Playability // By MIME type; missing = no
	durations  map[string]time.Duration    // By item ID
	openErrs   map[string]error            // By source URL
	transports map[string][]*fakeTransport // By item ID
	opens      int
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		playable:   map[string]item.Playability{"audio/mpeg": item.PlayabilityProbably},
		durations:  map[string]time.Duration{},
		openErrs:   map[string]error{},
		transports: map[string][]*fakeTransport{},
	}
}

func (f *fakeFactory) CanPlay(mimeType string) item.Playability {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playable[mimeType]
}

func (f *fakeFactory) Open(it item.Item, src item.Source) (Transport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErrs[src.URL]; err != nil {
		return nil, err
	}
	dur := f.durations[it.ID]
	if dur == 0 {
		dur = 3 * time.Minute
	}
	tr := newFakeTransport(src, dur)
	f.transports[it.ID] = append(f.transports[it.ID], tr)
	f.opens++
	return tr, nil
}

// last returns the most recently opened transport for an item.
func (f *fakeFactory) last(id string) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	trs := f.transports[id]
	if len(trs) == 0 {
		return nil
	}
	return trs[len(trs)-1]
}

// playingCount counts transports currently advancing.
func (f *fakeFactory) playingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, trs := range f.transports {
		for _, tr := range trs {
			tr.mu.Lock()
			if !tr.paused && !tr.ended && !tr.closed {
				n++
			}
			tr.mu.Unlock()
		}
	}
	return n
}

func (f *fakeFactory) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

// mp3Item builds a test item with a single mp3 source.
func mp3Item(id string) item.Item {
	return item.Item{
		ID:      id,
		Title:   "Track " + id,
		Artists: []item.Artist{{ID: "art-" + id, Name: "Artist " + id}},
		Sources: []item.Source{{URL: id + ".mp3", MimeType: "audio/mpeg"}},
	}
}
