//go:build (linux && cgo) || windows || darwin

package beepout

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/amplfr/amplfrd/internal/app/player"
	"github.com/amplfr/amplfrd/internal/domain/item"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// Factory opens speaker transports. The speaker device is initialized once
// with the configured sample rate; every stream is resampled to it.
type Factory struct {
	settings   Settings
	sampleRate beep.SampleRate
	httpClient *http.Client

	initOnce sync.Once
	initErr  error
}

// NewFactory creates a speaker transport factory.
func NewFactory(settings Settings) (*Factory, error) {
	return &Factory{
		settings:   settings,
		sampleRate: beep.SampleRate(settings.SampleRate),
		httpClient: &http.Client{},
	}, nil
}

// CanPlay reports decoder support for a MIME type.
func (f *Factory) CanPlay(mimeType string) item.Playability {
	return canPlay(mimeType)
}

// Open starts fetching and decoding the source in the background and returns
// the transport immediately. Play before the media is ready is remembered and
// honored once decoding finishes.
func (f *Factory) Open(it item.Item, src item.Source) (player.Transport, error) {
	f.initOnce.Do(func() {
		buf := f.sampleRate.N(time.Duration(f.settings.BufferMs) * time.Millisecond)
		f.initErr = speaker.Init(f.sampleRate, buf)
	})
	if f.initErr != nil {
		return nil, errors.Wrap(f.initErr, "speaker init")
	}

	t := &transport{
		item:       it,
		src:        src,
		sampleRate: f.sampleRate,
	}
	go t.fetch(f.httpClient, int64(f.settings.FetchLimitMB)<<20)
	return t, nil
}

// transport plays one committed source through the speaker.
type transport struct {
	mu sync.Mutex

	item       item.Item
	src        item.Source
	sampleRate beep.SampleRate

	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampled beep.Streamer
	ctrl      *beep.Ctrl

	ready     bool
	submitted bool // A sequence for this stream is queued on the speaker
	wantPlay  bool // Play arrived before the media was ready
	pendSeek  time.Duration
	hasSeek   bool
	ended     bool
	closed    bool
	err       error

	onEnded func()
}

// fetch downloads and decodes the source, then honors any pending play/seek.
func (t *transport) fetch(client *http.Client, limit int64) {
	data, err := t.fetchBytes(client, limit)
	if err != nil {
		t.mu.Lock()
		t.err = err
		t.wantPlay = false
		t.mu.Unlock()
		return
	}

	streamer, format, err := decode(t.src.MimeType, data)
	if err != nil {
		t.mu.Lock()
		t.err = errors.Wrapf(err, "decode %s", t.src.URL)
		t.wantPlay = false
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		streamer.Close()
		return
	}
	t.streamer = streamer
	t.format = format
	t.resampled = beep.Resample(4, format.SampleRate, t.sampleRate, streamer)
	t.ready = true

	if t.hasSeek {
		if err := t.seekLocked(t.pendSeek); err != nil {
			t.err = err
		}
		t.hasSeek = false
	}
	if t.wantPlay {
		t.wantPlay = false
		t.startLocked()
	}
}

func (t *transport) fetchBytes(client *http.Client, limit int64) ([]byte, error) {
	url := t.src.URL
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		resp, err := client.Get(url)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch %s", url)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, errors.Newf("fetch %s returned %d", url, resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", url)
		}
		return data, nil
	}

	path := strings.TrimPrefix(url, "file://")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// decode picks a decoder by MIME type.
func decode(mimeType string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	reader := nopCloser{bytes.NewReader(data)}
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return mp3.Decode(reader)
	case "audio/wav", "audio/x-wav":
		return wav.Decode(reader)
	case "audio/flac":
		return flac.Decode(reader)
	case "audio/ogg", "application/ogg":
		return vorbis.Decode(reader)
	default:
		return nil, beep.Format{}, errors.Newf("no decoder for %s", mimeType)
	}
}

// Play starts or resumes playback. Before the media is ready the intent is
// recorded and honored when decoding finishes.
func (t *transport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err != nil && !player.IsTransient(t.err) {
		return t.err
	}
	if t.closed {
		return errors.New("transport closed")
	}
	if !t.ready {
		t.wantPlay = true
		return nil
	}
	t.startLocked()
	return nil
}

// startLocked submits or resumes the speaker sequence.
// Must be called with lock held, media ready.
func (t *transport) startLocked() {
	t.ended = false
	if t.submitted {
		speaker.Lock()
		t.ctrl.Paused = false
		speaker.Unlock()
		return
	}
	t.ctrl = &beep.Ctrl{Streamer: t.resampled}
	t.submitted = true
	speaker.Play(beep.Seq(t.ctrl, beep.Callback(t.fireEnded)))
}

// fireEnded runs on the speaker goroutine when the sequence drains. The
// handler runs on a fresh goroutine so it may submit new speaker work.
func (t *transport) fireEnded() {
	go func() {
		t.mu.Lock()
		t.ended = true
		t.submitted = false
		fn := t.onEnded
		t.mu.Unlock()
		if fn != nil {
			fn()
		}
	}()
}

// Pause pauses playback, keeping the position.
func (t *transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		t.wantPlay = false
		return
	}
	if t.ctrl != nil {
		speaker.Lock()
		t.ctrl.Paused = true
		speaker.Unlock()
	}
}

// SeekTo positions playback. Seeking is sample-accurate on a decoded
// in-memory stream, so the precise flag makes no difference here.
func (t *transport) SeekTo(d time.Duration, precise bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		t.pendSeek = d
		t.hasSeek = true
		return nil
	}
	return t.seekLocked(d)
}

func (t *transport) seekLocked(d time.Duration) error {
	speaker.Lock()
	defer speaker.Unlock()
	t.ended = false
	if err := t.streamer.Seek(t.format.SampleRate.N(d)); err != nil {
		return errors.Wrapf(err, "seek %s", t.src.URL)
	}
	return nil
}

// Position returns the current playback position.
func (t *transport) Position() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return 0
	}
	speaker.Lock()
	pos := t.streamer.Position()
	speaker.Unlock()
	return t.format.SampleRate.D(pos)
}

// Duration returns the media duration, zero while still fetching.
func (t *transport) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return 0
	}
	return t.format.SampleRate.D(t.streamer.Len())
}

// Paused reports whether the transport is not advancing.
func (t *transport) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return !t.wantPlay
	}
	if t.ended || t.ctrl == nil || !t.submitted {
		return true
	}
	speaker.Lock()
	paused := t.ctrl.Paused
	speaker.Unlock()
	return paused
}

// Ended reports whether the media played to its end.
func (t *transport) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ended
}

// Buffered reports the buffered ranges. The whole stream is held in memory
// once decoded, so this is empty while fetching and the full range after.
func (t *transport) Buffered() []player.Range {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return nil
	}
	return []player.Range{{Start: 0, End: t.format.SampleRate.D(t.streamer.Len())}}
}

// OnEnded sets the ended handler.
func (t *transport) OnEnded(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnded = fn
}

// Err returns the sticky transport error, if any.
func (t *transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close releases the decoded stream.
func (t *transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.onEnded = nil
	if t.ctrl != nil && t.submitted {
		speaker.Lock()
		t.ctrl.Paused = true
		speaker.Unlock()
	}
	if t.streamer != nil {
		return t.streamer.Close()
	}
	return nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
