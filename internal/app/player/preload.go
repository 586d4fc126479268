package player

import (
	zlog "github.com/rs/zerolog/log"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// DefaultPreloadCount is how many upcoming queue items get their media
// binding materialized ahead of playback need.
const DefaultPreloadCount = 2

// preloader caches media bindings and keeps the first preload-window queue
// entries materialized so promotion is cheap. Items outside the window stay
// metadata-only until they become current.
//
// The owning controller serializes access.
type preloader struct {
	count    int
	factory  TransportFactory
	bindings map[string]*Binding
	onLoaded func(it item.Item) // Invoked when a binding is first materialized
}

func newPreloader(count int, factory TransportFactory) *preloader {
	if count <= 0 {
		count = DefaultPreloadCount
	}
	return &preloader{
		count:    count,
		factory:  factory,
		bindings: make(map[string]*Binding),
	}
}

// get returns the cached binding for an item, if materialized.
func (p *preloader) get(id string) (*Binding, bool) {
	b, ok := p.bindings[id]
	return b, ok
}

// ensure returns the binding for an item, materializing it on first use.
func (p *preloader) ensure(it item.Item) (*Binding, error) {
	if b, ok := p.bindings[it.ID]; ok {
		return b, nil
	}
	b, err := NewBinding(it, p.factory)
	if err != nil {
		return nil, err
	}
	p.bindings[it.ID] = b
	if p.onLoaded != nil {
		p.onLoaded(b.Item())
	}
	return b, nil
}

// release closes and forgets the binding for an item, if materialized.
func (p *preloader) release(id string) {
	b, ok := p.bindings[id]
	if !ok {
		return
	}
	delete(p.bindings, id)
	if err := b.Close(); err != nil {
		zlog.Debug().Msgf("player: closing binding for item %s: %v", id, err)
	}
}

// releaseAll closes every cached binding.
func (p *preloader) releaseAll() {
	for id := range p.bindings {
		p.release(id)
	}
}

// sync recomputes the preload window after a queue mutation: the first
// count queue entries get bindings, entries beyond the window that are not
// otherwise protected (current, history) are released without ever having
// been played.
func (p *preloader) sync(upcoming []item.Item, protected map[string]bool) {
	window := make(map[string]bool, p.count)
	for i, it := range upcoming {
		if i >= p.count {
			break
		}
		window[it.ID] = true
		if _, err := p.ensure(it); err != nil {
			zlog.Warn().Msgf("player: preload of item %s failed: %v", it.ID, err)
		}
	}

	for id := range p.bindings {
		if window[id] || protected[id] {
			continue
		}
		p.release(id)
	}
}

// pauseAllExcept pauses every cached binding but the given one. Enforces the
// single active transport rule.
func (p *preloader) pauseAllExcept(id string) {
	for other, b := range p.bindings {
		if other == id {
			continue
		}
		if b.Playing() {
			b.Pause()
		}
	}
}
