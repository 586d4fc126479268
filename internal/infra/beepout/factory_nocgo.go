//go:build !((linux && cgo) || windows || darwin)

package beepout

import (
	"github.com/cockroachdb/errors"

	"github.com/amplfr/amplfrd/internal/app/player"
	"github.com/amplfr/amplfrd/internal/domain/item"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = false

// Factory is a stub for builds without audio support.
type Factory struct{}

// NewFactory reports that audio output is unavailable in this build.
func NewFactory(settings Settings) (*Factory, error) {
	return nil, errors.New("audio output is not supported in this build (cgo disabled)")
}

// CanPlay reports decoder support for a MIME type.
func (f *Factory) CanPlay(mimeType string) item.Playability {
	return canPlay(mimeType)
}

// Open always fails in builds without audio support.
func (f *Factory) Open(it item.Item, src item.Source) (player.Transport, error) {
	return nil, errors.New("audio output is not supported in this build")
}
