// Package beepout provides an audio transport backed by the beep library and
// the local speaker.
package beepout

import (
	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// Settings configures the speaker backend. Decoded from the transport
// settings map in the daemon configuration.
type Settings struct {
	SampleRate   int `mapstructure:"sample_rate"`
	BufferMs     int `mapstructure:"buffer_ms"`
	FetchLimitMB int `mapstructure:"fetch_limit_mb"`
}

// DecodeSettings decodes the backend settings map, applying defaults for
// missing keys.
func DecodeSettings(raw map[string]any) (Settings, error) {
	s := Settings{
		SampleRate:   44100,
		BufferMs:     100,
		FetchLimitMB: 256,
	}
	if raw == nil {
		return s, nil
	}
	if err := mapstructure.Decode(raw, &s); err != nil {
		return Settings{}, errors.Wrap(err, "decode speaker settings")
	}
	if s.SampleRate <= 0 {
		return Settings{}, errors.Newf("invalid sample rate %d", s.SampleRate)
	}
	return s, nil
}

// canPlay reports decoder support by MIME type. Ogg containers may carry
// codecs the vorbis decoder does not handle, so they rank below the formats
// with dedicated decoders.
func canPlay(mimeType string) item.Playability {
	switch mimeType {
	case "audio/mpeg", "audio/mp3", "audio/wav", "audio/x-wav", "audio/flac":
		return item.PlayabilityProbably
	case "audio/ogg", "application/ogg":
		return item.PlayabilityMaybe
	default:
		return item.PlayabilityNo
	}
}
