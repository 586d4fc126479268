package beepout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

func TestDecodeSettingsDefaults(t *testing.T) {
	s, err := DecodeSettings(nil)
	require.NoError(t, err)
	assert.Equal(t, 44100, s.SampleRate)
	assert.Equal(t, 100, s.BufferMs)
	assert.Equal(t, 256, s.FetchLimitMB)
}

func TestDecodeSettingsOverrides(t *testing.T) {
	s, err := DecodeSettings(map[string]any{
		"sample_rate": 48000,
		"buffer_ms":   50,
	})
	require.NoError(t, err)
	assert.Equal(t, 48000, s.SampleRate)
	assert.Equal(t, 50, s.BufferMs)
	assert.Equal(t, 256, s.FetchLimitMB)
}

func TestDecodeSettingsRejectsBadSampleRate(t *testing.T) {
	_, err := DecodeSettings(map[string]any{"sample_rate": -1})
	assert.Error(t, err)
}

func TestCanPlayRanking(t *testing.T) {
	tests := []struct {
		mime     string
		expected item.Playability
	}{
		{"audio/mpeg", item.PlayabilityProbably},
		{"audio/wav", item.PlayabilityProbably},
		{"audio/flac", item.PlayabilityProbably},
		{"audio/ogg", item.PlayabilityMaybe},
		{"application/ogg", item.PlayabilityMaybe},
		{"video/mp4", item.PlayabilityNo},
		{"text/plain", item.PlayabilityNo},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.expected, canPlay(tt.mime))
		})
	}
}
