package item

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClampOffset(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		offset   time.Duration
		expected time.Duration
	}{
		{
			name:     "Negative offset clamps to zero start",
			item:     Item{Duration: 200 * time.Second},
			offset:   -5 * time.Second,
			expected: 0,
		},
		{
			name:     "Offset beyond duration clamps to duration",
			item:     Item{Duration: 200 * time.Second},
			offset:   500 * time.Second,
			expected: 200 * time.Second,
		},
		{
			name:     "Offset within range unchanged",
			item:     Item{Duration: 200 * time.Second},
			offset:   42 * time.Second,
			expected: 42 * time.Second,
		},
		{
			name:     "Start trim raises lower bound",
			item:     Item{Duration: 200 * time.Second, StartTime: 10 * time.Second},
			offset:   3 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "End trim lowers upper bound",
			item:     Item{Duration: 200 * time.Second, EndTime: 150 * time.Second},
			offset:   180 * time.Second,
			expected: 150 * time.Second,
		},
		{
			name:     "End trim beyond duration falls back to duration",
			item:     Item{Duration: 200 * time.Second, EndTime: 300 * time.Second},
			offset:   250 * time.Second,
			expected: 200 * time.Second,
		},
		{
			name:     "Unknown duration only applies lower bound",
			item:     Item{StartTime: 5 * time.Second},
			offset:   9999 * time.Second,
			expected: 9999 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.item.ClampOffset(tt.offset))
		})
	}
}

func TestPlayableLength(t *testing.T) {
	it := Item{Duration: 200 * time.Second, StartTime: 10 * time.Second, EndTime: 150 * time.Second}
	assert.Equal(t, 140*time.Second, it.PlayableLength())

	whole := Item{Duration: 200 * time.Second}
	assert.Equal(t, 200*time.Second, whole.PlayableLength())

	unknown := Item{}
	assert.Equal(t, time.Duration(0), unknown.PlayableLength())
}

// fixedChecker answers playability from a static table.
type fixedChecker map[string]Playability

func (c fixedChecker) CanPlay(mimeType string) Playability {
	return c[mimeType]
}

func TestRankSources(t *testing.T) {
	checker := fixedChecker{
		"audio/mpeg": PlayabilityProbably,
		"audio/ogg":  PlayabilityMaybe,
		"audio/flac": PlayabilityNo,
	}

	sources := []Source{
		{URL: "a.flac", MimeType: "audio/flac"},
		{URL: "a.ogg", MimeType: "audio/ogg"},
		{URL: "a.mp3", MimeType: "audio/mpeg"},
		{URL: "b.ogg", MimeType: "audio/ogg"},
		{URL: "b.mp3", MimeType: "audio/mpeg"},
	}

	ranked := RankSources(sources, checker)

	urls := make([]string, len(ranked))
	for i, s := range ranked {
		urls[i] = s.URL
	}
	// Probably first, maybe after, unplayable dropped. Relative order within
	// each rank preserved.
	assert.Equal(t, []string{"a.mp3", "b.mp3", "a.ogg", "b.ogg"}, urls)
}

func TestRankSourcesAllUnplayable(t *testing.T) {
	checker := fixedChecker{}
	ranked := RankSources([]Source{{URL: "a.flac", MimeType: "audio/flac"}}, checker)
	assert.Empty(t, ranked)
}
