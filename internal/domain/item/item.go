// Package item provides the playable item domain entity.
package item

import "time"

// Artist is a reference to a performing artist.
type Artist struct {
	ID   string // Opaque artist ID
	Name string // Display name
}

// AlbumRef is an optional reference to the album an item belongs to.
type AlbumRef struct {
	ID    string
	Title string
}

// Source is one candidate media source for an item. Candidates are ordered by
// preference as delivered by the resolver; the transport decides which of them
// it can actually play.
type Source struct {
	URL       string
	MimeType  string
	SizeBytes int64 // 0 when unknown
}

// Item represents a single resolved, playable unit.
// Immutable once populated, except Duration which may be filled in when the
// media's own metadata becomes available.
type Item struct {
	ID        string        // Opaque stable identifier
	Title     string        // Item title
	Artists   []Artist      // Performing artists, ordered
	Album     *AlbumRef     // Containing album, nil if none
	Duration  time.Duration // Zero until known
	Sources   []Source      // Candidate sources, ranked by the resolver
	StartTime time.Duration // Playback trim start, zero for whole item
	EndTime   time.Duration // Playback trim end, zero for "until duration"
}

// ArtistNames returns the display names of all artists, ordered.
func (it *Item) ArtistNames() []string {
	names := make([]string, len(it.Artists))
	for i, a := range it.Artists {
		names[i] = a.Name
	}
	return names
}

// PlayableLength returns the effective playable length after trim points are
// applied. Zero when the duration is not yet known.
func (it *Item) PlayableLength() time.Duration {
	end := it.EndTime
	if end <= 0 || (it.Duration > 0 && end > it.Duration) {
		end = it.Duration
	}
	if end <= it.StartTime {
		return 0
	}
	return end - it.StartTime
}

// ClampOffset clamps a seek target into [StartTime, EndTime or Duration].
// With an unknown duration and no end trim, only the lower bound applies.
func (it *Item) ClampOffset(d time.Duration) time.Duration {
	if d < it.StartTime {
		return it.StartTime
	}
	end := it.EndTime
	if end <= 0 || (it.Duration > 0 && end > it.Duration) {
		end = it.Duration
	}
	if end > 0 && d > end {
		return end
	}
	return d
}
