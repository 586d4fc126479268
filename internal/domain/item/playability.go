package item

import "sort"

// Playability reports how confident a transport is that it can play a source.
// Mirrors the "probably"/"maybe" answers given by media stacks when asked
// about a MIME type.
type Playability int

const (
	PlayabilityNo       Playability = iota // Known unplayable
	PlayabilityMaybe                       // Container known, codec uncertain
	PlayabilityProbably                    // Known playable
)

// String returns the string representation of the playability level.
func (p Playability) String() string {
	switch p {
	case PlayabilityNo:
		return "no"
	case PlayabilityMaybe:
		return "maybe"
	case PlayabilityProbably:
		return "probably"
	default:
		return "unknown"
	}
}

// TypeChecker answers playability questions for MIME types.
type TypeChecker interface {
	CanPlay(mimeType string) Playability
}

// RankSources filters sources to those at least maybe-playable by the checker
// and orders probably-playable candidates first. Relative order within a rank
// is preserved so the resolver's own preference still breaks ties.
func RankSources(sources []Source, checker TypeChecker) []Source {
	type ranked struct {
		src  Source
		rank Playability
	}
	candidates := make([]ranked, 0, len(sources))
	for _, s := range sources {
		r := checker.CanPlay(s.MimeType)
		if r == PlayabilityNo {
			continue
		}
		candidates = append(candidates, ranked{src: s, rank: r})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].rank > candidates[j].rank
	})
	out := make([]Source, len(candidates))
	for i, c := range candidates {
		out[i] = c.src
	}
	return out
}
