package resolver

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// M3UEntry is one playlist entry: a reference plus the optional metadata an
// extended M3U carries inline.
type M3UEntry struct {
	Ref      string        // URL or item reference
	Title    string        // From EXTINF, empty in plain M3U
	Duration time.Duration // From EXTINF, zero when unknown
}

// ParseM3U parses a plain or extended M3U playlist. Comment lines other than
// EXTINF are skipped; an EXTINF with an unparsable duration keeps the entry
// with the duration unknown.
func ParseM3U(r io.Reader) ([]M3UEntry, error) {
	scanner := bufio.NewScanner(r)

	var entries []M3UEntry
	var pending *M3UEntry
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#EXTINF:") {
			e := parseExtInf(strings.TrimPrefix(line, "#EXTINF:"))
			pending = &e
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		entry := M3UEntry{Ref: line}
		if pending != nil {
			entry.Title = pending.Title
			entry.Duration = pending.Duration
			pending = nil
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read playlist")
	}
	return entries, nil
}

// parseExtInf parses the "duration,title" payload of an EXTINF directive.
func parseExtInf(payload string) M3UEntry {
	var e M3UEntry
	durStr, title, ok := strings.Cut(payload, ",")
	if !ok {
		durStr = payload
	}
	e.Title = strings.TrimSpace(title)

	// EXTINF durations may carry attributes after the number.
	if fields := strings.Fields(strings.TrimSpace(durStr)); len(fields) > 0 {
		if secs, err := strconv.ParseFloat(fields[0], 64); err == nil && secs > 0 {
			e.Duration = secondsToDuration(secs)
		}
	}
	return e
}
