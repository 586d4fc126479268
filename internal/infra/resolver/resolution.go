package resolver

import (
	"context"
	"sync"

	"github.com/amplfr/amplfrd/internal/domain/item"
)

// ResolutionState tags the lifecycle of an asynchronous resolution. A
// reference is never half-resolved: it is pending, ready, or failed.
type ResolutionState int

const (
	ResolutionPending ResolutionState = iota // Fetch in flight
	ResolutionReady                          // Item resolved
	ResolutionFailed                         // Fetch or decode failed
)

// String returns the string representation of the state.
func (s ResolutionState) String() string {
	switch s {
	case ResolutionPending:
		return "pending"
	case ResolutionReady:
		return "ready"
	case ResolutionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Resolution is the tagged result of resolving one reference.
type Resolution struct {
	Ref   string
	State ResolutionState
	Item  item.Item // Valid when State is ResolutionReady
	Err   error     // Non-nil when State is ResolutionFailed
}

// ResolveAll resolves references concurrently, preserving input order in the
// result. Failed references carry their error; they never abort the batch.
func (c *Client) ResolveAll(ctx context.Context, refs []string) []Resolution {
	results := make([]Resolution, len(refs))
	var wg sync.WaitGroup
	for i, ref := range refs {
		results[i] = Resolution{Ref: ref, State: ResolutionPending}
		wg.Add(1)
		go func(i int, ref string) {
			defer wg.Done()
			it, err := c.Resolve(ctx, ref)
			if err != nil {
				results[i].State = ResolutionFailed
				results[i].Err = err
				return
			}
			results[i].State = ResolutionReady
			results[i].Item = it
		}(i, ref)
	}
	wg.Wait()
	return results
}
