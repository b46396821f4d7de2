// Package highlight merges per-angle clip streams into concurrent groups and
// pages through the merged sequence with opaque cursors.
//
// Everything here is pure: callers hand in slices fetched from storage and get
// fresh slices back. Inputs are never modified, so concurrent requests can
// share nothing and still see identical groupings for identical rows.
package highlight

import "math"

// ConcurrencyWindow is the maximum distance, in seconds, between an anchor and
// a companion clip for the two to be shown as one concurrent group.
const ConcurrencyWindow int64 = 10

// NoTimestamp is the cursor timestamp of an event without one.
const NoTimestamp int64 = math.MinInt64

// Direction is the scan direction of a feed request.
type Direction string

const (
	// DirNext walks back in time: timestamps descend.
	DirNext Direction = "next"
	// DirPrev walks forward in time: timestamps ascend.
	DirPrev Direction = "prev"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirNext || d == DirPrev
}

// Event is the clip shape the engine reads. Nil fields are absent values.
type Event struct {
	ID        string
	Timestamp *int64
	AngleID   *int64
	Wristband *string
}

// Group is a set of near-simultaneous events from different angles.
// The first element is the anchor.
type Group []Event

// Anchor returns the event the group was built around.
func (g Group) Anchor() Event {
	if len(g) == 0 {
		return Event{}
	}
	return g[0]
}

// Events flattens groups into their leaf events, anchors first.
func Events(groups []Group) []Event {
	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]Event, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Before reports whether a should be taken ahead of b when scanning in dir.
//
// For DirNext the larger timestamp comes first, for DirPrev the smaller one.
// An absent timestamp is the newest position in the feed: it leads a DirNext
// scan and trails a DirPrev scan, matching how storage orders NULL capture
// times. Equal timestamps fall back to the angle id, ascending, with an absent
// angle last. Events that are equal on both keys are not Before each other.
func Before(a, b Event, dir Direction) bool {
	switch {
	case a.Timestamp == nil && b.Timestamp != nil:
		return dir != DirPrev
	case a.Timestamp != nil && b.Timestamp == nil:
		return dir == DirPrev
	case a.Timestamp != nil && b.Timestamp != nil && *a.Timestamp != *b.Timestamp:
		if dir == DirPrev {
			return *a.Timestamp < *b.Timestamp
		}
		return *a.Timestamp > *b.Timestamp
	}
	switch {
	case a.AngleID != nil && b.AngleID == nil:
		return true
	case a.AngleID != nil && b.AngleID != nil:
		return *a.AngleID < *b.AngleID
	}
	return false
}

// newer reports whether a sits ahead of b in the feed's newest-first order:
// timestamp descending with absent timestamps first, then id descending. This
// is the order storage pages by.
func newer(a, b Event) bool {
	switch {
	case a.Timestamp == nil && b.Timestamp != nil:
		return true
	case a.Timestamp != nil && b.Timestamp == nil:
		return false
	case a.Timestamp != nil && *a.Timestamp != *b.Timestamp:
		return *a.Timestamp > *b.Timestamp
	}
	return a.ID > b.ID
}

// concurrentWith reports whether candidate may join a group anchored by anchor.
func concurrentWith(anchor, candidate Event) bool {
	if sameAngle(anchor.AngleID, candidate.AngleID) {
		return false
	}
	if !sameTag(anchor.Wristband, candidate.Wristband) {
		return false
	}
	if anchor.Timestamp == nil || candidate.Timestamp == nil {
		return false
	}
	d := *anchor.Timestamp - *candidate.Timestamp
	if d < 0 {
		d = -d
	}
	return d <= ConcurrencyWindow
}

func sameAngle(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sameTag(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// cursorTimestamp is the cursor value for an event; absent encodes as NoTimestamp.
func cursorTimestamp(e Event) int64 {
	if e.Timestamp == nil {
		return NoTimestamp
	}
	return *e.Timestamp
}
