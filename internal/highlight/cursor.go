package highlight

import (
	"encoding/base64"
	"strconv"
	"strings"
)

const cursorSep = ","

// Cursor is a decoded resume position in a feed.
type Cursor struct {
	EventID   string
	Timestamp int64
	Direction Direction
}

// TimestampValue returns the position's timestamp, nil when the event had none.
func (c Cursor) TimestampValue() *int64 {
	if c.Timestamp == NoTimestamp {
		return nil
	}
	ts := c.Timestamp
	return &ts
}

// Encode returns the opaque token for c.
func (c Cursor) Encode() string {
	return EncodeCursor(c.EventID, c.Timestamp, c.Direction)
}

// EncodeCursor packs id, timestamp and direction into an opaque token.
// Callers must pass the token back verbatim.
func EncodeCursor(eventID string, timestamp int64, dir Direction) string {
	raw := eventID + cursorSep + strconv.FormatInt(timestamp, 10) + cursorSep + string(dir)
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. The second result is
// false for anything malformed; callers treat that as the start of the feed.
func DecodeCursor(token string) (Cursor, bool) {
	if token == "" {
		return Cursor{}, false
	}
	b, err := base64.StdEncoding.Strict().DecodeString(token)
	if err != nil {
		return Cursor{}, false
	}
	s := string(b)

	// id may itself contain the separator, so split from the right
	rest, dir, ok := cutLast(s, cursorSep)
	if !ok {
		return Cursor{}, false
	}
	id, tsStr, ok := cutLast(rest, cursorSep)
	if !ok || id == "" {
		return Cursor{}, false
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return Cursor{}, false
	}
	d := Direction(dir)
	if !d.Valid() {
		return Cursor{}, false
	}
	return Cursor{EventID: id, Timestamp: ts, Direction: d}, true
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
