package highlight

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	cases := []Cursor{
		{EventID: "9f1c2a7e-1b0e-4c51-9a57-1f3d0b6f5a10", Timestamp: 1700000000, Direction: DirNext},
		{EventID: "clip-1", Timestamp: 0, Direction: DirPrev},
		{EventID: "clip-2", Timestamp: -42, Direction: DirNext},
		{EventID: "a,b,c", Timestamp: 17, Direction: DirPrev},
		{EventID: "ünïcode", Timestamp: 9223372036854775807, Direction: DirNext},
	}
	for _, want := range cases {
		token := EncodeCursor(want.EventID, want.Timestamp, want.Direction)
		got, ok := DecodeCursor(token)
		require.True(t, ok, "decode %q", token)
		assert.Equal(t, want, got)
		assert.Equal(t, token, want.Encode())
	}
}

func TestEncodeCursorFormat(t *testing.T) {
	token := EncodeCursor("abc", 100, DirNext)
	raw, err := base64.StdEncoding.DecodeString(token)
	require.NoError(t, err)
	assert.Equal(t, "abc,100,next", string(raw))
}

func TestDecodeCursorOnlyAcceptsStandardBase64(t *testing.T) {
	raw := []byte("ab?,100,prev")
	canonical := base64.StdEncoding.EncodeToString(raw)
	_, ok := DecodeCursor(canonical)
	require.True(t, ok)

	for name, token := range map[string]string{
		"url alphabet":   base64.URLEncoding.EncodeToString(raw),
		"unpadded":       base64.RawStdEncoding.EncodeToString([]byte("abcd,100,prev")),
		"unpadded url":   base64.RawURLEncoding.EncodeToString(raw),
		"space for plus": strings.ReplaceAll(base64.StdEncoding.EncodeToString([]byte("ab>,1,next")), "+", " "),
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := DecodeCursor(token)
			assert.False(t, ok, token)
		})
	}
}

func TestCursorMissingTimestamp(t *testing.T) {
	c, ok := DecodeCursor(EncodeCursor("a", NoTimestamp, DirNext))
	require.True(t, ok)
	assert.Nil(t, c.TimestampValue())

	c, ok = DecodeCursor(EncodeCursor("a", 0, DirNext))
	require.True(t, ok)
	require.NotNil(t, c.TimestampValue())
	assert.Equal(t, int64(0), *c.TimestampValue())
}

func TestDecodeCursorRejectsMalformed(t *testing.T) {
	enc := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	cases := map[string]string{
		"empty":            "",
		"not base64":       "not-valid-base64!!",
		"no separators":    enc("abc"),
		"one separator":    enc("abc,100"),
		"empty id":         enc(",100,next"),
		"bad timestamp":    enc("abc,10x,next"),
		"float timestamp":  enc("abc,1.5,next"),
		"empty timestamp":  enc("abc,,next"),
		"unknown dir":      enc("abc,100,sideways"),
		"uppercase dir":    enc("abc,100,NEXT"),
		"trailing garbage": enc("abc,100,next "),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got, ok := DecodeCursor(token)
				assert.False(t, ok)
				assert.Equal(t, Cursor{}, got)
			})
		})
	}
}
