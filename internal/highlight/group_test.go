package highlight

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64    { return &v }
func str(v string) *string { return &v }

func ev(id string, ts int64, cam int64, tag string) Event {
	return Event{ID: id, Timestamp: i64(ts), AngleID: i64(cam), Wristband: str(tag)}
}

func ids(groups []Group) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		for _, e := range g {
			out[i] = append(out[i], e.ID)
		}
	}
	return out
}

func TestGroupEvents_SingleAngleSingletons(t *testing.T) {
	angle := []Event{
		ev("e50", 50, 1, "x"),
		ev("e40", 40, 1, "x"),
		ev("e30", 30, 1, "x"),
		ev("e20", 20, 1, "x"),
		ev("e10", 10, 1, "x"),
	}
	got := GroupEvents([][]Event{angle}, 3, DirNext)
	assert.Equal(t, [][]string{{"e50"}, {"e40"}, {"e30"}}, ids(got))
}

func TestGroupEvents_MatchingPair(t *testing.T) {
	a := []Event{ev("a", 100, 1, "x")}
	b := []Event{ev("b", 104, 2, "x")}
	got := GroupEvents([][]Event{a, b}, 1, DirNext)
	require.Len(t, got, 1)
	// b has the larger timestamp, so it anchors the group
	assert.ElementsMatch(t, []string{"a", "b"}, ids(got)[0])
}

func TestGroupEvents_TagMismatch(t *testing.T) {
	a := []Event{ev("a", 100, 1, "x")}
	b := []Event{ev("b", 104, 2, "y")}

	got := GroupEvents([][]Event{a, b}, 1, DirNext)
	require.Len(t, got, 1)
	assert.Len(t, got[0], 1)

	all := GroupEvents([][]Event{a, b}, 5, DirNext)
	assert.Equal(t, [][]string{{"b"}, {"a"}}, ids(all))
}

func TestGroupEvents_Empty(t *testing.T) {
	assert.Empty(t, GroupEvents(nil, 5, DirNext))
	assert.Empty(t, GroupEvents([][]Event{}, 5, DirNext))
	assert.Empty(t, GroupEvents([][]Event{{}, {}}, 5, DirPrev))
	assert.Empty(t, GroupEvents([][]Event{{ev("a", 1, 1, "x")}}, 0, DirNext))
}

func TestGroupEvents_WindowBoundary(t *testing.T) {
	a := []Event{ev("a", 100, 1, "x")}
	inside := []Event{ev("b", 90, 2, "x")}
	outside := []Event{ev("c", 89, 3, "x")}

	got := GroupEvents([][]Event{a, inside, outside}, 1, DirNext)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"a", "b"}, ids(got)[0])
}

func TestGroupEvents_ScansPastHead(t *testing.T) {
	a := []Event{ev("a", 100, 1, "x")}
	b := []Event{ev("b1", 99, 2, "y"), ev("b2", 97, 2, "x")}

	got := GroupEvents([][]Event{a, b}, 5, DirNext)
	assert.Equal(t, [][]string{{"a", "b2"}, {"b1"}}, ids(got))
}

func TestGroupEvents_NoSelfPairing(t *testing.T) {
	// two slices that both claim camera 1
	a := []Event{ev("a", 100, 1, "x")}
	b := []Event{ev("b", 100, 1, "x")}

	got := GroupEvents([][]Event{a, b}, 5, DirNext)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, ids(got))
}

func TestGroupEvents_NilTagsMatchEachOther(t *testing.T) {
	a := []Event{{ID: "a", Timestamp: i64(100), AngleID: i64(1)}}
	b := []Event{{ID: "b", Timestamp: i64(95), AngleID: i64(2)}}
	c := []Event{ev("c", 96, 3, "x")}

	got := GroupEvents([][]Event{a, b, c}, 5, DirNext)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, ids(got))
}

func TestGroupEvents_MissingTimestampAnchorsAlone(t *testing.T) {
	a := []Event{{ID: "a", AngleID: i64(1), Wristband: str("x")}, ev("a2", 50, 1, "x")}
	b := []Event{ev("b", 52, 2, "x")}

	got := GroupEvents([][]Event{a, b}, 5, DirNext)
	assert.Equal(t, [][]string{{"a"}, {"b", "a2"}}, ids(got))

	// prev slices arrive ascending with the untimed clip last
	aPrev := []Event{ev("a2", 50, 1, "x"), {ID: "a", AngleID: i64(1), Wristband: str("x")}}
	gotPrev := GroupEvents([][]Event{aPrev, b}, 5, DirPrev)
	assert.Equal(t, [][]string{{"a2", "b"}, {"a"}}, ids(gotPrev))
}

func TestGroupEvents_PrevPicksSmallest(t *testing.T) {
	a := []Event{ev("a10", 10, 1, "x"), ev("a40", 40, 1, "x")}
	b := []Event{ev("b25", 25, 2, "x"), ev("b45", 45, 2, "x")}

	got := GroupEvents([][]Event{a, b}, 10, DirPrev)
	assert.Equal(t, [][]string{{"a10"}, {"b25"}, {"a40", "b45"}}, ids(got))
}

func TestGroupEvents_TieBrokenByAngleID(t *testing.T) {
	hi := []Event{ev("cam7", 100, 7, "x")}
	lo := []Event{ev("cam3", 100, 3, "y")}

	got := GroupEvents([][]Event{hi, lo}, 5, DirNext)
	assert.Equal(t, [][]string{{"cam3"}, {"cam7"}}, ids(got))

	swapped := GroupEvents([][]Event{lo, hi}, 5, DirNext)
	assert.Equal(t, ids(got), ids(swapped))
}

func TestGroupEvents_GreedyConsumption(t *testing.T) {
	// b90 would fit a95 better but is taken by a100 first
	a := []Event{ev("a100", 100, 1, "x"), ev("a95", 95, 1, "x")}
	b := []Event{ev("b90", 90, 2, "x")}

	got := GroupEvents([][]Event{a, b}, 5, DirNext)
	assert.Equal(t, [][]string{{"a100", "b90"}, {"a95"}}, ids(got))
}

func TestGroupEvents_TakeLimit(t *testing.T) {
	a := []Event{ev("a1", 100, 1, "x"), ev("a2", 80, 1, "x"), ev("a3", 60, 1, "x")}
	b := []Event{ev("b1", 90, 2, "y"), ev("b2", 70, 2, "y")}

	got := GroupEvents([][]Event{a, b}, 2, DirNext)
	assert.Equal(t, [][]string{{"a1"}, {"b1"}}, ids(got))
}

func TestGroupEvents_DoesNotMutateInput(t *testing.T) {
	a := []Event{ev("a1", 100, 1, "x"), ev("a2", 80, 1, "x")}
	b := []Event{ev("b1", 98, 2, "x"), ev("b2", 79, 2, "x")}
	aCopy := append([]Event(nil), a...)
	bCopy := append([]Event(nil), b...)

	_ = GroupEvents([][]Event{a, b}, 10, DirNext)
	assert.Equal(t, aCopy, a)
	assert.Equal(t, bCopy, b)
}

func randomSlices(r *rand.Rand) [][]Event {
	tags := []string{"x", "y"}
	slices := make([][]Event, 1+r.Intn(4))
	n := 0
	for cam := range slices {
		ts := int64(1000)
		count := r.Intn(8)
		for i := 0; i < count; i++ {
			ts -= int64(r.Intn(15))
			n++
			e := Event{
				ID:        string(rune('a'+cam)) + string(rune('0'+i)),
				Timestamp: i64(ts),
				AngleID:   i64(int64(cam + 1)),
				Wristband: str(tags[r.Intn(len(tags))]),
			}
			slices[cam] = append(slices[cam], e)
		}
	}
	return slices
}

func TestGroupEvents_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		slices := randomSlices(r)
		total := 0
		for _, s := range slices {
			total += len(s)
		}

		groups := GroupEvents(slices, total+1, DirNext)
		again := GroupEvents(slices, total+1, DirNext)
		require.Equal(t, groups, again, "deterministic")

		seen := map[string]bool{}
		for _, g := range groups {
			angles := map[int64]bool{}
			anchor := g.Anchor()
			for j, e := range g {
				require.False(t, angles[*e.AngleID], "two events from one angle in a group")
				angles[*e.AngleID] = true
				require.False(t, seen[e.ID], "event emitted twice")
				seen[e.ID] = true
				if j == 0 {
					continue
				}
				d := *e.Timestamp - *anchor.Timestamp
				if d < 0 {
					d = -d
				}
				require.LessOrEqual(t, d, ConcurrencyWindow)
				require.Equal(t, *anchor.Wristband, *e.Wristband)
			}
		}
		require.Len(t, seen, total, "every event emitted")
	}
}
