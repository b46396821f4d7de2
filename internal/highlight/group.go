package highlight

// lane is one angle slice being consumed. The caller's slice is only read;
// progress lives in head and taken.
type lane struct {
	events []Event
	taken  []bool
	head   int
}

func newLane(events []Event) *lane {
	return &lane{events: events, taken: make([]bool, len(events))}
}

func (l *lane) skipTaken() {
	for l.head < len(l.events) && l.taken[l.head] {
		l.head++
	}
}

func (l *lane) empty() bool {
	l.skipTaken()
	return l.head >= len(l.events)
}

func (l *lane) peek() Event {
	l.skipTaken()
	return l.events[l.head]
}

func (l *lane) shift() Event {
	l.skipTaken()
	e := l.events[l.head]
	l.taken[l.head] = true
	l.head++
	return e
}

// takeFirst removes and returns the first remaining event accepted by match.
func (l *lane) takeFirst(match func(Event) bool) (Event, bool) {
	for i := l.head; i < len(l.events); i++ {
		if l.taken[i] || !match(l.events[i]) {
			continue
		}
		l.taken[i] = true
		return l.events[i], true
	}
	return Event{}, false
}

// GroupEvents merges per-angle slices, each already sorted for dir, into at
// most take concurrent groups in scan order.
//
// Each round takes the most extreme head across all angles as the anchor,
// then pulls at most one companion from every other angle: the first
// remaining event on a different angle with the anchor's wristband and a
// timestamp within ConcurrencyWindow. Matching is greedy; a consumed
// companion is gone for later groups. With fewer than two non-empty angles
// every event is returned as its own group.
func GroupEvents(angleSlices [][]Event, take int, dir Direction) []Group {
	if take <= 0 {
		return []Group{}
	}

	lanes := make([]*lane, 0, len(angleSlices))
	for _, s := range angleSlices {
		if len(s) > 0 {
			lanes = append(lanes, newLane(s))
		}
	}

	if len(lanes) < 2 {
		groups := make([]Group, 0, take)
		for _, l := range lanes {
			for _, e := range l.events {
				if len(groups) == take {
					return groups
				}
				groups = append(groups, Group{e})
			}
		}
		return groups
	}

	groups := make([]Group, 0, take)
	for len(groups) < take && len(lanes) > 0 {
		pick := 0
		for i := 1; i < len(lanes); i++ {
			if Before(lanes[i].peek(), lanes[pick].peek(), dir) {
				pick = i
			}
		}

		anchor := lanes[pick].shift()
		group := Group{anchor}
		for i, l := range lanes {
			if i == pick {
				continue
			}
			if e, ok := l.takeFirst(func(c Event) bool { return concurrentWith(anchor, c) }); ok {
				group = append(group, e)
			}
		}
		groups = append(groups, group)

		live := lanes[:0]
		for _, l := range lanes {
			if !l.empty() {
				live = append(live, l)
			}
		}
		lanes = live
	}
	return groups
}
