package highlight

// Page is one page of feed items with the cursors around it.
// An empty cursor means there is nothing to fetch that way.
type Page[T any] struct {
	Items      []T    `json:"items"`
	HasNext    bool   `json:"has_next"`
	NextCursor string `json:"next_cursor,omitempty"`
	PrevCursor string `json:"prev_cursor,omitempty"`
}

// Paginate packages events fetched with one record of over-fetch.
// See paginate for the rules.
func Paginate(events []Event, amount int, dir Direction) Page[Event] {
	return paginate(events, amount, dir, func(items []Event) []Event { return items })
}

// PaginateGroups packages grouped results. Cursors come from the flattened
// leaf events, so a companion never reappears on the following page.
func PaginateGroups(groups []Group, amount int, dir Direction) Page[Group] {
	return paginate(groups, amount, dir, Events)
}

// paginate trims the over-fetched record, flips prev scans into presentation
// order and derives the boundary cursors.
//
// HasNext is true iff len(items) > amount. Among the leaf events of the
// returned items, PrevCursor comes from the newest and NextCursor from the
// oldest. For ungrouped pages those are the first and last item. The boundary
// in the scan direction is dropped when HasNext is false; the other one
// always stays.
func paginate[T any](items []T, amount int, dir Direction, leaves func([]T) []Event) Page[T] {
	if amount < 0 {
		amount = 0
	}
	hasNext := len(items) > amount
	n := len(items)
	if hasNext {
		n = amount
	}

	out := make([]T, n)
	if dir == DirPrev {
		for i := 0; i < n; i++ {
			out[i] = items[n-1-i]
		}
	} else {
		copy(out, items[:n])
	}

	page := Page[T]{Items: out, HasNext: hasNext}
	flat := leaves(out)
	if len(flat) == 0 {
		return page
	}

	first, last := flat[0], flat[0]
	for _, e := range flat[1:] {
		if newer(e, first) {
			first = e
		}
		if newer(last, e) {
			last = e
		}
	}
	page.PrevCursor = EncodeCursor(first.ID, cursorTimestamp(first), DirPrev)
	page.NextCursor = EncodeCursor(last.ID, cursorTimestamp(last), DirNext)
	if !hasNext {
		if dir == DirPrev {
			page.PrevCursor = ""
		} else {
			page.NextCursor = ""
		}
	}
	return page
}
