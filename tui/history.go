// Package tui provides a Bubble Tea live runner for the rule engine: a
// timer drives engine ticks, key presses become key events, and a command
// line accepts the same meta-commands as the plain CLI.
package tui

// History is a fixed-size ring of submitted command lines with
// cursor-based navigation.
type History struct {
	ring   []string
	start  int // index of the oldest entry
	n      int // number of stored entries
	cursor int // -1 = not navigating, else 0..n-1 counted from the oldest
}

// NewHistory creates a history buffer with the given maximum size.
func NewHistory(max int) *History {
	if max < 1 {
		max = 1
	}
	return &History{ring: make([]string, max), cursor: -1}
}

// Len reports how many entries are stored.
func (h *History) Len() int { return h.n }

func (h *History) at(i int) string {
	return h.ring[(h.start+i)%len(h.ring)]
}

// Push adds a command to history. Consecutive duplicates are skipped; when
// full the oldest entry is overwritten.
func (h *History) Push(cmd string) {
	if h.n > 0 && h.at(h.n-1) == cmd {
		return
	}
	if h.n < len(h.ring) {
		h.ring[(h.start+h.n)%len(h.ring)] = cmd
		h.n++
		return
	}
	h.ring[h.start] = cmd
	h.start = (h.start + 1) % len(h.ring)
}

// Prev returns the previous (older) entry, stopping at the oldest.
func (h *History) Prev() (string, bool) {
	if h.n == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.cursor = h.n - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.at(h.cursor), true
}

// Next returns the next (newer) entry, or ("", false) when moving past the
// newest back to fresh input.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= h.n {
		h.cursor = -1
		return "", false
	}
	return h.at(h.cursor), true
}

// ResetCursor leaves navigation mode.
func (h *History) ResetCursor() {
	h.cursor = -1
}
