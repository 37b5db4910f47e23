package memotl

import (
	"sync"
	"time"
)

// Event is one entry of the translation history.
type Event struct {
	Time        time.Time `json:"time"`
	Text        string    `json:"text"`
	Translation string    `json:"translation"`
	Outcome     string    `json:"outcome"`
	Backend     string    `json:"backend,omitempty"`
	Shared      bool      `json:"shared,omitempty"`
}

// History is a fixed-size ring of recent translation events.
type History struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

// NewHistory creates a history that keeps the last size events.
// A size of 0 or less defaults to 100.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 100
	}
	return &History{events: make([]Event, size)}
}

// Add records the result of translating text.
func (h *History) Add(text string, res Result) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events[h.next] = Event{
		Time:        time.Now(),
		Text:        text,
		Translation: res.Text,
		Outcome:     res.Outcome.String(),
		Backend:     res.Backend,
		Shared:      res.Shared,
	}
	h.next = (h.next + 1) % len(h.events)
	if h.next == 0 {
		h.full = true
	}
}

// Last returns up to n events, oldest first. n <= 0 returns everything kept.
func (h *History) Last(n int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := h.next
	if h.full {
		count = len(h.events)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]Event, 0, n)
	start := (h.next - n + len(h.events)) % len(h.events)
	for i := 0; i < n; i++ {
		out = append(out, h.events[(start+i)%len(h.events)])
	}
	return out
}

// Clear drops all events.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = make([]Event, len(h.events))
	h.next = 0
	h.full = false
}
