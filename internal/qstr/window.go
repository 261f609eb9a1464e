package qstr

import (
	"errors"
	"fmt"
)

var ErrWindowIndex = errors.New("qstr: window index out of range")

// Policy selects what Access does with the entry it returns.
type Policy int

const (
	// PolicyPromote moves the accessed id to the front. This matches how the
	// MicroPython compiler maintains its own window while writing a file.
	PolicyPromote Policy = iota
	// PolicyRemove takes the accessed id out of the window, which is how
	// the uDis disassembler reads files. Only under this policy does
	// repeated access at index 0 yield ids in most-recently-pushed order.
	PolicyRemove
)

func (p Policy) String() string {
	switch p {
	case PolicyPromote:
		return "promote"
	case PolicyRemove:
		return "remove"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy maps a config name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "promote":
		return PolicyPromote, nil
	case "remove":
		return PolicyRemove, nil
	default:
		return 0, fmt.Errorf("qstr: unknown window policy %q", s)
	}
}

// Window is a bounded list of recently referenced qstr ids, most recent first.
type Window struct {
	ids    []int
	cap    int
	policy Policy
}

// NewWindow returns an empty window holding at most capacity ids.
func NewWindow(capacity int, policy Policy) *Window {
	if capacity < 0 {
		capacity = 0
	}
	return &Window{cap: capacity, policy: policy}
}

// Push makes id the most recent entry. If the window was full the oldest
// entry is dropped and returned with ok set.
func (w *Window) Push(id int) (evicted int, ok bool) {
	if w.cap == 0 {
		return id, true
	}
	if len(w.ids) == w.cap {
		evicted, ok = w.ids[len(w.ids)-1], true
		w.ids = w.ids[:len(w.ids)-1]
	}
	w.ids = append(w.ids, 0)
	copy(w.ids[1:], w.ids)
	w.ids[0] = id
	return evicted, ok
}

// Access returns the id at index (0 = most recent) and applies the policy.
func (w *Window) Access(index int) (int, error) {
	if index < 0 || index >= len(w.ids) {
		return 0, fmt.Errorf("%w: %d (occupancy %d)", ErrWindowIndex, index, len(w.ids))
	}
	id := w.ids[index]
	switch w.policy {
	case PolicyRemove:
		w.ids = append(w.ids[:index], w.ids[index+1:]...)
	default:
		copy(w.ids[1:index+1], w.ids[:index])
		w.ids[0] = id
	}
	return id, nil
}

// Len returns the current occupancy.
func (w *Window) Len() int { return len(w.ids) }

// Cap returns the capacity declared by the file.
func (w *Window) Cap() int { return w.cap }

// Policy returns the access policy.
func (w *Window) Policy() Policy { return w.policy }

// IDs returns a copy of the window contents, most recent first.
func (w *Window) IDs() []int {
	return append([]int(nil), w.ids...)
}
