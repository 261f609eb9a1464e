package qstr

import (
	"errors"
	"fmt"
)

var ErrUnknownQstr = errors.New("qstr: id out of range")

// Null is the reserved "no string" id.
const Null = 0

// Table maps ids to interned strings for one decode session. Builtin ids
// come from the shared Vocabulary; ids above it are appended by Intern.
//
// Intern never deduplicates: each new string read from a file gets a
// fresh id even if the same text was seen before.
type Table struct {
	vocab *Vocabulary
	dyn   []string
}

// NewTable returns a table seeded with vocab. A nil vocab means Static.
func NewTable(vocab *Vocabulary) *Table {
	if vocab == nil {
		vocab = Static
	}
	return &Table{vocab: vocab}
}

// Vocabulary returns the builtin vocabulary the table was seeded with.
func (t *Table) Vocabulary() *Vocabulary { return t.vocab }

// Intern appends text and returns its new id.
func (t *Table) Intern(text string) int {
	t.dyn = append(t.dyn, text)
	return t.vocab.Len() + len(t.dyn)
}

// Lookup returns the text for id.
func (t *Table) Lookup(id int) (string, error) {
	if s, ok := t.vocab.Name(id); ok {
		return s, nil
	}
	i := id - t.vocab.Len() - 1
	if id <= 0 || i < 0 || i >= len(t.dyn) {
		return "", fmt.Errorf("%w: %d", ErrUnknownQstr, id)
	}
	return t.dyn[i], nil
}

// MustLookup returns the text for id, or a placeholder when unassigned.
func (t *Table) MustLookup(id int) string {
	s, err := t.Lookup(id)
	if err != nil {
		return fmt.Sprintf("<qstr %d>", id)
	}
	return s
}

// IsStatic reports whether id names a builtin.
func (t *Table) IsStatic(id int) bool {
	return id >= 1 && id <= t.vocab.Len()
}

// Len returns the highest assigned id.
func (t *Table) Len() int { return t.vocab.Len() + len(t.dyn) }

// Dynamic returns the strings added by Intern, in id order.
func (t *Table) Dynamic() []string {
	return append([]string(nil), t.dyn...)
}
