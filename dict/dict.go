// Package dict implements the term dictionary: a string-to-id interning
// table with dense, monotonically increasing, permanent ids.
package dict

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Dictionary interns term strings to dense integer ids. Ids are never
// reused or reassigned.
type Dictionary struct {
	toID   map[string]int
	toTerm []string
}

// New creates an empty dictionary.
func New() *Dictionary {
	return &Dictionary{toID: make(map[string]int)}
}

// Intern returns term's existing id if present; otherwise it assigns
// nextID and returns it. The caller is expected to bump its own counter
// whenever the returned id equals nextID (i.e. a new term was added).
func (d *Dictionary) Intern(term string, nextID int) int {
	if id, ok := d.toID[term]; ok {
		return id
	}
	d.toID[term] = nextID
	for len(d.toTerm) <= nextID {
		d.toTerm = append(d.toTerm, "")
	}
	d.toTerm[nextID] = term
	return nextID
}

// Lookup returns term's id, or -1 if it has never been interned.
func (d *Dictionary) Lookup(term string) int {
	if id, ok := d.toID[term]; ok {
		return id
	}
	return -1
}

// Term returns the string interned under id, or "" if id is out of
// range.
func (d *Dictionary) Term(id int) string {
	if id < 0 || id >= len(d.toTerm) {
		return ""
	}
	return d.toTerm[id]
}

// Size returns how many distinct terms have been interned.
func (d *Dictionary) Size() int {
	return len(d.toID)
}

// Write serializes the dictionary as a length-prefixed list of
// (id, length, bytes) triples in id order.
func (d *Dictionary) Write(w io.Writer) error {
	n := uint32(len(d.toTerm))
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return fmt.Errorf("dict: failed to write term count: %w", err)
	}
	for id, term := range d.toTerm {
		if err := binary.Write(w, binary.LittleEndian, uint32(id)); err != nil {
			return fmt.Errorf("dict: failed to write term id: %w", err)
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(term))); err != nil {
			return fmt.Errorf("dict: failed to write term length: %w", err)
		}
		if _, err := w.Write([]byte(term)); err != nil {
			return fmt.Errorf("dict: failed to write term bytes: %w", err)
		}
	}
	return nil
}

// Read reconstructs a Dictionary previously written with Write.
func Read(r io.Reader) (*Dictionary, error) {
	d := New()

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("dict: failed to read term count: %w", err)
	}
	for i := uint32(0); i < n; i++ {
		var id, length uint32
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, fmt.Errorf("dict: failed to read term id: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("dict: failed to read term length: %w", err)
		}
		buf := make([]byte, length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("dict: failed to read term bytes: %w", err)
		}
		term := string(buf)
		d.toID[term] = int(id)
		for len(d.toTerm) <= int(id) {
			d.toTerm = append(d.toTerm, "")
		}
		d.toTerm[id] = term
	}
	return d, nil
}
