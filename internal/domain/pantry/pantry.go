// Package pantry holds the ordered set of ingredient names a user has
// declared available.
package pantry

import "strings"

// Pantry is an insertion-ordered set of trimmed, non-empty ingredient names.
// Duplicate detection is exact string equality after trimming; "Egg" and
// "egg" are distinct entries.
//
// Pantry is not safe for concurrent use; the session controller guards it.
type Pantry struct {
	entries []string
}

// New creates a pantry seeded with names, applying the Add rules to each.
func New(names ...string) *Pantry {
	p := &Pantry{}
	p.AddAll(names)
	return p
}

// Normalize trims name. The empty string means the name is not admissible.
func Normalize(name string) string {
	return strings.TrimSpace(name)
}

// Add appends name unless it is blank or already present. It reports
// whether the pantry changed.
func (p *Pantry) Add(name string) bool {
	name = Normalize(name)
	if name == "" || p.Contains(name) {
		return false
	}
	p.entries = append(p.entries, name)
	return true
}

// AddAll adds each name in order and returns how many were admitted.
func (p *Pantry) AddAll(names []string) int {
	added := 0
	for _, name := range names {
		if p.Add(name) {
			added++
		}
	}
	return added
}

// Remove deletes every entry equal to name. It reports whether the pantry
// changed; removing an absent name leaves the entries untouched.
func (p *Pantry) Remove(name string) bool {
	name = Normalize(name)
	if !p.Contains(name) {
		return false
	}
	kept := p.entries[:0:0]
	for _, e := range p.entries {
		if e != name {
			kept = append(kept, e)
		}
	}
	p.entries = kept
	return true
}

// Contains reports whether name is present.
func (p *Pantry) Contains(name string) bool {
	name = Normalize(name)
	for _, e := range p.entries {
		if e == name {
			return true
		}
	}
	return false
}

// Entries returns a copy of the entries in insertion order.
func (p *Pantry) Entries() []string {
	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}

// Len returns the number of entries.
func (p *Pantry) Len() int {
	return len(p.entries)
}

// IsEmpty reports whether the pantry has no entries.
func (p *Pantry) IsEmpty() bool {
	return len(p.entries) == 0
}
