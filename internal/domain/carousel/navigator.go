// Package carousel computes circular positions over the active recipe list.
package carousel

// Navigator tracks the focused index of a list of Length items. Next and Prev
// share the same modulus, so Next followed by Prev is the identity.
//
// A Navigator over an empty list is inactive and navigation is a no-op.
type Navigator struct {
	position int
	length   int
}

// New returns a navigator positioned at the first of length items.
func New(length int) *Navigator {
	n := &Navigator{}
	n.Reset(length)
	return n
}

// Reset points the navigator at the first item of a list of the given length.
func (n *Navigator) Reset(length int) {
	if length < 0 {
		length = 0
	}
	n.length = length
	n.position = 0
}

// Next advances one item, wrapping from the last item to the first.
func (n *Navigator) Next() {
	if n.length == 0 {
		return
	}
	n.position = (n.position + 1) % n.length
}

// Prev moves back one item, wrapping from the first item to the last.
func (n *Navigator) Prev() {
	if n.length == 0 {
		return
	}
	n.position = (n.position - 1 + n.length) % n.length
}

// Position returns the focused index and whether the navigator is active.
func (n *Navigator) Position() (int, bool) {
	if n.length == 0 {
		return 0, false
	}
	return n.position, true
}

// Length returns the size of the list being navigated.
func (n *Navigator) Length() int {
	return n.length
}

// Active reports whether there is anything to navigate.
func (n *Navigator) Active() bool {
	return n.length > 0
}
