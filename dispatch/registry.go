package dispatch

import (
	"sync"

	"golang.org/x/exp/constraints"
)

type (
	// registry is an index-addressable list of handler filters. Slots are
	// tombstoned on removal, and reused, so a saved scan index remains valid
	// across modifications.
	registry[ID constraints.Unsigned, H comparable] struct {
		entries []entry[ID, H]
		mu      sync.Mutex
	}

	entry[ID constraints.Unsigned, H comparable] struct {
		handler H
		id      ID
		mask    ID
		live    bool
	}
)

func (x *entry[ID, H]) matches(key ID, negate bool) bool {
	return x.live && ((key&x.mask) == (x.id&x.mask)) != negate
}

func (x *registry[ID, H]) register(handler H, id, mask ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	i := 0
	for i < len(x.entries) && x.entries[i].live {
		i++
	}
	if i == len(x.entries) {
		x.entries = append(x.entries, entry[ID, H]{})
	}
	x.entries[i] = entry[ID, H]{handler: handler, id: id, mask: mask, live: true}
}

func (x *registry[ID, H]) unregister(handler H, id, mask ID) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.entries {
		e := &x.entries[i]
		if !e.live || e.handler != handler || e.id != id || e.mask != mask {
			continue
		}
		*e = entry[ID, H]{}
		if i == len(x.entries)-1 {
			x.entries = x.entries[:i]
		}
		return
	}
	panic(`dispatch: unregister of a handler that is not registered`)
}

func (x *registry[ID, H]) unregisterAll(handler H) (n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.entries {
		if e := &x.entries[i]; e.live && e.handler == handler {
			*e = entry[ID, H]{}
			n++
		}
	}
	i := len(x.entries)
	for i > 0 && !x.entries[i-1].live {
		i--
	}
	clear(x.entries[i:])
	x.entries = x.entries[:i]
	return n
}

func (x *registry[ID, H]) size() (n int) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range x.entries {
		if x.entries[i].live {
			n++
		}
	}
	return n
}

// next scans from index, returning the first matching slot. An index past
// the end (including one made so by truncation) is exhaustion.
func (x *registry[ID, H]) next(index int, key ID, negate bool) (int, H, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for ; index < len(x.entries); index++ {
		if e := &x.entries[index]; e.matches(key, negate) {
			return index, e.handler, true
		}
	}
	var zero H
	return index, zero, false
}

// slots returns the number of slots, including tombstones.
func (x *registry[ID, H]) slots() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}
