package gfx

import (
	"github.com/pkg/errors"
)

// ErrPoolFull is returned by Pool.Add when every slot is taken.
var ErrPoolFull = errors.New("pool is full")

// Handle is an owner's reference into a Pool. The pool keeps the index
// up to date as items move around, so holders never see a stale index.
type Handle struct {
	index int
}

// Index is the current position of the item in Pool.Items.
// It is -1 once the item was removed.
func (h *Handle) Index() int {
	return h.index
}

// Valid is false after the item was removed.
func (h *Handle) Valid() bool {
	return h != nil && h.index >= 0
}

// Pool is a fixed capacity arena that keeps its live items contiguous.
// Removing an item moves the last one into the freed slot and patches
// the moved item's Handle. Not safe for concurrent use.
type Pool[T any] struct {
	items  []T
	owners []*Handle
}

// NewPool creates a pool holding up to capacity items.
func NewPool[T any](capacity int) *Pool[T] {
	return &Pool[T]{
		items:  make([]T, 0, capacity),
		owners: make([]*Handle, 0, capacity),
	}
}

// Add appends an item and returns the handle that owns it.
func (p *Pool[T]) Add(item T) (*Handle, error) {
	if len(p.items) == cap(p.items) {
		return nil, ErrPoolFull
	}
	h := &Handle{index: len(p.items)}
	p.items = append(p.items, item)
	p.owners = append(p.owners, h)
	return h, nil
}

// Remove drops the item owned by h. Removing with a handle that does
// not belong to this pool, or was already removed, panics.
func (p *Pool[T]) Remove(h *Handle) {
	idx := p.check(h)
	last := len(p.items) - 1
	if idx != last {
		p.items[idx] = p.items[last]
		p.owners[idx] = p.owners[last]
		p.owners[idx].index = idx
	}
	var zero T
	p.items[last] = zero
	p.owners[last] = nil
	p.items = p.items[:last]
	p.owners = p.owners[:last]
	h.index = -1
}

// Get returns a pointer to the item owned by h. The pointer is only
// good until the next Remove.
func (p *Pool[T]) Get(h *Handle) *T {
	return &p.items[p.check(h)]
}

// Set replaces the item owned by h.
func (p *Pool[T]) Set(h *Handle, item T) {
	p.items[p.check(h)] = item
}

// Items returns the live items, in slot order.
func (p *Pool[T]) Items() []T {
	return p.items
}

// Len is the number of live items.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// Cap is the fixed capacity.
func (p *Pool[T]) Cap() int {
	return cap(p.items)
}

func (p *Pool[T]) check(h *Handle) int {
	if h == nil || h.index < 0 || h.index >= len(p.owners) || p.owners[h.index] != h {
		panic("gfx: stale pool handle")
	}
	return h.index
}
