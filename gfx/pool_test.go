package gfx_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/tilesweep/gfx"
)

func TestPoolAddAndFull(t *testing.T) {
	c := qt.New(t)
	pool := gfx.NewPool[string](2)

	a, err := pool.Add("a")
	c.Assert(err, qt.IsNil)
	b, err := pool.Add("b")
	c.Assert(err, qt.IsNil)
	c.Assert(a.Index(), qt.Equals, 0)
	c.Assert(b.Index(), qt.Equals, 1)

	_, err = pool.Add("c")
	c.Assert(err, qt.Equals, gfx.ErrPoolFull)
	c.Assert(pool.Len(), qt.Equals, 2)
	c.Assert(pool.Cap(), qt.Equals, 2)
}

func TestPoolRemovePatchesMovedHandle(t *testing.T) {
	c := qt.New(t)
	pool := gfx.NewPool[string](4)

	a, _ := pool.Add("a")
	b, _ := pool.Add("b")
	d, _ := pool.Add("d")

	pool.Remove(a)
	c.Assert(a.Valid(), qt.IsFalse)
	c.Assert(pool.Items(), qt.DeepEquals, []string{"d", "b"})
	c.Assert(d.Index(), qt.Equals, 0)
	c.Assert(*pool.Get(d), qt.Equals, "d")
	c.Assert(*pool.Get(b), qt.Equals, "b")

	// removing the last item moves nothing
	pool.Remove(b)
	c.Assert(pool.Items(), qt.DeepEquals, []string{"d"})
	c.Assert(d.Index(), qt.Equals, 0)

	// freed slots are reused
	e, err := pool.Add("e")
	c.Assert(err, qt.IsNil)
	c.Assert(e.Index(), qt.Equals, 1)
}

func TestPoolSet(t *testing.T) {
	c := qt.New(t)
	pool := gfx.NewPool[int](3)
	h, _ := pool.Add(1)
	pool.Set(h, 5)
	*pool.Get(h)++
	c.Assert(pool.Items(), qt.DeepEquals, []int{6})
}

func TestPoolStaleHandlePanics(t *testing.T) {
	c := qt.New(t)
	pool := gfx.NewPool[int](3)
	h, _ := pool.Add(1)
	pool.Remove(h)

	c.Assert(func() { pool.Remove(h) }, qt.PanicMatches, "gfx: stale pool handle")
	c.Assert(func() { pool.Get(h) }, qt.PanicMatches, "gfx: stale pool handle")

	other := gfx.NewPool[int](3)
	foreign, _ := other.Add(7)
	pool.Add(2)
	c.Assert(func() { pool.Remove(foreign) }, qt.PanicMatches, "gfx: stale pool handle")
}

func TestPoolHandlesStayConsistent(t *testing.T) {
	c := qt.New(t)
	pool := gfx.NewPool[int](64)

	handles := make(map[int]*gfx.Handle)
	for idx := 0; idx < 64; idx++ {
		h, err := pool.Add(idx)
		c.Assert(err, qt.IsNil)
		handles[idx] = h
	}
	for idx := 0; idx < 64; idx += 3 {
		pool.Remove(handles[idx])
		delete(handles, idx)
	}

	c.Assert(pool.Len(), qt.Equals, len(handles))
	for value, h := range handles {
		c.Assert(pool.Items()[h.Index()], qt.Equals, value)
	}
}

func BenchmarkPoolAddRemove(b *testing.B) {
	pool := gfx.NewPool[int](2048)
	for idx := 0; idx < 2047; idx++ {
		pool.Add(idx)
	}
	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		h, _ := pool.Add(idx)
		pool.Remove(h)
	}
}
