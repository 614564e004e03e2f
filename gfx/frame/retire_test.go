package frame_test

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/gfx/frame"
)

type releaseLog struct {
	tick     int
	released []string
	at       map[string]int
}

func (l *releaseLog) item(name string) gfx.Releasable {
	return gfx.ReleaseFunc(func() {
		l.released = append(l.released, name)
		l.at[name] = l.tick
	})
}

func TestRetireQueueCountdown(t *testing.T) {
	c := qt.New(t)
	q := frame.NewRetireQueue(3)
	log := &releaseLog{at: make(map[string]int)}

	q.Retire(log.item("a"), 3)
	c.Assert(q.Len(), qt.Equals, 1)
	for log.tick = 1; log.tick <= 2; log.tick++ {
		c.Assert(q.Tick(), qt.Equals, 0)
	}
	c.Assert(q.Tick(), qt.Equals, 1)
	c.Assert(log.released, qt.DeepEquals, []string{"a"})
	c.Assert(q.Len(), qt.Equals, 0)
}

func TestRetireQueueOrderFollowsExpiry(t *testing.T) {
	c := qt.New(t)
	const depth = 3
	q := frame.NewRetireQueue(depth)
	log := &releaseLog{at: make(map[string]int)}

	// one rebuild per tick, sometimes two
	retiredAt := make(map[string]int)
	var order []string
	for log.tick = 0; log.tick < 12; log.tick++ {
		if log.tick > 0 {
			q.Tick()
		}
		rebuilds := 1 + log.tick%2
		for r := 0; r < rebuilds; r++ {
			name := fmt.Sprintf("gen%d.%d", log.tick, r)
			retiredAt[name] = log.tick
			order = append(order, name)
			q.Retire(log.item(name), depth)
		}
	}
	q.Drain()

	c.Assert(log.released, qt.DeepEquals, order)
	for name, at := range log.at {
		if at < 12 {
			c.Assert(at-retiredAt[name], qt.Equals, depth, qt.Commentf("%s", name))
		}
	}
	c.Assert(q.Len(), qt.Equals, 0)
}

func TestRetireQueueMixedWaits(t *testing.T) {
	c := qt.New(t)
	q := frame.NewRetireQueue(4)
	log := &releaseLog{at: make(map[string]int)}

	q.Retire(log.item("long"), 4)
	q.Retire(log.item("short"), 1)
	q.Retire(log.item("mid"), 2)
	for log.tick = 1; log.tick <= 4; log.tick++ {
		q.Tick()
	}
	c.Assert(log.released, qt.DeepEquals, []string{"short", "mid", "long"})
	c.Assert(log.at, qt.DeepEquals, map[string]int{"short": 1, "mid": 2, "long": 4})
}

func TestRetireQueueDrainKeepsExpiryOrder(t *testing.T) {
	c := qt.New(t)
	q := frame.NewRetireQueue(3)
	log := &releaseLog{at: make(map[string]int)}

	q.Tick()
	q.Retire(log.item("late"), 3)
	q.Retire(log.item("early"), 1)
	q.Drain()
	c.Assert(log.released, qt.DeepEquals, []string{"early", "late"})
}

func TestRetireQueueBadWaitPanics(t *testing.T) {
	c := qt.New(t)
	q := frame.NewRetireQueue(3)
	c.Assert(func() { q.Retire(gfx.ReleaseFunc(func() {}), 0) }, qt.PanicMatches, `frame: retire wait 0 outside \[1, 3\]`)
	c.Assert(func() { q.Retire(gfx.ReleaseFunc(func() {}), 4) }, qt.PanicMatches, `frame: retire wait 4 outside \[1, 3\]`)
	c.Assert(func() { frame.NewRetireQueue(0) }, qt.PanicMatches, `frame: retire queue depth 0`)
}

func TestSlotsRoundRobin(t *testing.T) {
	c := qt.New(t)
	for _, n := range []int{1, 2, 3} {
		s := frame.NewSlots(n)
		for k := 0; k < 20; k++ {
			c.Assert(s.Current(), qt.Equals, k%n)
			c.Assert(s.Frame(), qt.Equals, uint64(k))
			s.Advance()
		}
	}
}

func BenchmarkRetireQueue(b *testing.B) {
	q := frame.NewRetireQueue(3)
	noop := gfx.ReleaseFunc(func() {})
	for idx := 0; idx < b.N; idx++ {
		q.Retire(noop, 3)
		q.Tick()
	}
}
