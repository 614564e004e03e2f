package frame

import "fmt"

// Slots hands out frame slots round-robin from a running frame counter.
type Slots struct {
	n     int
	frame uint64
}

// NewSlots creates n slots, n being the number of frames in flight.
func NewSlots(n int) Slots {
	if n < 1 {
		panic(fmt.Sprintf("frame: %d slots", n))
	}
	return Slots{n: n}
}

// Count is the number of slots.
func (s Slots) Count() int {
	return s.n
}

// Current is the slot for the running frame.
func (s Slots) Current() int {
	return int(s.frame % uint64(s.n))
}

// Frame is the number of frames advanced so far.
func (s Slots) Frame() uint64 {
	return s.frame
}

// Advance moves on to the next frame.
func (s *Slots) Advance() {
	s.frame++
}
