package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) *Time {
	t := &Time{
		fps:        cfg.FramesPerSecond,
		step:       time.Second / time.Duration(cfg.UpdatesPerSecond),
		maxUpdates: cfg.MaxUpdatesPerFrame,
	}
	if t.maxUpdates < 1 {
		t.maxUpdates = 1
	}
	if cfg.FramesPerSecond > 0 {
		t.fpsTicker = time.NewTicker(time.Second / time.Duration(cfg.FramesPerSecond))
	}
	return t
}

// Time contains the frame pacing and fixed step accounting
// of the main loop. It is not safe for concurrent use.
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	step        time.Duration
	maxUpdates  int
	accumulator time.Duration
	last        time.Time

	frames      int
	rate        int
	countedFrom time.Time
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// StepDuration is the fixed update interval.
func (t *Time) StepDuration() time.Duration {
	return t.step
}

// Step accounts the time passed since the previous call and returns
// how many fixed updates have to run this frame. At most the
// configured number of updates is returned, the remaining backlog
// is dropped so a long stall does not snowball.
func (t *Time) Step(now time.Time) int {
	if t.last.IsZero() {
		t.last = now
		return 0
	}
	t.accumulator += now.Sub(t.last)
	t.last = now

	var n int
	for t.accumulator >= t.step && n < t.maxUpdates {
		t.accumulator -= t.step
		n++
	}
	if n == t.maxUpdates && t.accumulator >= t.step {
		t.accumulator = 0
	}
	return n
}

// Frame counts one presented frame. Once per second it reports
// the number of frames counted over the last second.
func (t *Time) Frame(now time.Time) (int, bool) {
	if t.countedFrom.IsZero() {
		t.countedFrom = now
	}
	t.frames++
	if now.Sub(t.countedFrom) < time.Second {
		return t.rate, false
	}
	t.rate = t.frames
	t.frames = 0
	t.countedFrom = now
	return t.rate, true
}

// Rate returns the last measured frames per second.
func (t *Time) Rate() int {
	return t.rate
}

// Wait blocks until the next frame may start when the frame
// rate is capped, returns immediately otherwise.
func (t *Time) Wait() {
	if t.fpsTicker != nil {
		<-t.fpsTicker.C
	}
}

// Stop releases the frame ticker.
func (t *Time) Stop() {
	if t.fpsTicker != nil {
		t.fpsTicker.Stop()
	}
}
