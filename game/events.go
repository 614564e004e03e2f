package game

import (
	"sort"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Key is a window system key code.
type Key int

// Button is a mouse button.
type Button int

// Mouse buttons
const (
	ButtonLeft Button = iota + 1
	ButtonMiddle
	ButtonRight
)

// Click is a mouse button press at a position in normalised device
// coordinates, Y pointing down.
type Click struct {
	Button Button
	Pos    glm.Vec2
}

// Events collects input between two updates. A key is pressed in the
// first update that sees it go down and held in the following ones,
// until it is released.
type Events struct {
	pressed map[Key]struct{}
	held    map[Key]struct{}
	clicks  []Click
	resized bool
}

// NewEvents returns an empty event set.
func NewEvents() *Events {
	return &Events{
		pressed: make(map[Key]struct{}),
		held:    make(map[Key]struct{}),
	}
}

// KeyDown records a key going down. Key repeats of a held key are
// ignored.
func (e *Events) KeyDown(k Key) {
	if _, ok := e.held[k]; ok {
		return
	}
	e.pressed[k] = struct{}{}
}

// KeyUp records a key release.
func (e *Events) KeyUp(k Key) {
	delete(e.pressed, k)
	delete(e.held, k)
}

// Pressed returns the keys that went down since the last call, in
// ascending order. They count as held from then on.
func (e *Events) Pressed() []Key {
	keys := sortedKeys(e.pressed)
	for _, k := range keys {
		e.held[k] = struct{}{}
		delete(e.pressed, k)
	}
	return keys
}

// Held returns the keys held down, in ascending order.
func (e *Events) Held() []Key {
	return sortedKeys(e.held)
}

// Click records a mouse press at ndc.
func (e *Events) Click(b Button, ndc glm.Vec2) {
	e.clicks = append(e.clicks, Click{Button: b, Pos: ndc})
}

// Clicks returns and clears the recorded clicks, oldest first.
func (e *Events) Clicks() []Click {
	clicks := e.clicks
	e.clicks = nil
	return clicks
}

// SetResized flags a window resize.
func (e *Events) SetResized() {
	e.resized = true
}

// Resized reads and clears the resize flag.
func (e *Events) Resized() bool {
	r := e.resized
	e.resized = false
	return r
}

// ToNDC converts a window position in points to normalised device
// coordinates for a window of w by h points.
func ToNDC(x, y, w, h int32) glm.Vec2 {
	if w <= 0 || h <= 0 {
		return glm.Vec2{}
	}
	return glm.Vec2{
		2*float32(x)/float32(w) - 1,
		2*float32(y)/float32(h) - 1,
	}
}

func sortedKeys(set map[Key]struct{}) []Key {
	keys := make([]Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
