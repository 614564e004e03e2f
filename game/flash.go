package game

import (
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/model"
)

// Flash colours
var (
	FlashLost = glm.Vec3{1, 0, 0}
	FlashWon  = glm.Vec3{0, 1, 0}
)

// Depth of the flash quad, in front of the board.
const flashDepth = 0.1

// Flash covers the screen with one colour and fades it out.
type Flash struct {
	pool   *gfx.Pool[model.QuadInstance]
	atlas  gfx.Atlas
	handle *gfx.Handle

	duration time.Duration
	elapsed  time.Duration
}

// NewFlash returns an idle flash drawing into pool.
func NewFlash(pool *gfx.Pool[model.QuadInstance], atlas gfx.Atlas) *Flash {
	return &Flash{pool: pool, atlas: atlas}
}

// Start shows a flash of color fading out over d. A running flash is
// replaced.
func (f *Flash) Start(color glm.Vec3, d time.Duration) error {
	f.Stop()
	if d <= 0 {
		return nil
	}
	offset, scale := f.atlas.Cell(CellWhite)
	h, err := f.pool.Add(model.QuadInstance{
		Color:     color.Vec4(1),
		Position:  glm.Vec3{0, 0, flashDepth},
		Scale:     glm.Vec2{100, 100},
		TexOffset: offset,
		TexScale:  scale,
	})
	if err != nil {
		return errors.Wrap(err, "flash")
	}
	f.handle = h
	f.duration = d
	f.elapsed = 0
	return nil
}

// Update advances the fade by dt and removes the quad once it is fully
// transparent.
func (f *Flash) Update(dt time.Duration) {
	if !f.Active() {
		return
	}
	f.elapsed += dt
	if f.elapsed >= f.duration {
		f.Stop()
		return
	}
	q := f.pool.Get(f.handle)
	q.Color[3] = 1 - float32(f.elapsed)/float32(f.duration)
}

// Alpha of the flash, zero when idle.
func (f *Flash) Alpha() float32 {
	if !f.Active() {
		return 0
	}
	return f.pool.Get(f.handle).Color.W()
}

// Active is true while the flash quad is in the pool.
func (f *Flash) Active() bool {
	return f.handle.Valid()
}

// Stop removes the flash quad right away.
func (f *Flash) Stop() {
	if f.Active() {
		f.pool.Remove(f.handle)
	}
	f.handle = nil
}
