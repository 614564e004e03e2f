package game_test

import (
	"testing"

	qt "github.com/frankban/quicktest"
	glm "github.com/go-gl/mathgl/mgl32"

	"github.com/devblok/tilesweep/game"
)

func TestEventsKeys(t *testing.T) {
	c := qt.New(t)
	e := game.NewEvents()
	e.KeyDown(7)
	e.KeyDown(3)
	c.Assert(e.Held(), qt.HasLen, 0)
	c.Assert(e.Pressed(), qt.DeepEquals, []game.Key{3, 7})

	// repeats of a held key are not presses
	e.KeyDown(3)
	c.Assert(e.Pressed(), qt.HasLen, 0)
	c.Assert(e.Held(), qt.DeepEquals, []game.Key{3, 7})

	e.KeyUp(3)
	c.Assert(e.Held(), qt.DeepEquals, []game.Key{7})
	e.KeyDown(3)
	c.Assert(e.Pressed(), qt.DeepEquals, []game.Key{3})
}

func TestEventsReleasedBeforeRead(t *testing.T) {
	c := qt.New(t)
	e := game.NewEvents()
	e.KeyDown(1)
	e.KeyUp(1)
	c.Assert(e.Pressed(), qt.HasLen, 0)
	c.Assert(e.Held(), qt.HasLen, 0)
}

func TestEventsClicks(t *testing.T) {
	c := qt.New(t)
	e := game.NewEvents()
	e.Click(game.ButtonLeft, glm.Vec2{0.5, -0.5})
	e.Click(game.ButtonRight, glm.Vec2{0, 0})
	c.Assert(e.Clicks(), qt.DeepEquals, []game.Click{
		{Button: game.ButtonLeft, Pos: glm.Vec2{0.5, -0.5}},
		{Button: game.ButtonRight, Pos: glm.Vec2{0, 0}},
	})
	c.Assert(e.Clicks(), qt.HasLen, 0)
}

func TestEventsResized(t *testing.T) {
	c := qt.New(t)
	e := game.NewEvents()
	c.Assert(e.Resized(), qt.IsFalse)
	e.SetResized()
	e.SetResized()
	c.Assert(e.Resized(), qt.IsTrue)
	c.Assert(e.Resized(), qt.IsFalse)
}

func TestToNDC(t *testing.T) {
	for _, test := range []struct {
		x, y, w, h int32
		want       glm.Vec2
	}{
		{0, 0, 800, 600, glm.Vec2{-1, -1}},
		{400, 300, 800, 600, glm.Vec2{0, 0}},
		{800, 600, 800, 600, glm.Vec2{1, 1}},
		{200, 450, 800, 600, glm.Vec2{-0.5, 0.5}},
		{10, 10, 0, 600, glm.Vec2{}},
	} {
		qt.Assert(t, game.ToNDC(test.x, test.y, test.w, test.h), qt.Equals, test.want)
	}
}
