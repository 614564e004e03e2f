package gfx

import (
	"fmt"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Atlas is a texture split into an even grid of cells. Cells are
// numbered row by row from the top left corner.
type Atlas struct {
	Columns int
	Rows    int
}

// Cells is the number of cells in the atlas.
func (a Atlas) Cells() int {
	return a.Columns * a.Rows
}

// Cell returns the texture coordinate offset and scale of a cell.
func (a Atlas) Cell(index int) (offset, scale glm.Vec2) {
	if index < 0 || index >= a.Cells() {
		panic(fmt.Sprintf("gfx: atlas cell %d out of range [0, %d)", index, a.Cells()))
	}
	scale = glm.Vec2{1 / float32(a.Columns), 1 / float32(a.Rows)}
	offset = glm.Vec2{
		float32(index%a.Columns) * scale.X(),
		float32(index/a.Columns) * scale.Y(),
	}
	return offset, scale
}
