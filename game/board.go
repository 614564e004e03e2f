// Package game is the grid-reveal game drawn by the renderer. Every
// tile owns one quad in the shared pool and changes its atlas cell as
// it is revealed or marked.
package game

import (
	"math"
	"math/rand"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/model"
)

// Atlas cells used by the board.
const (
	CellHidden = 0
	CellEmpty  = 1
	CellFlag   = 2
	CellMine   = 3
	CellDigit1 = 4 // digits 1 to 8 follow in order
	CellWhite  = 12
)

// State of a round.
type State int

// Round states
const (
	StatePreparing State = iota // no tile revealed yet, mines not placed
	StatePlaying
	StateWon
	StateLost
)

func (s State) String() string {
	switch s {
	case StatePreparing:
		return "preparing"
	case StatePlaying:
		return "playing"
	case StateWon:
		return "won"
	case StateLost:
		return "lost"
	}
	return "unknown"
}

// Board extent in world units along its longer side.
const boardSpan = 1.8

// Depth of the tiles, the flash draws in front of them.
const tileDepth = 0.5

var (
	hiddenColor   = glm.Vec4{1, 1, 1, 1}
	revealedColor = glm.Vec4{0.85, 0.85, 0.85, 1}
	explodedColor = glm.Vec4{1, 0.3, 0.3, 1}
)

var neighbourOffsets = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

type tile struct {
	mine     bool
	revealed bool
	marked   bool
	adjacent int
	handle   *gfx.Handle
}

// Board is one minefield. Mines are placed on the first reveal so that
// the first revealed tile is never a mine.
type Board struct {
	columns int
	rows    int
	mines   int
	rng     *rand.Rand

	tiles    []tile
	state    State
	revealed int
	marked   int

	pool  *gfx.Pool[model.QuadInstance]
	atlas gfx.Atlas
	size  float32
	log   *logrus.Entry
}

// NewBoard lays out a hidden board of quads in pool. The same seed
// always places the same mines for the same first reveal.
func NewBoard(cfg core.GameConfiguration, pool *gfx.Pool[model.QuadInstance], atlas gfx.Atlas, log *logrus.Entry) (*Board, error) {
	if cfg.Columns < 1 || cfg.Rows < 1 {
		return nil, errors.Errorf("game.NewBoard(): board of %dx%d", cfg.Columns, cfg.Rows)
	}
	if cfg.Mines < 0 || cfg.Mines >= cfg.Columns*cfg.Rows {
		return nil, errors.Errorf("game.NewBoard(): %d mines on %d tiles", cfg.Mines, cfg.Columns*cfg.Rows)
	}
	if atlas.Cells() <= CellWhite {
		return nil, errors.Errorf("game.NewBoard(): atlas has %d cells, need %d", atlas.Cells(), CellWhite+1)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	b := &Board{
		columns: cfg.Columns,
		rows:    cfg.Rows,
		mines:   cfg.Mines,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		tiles:   make([]tile, cfg.Columns*cfg.Rows),
		pool:    pool,
		atlas:   atlas,
		size:    boardSpan / float32(max(cfg.Columns, cfg.Rows)),
		log:     log.WithField("component", "board"),
	}
	for idx := range b.tiles {
		h, err := pool.Add(b.quad(idx))
		if err != nil {
			b.Release()
			return nil, errors.Wrapf(err, "game.NewBoard(): tile %d", idx)
		}
		b.tiles[idx].handle = h
	}
	return b, nil
}

// Columns of the board.
func (b *Board) Columns() int { return b.columns }

// Rows of the board.
func (b *Board) Rows() int { return b.rows }

// State of the current round.
func (b *Board) State() State { return b.state }

// Remaining is the mine count minus the marked tiles.
func (b *Board) Remaining() int { return b.mines - b.marked }

// Revealed is the number of revealed tiles.
func (b *Board) Revealed() int { return b.revealed }

// Mine reports whether a mine is placed at column x, row y.
func (b *Board) Mine(x, y int) bool {
	return b.valid(x, y) && b.tiles[b.index(x, y)].mine
}

// Adjacent is the number of mines next to x, y.
func (b *Board) Adjacent(x, y int) int {
	return b.tiles[b.index(x, y)].adjacent
}

// IsRevealed reports whether x, y was revealed.
func (b *Board) IsRevealed(x, y int) bool {
	return b.tiles[b.index(x, y)].revealed
}

// IsMarked reports whether x, y carries a mark.
func (b *Board) IsMarked(x, y int) bool {
	return b.tiles[b.index(x, y)].marked
}

// TileAt maps a world position to the tile under it.
func (b *Board) TileAt(p glm.Vec2) (x, y int, ok bool) {
	w, h := b.extent()
	fx := (p.X() + w/2) / b.size
	fy := (h/2 - p.Y()) / b.size
	x, y = int(math.Floor(float64(fx))), int(math.Floor(float64(fy)))
	return x, y, b.valid(x, y)
}

// Reveal uncovers x, y. Tiles without adjacent mines flood out to their
// neighbours. Revealing a mine loses the round. Marked, revealed or
// out of range tiles and finished rounds are ignored.
func (b *Board) Reveal(x, y int) State {
	if !b.valid(x, y) || b.finished() {
		return b.state
	}
	t := &b.tiles[b.index(x, y)]
	if t.revealed || t.marked {
		return b.state
	}
	if b.state == StatePreparing {
		b.placeMines(x, y)
		b.setState(StatePlaying)
	}
	if t.mine {
		b.explode(x, y)
		return b.state
	}
	b.flood(x, y)
	if b.revealed == len(b.tiles)-b.mines {
		b.setState(StateWon)
	}
	return b.state
}

// Chord reveals every unmarked neighbour of a revealed tile whose mine
// count is matched by the marks around it.
func (b *Board) Chord(x, y int) State {
	if !b.valid(x, y) || b.finished() {
		return b.state
	}
	t := b.tiles[b.index(x, y)]
	if !t.revealed || t.adjacent == 0 {
		return b.state
	}
	var marks int
	b.neighbours(x, y, func(nx, ny int) {
		if b.tiles[b.index(nx, ny)].marked {
			marks++
		}
	})
	if marks != t.adjacent {
		return b.state
	}
	b.neighbours(x, y, func(nx, ny int) {
		b.Reveal(nx, ny)
	})
	return b.state
}

// ToggleMark flags or unflags a hidden tile.
func (b *Board) ToggleMark(x, y int) {
	if !b.valid(x, y) || b.finished() {
		return
	}
	idx := b.index(x, y)
	t := &b.tiles[idx]
	if t.revealed {
		return
	}
	t.marked = !t.marked
	if t.marked {
		b.marked++
	} else {
		b.marked--
	}
	b.update(idx)
}

// Reset covers every tile and starts a new round, mines are placed
// again on the next reveal.
func (b *Board) Reset() {
	for idx := range b.tiles {
		h := b.tiles[idx].handle
		b.tiles[idx] = tile{handle: h}
		b.update(idx)
	}
	b.revealed = 0
	b.marked = 0
	b.setState(StatePreparing)
}

// Release removes the board's quads from the pool.
func (b *Board) Release() {
	for idx := range b.tiles {
		if h := b.tiles[idx].handle; h.Valid() {
			b.pool.Remove(h)
		}
	}
}

func (b *Board) placeMines(safeX, safeY int) {
	safe := b.index(safeX, safeY)
	candidates := make([]int, 0, len(b.tiles)-1)
	for idx := range b.tiles {
		if idx != safe {
			candidates = append(candidates, idx)
		}
	}
	b.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	for _, idx := range candidates[:b.mines] {
		b.tiles[idx].mine = true
	}
	for idx := range b.tiles {
		x, y := idx%b.columns, idx/b.columns
		b.neighbours(x, y, func(nx, ny int) {
			if b.tiles[b.index(nx, ny)].mine {
				b.tiles[idx].adjacent++
			}
		})
	}
}

// flood reveals from x, y outwards without recursion.
func (b *Board) flood(x, y int) {
	queue := []int{b.index(x, y)}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		t := &b.tiles[idx]
		if t.revealed || t.marked || t.mine {
			continue
		}
		t.revealed = true
		b.revealed++
		b.update(idx)
		if t.adjacent > 0 {
			continue
		}
		b.neighbours(idx%b.columns, idx/b.columns, func(nx, ny int) {
			if n := b.index(nx, ny); !b.tiles[n].revealed {
				queue = append(queue, n)
			}
		})
	}
}

// explode reveals every mine, the one hit is tinted.
func (b *Board) explode(x, y int) {
	hit := b.index(x, y)
	for idx := range b.tiles {
		t := &b.tiles[idx]
		if t.mine && !t.revealed {
			t.revealed = true
			b.update(idx)
		}
	}
	b.pool.Get(b.tiles[hit].handle).Color = explodedColor
	b.setState(StateLost)
}

func (b *Board) setState(s State) {
	if b.state == s {
		return
	}
	b.log.WithFields(logrus.Fields{
		"from":     b.state,
		"to":       s,
		"revealed": b.revealed,
	}).Debug("board state changed")
	b.state = s
}

func (b *Board) finished() bool {
	return b.state == StateWon || b.state == StateLost
}

func (b *Board) update(idx int) {
	b.pool.Set(b.tiles[idx].handle, b.quad(idx))
}

// quad builds the instance for the tile at idx from its current state.
func (b *Board) quad(idx int) model.QuadInstance {
	t := b.tiles[idx]
	cell, color := CellHidden, hiddenColor
	switch {
	case t.marked:
		cell = CellFlag
	case t.revealed && t.mine:
		cell, color = CellMine, revealedColor
	case t.revealed && t.adjacent > 0:
		cell, color = CellDigit1+t.adjacent-1, revealedColor
	case t.revealed:
		cell, color = CellEmpty, revealedColor
	}
	offset, scale := b.atlas.Cell(cell)

	w, h := b.extent()
	x, y := idx%b.columns, idx/b.columns
	return model.QuadInstance{
		Color: color,
		Position: glm.Vec3{
			-w/2 + (float32(x)+0.5)*b.size,
			h/2 - (float32(y)+0.5)*b.size,
			tileDepth,
		},
		Scale:     glm.Vec2{b.size * 0.95, b.size * 0.95},
		TexOffset: offset,
		TexScale:  scale,
	}
}

func (b *Board) extent() (w, h float32) {
	return float32(b.columns) * b.size, float32(b.rows) * b.size
}

func (b *Board) neighbours(x, y int, fn func(nx, ny int)) {
	for _, o := range neighbourOffsets {
		if nx, ny := x+o[0], y+o[1]; b.valid(nx, ny) {
			fn(nx, ny)
		}
	}
}

func (b *Board) valid(x, y int) bool {
	return x >= 0 && x < b.columns && y >= 0 && y < b.rows
}

func (b *Board) index(x, y int) int {
	return y*b.columns + x
}
