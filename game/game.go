package game

import (
	"time"

	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/model"
)

// Action is a command bound to a key.
type Action int

// Actions
const (
	ActionNone Action = iota
	ActionQuit
	ActionToggleWireframe
	ActionToggleFPS
	ActionRestart
)

func (a Action) String() string {
	switch a {
	case ActionQuit:
		return "quit"
	case ActionToggleWireframe:
		return "toggle wireframe"
	case ActionToggleFPS:
		return "toggle fps"
	case ActionRestart:
		return "restart"
	}
	return "none"
}

// Bindings map keys to actions.
type Bindings map[Key]Action

// FlashDuration is how long the end of round flash lasts.
const FlashDuration = 400 * time.Millisecond

// Game is one board with its effects and input.
type Game struct {
	Events *Events

	board    *Board
	flash    *Flash
	bindings Bindings
	log      *logrus.Entry

	projection glm.Mat4
	played     time.Duration
}

// New creates the board and flash inside pool.
func New(cfg core.GameConfiguration, pool *gfx.Pool[model.QuadInstance], atlas gfx.Atlas, bindings Bindings, log *logrus.Entry) (*Game, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	board, err := NewBoard(cfg, pool, atlas, log)
	if err != nil {
		return nil, err
	}
	return &Game{
		Events:     NewEvents(),
		board:      board,
		flash:      NewFlash(pool, atlas),
		bindings:   bindings,
		log:        log.WithField("component", "game"),
		projection: glm.Ident4(),
	}, nil
}

// Board is the current board.
func (g *Game) Board() *Board { return g.board }

// Flash is the end of round effect.
func (g *Game) Flash() *Flash { return g.flash }

// SetViewport updates the projection used to map clicks onto the board.
func (g *Game) SetViewport(width, height uint32) {
	g.projection = model.Projection(width, height)
}

// Update runs one fixed step of dt. It applies clicks to the board,
// advances the flash and returns the actions of newly pressed keys,
// which the caller carries out.
func (g *Game) Update(dt time.Duration) []Action {
	var actions []Action
	for _, k := range g.Events.Pressed() {
		a, ok := g.bindings[k]
		if !ok {
			continue
		}
		if a == ActionRestart {
			g.restart()
			continue
		}
		actions = append(actions, a)
	}

	before := g.board.State()
	for _, click := range g.Events.Clicks() {
		g.click(click)
	}
	if after := g.board.State(); after != before {
		g.finish(after)
	}

	if g.board.State() == StatePlaying {
		g.played += dt
	}
	g.flash.Update(dt)
	return actions
}

// Release removes the game's quads from the pool.
func (g *Game) Release() {
	g.flash.Stop()
	g.board.Release()
}

func (g *Game) click(c Click) {
	x, y, ok := g.board.TileAt(model.ScreenToWorld(g.projection, c.Pos))
	if !ok {
		return
	}
	switch c.Button {
	case ButtonLeft:
		if g.board.IsRevealed(x, y) {
			g.board.Chord(x, y)
		} else {
			g.board.Reveal(x, y)
		}
	case ButtonRight:
		g.board.ToggleMark(x, y)
	case ButtonMiddle:
		g.board.Chord(x, y)
	}
}

func (g *Game) finish(s State) {
	var color glm.Vec3
	switch s {
	case StateWon:
		color = FlashWon
	case StateLost:
		color = FlashLost
	default:
		return
	}
	g.log.WithFields(logrus.Fields{
		"result": s,
		"played": g.played.Round(time.Millisecond),
	}).Info("round over")
	if err := g.flash.Start(color, FlashDuration); err != nil {
		g.log.WithError(err).Warn("no room for flash")
	}
}

func (g *Game) restart() {
	g.flash.Stop()
	g.board.Reset()
	g.played = 0
	g.log.Info("new round")
}
