package main

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/tilesweep/game"
)

// window adapts an SDL window to the frame driver and feeds its input
// into the game's event set.
type window struct {
	*sdl.Window
	events *game.Events
	closed bool
}

func newWindow(title string, width, height uint32, events *game.Events) (*window, error) {
	w, err := sdl.CreateWindow(title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(width),
		int32(height),
		sdl.WINDOW_VULKAN|sdl.WINDOW_RESIZABLE)
	if err != nil {
		return nil, err
	}
	return &window{Window: w, events: events}, nil
}

// DrawableSize is the surface size in pixels.
func (w *window) DrawableSize() (int, int) {
	width, height := w.VulkanGetDrawableSize()
	return int(width), int(height)
}

// WaitEvents blocks for one event, then drains the queue.
func (w *window) WaitEvents() {
	if event := sdl.WaitEvent(); event != nil {
		w.handle(event)
	}
	w.PollEvents()
}

// PollEvents handles every queued event without blocking.
func (w *window) PollEvents() {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		w.handle(event)
	}
}

func (w *window) ShouldClose() bool {
	return w.closed
}

func (w *window) Close() {
	w.closed = true
}

func (w *window) handle(event sdl.Event) {
	switch et := event.(type) {
	case *sdl.QuitEvent:
		w.closed = true
	case *sdl.WindowEvent:
		switch et.Event {
		case sdl.WINDOWEVENT_RESIZED, sdl.WINDOWEVENT_SIZE_CHANGED:
			w.events.SetResized()
		}
	case *sdl.KeyboardEvent:
		if et.Type == sdl.KEYDOWN {
			w.events.KeyDown(game.Key(et.Keysym.Sym))
		} else {
			w.events.KeyUp(game.Key(et.Keysym.Sym))
		}
	case *sdl.MouseButtonEvent:
		if et.Type != sdl.MOUSEBUTTONDOWN {
			return
		}
		var button game.Button
		switch int(et.Button) {
		case sdl.BUTTON_LEFT:
			button = game.ButtonLeft
		case sdl.BUTTON_MIDDLE:
			button = game.ButtonMiddle
		case sdl.BUTTON_RIGHT:
			button = game.ButtonRight
		default:
			return
		}
		width, height := w.GetSize()
		w.events.Click(button, game.ToNDC(et.X, et.Y, width, height))
	}
}
