// Package gfx defines rendering related features that renderers must implement.
package gfx

// Releasable defines any memory-occupying item that can be freed.
type Releasable interface {

	// Release releases memory occupied by the implementing structure.
	Release()
}

// ReleaseFunc adapts a plain function to Releasable.
type ReleaseFunc func()

// Release implements Releasable
func (f ReleaseFunc) Release() {
	f()
}

// Extent2D is a size in pixels.
type Extent2D struct {
	Width  uint32
	Height uint32
}

// IsZero is true when either side is zero, as with a minimized window.
func (e Extent2D) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}
