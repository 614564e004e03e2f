// Package frame drives the per-frame acquire, record, submit and
// present cycle, independent of the graphics API underneath.
package frame

import (
	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/model"
)

// Status is the outcome of acquiring or presenting a swapchain image.
type Status int

// Statuses
const (
	StatusOK Status = iota
	StatusSuboptimal
	StatusOutOfDate
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusOutOfDate:
		return "out of date"
	}
	return "unknown"
}

// Swapchain is an owned bundle of surface sized resources.
type Swapchain interface {
	gfx.Releasable

	// Extent is the size of the presentable images.
	Extent() gfx.Extent2D

	// ImageCount is the number of presentable images.
	ImageCount() int
}

// Backend does the actual GPU work for a frame. Slot arguments are
// always in [0, frames in flight).
type Backend interface {

	// WaitFrame blocks until the slot's previous submission completed.
	WaitFrame(slot int) error

	// Acquire takes the next presentable image, signalling the slot's
	// image available semaphore.
	Acquire(sc Swapchain, slot int) (uint32, Status, error)

	// Upload copies this frame's instances into the slot's buffer.
	Upload(slot int, instances []model.QuadInstance) error

	// Record records the draw of count instances into the slot's
	// command buffer, using the given pipeline variant.
	Record(sc Swapchain, slot int, image uint32, count int, variant gfx.PipelineVariant) error

	// Submit resets the slot's fence and submits its command buffer.
	Submit(slot int) error

	// Present queues the image for presentation.
	Present(sc Swapchain, slot int, image uint32) (Status, error)

	// BuildSwapchain builds a new bundle, old may be nil.
	BuildSwapchain(old Swapchain, extent gfx.Extent2D) (Swapchain, error)

	// WireframeSupported reports whether a wireframe pipeline exists.
	WireframeSupported() bool

	// WaitIdle blocks until the device finished all work.
	WaitIdle() error
}

// Window is the output surface as the driver sees it.
type Window interface {

	// DrawableSize is the surface size in pixels.
	DrawableSize() (int, int)

	// WaitEvents blocks until the window system has events and
	// processes them.
	WaitEvents()

	// ShouldClose is true once closing was requested.
	ShouldClose() bool
}

// Source provides the instances to draw this frame.
type Source interface {
	Items() []model.QuadInstance
}
