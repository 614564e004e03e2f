package frame

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/devblok/tilesweep/gfx"
)

// ErrClosed is returned by Tick after Close.
var ErrClosed = errors.New("frame driver is closed")

// ErrZeroExtent is returned by Backend.BuildSwapchain while the surface
// has no area. The driver keeps the current bundle and retries later.
var ErrZeroExtent = errors.New("surface has zero extent")

// Stats are running counters of the driver.
type Stats struct {
	Ticks     uint64
	Presented uint64
	Skipped   uint64
	Rebuilds  uint64
}

// Driver runs frames on a Backend. Not safe for concurrent use, the
// render loop owns it.
type Driver struct {
	backend Backend
	window  Window
	source  Source
	log     *logrus.Entry

	slots    Slots
	retire   *RetireQueue
	variants gfx.Variants
	current  Swapchain

	resized bool
	closed  bool
	stats   Stats
}

// NewDriver builds the first swapchain bundle and returns a driver
// with framesInFlight slots. Retired bundles wait framesInFlight+1
// frames before they are released.
func NewDriver(backend Backend, window Window, source Source, framesInFlight int, log *logrus.Entry) (*Driver, error) {
	if framesInFlight < 1 {
		return nil, errors.Errorf("frame.NewDriver(): %d frames in flight", framesInFlight)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	d := &Driver{
		backend:  backend,
		window:   window,
		source:   source,
		log:      log.WithField("component", "frame"),
		slots:    NewSlots(framesInFlight),
		retire:   NewRetireQueue(framesInFlight + 1),
		variants: gfx.NewVariants(backend.WireframeSupported()),
	}
	if !d.waitForSurface() {
		return nil, errors.New("frame.NewDriver(): window closed before it was shown")
	}
	sc, err := backend.BuildSwapchain(nil, d.surfaceExtent())
	if err != nil {
		return nil, errors.Wrap(err, "frame.NewDriver()")
	}
	d.current = sc
	return d, nil
}

// SetResized flags the surface as resized. The flag is read and
// cleared by the next Tick.
func (d *Driver) SetResized() {
	d.resized = true
}

// Slot is the slot the next Tick will use.
func (d *Driver) Slot() int {
	return d.slots.Current()
}

// Swapchain is the current bundle.
func (d *Driver) Swapchain() Swapchain {
	return d.current
}

// Pending is the number of retired bundles not yet released.
func (d *Driver) Pending() int {
	return d.retire.Len()
}

// Stats returns the running counters.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Variant is the pipeline variant used for recording.
func (d *Driver) Variant() gfx.PipelineVariant {
	return d.variants.Active()
}

// ToggleWireframe switches between fill and wireframe rendering, if
// the backend has a wireframe pipeline.
func (d *Driver) ToggleWireframe() gfx.PipelineVariant {
	return d.variants.Toggle()
}

// Tick runs one frame. Surface staleness is handled internally by
// rebuilding the swapchain bundle, any returned error is fatal.
func (d *Driver) Tick() error {
	if d.closed {
		return ErrClosed
	}
	if d.minimized() {
		if !d.waitForSurface() {
			return nil
		}
		d.resized = true
	}

	d.stats.Ticks++
	defer d.slots.Advance()
	slot := d.slots.Current()

	if err := d.backend.WaitFrame(slot); err != nil {
		return errors.Wrapf(err, "frame %d: wait", d.slots.Frame())
	}
	d.retire.Tick()

	if d.takeResized() {
		d.stats.Skipped++
		return d.rebuild("resized")
	}

	image, status, err := d.backend.Acquire(d.current, slot)
	if err != nil {
		return errors.Wrapf(err, "frame %d: acquire", d.slots.Frame())
	}

	bundle := d.current
	grace := false
	switch status {
	case StatusOutOfDate:
		d.stats.Skipped++
		return d.rebuild("acquire: " + status.String())
	case StatusSuboptimal:
		// the acquired image still has to go out on the old bundle
		if err := d.rebuild("acquire: " + status.String()); err != nil {
			return err
		}
		grace = true
	}

	instances := d.source.Items()
	if len(instances) > 0 {
		if err := d.backend.Upload(slot, instances); err != nil {
			return errors.Wrapf(err, "frame %d: upload", d.slots.Frame())
		}
	}
	if err := d.backend.Record(bundle, slot, image, len(instances), d.variants.Active()); err != nil {
		return errors.Wrapf(err, "frame %d: record", d.slots.Frame())
	}
	if err := d.backend.Submit(slot); err != nil {
		return errors.Wrapf(err, "frame %d: submit", d.slots.Frame())
	}

	status, err = d.backend.Present(bundle, slot, image)
	if err != nil {
		return errors.Wrapf(err, "frame %d: present", d.slots.Frame())
	}
	d.stats.Presented++

	if grace {
		return nil
	}
	if status != StatusOK {
		return d.rebuild("present: " + status.String())
	}
	if d.takeResized() {
		return d.rebuild("resized")
	}
	return nil
}

// Close waits for the device to go idle, then releases every bundle.
func (d *Driver) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := d.backend.WaitIdle(); err != nil {
		return errors.Wrap(err, "frame.Close()")
	}
	d.retire.Drain()
	if d.current != nil {
		d.current.Release()
		d.current = nil
	}
	return nil
}

func (d *Driver) rebuild(reason string) error {
	if !d.waitForSurface() {
		d.resized = true
		return nil
	}
	extent := d.surfaceExtent()
	next, err := d.backend.BuildSwapchain(d.current, extent)
	if errors.Is(err, ErrZeroExtent) {
		d.resized = true
		d.log.WithField("reason", reason).Debug("swapchain rebuild deferred, surface has no area")
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "frame %d: rebuild after %s", d.slots.Frame(), reason)
	}
	d.retire.Retire(d.current, d.retire.Depth())
	d.current = next
	d.stats.Rebuilds++
	d.log.WithFields(logrus.Fields{
		"reason": reason,
		"width":  extent.Width,
		"height": extent.Height,
		"frame":  d.slots.Frame(),
	}).Debug("swapchain rebuilt")
	return nil
}

func (d *Driver) takeResized() bool {
	resized := d.resized
	d.resized = false
	return resized
}

func (d *Driver) surfaceExtent() gfx.Extent2D {
	w, h := d.window.DrawableSize()
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return gfx.Extent2D{Width: uint32(w), Height: uint32(h)}
}

func (d *Driver) minimized() bool {
	return d.surfaceExtent().IsZero()
}

// waitForSurface blocks on window events while the surface has no
// area. Returns false if the window is closing instead.
func (d *Driver) waitForSurface() bool {
	if d.minimized() {
		d.log.Debug("surface minimized, waiting")
	}
	for d.minimized() {
		if d.window.ShouldClose() {
			return false
		}
		d.window.WaitEvents()
	}
	return true
}
