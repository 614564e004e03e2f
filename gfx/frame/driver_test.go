package frame_test

import (
	"fmt"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/gfx/frame"
	"github.com/devblok/tilesweep/model"
)

type fakeSwapchain struct {
	id       int
	extent   gfx.Extent2D
	images   int
	released bool
	backend  *fakeBackend
}

func (s *fakeSwapchain) Release() {
	if s.released {
		panic(fmt.Sprintf("swapchain %d released twice", s.id))
	}
	s.released = true
	s.backend.calls = append(s.backend.calls, fmt.Sprintf("release %d", s.id))
}

func (s *fakeSwapchain) Extent() gfx.Extent2D { return s.extent }

func (s *fakeSwapchain) ImageCount() int { return s.images }

type fakeBackend struct {
	calls     []string
	built     []*fakeSwapchain
	acquire   []frame.Status
	present   []frame.Status
	uploaded  [][]model.QuadInstance
	recorded  []frame.Swapchain
	variants  []gfx.PipelineVariant
	wireframe bool
	waitErr   error
	nextImage uint32

	// onPresent runs before Present returns
	onPresent func()
	// buildErr is popped by each BuildSwapchain call, nil builds
	buildErr []error
}

func (b *fakeBackend) log(format string, args ...interface{}) {
	b.calls = append(b.calls, fmt.Sprintf(format, args...))
}

func (b *fakeBackend) WaitFrame(slot int) error {
	b.log("wait %d", slot)
	return b.waitErr
}

func (b *fakeBackend) Acquire(sc frame.Swapchain, slot int) (uint32, frame.Status, error) {
	b.log("acquire %d on %d", slot, sc.(*fakeSwapchain).id)
	status := frame.StatusOK
	if len(b.acquire) > 0 {
		status, b.acquire = b.acquire[0], b.acquire[1:]
	}
	image := b.nextImage
	b.nextImage = (b.nextImage + 1) % uint32(sc.ImageCount())
	return image, status, nil
}

func (b *fakeBackend) Upload(slot int, instances []model.QuadInstance) error {
	b.log("upload %d", slot)
	b.uploaded = append(b.uploaded, append([]model.QuadInstance(nil), instances...))
	return nil
}

func (b *fakeBackend) Record(sc frame.Swapchain, slot int, image uint32, count int, variant gfx.PipelineVariant) error {
	b.log("record %d on %d count %d", slot, sc.(*fakeSwapchain).id, count)
	b.recorded = append(b.recorded, sc)
	b.variants = append(b.variants, variant)
	return nil
}

func (b *fakeBackend) Submit(slot int) error {
	b.log("submit %d", slot)
	return nil
}

func (b *fakeBackend) Present(sc frame.Swapchain, slot int, image uint32) (frame.Status, error) {
	b.log("present %d on %d", slot, sc.(*fakeSwapchain).id)
	if b.onPresent != nil {
		b.onPresent()
	}
	status := frame.StatusOK
	if len(b.present) > 0 {
		status, b.present = b.present[0], b.present[1:]
	}
	return status, nil
}

func (b *fakeBackend) BuildSwapchain(old frame.Swapchain, extent gfx.Extent2D) (frame.Swapchain, error) {
	if len(b.buildErr) > 0 {
		err := b.buildErr[0]
		b.buildErr = b.buildErr[1:]
		if err != nil {
			b.log("build failed at %dx%d", extent.Width, extent.Height)
			return nil, err
		}
	}
	sc := &fakeSwapchain{id: len(b.built) + 1, extent: extent, images: 3, backend: b}
	oldID := 0
	if old != nil {
		oldID = old.(*fakeSwapchain).id
	}
	b.log("build %d from %d at %dx%d", sc.id, oldID, extent.Width, extent.Height)
	b.built = append(b.built, sc)
	return sc, nil
}

func (b *fakeBackend) WireframeSupported() bool { return b.wireframe }

func (b *fakeBackend) WaitIdle() error {
	b.log("idle")
	return nil
}

func (b *fakeBackend) reset() {
	b.calls = nil
}

type fakeWindow struct {
	width, height int
	// hidden events have to pass before the window gets its size
	hidden  int
	waits   int
	closing bool
}

func (w *fakeWindow) DrawableSize() (int, int) {
	if w.hidden > 0 {
		return 0, 0
	}
	return w.width, w.height
}

func (w *fakeWindow) WaitEvents() {
	w.waits++
	if w.hidden > 0 {
		w.hidden--
	}
}

func (w *fakeWindow) ShouldClose() bool { return w.closing }

type fakeSource []model.QuadInstance

func (s fakeSource) Items() []model.QuadInstance { return s }

func newTestDriver(c *qt.C, backend *fakeBackend, window *fakeWindow, source frame.Source) *frame.Driver {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	d, err := frame.NewDriver(backend, window, source, 2, logrus.NewEntry(logger))
	c.Assert(err, qt.IsNil)
	backend.reset()
	return d
}

func TestDriverNormalFrame(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	source := fakeSource{{Scale: [2]float32{1, 1}}, {Scale: [2]float32{2, 2}}}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, source)

	c.Assert(d.Swapchain().Extent(), qt.Equals, gfx.Extent2D{Width: 800, Height: 600})
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 0",
		"acquire 0 on 1",
		"upload 0",
		"record 0 on 1 count 2",
		"submit 0",
		"present 0 on 1",
	})
	c.Assert(backend.uploaded, qt.DeepEquals, [][]model.QuadInstance{source})
	c.Assert(d.Stats(), qt.Equals, frame.Stats{Ticks: 1, Presented: 1})
}

func TestDriverSkipsUploadWhenEmpty(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.uploaded, qt.HasLen, 0)
	c.Assert(backend.calls, qt.Contains, "record 0 on 1 count 0")
}

func TestDriverSlotRoundRobin(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	var waits []string
	for k := 0; k < 9; k++ {
		c.Assert(d.Slot(), qt.Equals, k%2)
		// rebuild ticks advance the slot too
		if k%4 == 3 {
			d.SetResized()
		}
		c.Assert(d.Tick(), qt.IsNil)
		waits = append(waits, fmt.Sprintf("wait %d", k%2))
	}
	c.Assert(d.Slot(), qt.Equals, 1)

	var got []string
	for _, call := range backend.calls {
		if len(call) > 4 && call[:4] == "wait" {
			got = append(got, call)
		}
	}
	c.Assert(got, qt.DeepEquals, waits)
}

func TestDriverOutOfDateAcquireRebuilds(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{acquire: []frame.Status{frame.StatusOutOfDate}}
	window := &fakeWindow{width: 800, height: 600}
	d := newTestDriver(c, backend, window, fakeSource(nil))

	window.width = 1024
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 0",
		"acquire 0 on 1",
		"build 2 from 1 at 1024x600",
	})
	c.Assert(d.Pending(), qt.Equals, 1)
	c.Assert(d.Stats().Skipped, qt.Equals, uint64(1))

	backend.reset()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.Contains, "record 1 on 2 count 0")
}

func TestDriverResizeFlagRebuildsBeforeAcquire(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	d.SetResized()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 0",
		"build 2 from 1 at 800x600",
	})

	// the flag was cleared
	backend.reset()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.Not(qt.Contains), "build 3 from 2 at 800x600")
}

func TestDriverResizeFlagAfterPresent(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	source := &resizingSource{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, source)
	source.driver = d

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls[len(backend.calls)-2:], qt.DeepEquals, []string{
		"present 0 on 1",
		"build 2 from 1 at 800x600",
	})
}

// resizingSource flags a resize in the middle of a frame, the way a
// window event handler running during the frame would.
type resizingSource struct {
	driver *frame.Driver
}

func (s *resizingSource) Items() []model.QuadInstance {
	s.driver.SetResized()
	return nil
}

func TestDriverResizeIdempotence(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	d.SetResized()
	c.Assert(d.Tick(), qt.IsNil)
	first := d.Swapchain()
	d.SetResized()
	c.Assert(d.Tick(), qt.IsNil)
	second := d.Swapchain()

	c.Assert(first, qt.Not(qt.Equals), second)
	c.Assert(second.Extent(), qt.Equals, first.Extent())
	c.Assert(second.ImageCount(), qt.Equals, first.ImageCount())
}

func TestDriverRetiredBundleOutlivesInFlightFrames(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	d.SetResized()
	c.Assert(d.Tick(), qt.IsNil)
	old := backend.built[0]

	// two frames in flight, released on the third tick after retiring
	for k := 0; k < 2; k++ {
		c.Assert(d.Tick(), qt.IsNil)
		c.Assert(old.released, qt.IsFalse)
	}
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(old.released, qt.IsTrue)
	c.Assert(d.Pending(), qt.Equals, 0)
}

func TestDriverMinimizedWindow(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	window := &fakeWindow{width: 800, height: 600}
	d := newTestDriver(c, backend, window, fakeSource(nil))

	window.hidden = 3
	window.width, window.height = 800, 800
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(window.waits, qt.Equals, 3)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 0",
		"build 2 from 1 at 800x800",
	})

	backend.reset()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.Contains, "record 1 on 2 count 0")
	c.Assert(backend.calls, qt.Contains, "present 1 on 2")
}

func TestDriverMinimizedThenClosed(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	window := &fakeWindow{width: 800, height: 600}
	d := newTestDriver(c, backend, window, fakeSource(nil))

	window.hidden = 100
	window.closing = true
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.HasLen, 0)
	c.Assert(d.Stats().Ticks, qt.Equals, uint64(0))
}

func TestDriverSuboptimalAcquireUsesOldBundle(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{acquire: []frame.Status{frame.StatusSuboptimal}}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 0",
		"acquire 0 on 1",
		"build 2 from 1 at 800x600",
		"record 0 on 1 count 0",
		"submit 0",
		"present 0 on 1",
	})
	c.Assert(backend.built[0].released, qt.IsFalse)

	backend.reset()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{
		"wait 1",
		"acquire 1 on 2",
		"record 1 on 2 count 0",
		"submit 1",
		"present 1 on 2",
	})
}

func TestDriverGraceFrameDoesNotEscalate(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{
		acquire: []frame.Status{frame.StatusSuboptimal},
		present: []frame.Status{frame.StatusOutOfDate},
	}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.built, qt.HasLen, 2)
	c.Assert(d.Stats().Rebuilds, qt.Equals, uint64(1))
}

func TestDriverStalePresentRebuilds(t *testing.T) {
	for _, status := range []frame.Status{frame.StatusSuboptimal, frame.StatusOutOfDate} {
		t.Run(status.String(), func(t *testing.T) {
			c := qt.New(t)
			backend := &fakeBackend{present: []frame.Status{status}}
			d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

			c.Assert(d.Tick(), qt.IsNil)
			c.Assert(backend.calls[len(backend.calls)-1], qt.Equals, "build 2 from 1 at 800x600")
			c.Assert(d.Stats().Presented, qt.Equals, uint64(1))
		})
	}
}

func TestDriverMinimizedDuringPresent(t *testing.T) {
	c := qt.New(t)
	window := &fakeWindow{width: 800, height: 600}
	backend := &fakeBackend{present: []frame.Status{frame.StatusOutOfDate}}
	d := newTestDriver(c, backend, window, fakeSource(nil))
	backend.onPresent = func() { window.hidden = 2 }

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(window.waits, qt.Equals, 2)
	c.Assert(backend.calls[len(backend.calls)-1], qt.Equals, "build 2 from 1 at 800x600")
	c.Assert(d.Swapchain().Extent().IsZero(), qt.IsFalse)
}

func TestDriverClosedWhileMinimizedSkipsRebuild(t *testing.T) {
	c := qt.New(t)
	window := &fakeWindow{width: 800, height: 600}
	backend := &fakeBackend{present: []frame.Status{frame.StatusOutOfDate}}
	d := newTestDriver(c, backend, window, fakeSource(nil))
	backend.onPresent = func() {
		window.hidden = 1
		window.closing = true
	}

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.built, qt.HasLen, 1)
	for _, call := range backend.calls {
		c.Assert(call, qt.Not(qt.Matches), "build.*")
	}
	c.Assert(d.Close(), qt.IsNil)
}

func TestDriverDefersRebuildOnZeroExtent(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{present: []frame.Status{frame.StatusOutOfDate}}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))
	backend.buildErr = []error{errors.Wrap(frame.ErrZeroExtent, "surface 0x0")}

	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(d.Stats().Rebuilds, qt.Equals, uint64(0))
	c.Assert(d.Swapchain().(*fakeSwapchain).id, qt.Equals, 1)

	// the deferred rebuild is retried on the next tick, before acquiring
	backend.reset()
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{"wait 1", "build 2 from 1 at 800x600"})
	c.Assert(d.Stats().Rebuilds, qt.Equals, uint64(1))
}

func TestDriverWireframe(t *testing.T) {
	c := qt.New(t)

	unsupported := &fakeBackend{}
	d := newTestDriver(c, unsupported, &fakeWindow{width: 800, height: 600}, fakeSource(nil))
	c.Assert(d.ToggleWireframe(), qt.Equals, gfx.Fill)
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(unsupported.variants, qt.DeepEquals, []gfx.PipelineVariant{gfx.Fill})

	supported := &fakeBackend{wireframe: true}
	d = newTestDriver(c, supported, &fakeWindow{width: 800, height: 600}, fakeSource(nil))
	c.Assert(d.ToggleWireframe(), qt.Equals, gfx.Wireframe)
	c.Assert(d.Tick(), qt.IsNil)
	c.Assert(supported.variants, qt.DeepEquals, []gfx.PipelineVariant{gfx.Wireframe})
}

func TestDriverClose(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	d.SetResized()
	c.Assert(d.Tick(), qt.IsNil)
	backend.reset()

	c.Assert(d.Close(), qt.IsNil)
	c.Assert(backend.calls, qt.DeepEquals, []string{"idle", "release 1", "release 2"})
	c.Assert(d.Tick(), qt.Equals, frame.ErrClosed)
	c.Assert(d.Close(), qt.IsNil)
}

func TestDriverFatalErrors(t *testing.T) {
	c := qt.New(t)
	backend := &fakeBackend{}
	d := newTestDriver(c, backend, &fakeWindow{width: 800, height: 600}, fakeSource(nil))

	backend.waitErr = errors.New("device lost")
	c.Assert(d.Tick(), qt.ErrorMatches, "frame 0: wait: device lost")
}

func TestNewDriverRejectsNoFrames(t *testing.T) {
	_, err := frame.NewDriver(&fakeBackend{}, &fakeWindow{width: 1, height: 1}, fakeSource(nil), 0, nil)
	qt.Assert(t, err, qt.ErrorMatches, `frame.NewDriver\(\): 0 frames in flight`)
}

func BenchmarkDriverTick(b *testing.B) {
	backend := &fakeBackend{}
	source := make(fakeSource, 256)
	d, err := frame.NewDriver(backend, &fakeWindow{width: 800, height: 600}, source, 2, logrus.NewEntry(logrus.New()))
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		backend.calls = backend.calls[:0]
		backend.uploaded = backend.uploaded[:0]
		backend.recorded = backend.recorded[:0]
		backend.variants = backend.variants[:0]
		if err := d.Tick(); err != nil {
			b.Fatal(err)
		}
	}
}
