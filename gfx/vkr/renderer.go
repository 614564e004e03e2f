// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/device"
	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/gfx/frame"
	"github.com/devblok/tilesweep/model"
)

// Renderer draws instanced quads with Vulkan. It implements
// frame.Backend, the frame driver decides when each step runs.
type Renderer struct {
	device   *Device
	pool     vk.CommandPool
	cache    vk.PipelineCache
	layout   *pipelineLayout
	shaders  []*Shader
	atlas    *Texture
	mesh     *quadMesh
	slots    *frameSlots
	builder  swapchainBuilder
	capacity int

	log *logrus.Entry
}

// NewRenderer selects a device for the instance surface and creates
// everything that lives as long as the renderer itself. Swapchain
// bundles are built on demand through BuildSwapchain.
func NewRenderer(inst *Instance, cfg core.RendererConfiguration, assets core.Assets, log *logrus.Entry) (_ *Renderer, err error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithField("component", "vkr")

	dev, err := NewDevice(inst, cfg.DeviceExtensions, device.Features{}, log)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		device:   dev,
		capacity: cfg.InstanceCapacity,
		log:      log,
	}
	defer func() {
		if err != nil {
			r.Release()
		}
	}()

	if err := vk.Error(vk.CreateCommandPool(dev.handle, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: dev.queues.Graphics,
	}, nil, &r.pool)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateCommandPool()")
	}

	if r.cache, err = newPipelineCache(dev.handle); err != nil {
		return nil, err
	}
	if r.layout, err = newPipelineLayout(dev.handle); err != nil {
		return nil, err
	}

	for _, s := range []struct {
		name string
		kind core.ShaderType
	}{
		{cfg.VertexShader, core.VertexShaderType},
		{cfg.FragmentShader, core.FragmentShaderType},
	} {
		shader, err := NewShader(dev.handle, assets, s.name, s.kind)
		if err != nil {
			return nil, err
		}
		r.shaders = append(r.shaders, shader)
	}

	img, err := core.LoadImage(assets, cfg.Atlas)
	if err != nil {
		return nil, err
	}
	if r.atlas, err = newTexture(dev, r.pool, img); err != nil {
		return nil, err
	}
	if r.mesh, err = newQuadMesh(dev, r.pool); err != nil {
		return nil, err
	}
	if r.slots, err = newFrameSlots(dev, r.pool, r.layout.descriptor, r.atlas, cfg.FramesInFlight, cfg.InstanceCapacity); err != nil {
		return nil, err
	}

	r.builder = swapchainBuilder{
		device:   dev,
		cache:    r.cache,
		layout:   r.layout.layout,
		shaders:  r.shaders,
		variants: gfx.NewVariants(r.WireframeSupported()).Available(),
	}

	log.WithFields(logrus.Fields{
		"frames":   cfg.FramesInFlight,
		"capacity": cfg.InstanceCapacity,
		"variants": r.builder.variants,
	}).Info("renderer ready")
	return r, nil
}

// Device is the logical device the renderer runs on.
func (r *Renderer) Device() *Device {
	return r.device
}

// WaitFrame implements frame.Backend
func (r *Renderer) WaitFrame(slot int) error {
	fence := []vk.Fence{r.slots.get(slot).inFlight}
	if err := vk.Error(vk.WaitForFences(r.device.handle, 1, fence, vk.True, vk.MaxUint64)); err != nil {
		return errors.Wrap(err, "vk.WaitForFences()")
	}
	return nil
}

// Acquire implements frame.Backend
func (r *Renderer) Acquire(sc frame.Swapchain, slot int) (uint32, frame.Status, error) {
	res := sc.(*SwapchainResources)
	var image uint32
	ret := vk.AcquireNextImage(r.device.handle, res.swapchain, vk.MaxUint64, r.slots.get(slot).imageAvailable, vk.NullFence, &image)
	status, err := presentStatus(ret)
	if err != nil {
		return 0, status, errors.Wrap(err, "vk.AcquireNextImage()")
	}
	return image, status, nil
}

// Upload implements frame.Backend. More instances than the slot buffer
// holds is an error, nothing is drawn partially.
func (r *Renderer) Upload(slot int, instances []model.QuadInstance) error {
	mem := r.slots.get(slot).instances.Mem()
	dst, err := mem.Map()
	if err != nil {
		return err
	}
	defer mem.Unmap()
	if err := uploadInstances(dst, r.slots.get(slot).instances.Size(), instances); err != nil {
		return errors.Wrapf(err, "slot %d", slot)
	}
	return nil
}

// uploadInstances copies instances into a mapped instance buffer of
// size bytes. The allocation behind the mapping may be padded past
// size, the padding is never written.
func uploadInstances(mapped []byte, size uint, instances []model.QuadInstance) error {
	if uint(len(mapped)) > size {
		mapped = mapped[:size]
	}
	_, err := model.CopyInstances(mapped, instances)
	return err
}

// Record implements frame.Backend
func (r *Renderer) Record(sc frame.Swapchain, slot int, image uint32, count int, variant gfx.PipelineVariant) error {
	res := sc.(*SwapchainResources)
	s := r.slots.get(slot)

	w, h := res.extent.Width, res.extent.Height
	uniform := model.Uniform{Projection: model.Projection(w, h)}
	if err := s.uniform.Mem().Write(model.UniformBytes(&uniform)); err != nil {
		return err
	}

	cb := s.commands
	if err := vk.Error(vk.ResetCommandBuffer(cb, 0)); err != nil {
		return errors.Wrap(err, "vk.ResetCommandBuffer()")
	}
	if err := vk.Error(vk.BeginCommandBuffer(cb, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})); err != nil {
		return errors.Wrap(err, "vk.BeginCommandBuffer()")
	}

	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor([]float32{0, 0, 0, 1})
	clearValues[1].SetDepthStencil(1, 0)

	vk.CmdBeginRenderPass(cb, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  res.renderPass,
		Framebuffer: res.framebuffers[image],
		RenderArea: vk.Rect2D{
			Extent: res.extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}, vk.SubpassContentsInline)

	if count > 0 {
		vk.CmdBindPipeline(cb, vk.PipelineBindPointGraphics, res.pipeline(variant))
		vk.CmdSetViewport(cb, 0, 1, []vk.Viewport{{
			Width:    float32(w),
			Height:   float32(h),
			MinDepth: 0,
			MaxDepth: 1,
		}})
		vk.CmdSetScissor(cb, 0, 1, []vk.Rect2D{{
			Extent: res.extent,
		}})
		vk.CmdBindVertexBuffers(cb, vertexBinding, 2,
			[]vk.Buffer{r.mesh.vertices.Get(), s.instances.Get()},
			[]vk.DeviceSize{0, 0})
		vk.CmdBindIndexBuffer(cb, r.mesh.indices.Get(), 0, vk.IndexTypeUint16)
		vk.CmdBindDescriptorSets(cb, vk.PipelineBindPointGraphics, r.layout.layout, 0, 1,
			[]vk.DescriptorSet{s.descriptor}, 0, nil)
		vk.CmdDrawIndexed(cb, r.mesh.indexCount(), uint32(count), 0, 0, 0)
	}

	vk.CmdEndRenderPass(cb)
	if err := vk.Error(vk.EndCommandBuffer(cb)); err != nil {
		return errors.Wrap(err, "vk.EndCommandBuffer()")
	}
	return nil
}

// Submit implements frame.Backend
func (r *Renderer) Submit(slot int) error {
	s := r.slots.get(slot)
	if err := vk.Error(vk.ResetFences(r.device.handle, 1, []vk.Fence{s.inFlight})); err != nil {
		return errors.Wrap(err, "vk.ResetFences()")
	}
	if err := vk.Error(vk.QueueSubmit(r.device.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commands},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{s.renderFinished},
	}}, s.inFlight)); err != nil {
		return errors.Wrap(err, "vk.QueueSubmit()")
	}
	return nil
}

// Present implements frame.Backend
func (r *Renderer) Present(sc frame.Swapchain, slot int, image uint32) (frame.Status, error) {
	res := sc.(*SwapchainResources)
	ret := vk.QueuePresent(r.device.presentQueue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{r.slots.get(slot).renderFinished},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{res.swapchain},
		PImageIndices:      []uint32{image},
	})
	status, err := presentStatus(ret)
	if err != nil {
		return status, errors.Wrap(err, "vk.QueuePresent()")
	}
	return status, nil
}

// BuildSwapchain implements frame.Backend
func (r *Renderer) BuildSwapchain(old frame.Swapchain, extent gfx.Extent2D) (frame.Swapchain, error) {
	var prev *SwapchainResources
	if old != nil {
		prev = old.(*SwapchainResources)
	}
	res, err := r.builder.build(prev, extent)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.BuildSwapchain()")
	}
	r.log.WithFields(logrus.Fields{
		"width":  res.extent.Width,
		"height": res.extent.Height,
		"images": len(res.images),
		"format": res.format.Format,
	}).Debug("swapchain built")
	return res, nil
}

// WireframeSupported implements frame.Backend
func (r *Renderer) WireframeSupported() bool {
	return r.device.features.FillModeNonSolid
}

// WaitIdle implements frame.Backend
func (r *Renderer) WaitIdle() error {
	return r.device.WaitIdle()
}

// Release destroys the renderer and its device. Swapchain bundles are
// owned by the frame driver and must be released first.
func (r *Renderer) Release() {
	if r.device == nil {
		return
	}
	vk.DeviceWaitIdle(r.device.handle)
	if r.slots != nil {
		r.slots.Release()
	}
	if r.mesh != nil {
		r.mesh.Release()
	}
	if r.atlas != nil {
		r.atlas.Release()
	}
	for _, s := range r.shaders {
		s.Release()
	}
	if r.layout != nil {
		r.layout.Release()
	}
	if r.cache != nil {
		vk.DestroyPipelineCache(r.device.handle, r.cache, nil)
	}
	if r.pool != nil {
		vk.DestroyCommandPool(r.device.handle, r.pool, nil)
	}
	r.device.Release()
	r.device = nil
}

// presentStatus sorts acquire and present results into the cases
// the frame driver handles and actual failures.
func presentStatus(ret vk.Result) (frame.Status, error) {
	switch ret {
	case vk.Success:
		return frame.StatusOK, nil
	case vk.Suboptimal:
		return frame.StatusSuboptimal, nil
	case vk.ErrorOutOfDate:
		return frame.StatusOutOfDate, nil
	}
	return frame.StatusOK, vk.Error(ret)
}
