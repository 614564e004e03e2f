// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/gfx"
)

type depthImage struct {
	image  vk.Image
	memory Memory
	view   vk.ImageView
}

// SwapchainResources is everything that depends on the swapchain: its
// images and views, one depth image per color image, the render pass,
// framebuffers and the graphics pipelines indexed by variant.
// It is rebuilt as a whole and retired as a whole.
type SwapchainResources struct {
	device *Device

	swapchain    vk.Swapchain
	format       vk.SurfaceFormat
	extent       vk.Extent2D
	images       []vk.Image
	views        []vk.ImageView
	depth        []depthImage
	renderPass   vk.RenderPass
	framebuffers []vk.Framebuffer
	pipelines    []vk.Pipeline
}

// Extent implements frame.Swapchain
func (s *SwapchainResources) Extent() gfx.Extent2D {
	return gfx.Extent2D{Width: s.extent.Width, Height: s.extent.Height}
}

// ImageCount implements frame.Swapchain
func (s *SwapchainResources) ImageCount() int {
	return len(s.images)
}

// pipeline returns the pipeline for variant, or the fill pipeline
// if that variant was not built.
func (s *SwapchainResources) pipeline(variant gfx.PipelineVariant) vk.Pipeline {
	if int(variant) < len(s.pipelines) {
		return s.pipelines[variant]
	}
	return s.pipelines[gfx.Fill]
}

// Release destroys the bundle in reverse order of creation.
// The swapchain images themselves belong to the swapchain.
func (s *SwapchainResources) Release() {
	dev := s.device.handle
	for _, p := range s.pipelines {
		vk.DestroyPipeline(dev, p, nil)
	}
	for _, fb := range s.framebuffers {
		vk.DestroyFramebuffer(dev, fb, nil)
	}
	if s.renderPass != nil {
		vk.DestroyRenderPass(dev, s.renderPass, nil)
	}
	for _, d := range s.depth {
		vk.DestroyImageView(dev, d.view, nil)
		vk.DestroyImage(dev, d.image, nil)
		d.memory.Release()
	}
	destroyImageViews(dev, s.views)
	if s.swapchain != nil {
		vk.DestroySwapchain(dev, s.swapchain, nil)
	}
	*s = SwapchainResources{device: s.device}
}

// swapchainBuilder holds what survives across swapchain rebuilds.
type swapchainBuilder struct {
	device   *Device
	cache    vk.PipelineCache
	layout   vk.PipelineLayout
	shaders  []*Shader
	variants []gfx.PipelineVariant
}

// build creates a full bundle for the window extent. old, when not nil,
// is handed to the driver for resource reuse but stays untouched.
func (b *swapchainBuilder) build(old *SwapchainResources, window gfx.Extent2D) (_ *SwapchainResources, err error) {
	support, err := querySurface(b.device.physical, b.device.surface)
	if err != nil {
		return nil, err
	}
	plan, err := planSwapchain(support, window)
	if err != nil {
		return nil, err
	}

	res := &SwapchainResources{
		device: b.device,
		format: plan.format,
		extent: plan.extent,
	}
	defer func() {
		if err != nil {
			res.Release()
		}
	}()

	var oldSwapchain vk.Swapchain
	if old != nil {
		oldSwapchain = old.swapchain
	}
	if err := res.createSwapchain(plan, oldSwapchain); err != nil {
		return nil, err
	}
	if err := res.createImageViews(); err != nil {
		return nil, err
	}
	if err := res.createDepthImages(); err != nil {
		return nil, err
	}
	if res.renderPass, err = newRenderPass(b.device.handle, plan.format.Format, b.device.depthFormat); err != nil {
		return nil, err
	}
	if err := res.createFramebuffers(); err != nil {
		return nil, err
	}
	if res.pipelines, err = newPipelines(b.device.handle, b.cache, b.layout, res.renderPass, b.shaders, b.variants); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SwapchainResources) createSwapchain(plan swapchainPlan, old vk.Swapchain) error {
	scci := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.device.surface,
		MinImageCount:    plan.imageCount,
		ImageFormat:      plan.format.Format,
		ImageColorSpace:  plan.format.ColorSpace,
		ImageExtent:      plan.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     plan.transform,
		CompositeAlpha:   plan.compositeAlpha,
		PresentMode:      plan.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	if queues := s.device.queues; !queues.Shared() {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = 2
		scci.PQueueFamilyIndices = queues.Unique()
	}

	if err := vk.Error(vk.CreateSwapchain(s.device.handle, &scci, nil, &s.swapchain)); err != nil {
		return errors.Wrap(err, "vk.CreateSwapchain()")
	}

	var count uint32
	if err := vk.Error(vk.GetSwapchainImages(s.device.handle, s.swapchain, &count, nil)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages()")
	}
	s.images = make([]vk.Image, count)
	if err := vk.Error(vk.GetSwapchainImages(s.device.handle, s.swapchain, &count, s.images)); err != nil {
		return errors.Wrap(err, "vk.GetSwapchainImages()")
	}
	s.images = s.images[:count]
	return nil
}

func (s *SwapchainResources) createImageViews() error {
	for idx, image := range s.images {
		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    image,
			ViewType: vk.ImageViewType2d,
			Format:   s.format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		var view vk.ImageView
		if err := vk.Error(vk.CreateImageView(s.device.handle, &ivci, nil, &view)); err != nil {
			return errors.Wrapf(err, "vk.CreateImageView(%d)", idx)
		}
		s.views = append(s.views, view)
	}
	return nil
}

func (s *SwapchainResources) createDepthImages() error {
	format := s.device.depthFormat
	for range s.images {
		ici := vk.ImageCreateInfo{
			SType:     vk.StructureTypeImageCreateInfo,
			ImageType: vk.ImageType2d,
			Format:    format,
			Extent: vk.Extent3D{
				Width:  s.extent.Width,
				Height: s.extent.Height,
				Depth:  1,
			},
			MipLevels:   1,
			ArrayLayers: 1,
			Samples:     vk.SampleCount1Bit,
			Tiling:      vk.ImageTilingOptimal,
			Usage:       vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		}

		var d depthImage
		if err := vk.Error(vk.CreateImage(s.device.handle, &ici, nil, &d.image)); err != nil {
			return errors.Wrap(err, "vk.CreateImage(depth)")
		}

		var req vk.MemoryRequirements
		vk.GetImageMemoryRequirements(s.device.handle, d.image, &req)
		req.Deref()

		memory, err := s.device.memory.Malloc(req, vk.MemoryPropertyDeviceLocalBit)
		if err != nil {
			vk.DestroyImage(s.device.handle, d.image, nil)
			return err
		}
		d.memory = memory
		if err := vk.Error(vk.BindImageMemory(s.device.handle, d.image, memory.Get(), 0)); err != nil {
			vk.DestroyImage(s.device.handle, d.image, nil)
			memory.Release()
			return errors.Wrap(err, "vk.BindImageMemory(depth)")
		}

		ivci := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    d.image,
			ViewType: vk.ImageViewType2d,
			Format:   format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		if err := vk.Error(vk.CreateImageView(s.device.handle, &ivci, nil, &d.view)); err != nil {
			vk.DestroyImage(s.device.handle, d.image, nil)
			memory.Release()
			return errors.Wrap(err, "vk.CreateImageView(depth)")
		}
		s.depth = append(s.depth, d)
	}
	return nil
}

func (s *SwapchainResources) createFramebuffers() error {
	for idx, view := range s.views {
		attachments := []vk.ImageView{view, s.depth[idx].view}
		fci := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      s.renderPass,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           s.extent.Width,
			Height:          s.extent.Height,
			Layers:          1,
		}
		var framebuffer vk.Framebuffer
		if err := vk.Error(vk.CreateFramebuffer(s.device.handle, &fci, nil, &framebuffer)); err != nil {
			return errors.Wrapf(err, "vk.CreateFramebuffer(%d)", idx)
		}
		s.framebuffers = append(s.framebuffers, framebuffer)
	}
	return nil
}
