package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/gfx"
	"github.com/devblok/tilesweep/gfx/frame"
)

// ErrNoDepthFormat is returned when none of the depth formats
// can be used as an optimally tiled depth attachment.
var ErrNoDepthFormat = errors.New("no supported depth format")

// depthFormats in order of preference.
var depthFormats = []vk.Format{
	vk.FormatD32Sfloat,
	vk.FormatD32SfloatS8Uint,
	vk.FormatD24UnormS8Uint,
	vk.FormatD16UnormS8Uint,
	vk.FormatD16Unorm,
}

// surfaceSupport is what the surface reports for one device.
// All values are expected to be dereferenced already.
type surfaceSupport struct {
	capabilities vk.SurfaceCapabilities
	formats      []vk.SurfaceFormat
	presentModes []vk.PresentMode
}

// swapchainPlan holds every decision made before creating a swapchain.
type swapchainPlan struct {
	format         vk.SurfaceFormat
	presentMode    vk.PresentMode
	extent         vk.Extent2D
	imageCount     uint32
	compositeAlpha vk.CompositeAlphaFlagBits
	transform      vk.SurfaceTransformFlagBits
}

func planSwapchain(s surfaceSupport, window gfx.Extent2D) (swapchainPlan, error) {
	if len(s.formats) == 0 {
		return swapchainPlan{}, errors.New("surface reports no formats")
	}
	if len(s.presentModes) == 0 {
		return swapchainPlan{}, errors.New("surface reports no present modes")
	}
	extent := chooseExtent(s.capabilities, window)
	if extent.Width == 0 || extent.Height == 0 {
		return swapchainPlan{}, errors.Wrapf(frame.ErrZeroExtent, "surface %dx%d", extent.Width, extent.Height)
	}
	return swapchainPlan{
		format:         chooseSurfaceFormat(s.formats),
		presentMode:    choosePresentMode(s.presentModes),
		extent:         extent,
		imageCount:     chooseImageCount(s.capabilities),
		compositeAlpha: chooseCompositeAlpha(s.capabilities.SupportedCompositeAlpha),
		transform:      s.capabilities.CurrentTransform,
	}, nil
}

// chooseSurfaceFormat prefers 8 bit BGRA in sRGB, then whatever comes first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Srgb && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, m := range modes {
		if m == vk.PresentModeMailbox {
			return m
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent uses the surface extent unless the surface leaves
// it to the window, in which case the window size is clamped.
func chooseExtent(caps vk.SurfaceCapabilities, window gfx.Extent2D) vk.Extent2D {
	if caps.CurrentExtent.Width != vk.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  clamp(window.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(window.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

// chooseImageCount asks for one image more than the minimum.
// A maximum of 0 means unbounded.
func chooseImageCount(caps vk.SurfaceCapabilities) uint32 {
	count := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	for _, flag := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if supported&vk.CompositeAlphaFlags(flag) != 0 {
			return flag
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

// pickDepthFormat returns the first candidate the device supports.
func pickDepthFormat(candidates []vk.Format, supports func(vk.Format) bool) (vk.Format, error) {
	for _, f := range candidates {
		if supports(f) {
			return f, nil
		}
	}
	return vk.FormatUndefined, ErrNoDepthFormat
}

func clamp(v, min, max uint32) uint32 {
	switch {
	case v < min:
		return min
	case v > max:
		return max
	}
	return v
}
