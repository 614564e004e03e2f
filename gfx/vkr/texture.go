package vkr

import (
	"image"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/core"
)

const atlasFormat = vk.FormatR8g8b8a8Srgb

// Texture is a sampled image living in device local memory.
type Texture struct {
	device  vk.Device
	image   vk.Image
	memory  Memory
	view    vk.ImageView
	sampler vk.Sampler

	width, height uint32
}

// newTexture uploads img through a staging buffer and leaves it
// ready for sampling in fragment shaders.
func newTexture(d *Device, pool vk.CommandPool, img image.Image) (*Texture, error) {
	width := uint32(img.Bounds().Dx())
	height := uint32(img.Bounds().Dy())
	pixels := core.GetPixels(img, 0)

	staging, err := NewBuffer(d.handle, uint(len(pixels)), vk.BufferUsageTransferSrcBit, hostMemory, d.memory)
	if err != nil {
		return nil, err
	}
	defer staging.Release()
	if err := staging.Mem().Write(pixels); err != nil {
		return nil, err
	}

	t := &Texture{device: d.handle, width: width, height: height}
	if err := t.createImage(d); err != nil {
		return nil, err
	}

	subresource := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	if err := d.oneShot(pool, func(cb vk.CommandBuffer) {
		vk.CmdPipelineBarrier(cb,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
				OldLayout:           vk.ImageLayoutUndefined,
				NewLayout:           vk.ImageLayoutTransferDstOptimal,
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               t.image,
				SubresourceRange:    subresource,
			}})

		vk.CmdCopyBufferToImage(cb, staging.Get(), t.image, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LayerCount: 1,
			},
			ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
		}})

		vk.CmdPipelineBarrier(cb,
			vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
				DstAccessMask:       vk.AccessFlags(vk.AccessShaderReadBit),
				OldLayout:           vk.ImageLayoutTransferDstOptimal,
				NewLayout:           vk.ImageLayoutShaderReadOnlyOptimal,
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               t.image,
				SubresourceRange:    subresource,
			}})
	}); err != nil {
		t.Release()
		return nil, err
	}

	if err := t.createView(subresource); err != nil {
		t.Release()
		return nil, err
	}
	if err := t.createSampler(d); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func (t *Texture) createImage(d *Device) error {
	ici := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        atlasFormat,
		Extent:        vk.Extent3D{Width: t.width, Height: t.height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vk.ImageUsageFlags(vk.ImageUsageTransferDstBit | vk.ImageUsageSampledBit),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if err := vk.Error(vk.CreateImage(d.handle, &ici, nil, &t.image)); err != nil {
		return errors.Wrap(err, "vk.CreateImage()")
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.handle, t.image, &req)
	req.Deref()

	memory, err := d.memory.Malloc(req, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.handle, t.image, nil)
		t.image = nil
		return err
	}
	t.memory = memory
	if err := vk.Error(vk.BindImageMemory(d.handle, t.image, memory.Get(), 0)); err != nil {
		return errors.Wrap(err, "vk.BindImageMemory()")
	}
	return nil
}

func (t *Texture) createView(subresource vk.ImageSubresourceRange) error {
	ivci := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            t.image,
		ViewType:         vk.ImageViewType2d,
		Format:           atlasFormat,
		SubresourceRange: subresource,
	}
	if err := vk.Error(vk.CreateImageView(t.device, &ivci, nil, &t.view)); err != nil {
		return errors.Wrap(err, "vk.CreateImageView()")
	}
	return nil
}

// createSampler samples the atlas with nearest filtering so cells keep
// their hard edges. Anisotropy is used when the device enabled it.
func (t *Texture) createSampler(d *Device) error {
	sci := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterNearest,
		MinFilter:               vk.FilterNearest,
		MipmapMode:              vk.SamplerMipmapModeNearest,
		AddressModeU:            vk.SamplerAddressModeClampToEdge,
		AddressModeV:            vk.SamplerAddressModeClampToEdge,
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareOp:               vk.CompareOpAlways,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if d.features.SamplerAnisotropy {
		sci.AnisotropyEnable = vk.True
		sci.MaxAnisotropy = d.maxAnisotropy
	}
	if err := vk.Error(vk.CreateSampler(t.device, &sci, nil, &t.sampler)); err != nil {
		return errors.Wrap(err, "vk.CreateSampler()")
	}
	return nil
}

// Size of the texture in pixels.
func (t *Texture) Size() (width, height uint32) {
	return t.width, t.height
}

func (t *Texture) descriptorInfo() vk.DescriptorImageInfo {
	return vk.DescriptorImageInfo{
		Sampler:     t.sampler,
		ImageView:   t.view,
		ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
	}
}

// Release destroys whatever was created, in reverse order.
func (t *Texture) Release() {
	if t.sampler != nil {
		vk.DestroySampler(t.device, t.sampler, nil)
	}
	if t.view != nil {
		vk.DestroyImageView(t.device, t.view, nil)
	}
	if t.image != nil {
		vk.DestroyImage(t.device, t.image, nil)
		t.memory.Release()
	}
}
