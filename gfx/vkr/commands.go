package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// oneShot records commands into a throwaway command buffer, submits
// them on the graphics queue and waits until they have finished.
func (d *Device) oneShot(pool vk.CommandPool, record func(cb vk.CommandBuffer)) error {
	buffers := make([]vk.CommandBuffer, 1)
	if err := vk.Error(vk.AllocateCommandBuffers(d.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, buffers)); err != nil {
		return errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}
	defer vk.FreeCommandBuffers(d.handle, pool, 1, buffers)

	if err := vk.Error(vk.BeginCommandBuffer(buffers[0], &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	})); err != nil {
		return errors.Wrap(err, "vk.BeginCommandBuffer()")
	}
	record(buffers[0])
	if err := vk.Error(vk.EndCommandBuffer(buffers[0])); err != nil {
		return errors.Wrap(err, "vk.EndCommandBuffer()")
	}

	if err := vk.Error(vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    buffers,
	}}, vk.NullFence)); err != nil {
		return errors.Wrap(err, "vk.QueueSubmit()")
	}
	if err := vk.Error(vk.QueueWaitIdle(d.graphicsQueue)); err != nil {
		return errors.Wrap(err, "vk.QueueWaitIdle()")
	}
	return nil
}

// upload fills a new device local buffer through a staging buffer.
func (d *Device) upload(pool vk.CommandPool, data []byte, usage vk.BufferUsageFlagBits) (Buffer, error) {
	staging, err := NewBuffer(d.handle, uint(len(data)), vk.BufferUsageTransferSrcBit, hostMemory, d.memory)
	if err != nil {
		return Buffer{}, err
	}
	defer staging.Release()
	if err := staging.Mem().Write(data); err != nil {
		return Buffer{}, err
	}

	buffer, err := NewBuffer(d.handle, uint(len(data)), usage|vk.BufferUsageTransferDstBit, vk.MemoryPropertyDeviceLocalBit, d.memory)
	if err != nil {
		return Buffer{}, err
	}
	if err := d.oneShot(pool, func(cb vk.CommandBuffer) {
		vk.CmdCopyBuffer(cb, staging.Get(), buffer.Get(), 1, []vk.BufferCopy{{
			Size: vk.DeviceSize(len(data)),
		}})
	}); err != nil {
		buffer.Release()
		return Buffer{}, err
	}
	return buffer, nil
}
