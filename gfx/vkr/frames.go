package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/model"
)

// frameSlot is what one frame in flight records into. The fence is
// created signaled so the first wait on a slot returns at once.
type frameSlot struct {
	commands       vk.CommandBuffer
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence

	instances  Buffer
	uniform    Buffer
	descriptor vk.DescriptorSet
}

// frameSlots owns all slots plus the pool their descriptor sets come from.
type frameSlots struct {
	device *Device
	pool   vk.CommandPool
	descs  vk.DescriptorPool
	slots  []frameSlot
}

func newFrameSlots(d *Device, pool vk.CommandPool, layout vk.DescriptorSetLayout, atlas *Texture, count, capacity int) (_ *frameSlots, err error) {
	fs := &frameSlots{device: d, pool: pool}
	defer func() {
		if err != nil {
			fs.Release()
		}
	}()

	if err := vk.Error(vk.CreateDescriptorPool(d.handle, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(count),
		PoolSizeCount: 2,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeUniformBuffer,
			DescriptorCount: uint32(count),
		}, {
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(count),
		}},
	}, nil, &fs.descs)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateDescriptorPool()")
	}

	commands := make([]vk.CommandBuffer, count)
	if err := vk.Error(vk.AllocateCommandBuffers(d.handle, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(count),
	}, commands)); err != nil {
		return nil, errors.Wrap(err, "vk.AllocateCommandBuffers()")
	}

	for idx := 0; idx < count; idx++ {
		slot, err := newFrameSlot(d, fs.descs, layout, atlas, capacity)
		slot.commands = commands[idx]
		fs.slots = append(fs.slots, slot)
		if err != nil {
			return nil, errors.Wrapf(err, "frame slot %d", idx)
		}
	}
	return fs, nil
}

func newFrameSlot(d *Device, descs vk.DescriptorPool, layout vk.DescriptorSetLayout, atlas *Texture, capacity int) (s frameSlot, err error) {
	sci := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	fci := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}
	if err := vk.Error(vk.CreateSemaphore(d.handle, &sci, nil, &s.imageAvailable)); err != nil {
		return s, errors.Wrap(err, "vk.CreateSemaphore()")
	}
	if err := vk.Error(vk.CreateSemaphore(d.handle, &sci, nil, &s.renderFinished)); err != nil {
		return s, errors.Wrap(err, "vk.CreateSemaphore()")
	}
	if err := vk.Error(vk.CreateFence(d.handle, &fci, nil, &s.inFlight)); err != nil {
		return s, errors.Wrap(err, "vk.CreateFence()")
	}

	if s.instances, err = NewBuffer(d.handle, uint(capacity*model.InstanceSize), vk.BufferUsageVertexBufferBit, hostMemory, d.memory); err != nil {
		return s, err
	}
	if s.uniform, err = NewBuffer(d.handle, uint(model.UniformSize), vk.BufferUsageUniformBufferBit, hostMemory, d.memory); err != nil {
		return s, err
	}

	if err := vk.Error(vk.AllocateDescriptorSets(d.handle, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     descs,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &s.descriptor)); err != nil {
		return s, errors.Wrap(err, "vk.AllocateDescriptorSets()")
	}

	vk.UpdateDescriptorSets(d.handle, 2, []vk.WriteDescriptorSet{{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.descriptor,
		DstBinding:      uniformBinding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeUniformBuffer,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: s.uniform.Get(),
			Range:  vk.DeviceSize(model.UniformSize),
		}},
	}, {
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          s.descriptor,
		DstBinding:      atlasBinding,
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo:      []vk.DescriptorImageInfo{atlas.descriptorInfo()},
	}}, 0, nil)
	return s, nil
}

func (fs *frameSlots) get(slot int) *frameSlot {
	return &fs.slots[slot]
}

// Release destroys the slots. Descriptor sets go with their pool.
func (fs *frameSlots) Release() {
	dev := fs.device.handle
	for _, s := range fs.slots {
		if s.inFlight != nil {
			vk.DestroyFence(dev, s.inFlight, nil)
		}
		if s.renderFinished != nil {
			vk.DestroySemaphore(dev, s.renderFinished, nil)
		}
		if s.imageAvailable != nil {
			vk.DestroySemaphore(dev, s.imageAvailable, nil)
		}
		if s.uniform.Get() != nil {
			s.uniform.Release()
		}
		if s.instances.Get() != nil {
			s.instances.Release()
		}
		if s.commands != nil {
			vk.FreeCommandBuffers(dev, fs.pool, 1, []vk.CommandBuffer{s.commands})
		}
	}
	fs.slots = nil
	if fs.descs != nil {
		vk.DestroyDescriptorPool(dev, fs.descs, nil)
		fs.descs = nil
	}
}
