// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ErrNoMemoryType is returned when no memory type satisfies a request.
var ErrNoMemoryType = errors.New("suitable memory type not found")

// Memory defines a usable memory region.
type Memory struct {
	mapped unsafe.Pointer
	len    uint
	device vk.Device
	memory vk.DeviceMemory
}

// Len returns the length of assigned memory.
func (m *Memory) Len() uint {
	return m.len
}

// Get returns the vulkan memory handle.
func (m *Memory) Get() vk.DeviceMemory {
	return m.memory
}

// Map maps the entire memory region and returns it as a byte slice.
// The slice is only valid until Unmap.
func (m *Memory) Map() ([]byte, error) {
	if m.mapped == nil {
		var ptr unsafe.Pointer
		if err := vk.Error(vk.MapMemory(m.device, m.memory, 0, vk.DeviceSize(m.len), 0, &ptr)); err != nil {
			return nil, errors.Wrap(err, "vk.MapMemory()")
		}
		m.mapped = ptr
	}
	return unsafe.Slice((*byte)(m.mapped), m.len), nil
}

// Unmap removes the memory mapping if it was mapped.
func (m *Memory) Unmap() {
	if m.mapped != nil {
		vk.UnmapMemory(m.device, m.memory)
		m.mapped = nil
	}
}

// Write maps the memory, copies data to its start and unmaps it again.
func (m *Memory) Write(data []byte) error {
	if uint(len(data)) > m.len {
		return errors.Errorf("memory write of %d bytes into %d", len(data), m.len)
	}
	if _, err := m.Map(); err != nil {
		return err
	}
	vk.Memcopy(m.mapped, data)
	m.Unmap()
	return nil
}

// Release frees memory after unmapping it if previously mapped.
func (m *Memory) Release() {
	m.Unmap()
	vk.FreeMemory(m.device, m.memory, nil)
}

// NewMemoryAllocator creates a new memory allocator. Allocates for the logical device,
// reads memory properties of the physical device to influence allocation.
func NewMemoryAllocator(device vk.Device, phyDevice vk.PhysicalDevice) *MemoryAllocator {
	var memProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(phyDevice, &memProperties)
	memProperties.Deref()
	for idx := uint32(0); idx < memProperties.MemoryTypeCount; idx++ {
		memProperties.MemoryTypes[idx].Deref()
	}

	return &MemoryAllocator{
		device:        device,
		memProperties: memProperties,
	}
}

// MemoryAllocator is responsible returning usable
// memory for any resources that may need it.
type MemoryAllocator struct {
	device        vk.Device
	memProperties vk.PhysicalDeviceMemoryProperties
}

// Malloc returns a usable memory chunk ready for use.
func (ma *MemoryAllocator) Malloc(req vk.MemoryRequirements, prop vk.MemoryPropertyFlagBits) (Memory, error) {
	memTypeIdx, err := ma.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(prop))
	if err != nil {
		return Memory{}, err
	}

	mai := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: memTypeIdx,
	}

	var memory vk.DeviceMemory
	if err := vk.Error(vk.AllocateMemory(ma.device, &mai, nil, &memory)); err != nil {
		return Memory{}, errors.Wrap(err, "vk.AllocateMemory()")
	}

	return Memory{
		len:    uint(req.Size),
		device: ma.device,
		memory: memory,
	}, nil
}

func (ma *MemoryAllocator) findMemoryType(filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	return findMemoryType(ma.memProperties.MemoryTypes[:ma.memProperties.MemoryTypeCount], filter, prop)
}

func findMemoryType(types []vk.MemoryType, filter uint32, prop vk.MemoryPropertyFlags) (uint32, error) {
	for idx := range types {
		if filter&(1<<uint(idx)) != 0 && (types[idx].PropertyFlags&prop) == prop {
			return uint32(idx), nil
		}
	}
	return 0, errors.Wrapf(ErrNoMemoryType, "filter %b, properties %b", filter, uint32(prop))
}
