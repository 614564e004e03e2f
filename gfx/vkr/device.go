// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/device"
)

var deviceTypes = map[vk.PhysicalDeviceType]device.Type{
	vk.PhysicalDeviceTypeOther:         device.TypeOther,
	vk.PhysicalDeviceTypeIntegratedGpu: device.TypeIntegrated,
	vk.PhysicalDeviceTypeDiscreteGpu:   device.TypeDiscrete,
	vk.PhysicalDeviceTypeVirtualGpu:    device.TypeVirtual,
	vk.PhysicalDeviceTypeCpu:           device.TypeCPU,
}

// Probe describes every physical device for selection. Surface support
// is only queried when the instance has a surface.
func Probe(inst *Instance) ([]vk.PhysicalDevice, []device.Candidate, error) {
	pds, err := inst.PhysicalDevices()
	if err != nil {
		return nil, nil, err
	}
	candidates := make([]device.Candidate, len(pds))
	for idx, pd := range pds {
		if candidates[idx], err = probeDevice(pd, inst.Surface()); err != nil {
			return nil, nil, errors.Wrapf(err, "device %d", idx)
		}
	}
	return pds, candidates, nil
}

func probeDevice(pd vk.PhysicalDevice, surface vk.Surface) (device.Candidate, error) {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd, &props)
	props.Deref()
	props.Limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(pd, &features)
	features.Deref()

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(pd, &memProps)
	memProps.Deref()
	var memory uint64
	for i := uint32(0); i < memProps.MemoryHeapCount; i++ {
		memProps.MemoryHeaps[i].Deref()
		if memProps.MemoryHeaps[i].Flags&vk.MemoryHeapFlags(vk.MemoryHeapDeviceLocalBit) != 0 {
			memory += uint64(memProps.MemoryHeaps[i].Size)
		}
	}

	extensions, err := deviceExtensionNames(pd)
	if err != nil {
		return device.Candidate{}, err
	}

	c := device.Candidate{
		Name:   vk.ToString(props.DeviceName[:]),
		Type:   deviceTypes[props.DeviceType],
		Memory: memory,
		Limits: device.Limits{
			MaxImageDimension1D:    props.Limits.MaxImageDimension1D,
			MaxImageDimension2D:    props.Limits.MaxImageDimension2D,
			MaxImageDimension3D:    props.Limits.MaxImageDimension3D,
			MaxBoundDescriptorSets: props.Limits.MaxBoundDescriptorSets,
			MaxPushConstantsSize:   props.Limits.MaxPushConstantsSize,
			MaxFramebufferHeight:   props.Limits.MaxFramebufferHeight,
			MaxImageArrayLayers:    props.Limits.MaxImageArrayLayers,
			MaxVertexInputBindings: props.Limits.MaxVertexInputBindings,
			MaxSamplerAnisotropy:   props.Limits.MaxSamplerAnisotropy,
		},
		Features: device.Features{
			SamplerAnisotropy: features.SamplerAnisotropy == vk.True,
			FillModeNonSolid:  features.FillModeNonSolid == vk.True,
		},
		Extensions: extensions,
	}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)
	for idx := uint32(0); idx < familyCount; idx++ {
		families[idx].Deref()
		family := device.QueueFamily{
			Graphics: families[idx].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0,
		}
		if surface != vk.NullSurface {
			var present vk.Bool32
			if err := vk.Error(vk.GetPhysicalDeviceSurfaceSupport(pd, idx, surface, &present)); err != nil {
				return device.Candidate{}, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceSupport()")
			}
			family.Present = present == vk.True
		}
		c.QueueFamilies = append(c.QueueFamilies, family)
	}

	if surface != vk.NullSurface {
		support, err := querySurface(pd, surface)
		if err != nil {
			return device.Candidate{}, err
		}
		c.SurfaceFormats = len(support.formats)
		c.PresentModes = len(support.presentModes)
	}
	return c, nil
}

// querySurface reads what the surface offers on pd, dereferenced.
func querySurface(pd vk.PhysicalDevice, surface vk.Surface) (surfaceSupport, error) {
	var s surfaceSupport
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &s.capabilities)); err != nil {
		return s, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceCapabilities()")
	}
	s.capabilities.Deref()
	s.capabilities.CurrentExtent.Deref()
	s.capabilities.MinImageExtent.Deref()
	s.capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil)); err != nil {
		return s, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	s.formats = make([]vk.SurfaceFormat, formatCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, s.formats)); err != nil {
		return s, errors.Wrap(err, "vk.GetPhysicalDeviceSurfaceFormats()")
	}
	s.formats = s.formats[:formatCount]
	for i := range s.formats {
		s.formats[i].Deref()
	}

	var modeCount uint32
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil)); err != nil {
		return s, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	s.presentModes = make([]vk.PresentMode, modeCount)
	if err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, s.presentModes)); err != nil {
		return s, errors.Wrap(err, "vk.GetPhysicalDeviceSurfacePresentModes()")
	}
	s.presentModes = s.presentModes[:modeCount]
	return s, nil
}

func deviceExtensionNames(pd vk.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceExtensionProperties()")
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateDeviceExtensionProperties(pd, "", &count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateDeviceExtensionProperties()")
	}
	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// Device is the logical device with its queues.
type Device struct {
	physical vk.PhysicalDevice
	handle   vk.Device
	surface  vk.Surface

	queues        device.QueueFamilyIndices
	graphicsQueue vk.Queue
	presentQueue  vk.Queue

	features      device.Features
	maxAnisotropy float32
	depthFormat   vk.Format

	memory *MemoryAllocator
}

// NewDevice probes the devices of inst, selects the best one and
// creates a logical device on it with one queue per unique family.
// Wireframe and anisotropic filtering are enabled when present.
func NewDevice(inst *Instance, extensions []string, required device.Features, log *logrus.Entry) (*Device, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if inst.Surface() == vk.NullSurface {
		return nil, errors.New("vkr.NewDevice(): instance has no surface")
	}

	pds, candidates, err := Probe(inst)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewDevice()")
	}

	req := device.Requirements{
		Extensions: append(append([]string(nil), requirementTable[deviceExtensions].required...), extensions...),
		Features:   required,
	}
	sel, err := device.Select(candidates, req)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewDevice()")
	}
	chosen := candidates[sel.Index]
	pd := pds[sel.Index]

	enabled, _, err := requirementTable[deviceExtensions].resolve(deviceExtensions, extensions, chosen.Extensions, false)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewDevice()")
	}

	depthFormat, err := pickDepthFormat(depthFormats, func(f vk.Format) bool {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(pd, f, &props)
		props.Deref()
		return props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0
	})
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewDevice()")
	}

	queueInfos := make([]vk.DeviceQueueCreateInfo, 0, 2)
	for _, family := range sel.Queues.Unique() {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	features := vk.PhysicalDeviceFeatures{}
	if sel.Features.SamplerAnisotropy {
		features.SamplerAnisotropy = vk.True
	}
	if sel.Features.FillModeNonSolid {
		features.FillModeNonSolid = vk.True
	}

	var handle vk.Device
	if err := vk.Error(vk.CreateDevice(pd, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: safeStrings(enabled),
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
	}, nil, &handle)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateDevice()")
	}

	dev := &Device{
		physical:      pd,
		handle:        handle,
		surface:       inst.Surface(),
		queues:        sel.Queues,
		features:      sel.Features,
		maxAnisotropy: chosen.Limits.MaxSamplerAnisotropy,
		depthFormat:   depthFormat,
		memory:        NewMemoryAllocator(handle, pd),
	}
	vk.GetDeviceQueue(handle, sel.Queues.Graphics, 0, &dev.graphicsQueue)
	vk.GetDeviceQueue(handle, sel.Queues.Present, 0, &dev.presentQueue)

	log.WithFields(logrus.Fields{
		"device":    chosen.Name,
		"type":      chosen.Type,
		"score":     sel.Score,
		"graphics":  sel.Queues.Graphics,
		"present":   sel.Queues.Present,
		"wireframe": sel.Features.FillModeNonSolid,
	}).Info("rendering device selected")
	return dev, nil
}

// Features are the optional features enabled on the device.
func (d *Device) Features() device.Features {
	return d.features
}

// WaitIdle blocks until the device has finished all work.
func (d *Device) WaitIdle() error {
	if err := vk.Error(vk.DeviceWaitIdle(d.handle)); err != nil {
		return errors.Wrap(err, "vk.DeviceWaitIdle()")
	}
	return nil
}

// Release destroys the logical device.
func (d *Device) Release() {
	vk.DestroyDevice(d.handle, nil)
}
