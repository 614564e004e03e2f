// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/core"
)

// NewInstance loads Vulkan and creates an instance. With a nil procAddr
// the system loader is used, otherwise the one handed out by the window
// system. windowExtensions are the instance extensions the window system
// needs for presenting.
func NewInstance(cfg core.InstanceConfiguration, procAddr unsafe.Pointer, windowExtensions []string, log *logrus.Entry) (*Instance, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}

	availableExtensions, err := instanceExtensionNames()
	if err != nil {
		return nil, err
	}
	availableLayers, err := instanceLayerNames()
	if err != nil {
		return nil, err
	}

	extensions, skipped, err := requirementTable[instanceExtensions].resolve(instanceExtensions,
		append(append([]string(nil), windowExtensions...), cfg.Extensions...), availableExtensions, cfg.DebugMode)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewInstance()")
	}
	for _, name := range skipped {
		log.WithField("extension", name).Warn("debug extension not available")
	}
	layers, skipped, err := requirementTable[instanceLayers].resolve(instanceLayers, cfg.Layers, availableLayers, cfg.DebugMode)
	if err != nil {
		return nil, errors.Wrap(err, "vkr.NewInstance()")
	}
	for _, name := range skipped {
		log.WithField("layer", name).Warn("validation layer not available, continuing without it")
	}

	appName := cfg.ApplicationName
	if appName == "" {
		appName = "tilesweep"
	}
	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         vk.MakeVersion(1, 0, 0),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PApplicationName:   safeStrings([]string{appName})[0],
		PEngineName:        "tilesweep\x00",
	}
	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: safeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}

	var instance vk.Instance
	if err := vk.Error(vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateInstance()")
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, errors.Wrap(err, "vk.InitInstance()")
	}

	inst := &Instance{
		handle:     instance,
		extensions: extensions,
		layers:     layers,
		log:        log,
	}

	if cfg.DebugMode && contains(extensions, "VK_EXT_debug_report") {
		if err := inst.installDebugCallback(); err != nil {
			inst.Release()
			return nil, err
		}
	}

	log.WithFields(logrus.Fields{
		"extensions": extensions,
		"layers":     layers,
	}).Info("vulkan instance created")
	return inst, nil
}

// Instance is a Vulkan instance plus the surface presented to.
type Instance struct {
	handle     vk.Instance
	debug      vk.DebugReportCallback
	surface    vk.Surface
	extensions []string
	layers     []string

	log *logrus.Entry
}

// Handle returns the raw instance, for the window system to build a surface with.
func (i *Instance) Handle() vk.Instance {
	return i.handle
}

// SetSurface takes over a surface created by the window system.
func (i *Instance) SetSurface(pSurface unsafe.Pointer) {
	i.surface = vk.SurfaceFromPointer(uintptr(pSurface))
}

// Surface returns the current surface, nil until SetSurface.
func (i *Instance) Surface() vk.Surface {
	return i.surface
}

// Extensions are the enabled instance extensions.
func (i *Instance) Extensions() []string {
	return i.extensions
}

// Layers are the enabled instance layers.
func (i *Instance) Layers() []string {
	return i.layers
}

// PhysicalDevices enumerates the devices in driver order.
func (i *Instance) PhysicalDevices() ([]vk.PhysicalDevice, error) {
	var count uint32
	if err := vk.Error(vk.EnumeratePhysicalDevices(i.handle, &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := vk.Error(vk.EnumeratePhysicalDevices(i.handle, &count, devices)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumeratePhysicalDevices()")
	}
	return devices[:count], nil
}

// Release destroys the surface, the debug callback and the instance.
func (i *Instance) Release() {
	if i.surface != vk.NullSurface {
		vk.DestroySurface(i.handle, i.surface, nil)
		i.surface = vk.NullSurface
	}
	if i.debug != nil {
		vk.DestroyDebugReportCallback(i.handle, i.debug, nil)
		i.debug = nil
	}
	vk.DestroyInstance(i.handle, nil)
}

func (i *Instance) installDebugCallback() error {
	info := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit |
			vk.DebugReportPerformanceWarningBit | vk.DebugReportInformationBit),
		PfnCallback: i.debugReport,
	}
	var callback vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(i.handle, &info, nil, &callback)); err != nil {
		return errors.Wrap(err, "vk.CreateDebugReportCallback()")
	}
	i.debug = callback
	return nil
}

// debugReport forwards validation messages to the log at a matching level.
func (i *Instance) debugReport(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	entry := i.log.WithFields(logrus.Fields{
		"layer": pLayerPrefix,
		"code":  messageCode,
	})
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		entry.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		entry.Warn(pMessage)
	default:
		entry.Debug(pMessage)
	}
	return vk.Bool32(vk.False)
}

func instanceExtensionNames() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceExtensionProperties()")
	}
	props := make([]vk.ExtensionProperties, count)
	if err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceExtensionProperties()")
	}
	names := make([]string, 0, count)
	for _, ext := range props[:count] {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

func instanceLayerNames() ([]string, error) {
	var count uint32
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceLayerProperties()")
	}
	props := make([]vk.LayerProperties, count)
	if err := vk.Error(vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, errors.Wrap(err, "vk.EnumerateInstanceLayerProperties()")
	}
	names := make([]string, 0, count)
	for _, layer := range props[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

func contains(list []string, name string) bool {
	for _, s := range list {
		if s == name {
			return true
		}
	}
	return false
}
