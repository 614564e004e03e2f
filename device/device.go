// Package device picks the physical rendering device. It only works on
// plain descriptions of the hardware, the Vulkan probing that fills
// them lives in gfx/vkr.
package device

import (
	"math"

	"github.com/pkg/errors"
)

// package errors
var (
	ErrNoDevices        = errors.New("no rendering devices found")
	ErrNoSuitableDevice = errors.New("no rendering device satisfies the requirements")
)

// Type of a physical device, in the order Vulkan enumerates them.
type Type int

// Device types
const (
	TypeOther Type = iota
	TypeIntegrated
	TypeDiscrete
	TypeVirtual
	TypeCPU
)

func (t Type) String() string {
	switch t {
	case TypeIntegrated:
		return "integrated"
	case TypeDiscrete:
		return "discrete"
	case TypeVirtual:
		return "virtual"
	case TypeCPU:
		return "cpu"
	}
	return "other"
}

// MarshalText implements encoding.TextMarshaler
func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Limits are the capability limits that contribute to a device score.
type Limits struct {
	MaxImageDimension1D    uint32  `json:"maxImageDimension1D"`
	MaxImageDimension2D    uint32  `json:"maxImageDimension2D"`
	MaxImageDimension3D    uint32  `json:"maxImageDimension3D"`
	MaxBoundDescriptorSets uint32  `json:"maxBoundDescriptorSets"`
	MaxPushConstantsSize   uint32  `json:"maxPushConstantsSize"`
	MaxFramebufferHeight   uint32  `json:"maxFramebufferHeight"`
	MaxImageArrayLayers    uint32  `json:"maxImageArrayLayers"`
	MaxVertexInputBindings uint32  `json:"maxVertexInputBindings"`
	MaxSamplerAnisotropy   float32 `json:"maxSamplerAnisotropy"`
}

func (l Limits) sum() uint64 {
	return uint64(l.MaxImageDimension1D) +
		uint64(l.MaxImageDimension2D) +
		uint64(l.MaxImageDimension3D) +
		uint64(l.MaxBoundDescriptorSets) +
		uint64(l.MaxPushConstantsSize) +
		uint64(l.MaxFramebufferHeight) +
		uint64(l.MaxImageArrayLayers) +
		uint64(l.MaxVertexInputBindings) +
		uint64(l.MaxSamplerAnisotropy)
}

// Features are the optional device features the renderer cares about.
type Features struct {
	SamplerAnisotropy bool `json:"samplerAnisotropy"`
	FillModeNonSolid  bool `json:"fillModeNonSolid"`
}

// missing reports whether any feature set in required is absent in f.
func (f Features) missing(required Features) bool {
	return (required.SamplerAnisotropy && !f.SamplerAnisotropy) ||
		(required.FillModeNonSolid && !f.FillModeNonSolid)
}

// QueueFamily describes what a queue family can do.
type QueueFamily struct {
	Graphics bool `json:"graphics"`
	Present  bool `json:"present"`
}

// Candidate is one enumerated physical device.
type Candidate struct {
	Name           string        `json:"name"`
	Type           Type          `json:"type"`
	Memory         uint64        `json:"memory"`
	Limits         Limits        `json:"limits"`
	Features       Features      `json:"features"`
	Extensions     []string      `json:"extensions"`
	QueueFamilies  []QueueFamily `json:"queueFamilies"`
	SurfaceFormats int           `json:"surfaceFormats"`
	PresentModes   int           `json:"presentModes"`
}

// HasExtension reports whether the device advertises the extension.
func (c Candidate) HasExtension(name string) bool {
	for _, ext := range c.Extensions {
		if ext == name {
			return true
		}
	}
	return false
}

// Requirements are the hard requirements a device has to meet.
type Requirements struct {
	Extensions []string
	Features   Features
}

// QueueFamilyIndices are the queue families picked on a device.
type QueueFamilyIndices struct {
	Graphics uint32 `json:"graphics"`
	Present  uint32 `json:"present"`
}

// Shared is true when one family does both graphics and present.
func (q QueueFamilyIndices) Shared() bool {
	return q.Graphics == q.Present
}

// Unique returns the deduplicated family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	if q.Shared() {
		return []uint32{q.Graphics}
	}
	return []uint32{q.Graphics, q.Present}
}

// FindQueueFamilies prefers a single family that can do both graphics
// and present, else takes the first of each.
func FindQueueFamilies(families []QueueFamily) (QueueFamilyIndices, bool) {
	graphics, present := -1, -1
	for idx, family := range families {
		if family.Graphics && family.Present {
			return QueueFamilyIndices{Graphics: uint32(idx), Present: uint32(idx)}, true
		}
		if family.Graphics && graphics < 0 {
			graphics = idx
		}
		if family.Present && present < 0 {
			present = idx
		}
	}
	if graphics < 0 || present < 0 {
		return QueueFamilyIndices{}, false
	}
	return QueueFamilyIndices{Graphics: uint32(graphics), Present: uint32(present)}, true
}

// Score rates a candidate, zero means it cannot be used at all.
func Score(c Candidate, req Requirements) uint64 {
	for _, ext := range req.Extensions {
		if !c.HasExtension(ext) {
			return 0
		}
	}
	if c.SurfaceFormats == 0 || c.PresentModes == 0 {
		return 0
	}
	if _, ok := FindQueueFamilies(c.QueueFamilies); !ok {
		return 0
	}
	if c.Features.missing(req.Features) {
		return 0
	}

	score := 1 + c.Limits.sum()
	if score > math.MaxUint32 {
		score = 1
	}
	if c.Type == TypeDiscrete {
		score *= 2
	}
	return score
}

// Selection is the device that won.
type Selection struct {
	Index    int
	Score    uint64
	Queues   QueueFamilyIndices
	Features Features
}

// Select scores every candidate and returns the best one. The first
// enumerated device wins a tie.
func Select(candidates []Candidate, req Requirements) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoDevices
	}
	best := Selection{Index: -1}
	for idx, c := range candidates {
		score := Score(c, req)
		if score == 0 || score <= best.Score {
			continue
		}
		queues, _ := FindQueueFamilies(c.QueueFamilies)
		best = Selection{
			Index:    idx,
			Score:    score,
			Queues:   queues,
			Features: c.Features,
		}
	}
	if best.Index < 0 {
		return Selection{}, ErrNoSuitableDevice
	}
	return best, nil
}
