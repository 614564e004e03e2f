package device_test

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/tilesweep/device"
)

var swapchainOnly = device.Requirements{
	Extensions: []string{"VK_KHR_swapchain"},
	Features:   device.Features{SamplerAnisotropy: true},
}

func candidate(name string, typ device.Type, dim uint32) device.Candidate {
	return device.Candidate{
		Name: name,
		Type: typ,
		Limits: device.Limits{
			MaxImageDimension1D: dim,
			MaxImageDimension2D: dim,
		},
		Features:       device.Features{SamplerAnisotropy: true},
		Extensions:     []string{"VK_KHR_maintenance1", "VK_KHR_swapchain"},
		QueueFamilies:  []device.QueueFamily{{Graphics: true, Present: true}},
		SurfaceFormats: 2,
		PresentModes:   1,
	}
}

func TestScore(t *testing.T) {
	c := qt.New(t)
	c.Assert(device.Score(candidate("a", device.TypeIntegrated, 100), swapchainOnly), qt.Equals, uint64(201))
	c.Assert(device.Score(candidate("b", device.TypeDiscrete, 100), swapchainOnly), qt.Equals, uint64(402))
}

func TestScoreOverflowCollapses(t *testing.T) {
	cand := candidate("huge", device.TypeDiscrete, math.MaxUint32)
	qt.Assert(t, device.Score(cand, swapchainOnly), qt.Equals, uint64(2))
}

func TestScoreHardRequirements(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*device.Candidate)
	}{{
		name:   "missing extension",
		modify: func(c *device.Candidate) { c.Extensions = []string{"VK_KHR_maintenance1"} },
	}, {
		name:   "no surface formats",
		modify: func(c *device.Candidate) { c.SurfaceFormats = 0 },
	}, {
		name:   "no present modes",
		modify: func(c *device.Candidate) { c.PresentModes = 0 },
	}, {
		name:   "no present queue",
		modify: func(c *device.Candidate) { c.QueueFamilies = []device.QueueFamily{{Graphics: true}} },
	}, {
		name:   "no graphics queue",
		modify: func(c *device.Candidate) { c.QueueFamilies = []device.QueueFamily{{Present: true}} },
	}, {
		name:   "missing anisotropy",
		modify: func(c *device.Candidate) { c.Features.SamplerAnisotropy = false },
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cand := candidate("big", device.TypeDiscrete, 1<<20)
			test.modify(&cand)
			qt.Assert(t, device.Score(cand, swapchainOnly), qt.Equals, uint64(0))
		})
	}
}

func TestSelectPicksHighest(t *testing.T) {
	c := qt.New(t)
	cands := []device.Candidate{
		candidate("small", device.TypeIntegrated, 100),
		candidate("big", device.TypeDiscrete, 4096),
		candidate("medium", device.TypeIntegrated, 2048),
	}
	sel, err := device.Select(cands, swapchainOnly)
	c.Assert(err, qt.IsNil)
	c.Assert(sel.Index, qt.Equals, 1)
	c.Assert(sel.Score, qt.Equals, uint64(2*(1+2*4096)))
	c.Assert(sel.Queues, qt.Equals, device.QueueFamilyIndices{})

	// deterministic across calls
	for i := 0; i < 10; i++ {
		again, err := device.Select(cands, swapchainOnly)
		c.Assert(err, qt.IsNil)
		c.Assert(again, qt.DeepEquals, sel)
	}
}

func TestSelectNeverPicksUnsuitable(t *testing.T) {
	c := qt.New(t)
	monster := candidate("monster", device.TypeDiscrete, 1<<24)
	monster.Extensions = nil
	cands := []device.Candidate{monster, candidate("modest", device.TypeIntegrated, 16)}

	sel, err := device.Select(cands, swapchainOnly)
	c.Assert(err, qt.IsNil)
	c.Assert(sel.Index, qt.Equals, 1)
}

func TestSelectTieGoesToFirst(t *testing.T) {
	cands := []device.Candidate{
		candidate("first", device.TypeIntegrated, 512),
		candidate("second", device.TypeIntegrated, 512),
	}
	sel, err := device.Select(cands, swapchainOnly)
	qt.Assert(t, err, qt.IsNil)
	qt.Assert(t, sel.Index, qt.Equals, 0)
}

func TestSelectErrors(t *testing.T) {
	c := qt.New(t)
	_, err := device.Select(nil, swapchainOnly)
	c.Assert(err, qt.Equals, device.ErrNoDevices)

	bad := candidate("bad", device.TypeDiscrete, 100)
	bad.PresentModes = 0
	_, err = device.Select([]device.Candidate{bad}, swapchainOnly)
	c.Assert(err, qt.Equals, device.ErrNoSuitableDevice)
}

func TestFindQueueFamilies(t *testing.T) {
	tests := []struct {
		name     string
		families []device.QueueFamily
		expected device.QueueFamilyIndices
		unique   []uint32
		ok       bool
	}{{
		name:     "shared family preferred",
		families: []device.QueueFamily{{Graphics: true}, {Present: true}, {Graphics: true, Present: true}},
		expected: device.QueueFamilyIndices{Graphics: 2, Present: 2},
		unique:   []uint32{2},
		ok:       true,
	}, {
		name:     "separate families",
		families: []device.QueueFamily{{}, {Present: true}, {Graphics: true}},
		expected: device.QueueFamilyIndices{Graphics: 2, Present: 1},
		unique:   []uint32{2, 1},
		ok:       true,
	}, {
		name:     "no present",
		families: []device.QueueFamily{{Graphics: true}},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			indices, ok := device.FindQueueFamilies(test.families)
			c.Assert(ok, qt.Equals, test.ok)
			if !ok {
				return
			}
			c.Assert(indices, qt.Equals, test.expected)
			c.Assert(indices.Unique(), qt.DeepEquals, test.unique)
		})
	}
}

func BenchmarkSelect(b *testing.B) {
	cands := make([]device.Candidate, 8)
	for idx := range cands {
		cands[idx] = candidate("gpu", device.Type(idx%5), uint32(idx*1024))
	}
	b.ResetTimer()
	for idx := 0; idx < b.N; idx++ {
		device.Select(cands, swapchainOnly)
	}
}
