package vkr

import (
	"unsafe"

	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/model"
)

// Vertex buffer bindings
const (
	vertexBinding   = 0
	instanceBinding = 1
)

// Descriptor bindings
const (
	uniformBinding = 0
	atlasBinding   = 1
)

func vertexBindings() []vk.VertexInputBindingDescription {
	return []vk.VertexInputBindingDescription{{
		Binding:   vertexBinding,
		Stride:    uint32(model.VertexSize),
		InputRate: vk.VertexInputRateVertex,
	}, {
		Binding:   instanceBinding,
		Stride:    uint32(model.InstanceSize),
		InputRate: vk.VertexInputRateInstance,
	}}
}

func vertexAttributes() []vk.VertexInputAttributeDescription {
	var v model.QuadVertex
	var i model.QuadInstance
	attr := func(location, binding uint32, format vk.Format, offset uintptr) vk.VertexInputAttributeDescription {
		return vk.VertexInputAttributeDescription{
			Location: location,
			Binding:  binding,
			Format:   format,
			Offset:   uint32(offset),
		}
	}
	return []vk.VertexInputAttributeDescription{
		attr(0, vertexBinding, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.Pos)),
		attr(1, vertexBinding, vk.FormatR32g32Sfloat, unsafe.Offsetof(v.UV)),
		attr(2, instanceBinding, vk.FormatR32g32b32a32Sfloat, unsafe.Offsetof(i.Color)),
		attr(3, instanceBinding, vk.FormatR32g32b32Sfloat, unsafe.Offsetof(i.Position)),
		attr(4, instanceBinding, vk.FormatR32g32Sfloat, unsafe.Offsetof(i.Scale)),
		attr(5, instanceBinding, vk.FormatR32g32Sfloat, unsafe.Offsetof(i.TexOffset)),
		attr(6, instanceBinding, vk.FormatR32g32Sfloat, unsafe.Offsetof(i.TexScale)),
	}
}

// pipelineLayout holds the descriptor layout shared by every frame slot
// and the pipeline layout built on it.
type pipelineLayout struct {
	device     vk.Device
	descriptor vk.DescriptorSetLayout
	layout     vk.PipelineLayout
}

func newPipelineLayout(dev vk.Device) (*pipelineLayout, error) {
	dslci := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 2,
		PBindings: []vk.DescriptorSetLayoutBinding{{
			Binding:         uniformBinding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBuffer,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit),
		}, {
			Binding:         atlasBinding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		}},
	}

	var descriptorSetLayout vk.DescriptorSetLayout
	if err := vk.Error(vk.CreateDescriptorSetLayout(dev, &dslci, nil, &descriptorSetLayout)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateDescriptorSetLayout()")
	}

	plci := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{descriptorSetLayout},
	}

	var layout vk.PipelineLayout
	if err := vk.Error(vk.CreatePipelineLayout(dev, &plci, nil, &layout)); err != nil {
		vk.DestroyDescriptorSetLayout(dev, descriptorSetLayout, nil)
		return nil, errors.Wrap(err, "vk.CreatePipelineLayout()")
	}
	return &pipelineLayout{
		device:     dev,
		descriptor: descriptorSetLayout,
		layout:     layout,
	}, nil
}

func (p *pipelineLayout) Release() {
	vk.DestroyPipelineLayout(p.device, p.layout, nil)
	vk.DestroyDescriptorSetLayout(p.device, p.descriptor, nil)
}
