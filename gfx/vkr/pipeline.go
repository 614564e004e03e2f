// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"github.com/pkg/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/devblok/tilesweep/core"
	"github.com/devblok/tilesweep/gfx"
)

// Shader is a compiled shader module of one stage.
type Shader struct {
	device vk.Device
	module vk.ShaderModule
	kind   core.ShaderType
	name   string
}

// NewShader loads SPIR-V from assets and creates a shader module from it.
func NewShader(dev vk.Device, assets core.Assets, name string, kind core.ShaderType) (*Shader, error) {
	code, err := core.LoadShader(assets, name)
	if err != nil {
		return nil, err
	}
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    core.SliceUint32(code),
	}
	var module vk.ShaderModule
	if err := vk.Error(vk.CreateShaderModule(dev, &smci, nil, &module)); err != nil {
		return nil, errors.Wrapf(err, "vk.CreateShaderModule(%s)", name)
	}
	return &Shader{
		device: dev,
		module: module,
		kind:   kind,
		name:   name,
	}, nil
}

// Name is the asset name the shader was loaded from.
func (s *Shader) Name() string {
	return s.name
}

// Type of the shader stage.
func (s *Shader) Type() core.ShaderType {
	return s.kind
}

// Release destroys the shader module.
func (s *Shader) Release() {
	vk.DestroyShaderModule(s.device, s.module, nil)
}

func shaderStages(shaders []*Shader) ([]vk.PipelineShaderStageCreateInfo, error) {
	stages := make([]vk.PipelineShaderStageCreateInfo, len(shaders))
	for idx, shader := range shaders {
		var stage vk.ShaderStageFlagBits
		switch shader.Type() {
		case core.VertexShaderType:
			stage = vk.ShaderStageVertexBit
		case core.FragmentShaderType:
			stage = vk.ShaderStageFragmentBit
		default:
			return nil, errors.Errorf("shader %s: unsupported type %s", shader.Name(), shader.Type())
		}
		stages[idx] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: shader.module,
			PName:  "main\x00",
		}
	}
	return stages, nil
}

func polygonMode(variant gfx.PipelineVariant) vk.PolygonMode {
	if variant == gfx.Wireframe {
		return vk.PolygonModeLine
	}
	return vk.PolygonModeFill
}

func newPipelineCache(dev vk.Device) (vk.PipelineCache, error) {
	var cache vk.PipelineCache
	if err := vk.Error(vk.CreatePipelineCache(dev, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &cache)); err != nil {
		return nil, errors.Wrap(err, "vk.CreatePipelineCache()")
	}
	return cache, nil
}

// newRenderPass clears color and depth, stores color for presenting.
func newRenderPass(dev vk.Device, colorFormat, depthFormat vk.Format) (vk.RenderPass, error) {
	attachments := []vk.AttachmentDescription{{
		Format:         colorFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutPresentSrc,
	}, {
		Format:         depthFormat,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         vk.AttachmentLoadOpClear,
		StoreOp:        vk.AttachmentStoreOpDontCare,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vk.ImageLayoutUndefined,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	}}

	colorRef := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}
	depthRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: 0,
		DstStageMask:  stages,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	rpci := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses: []vk.SubpassDescription{{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(colorRef)),
			PColorAttachments:       colorRef,
			PDepthStencilAttachment: &depthRef,
		}},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var renderPass vk.RenderPass
	if err := vk.Error(vk.CreateRenderPass(dev, &rpci, nil, &renderPass)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateRenderPass()")
	}
	return renderPass, nil
}

// newPipelines builds one graphics pipeline per variant, indexed by variant.
// Viewport and scissor are dynamic, quads blend by alpha and are depth
// tested so that a lower Z draws on top.
func newPipelines(dev vk.Device, cache vk.PipelineCache, layout vk.PipelineLayout, renderPass vk.RenderPass,
	shaders []*Shader, variants []gfx.PipelineVariant) ([]vk.Pipeline, error) {

	stages, err := shaderStages(shaders)
	if err != nil {
		return nil, err
	}
	bindings := vertexBindings()
	attributes := vertexAttributes()
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}

	gpci := make([]vk.GraphicsPipelineCreateInfo, len(variants))
	for idx, variant := range variants {
		gpci[idx] = vk.GraphicsPipelineCreateInfo{
			SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
			StageCount: uint32(len(stages)),
			PStages:    stages,
			PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
				SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
				VertexBindingDescriptionCount:   uint32(len(bindings)),
				PVertexBindingDescriptions:      bindings,
				VertexAttributeDescriptionCount: uint32(len(attributes)),
				PVertexAttributeDescriptions:    attributes,
			},
			PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
				SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
				Topology: vk.PrimitiveTopologyTriangleList,
			},
			PViewportState: &vk.PipelineViewportStateCreateInfo{
				SType:         vk.StructureTypePipelineViewportStateCreateInfo,
				ViewportCount: 1,
				ScissorCount:  1,
			},
			PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
				SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
				PolygonMode: polygonMode(variant),
				CullMode:    vk.CullModeFlags(vk.CullModeNone),
				FrontFace:   vk.FrontFaceCounterClockwise,
				LineWidth:   1.0,
			},
			PDepthStencilState: &vk.PipelineDepthStencilStateCreateInfo{
				SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
				DepthTestEnable:       vk.True,
				DepthWriteEnable:      vk.True,
				DepthCompareOp:        vk.CompareOpLess,
				DepthBoundsTestEnable: vk.False,
				StencilTestEnable:     vk.False,
				Back: vk.StencilOpState{
					FailOp:    vk.StencilOpKeep,
					PassOp:    vk.StencilOpKeep,
					CompareOp: vk.CompareOpAlways,
				},
				Front: vk.StencilOpState{
					FailOp:    vk.StencilOpKeep,
					PassOp:    vk.StencilOpKeep,
					CompareOp: vk.CompareOpAlways,
				},
			},
			PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
				SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
				RasterizationSamples: vk.SampleCount1Bit,
			},
			PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
				SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
				AttachmentCount: 1,
				PAttachments: []vk.PipelineColorBlendAttachmentState{{
					BlendEnable:         vk.True,
					SrcColorBlendFactor: vk.BlendFactorSrcAlpha,
					DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
					ColorBlendOp:        vk.BlendOpAdd,
					SrcAlphaBlendFactor: vk.BlendFactorOne,
					DstAlphaBlendFactor: vk.BlendFactorZero,
					AlphaBlendOp:        vk.BlendOpAdd,
					ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
						vk.ColorComponentBBit | vk.ColorComponentABit),
				}},
			},
			PDynamicState: &vk.PipelineDynamicStateCreateInfo{
				SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
				DynamicStateCount: uint32(len(dynamicStates)),
				PDynamicStates:    dynamicStates,
			},
			Layout:            layout,
			RenderPass:        renderPass,
			BasePipelineIndex: -1,
		}
	}

	pipelines := make([]vk.Pipeline, len(gpci))
	if err := vk.Error(vk.CreateGraphicsPipelines(dev, cache, uint32(len(gpci)), gpci, nil, pipelines)); err != nil {
		return nil, errors.Wrap(err, "vk.CreateGraphicsPipelines()")
	}
	return pipelines, nil
}
