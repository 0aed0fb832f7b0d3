// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor"
)

// Vertex buffer strides. The instance layouts are sequences of
// float32x4 attributes so the CPU serialization stays trivial.
const (
	quadVertexStride      = 8   // corner: float32x2
	primitiveInstanceSize = 208 // 13 x float32x4
	lineInstanceSize      = 80  // 5 x float32x4
	pathVertexSize        = 24  // position float32x2 + color float32x4
)

// pipelineKind identifies one of the backend's render pipelines.
type pipelineKind uint8

const (
	pipePrimitive pipelineKind = iota
	pipeLine
	pipePath
	pipeBlur
	pipeComposite
	pipeShadow
	pipeGlow
	pipeColorMatrix
	pipeGlass
)

// pipelineKey distinguishes pipeline variants. Composite pipelines
// differ per blend mode; every pipeline differs per target format.
type pipelineKey struct {
	kind   pipelineKind
	blend  compositor.BlendMode
	format gputypes.TextureFormat
}

// pipelineCache builds render pipelines on first use and reuses them
// for the lifetime of the backend.
type pipelineCache struct {
	device hal.Device

	shaders map[pipelineKind]hal.ShaderModule

	// uniformLayout serves the geometry passes (one uniform buffer),
	// texLayout the single-texture effect passes, twoTexLayout the
	// shadow and glow assembly passes.
	uniformLayout hal.BindGroupLayout
	texLayout     hal.BindGroupLayout
	twoTexLayout  hal.BindGroupLayout

	uniformPipeLayout hal.PipelineLayout
	texPipeLayout     hal.PipelineLayout
	twoTexPipeLayout  hal.PipelineLayout

	pipelines map[pipelineKey]hal.RenderPipeline
}

func newPipelineCache(device hal.Device) *pipelineCache {
	return &pipelineCache{
		device:    device,
		shaders:   make(map[pipelineKind]hal.ShaderModule),
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}
}

func shaderSourceFor(kind pipelineKind) (string, string) {
	switch kind {
	case pipePrimitive:
		return "primitive", primitiveShaderSource
	case pipeLine:
		return "line", lineShaderSource
	case pipePath:
		return "path", pathShaderSource
	case pipeBlur:
		return "blur", blurShaderSource
	case pipeComposite:
		return "composite", compositeShaderSource
	case pipeShadow:
		return "shadow", shadowShaderSource
	case pipeGlow:
		return "glow", glowShaderSource
	case pipeColorMatrix:
		return "colormatrix", colorMatrixShaderSource
	default:
		return "glass", glassShaderSource
	}
}

// ensureLayouts creates the three bind group layouts and their
// pipeline layouts.
func (c *pipelineCache) ensureLayouts() error {
	if c.uniformLayout != nil {
		return nil
	}

	uniformEntry := gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
	textureEntry := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		}
	}
	samplerEntry := func(binding uint32) gputypes.BindGroupLayoutEntry {
		return gputypes.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		}
	}

	uniformLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "compositor_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry},
	})
	if err != nil {
		return fmt.Errorf("create uniform layout: %w", err)
	}
	c.uniformLayout = uniformLayout

	texLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "compositor_tex_layout",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry, textureEntry(1), samplerEntry(2)},
	})
	if err != nil {
		return fmt.Errorf("create texture layout: %w", err)
	}
	c.texLayout = texLayout

	twoTexLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "compositor_two_tex_layout",
		Entries: []gputypes.BindGroupLayoutEntry{uniformEntry, textureEntry(1), textureEntry(2), samplerEntry(3)},
	})
	if err != nil {
		return fmt.Errorf("create two-texture layout: %w", err)
	}
	c.twoTexLayout = twoTexLayout

	if c.uniformPipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_uniform_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.uniformLayout},
	}); err != nil {
		return fmt.Errorf("create uniform pipeline layout: %w", err)
	}
	if c.texPipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_tex_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.texLayout},
	}); err != nil {
		return fmt.Errorf("create texture pipeline layout: %w", err)
	}
	if c.twoTexPipeLayout, err = c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_two_tex_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.twoTexLayout},
	}); err != nil {
		return fmt.Errorf("create two-texture pipeline layout: %w", err)
	}
	return nil
}

func (c *pipelineCache) shader(kind pipelineKind) (hal.ShaderModule, error) {
	if module, ok := c.shaders[kind]; ok {
		return module, nil
	}
	label, source := shaderSourceFor(kind)
	module, err := compileShader(c.device, label, source)
	if err != nil {
		return nil, err
	}
	c.shaders[kind] = module
	return module, nil
}

// quadCornerLayout is the shared unit-quad corner buffer.
func quadCornerLayout() gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: quadVertexStride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{
			{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		},
	}
}

// vec4InstanceLayout builds a per-instance layout of n consecutive
// float32x4 attributes starting at shader location 1.
func vec4InstanceLayout(n int) gputypes.VertexBufferLayout {
	attrs := make([]gputypes.VertexAttribute, n)
	for i := range attrs {
		attrs[i] = gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32x4,
			Offset:         uint64(i * 16),
			ShaderLocation: uint32(i + 1),
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(n * 16),
		StepMode:    gputypes.VertexStepModeInstance,
		Attributes:  attrs,
	}
}

func vertexBuffersFor(kind pipelineKind) []gputypes.VertexBufferLayout {
	switch kind {
	case pipePrimitive:
		return []gputypes.VertexBufferLayout{quadCornerLayout(), vec4InstanceLayout(13)}
	case pipeLine:
		return []gputypes.VertexBufferLayout{quadCornerLayout(), vec4InstanceLayout(5)}
	case pipePath:
		return []gputypes.VertexBufferLayout{{
			ArrayStride: pathVertexSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
			},
		}}
	case pipeComposite, pipeGlass:
		return []gputypes.VertexBufferLayout{quadCornerLayout()}
	default:
		// Fullscreen-triangle passes have no vertex buffers.
		return nil
	}
}

func pipeLayoutFor(c *pipelineCache, kind pipelineKind) hal.PipelineLayout {
	switch kind {
	case pipePrimitive, pipeLine, pipePath:
		return c.uniformPipeLayout
	case pipeShadow, pipeGlow:
		return c.twoTexPipeLayout
	default:
		return c.texPipeLayout
	}
}

// blendStateFor maps a compositing blend mode onto fixed-function
// blend factors over premultiplied channels. Multiply cannot express
// the s*(1-da) term with fixed-function factors; the standard
// dst-color approximation is used.
func blendStateFor(mode compositor.BlendMode) gputypes.BlendState {
	over := gputypes.BlendComponent{
		Operation: gputypes.BlendOperationAdd,
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
	}
	switch mode {
	case compositor.BlendAdditive:
		add := gputypes.BlendComponent{
			Operation: gputypes.BlendOperationAdd,
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOne,
		}
		return gputypes.BlendState{Color: add, Alpha: over}
	case compositor.BlendMultiply:
		return gputypes.BlendState{
			Color: gputypes.BlendComponent{
				Operation: gputypes.BlendOperationAdd,
				SrcFactor: gputypes.BlendFactorDst,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			},
			Alpha: over,
		}
	case compositor.BlendScreen:
		return gputypes.BlendState{
			Color: gputypes.BlendComponent{
				Operation: gputypes.BlendOperationAdd,
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOneMinusSrc,
			},
			Alpha: over,
		}
	default:
		return gputypes.BlendStatePremultiplied()
	}
}

// blendFor returns the blend state for a pipeline kind, or nil for
// the replace-style effect passes that rewrite the whole target.
func blendFor(kind pipelineKind, mode compositor.BlendMode) *gputypes.BlendState {
	switch kind {
	case pipeBlur, pipeShadow, pipeGlow, pipeColorMatrix:
		return nil
	case pipeComposite:
		blend := blendStateFor(mode)
		return &blend
	default:
		blend := gputypes.BlendStatePremultiplied()
		return &blend
	}
}

// get returns the pipeline for a kind, blend mode, and target format,
// building it on first use.
func (c *pipelineCache) get(kind pipelineKind, mode compositor.BlendMode, format gputypes.TextureFormat) (hal.RenderPipeline, error) {
	if kind != pipeComposite {
		// Only composite pipelines vary by blend mode.
		mode = compositor.BlendNormal
	}
	key := pipelineKey{kind: kind, blend: mode, format: format}
	if pipeline, ok := c.pipelines[key]; ok {
		return pipeline, nil
	}
	if err := c.ensureLayouts(); err != nil {
		return nil, err
	}
	module, err := c.shader(kind)
	if err != nil {
		return nil, err
	}

	label, _ := shaderSourceFor(kind)
	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("compositor_%s_pipeline", label),
		Layout: pipeLayoutFor(c, kind),
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    vertexBuffersFor(kind),
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     blendFor(kind, mode),
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s pipeline: %w", label, err)
	}
	c.pipelines[key] = pipeline
	return pipeline, nil
}

// destroy releases all cached pipelines, layouts, and shader modules.
func (c *pipelineCache) destroy() {
	if c.device == nil {
		return
	}
	for key, pipeline := range c.pipelines {
		c.device.DestroyRenderPipeline(pipeline)
		delete(c.pipelines, key)
	}
	if c.twoTexPipeLayout != nil {
		c.device.DestroyPipelineLayout(c.twoTexPipeLayout)
		c.twoTexPipeLayout = nil
	}
	if c.texPipeLayout != nil {
		c.device.DestroyPipelineLayout(c.texPipeLayout)
		c.texPipeLayout = nil
	}
	if c.uniformPipeLayout != nil {
		c.device.DestroyPipelineLayout(c.uniformPipeLayout)
		c.uniformPipeLayout = nil
	}
	if c.twoTexLayout != nil {
		c.device.DestroyBindGroupLayout(c.twoTexLayout)
		c.twoTexLayout = nil
	}
	if c.texLayout != nil {
		c.device.DestroyBindGroupLayout(c.texLayout)
		c.texLayout = nil
	}
	if c.uniformLayout != nil {
		c.device.DestroyBindGroupLayout(c.uniformLayout)
		c.uniformLayout = nil
	}
	for kind, module := range c.shaders {
		c.device.DestroyShaderModule(module)
		delete(c.shaders, kind)
	}
}
