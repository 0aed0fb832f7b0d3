// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"context"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

const (
	colorFormat = gputypes.TextureFormatRGBA8Unorm
	depthFormat = gputypes.TextureFormatDepth24PlusStencil8

	// submitTimeout bounds every fenced wait. The backend submits
	// synchronously, so a stuck fence means a lost device, not a busy
	// one.
	submitTimeout = 5 * time.Second
)

// Backend implements render.Backend on gogpu/wgpu's HAL.
type Backend struct {
	instance   hal.Instance
	device     hal.Device
	queue      hal.Queue
	ownsDevice bool

	caps render.DeviceCapabilities
	diag compositor.Diagnostics

	pipelines *pipelineCache
	sampler   hal.Sampler

	// quadBuf holds the six corners of a unit quad, shared by every
	// instanced pass.
	quadBuf hal.Buffer

	// mirrors holds the offscreen shadow textures backing pixmap
	// targets. One mirror per target, keyed by identity.
	mirrors map[*render.PixmapTarget]*render.LayerTexture
}

var _ render.Backend = (*Backend)(nil)

// New opens a standalone Vulkan device and returns a GPU backend.
// Construction fails with render.ErrDeviceUnavailable when no usable
// adapter exists.
func New() (*Backend, error) {
	return NewWithDiagnostics(compositor.Diagnostics{})
}

// NewWithDiagnostics is New with an injected diagnostics
// configuration.
func NewWithDiagnostics(diag compositor.Diagnostics) (*Backend, error) {
	b := &Backend{diag: diag, ownsDevice: true}
	if err := b.initGPU(); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %v", render.ErrDeviceUnavailable, err)
	}
	if err := b.finishInit(); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %v", render.ErrDeviceUnavailable, err)
	}
	return b, nil
}

// NewWithProvider adopts a shared GPU device from the host
// application instead of opening one. The provider must expose
// HalDevice() any and HalQueue() any returning hal.Device and
// hal.Queue; device lifetime stays with the host.
func NewWithProvider(provider any, diag compositor.Diagnostics) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", render.ErrDeviceUnavailable)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", render.ErrDeviceUnavailable)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", render.ErrDeviceUnavailable)
	}

	b := &Backend{device: device, queue: queue, diag: diag}
	b.caps = defaultCapabilities("shared")
	if err := b.finishInit(); err != nil {
		b.Close()
		return nil, fmt.Errorf("%w: %v", render.ErrDeviceUnavailable, err)
	}
	b.diag.Logger().Debug("wgpu backend on shared device")
	return b, nil
}

// initGPU creates a standalone Vulkan instance, picks an adapter
// (discrete preferred, then integrated), and opens a device.
func (b *Backend) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	b.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}

	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	b.device = openDev.Device
	b.queue = openDev.Queue
	b.caps = defaultCapabilities(selected.Info.Name)

	b.diag.Logger().Info("wgpu backend initialized", "adapter", selected.Info.Name)
	return nil
}

// finishInit creates the resources shared by every pass.
func (b *Backend) finishInit() error {
	sampler, err := b.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "compositor_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	b.sampler = sampler

	quad, err := b.createAndUploadBuffer("compositor_quad", quadCornerData(),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	b.quadBuf = quad

	b.pipelines = newPipelineCache(b.device)
	b.mirrors = make(map[*render.PixmapTarget]*render.LayerTexture)
	return nil
}

func defaultCapabilities(deviceName string) render.DeviceCapabilities {
	return render.DeviceCapabilities{
		MaxTextureSize:          8192,
		MaxBufferSize:           256 << 20,
		MaxBindGroups:           4,
		SupportsCompute:         true,
		SupportsStorageTextures: true,
		VendorName:              "vulkan",
		DeviceName:              deviceName,
	}
}

// Name identifies the backend for diagnostics.
func (b *Backend) Name() string { return "wgpu" }

// Capabilities reports device limits.
func (b *Backend) Capabilities() render.DeviceCapabilities { return b.caps }

// Close releases every GPU resource. A backend constructed over a
// shared device leaves the device and queue alone.
func (b *Backend) Close() {
	for target, mirror := range b.mirrors {
		mirror.Destroy()
		delete(b.mirrors, target)
	}
	if b.pipelines != nil {
		b.pipelines.destroy()
		b.pipelines = nil
	}
	if b.sampler != nil && b.device != nil {
		b.device.DestroySampler(b.sampler)
		b.sampler = nil
	}
	if b.quadBuf != nil && b.device != nil {
		b.device.DestroyBuffer(b.quadBuf)
		b.quadBuf = nil
	}
	if b.ownsDevice {
		if b.device != nil {
			b.device.Destroy()
		}
		if b.instance != nil {
			b.instance.Destroy()
		}
	}
	b.device = nil
	b.instance = nil
	b.queue = nil
}

// gpuTexture wraps a HAL texture as a render.Texture.
type gpuTexture struct {
	device hal.Device
	tex    hal.Texture
	width  uint32
	height uint32
	format gputypes.TextureFormat
}

func (t *gpuTexture) Width() uint32                  { return t.width }
func (t *gpuTexture) Height() uint32                 { return t.height }
func (t *gpuTexture) Format() gputypes.TextureFormat { return t.format }

func (t *gpuTexture) CreateView() render.TextureView {
	view, err := t.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         "layer_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return nil
	}
	return &gpuTextureView{device: t.device, view: view}
}

func (t *gpuTexture) Destroy() {
	if t.tex != nil {
		t.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// gpuTextureView wraps a HAL texture view as a render.TextureView.
type gpuTextureView struct {
	device hal.Device
	view   hal.TextureView
}

func (v *gpuTextureView) Destroy() {
	if v.view != nil {
		v.device.DestroyTextureView(v.view)
		v.view = nil
	}
}

var (
	_ render.Texture     = (*gpuTexture)(nil)
	_ render.TextureView = (*gpuTextureView)(nil)
)

// CreateLayerTexture allocates an offscreen RGBA8 texture of exactly
// the given pixel size, with an optional depth/stencil attachment.
func (b *Backend) CreateLayerTexture(width, height int, withDepth bool) (*render.LayerTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid texture size %dx%d", render.ErrTextureUnavailable, width, height)
	}
	w, h := uint32(width), uint32(height)
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}

	tex, err := b.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "layer_color",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        colorFormat,
		Usage: gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create color texture: %v", render.ErrTextureUnavailable, err)
	}
	color := &gpuTexture{device: b.device, tex: tex, width: w, height: h, format: colorFormat}

	view := color.CreateView()
	if view == nil {
		color.Destroy()
		return nil, fmt.Errorf("%w: create color view", render.ErrTextureUnavailable)
	}

	layer := &render.LayerTexture{
		Texture: color,
		View:    view,
		W:       width,
		H:       height,
	}

	if withDepth {
		depthTex, err := b.device.CreateTexture(&hal.TextureDescriptor{
			Label:         "layer_depth",
			Size:          size,
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        depthFormat,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			layer.Destroy()
			return nil, fmt.Errorf("%w: create depth texture: %v", render.ErrTextureUnavailable, err)
		}
		layer.Depth = &gpuTexture{device: b.device, tex: depthTex, width: w, height: h, format: depthFormat}
		layer.HasDepth = true
	}
	return layer, nil
}

// DestroyLayerTexture releases a texture that will not return to any
// pool.
func (b *Backend) DestroyLayerTexture(t *render.LayerTexture) {
	if t != nil {
		t.Destroy()
	}
}

// UploadPixels writes tightly packed RGBA8 rows into the top-left
// corner of t.
func (b *Backend) UploadPixels(t *render.LayerTexture, pixels []byte, width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	if width > t.W || height > t.H {
		return fmt.Errorf("upload %dx%d exceeds texture %dx%d", width, height, t.W, t.H)
	}
	if len(pixels) < width*height*4 {
		return fmt.Errorf("upload needs %d bytes, got %d", width*height*4, len(pixels))
	}
	tex, err := halTexture(t.Texture)
	if err != nil {
		return err
	}
	w, h := uint32(width), uint32(height)
	b.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		pixels[:width*height*4],
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// Clear fills dst with c, replacing existing content.
func (b *Backend) Clear(dst render.Surface, c compositor.Color) error {
	ref, err := b.targetFor(dst)
	if err != nil {
		return err
	}
	p := c.Premultiply()
	err = b.encodeSubmit("clear", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "clear_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       ref.view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: float64(p.R), G: float64(p.G), B: float64(p.B), A: float64(p.A)},
			}},
		})
		rp.End()
		return nil
	})
	return ref.finish(err)
}

// Flush blocks until all submitted work completes. Submission is
// already fenced per pass, so this reduces to one empty fenced
// submit bounded by ctx.
func (b *Backend) Flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.encodeSubmit("flush", func(hal.CommandEncoder) error { return nil })
}

// halTexture unwraps the backend's own texture type.
func halTexture(t render.Texture) (hal.Texture, error) {
	gt, ok := t.(*gpuTexture)
	if !ok || gt.tex == nil {
		return nil, fmt.Errorf("texture %T does not belong to the wgpu backend", t)
	}
	return gt.tex, nil
}

// halView unwraps the backend's own texture view type.
func halView(v render.TextureView) (hal.TextureView, error) {
	gv, ok := v.(*gpuTextureView)
	if !ok || gv.view == nil {
		return nil, fmt.Errorf("texture view %T does not belong to the wgpu backend", v)
	}
	return gv.view, nil
}

// encodeSubmit runs record inside a command encoder, submits the
// result with a fence, and waits for completion.
func (b *Backend) encodeSubmit(label string, record func(enc hal.CommandEncoder) error) error {
	encoder, err := b.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := record(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer b.device.FreeCommandBuffer(cmdBuf)

	fence, err := b.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer b.device.DestroyFence(fence)

	if err := b.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit %s: %w", label, err)
	}
	fenceOK, err := b.device.Wait(fence, 1, submitTimeout)
	if err != nil || !fenceOK {
		return fmt.Errorf("wait for %s: ok=%v err=%w", label, fenceOK, err)
	}
	return nil
}

// createAndUploadBuffer creates a GPU buffer and uploads data.
func (b *Backend) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := b.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}
