// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.
// These are compiled to SPIR-V at pipeline creation time via naga.

//go:embed shaders/primitive.wgsl
var primitiveShaderSource string

//go:embed shaders/line.wgsl
var lineShaderSource string

//go:embed shaders/path.wgsl
var pathShaderSource string

//go:embed shaders/blur.wgsl
var blurShaderSource string

//go:embed shaders/composite.wgsl
var compositeShaderSource string

//go:embed shaders/shadow.wgsl
var shadowShaderSource string

//go:embed shaders/glow.wgsl
var glowShaderSource string

//go:embed shaders/colormatrix.wgsl
var colorMatrixShaderSource string

//go:embed shaders/glass.wgsl
var glassShaderSource string

// compileShaderToSPIRV compiles WGSL source to a SPIR-V uint32 slice.
func compileShaderToSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return spirvCode, nil
}

// compileShader compiles WGSL and wraps it in a HAL shader module.
func compileShader(device hal.Device, label, wgslSource string) (hal.ShaderModule, error) {
	code, err := compileShaderToSPIRV(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s module: %w", label, err)
	}
	return module, nil
}
