// Copyright 2025 The NE16 Driver Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config validates convolution parameters and packs them into the
// accelerator's configuration registers.
//
// Every operation takes a Config by value and returns the updated copy, so a
// failed validation leaves the caller's configuration untouched. Flags are
// merged into conf0 with a bitwise OR and never cleared.
//
// Conv returns a BuildContext holding the encoding-dependent factors (weight
// precision, weight d0 stride, output width, stride shift) that UpdateDims
// needs to recompute the subtiles for a new geometry.
package config

import (
	"fmt"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/tiling"
)

// OffsetMode is the weight zero-point mode.
type OffsetMode uint32

const (
	OffsetSymmetric OffsetMode = ne16.FlagWeightOffsetSymmetric
	OffsetLayerWise OffsetMode = ne16.FlagWeightOffsetLayerWise
)

// Weights describes the packed weight tensor.
type Weights struct {
	Height, Width int
	Depth         int // input channels per filter
	Count         int // number of filters (output channels)

	Bitwidth     int
	OffsetFactor int32
	OffsetMode   OffsetMode
}

// Feature describes an input or output feature map.
type Feature struct {
	Height, Width, Depth int
	Bitwidth             int
}

// Padding is the input padding and its fill value.
type Padding struct {
	Top, Right, Bottom, Left int
	Value                    uint16
}

// Border returns the per-side counts of p.
func (p Padding) Border() tiling.Border {
	return tiling.Border{Top: p.Top, Right: p.Right, Bottom: p.Bottom, Left: p.Left}
}

// NormMode is the width of the normalization scale.
type NormMode uint32

const (
	NormMode8Bit  NormMode = ne16.NormMode8Bit
	NormMode16Bit NormMode = ne16.NormMode16Bit
	NormMode32Bit NormMode = ne16.NormMode32Bit
)

// Norm selects the normalization stage.
type Norm struct {
	Mode      NormMode
	FlagBias  bool
	FlagShift bool
}

// QuantMode is the output bit-width class of the requantization stage.
type QuantMode uint32

const (
	QuantMode8Bit  QuantMode = ne16.QuantMode8Bit
	QuantMode16Bit QuantMode = ne16.QuantMode16Bit
	QuantMode32Bit QuantMode = ne16.QuantMode32Bit
)

// Activation is the function applied after requantization.
type Activation uint32

const (
	ActivationReLU     Activation = ne16.FlagQuantFunctionReLU
	ActivationIdentity Activation = ne16.FlagQuantFunctionIdentity
)

func (a Activation) String() string {
	if a == ActivationIdentity {
		return "identity"
	}
	return "relu"
}

// Quant selects the requantization stage.
type Quant struct {
	ShiftAmount  int
	Mode         QuantMode
	Function     Activation
	FlagRounding bool
}

// Config is the configuration part of the register image.
type Config struct {
	InputStride   tiling.Stride
	OutputStride  tiling.Stride
	WeightsStride tiling.Stride
	Subtile       tiling.Subtile

	Padding            uint32
	WeightOffsetFactor uint32
	FilterMask         uint32
	Conf0              uint32
}

// BuildContext is the encoding state shared between Conv and UpdateDims.
type BuildContext struct {
	Variant tiling.Variant
	Params  ne16.Params
	tiling.Scaling
}

// SelectVariant maps a kernel width and depthwise flag to a variant.
func SelectVariant(kernelWidth int, depthwise bool) (tiling.Variant, error) {
	switch {
	case kernelWidth == 3 && !depthwise:
		return tiling.Conv3x3, nil
	case kernelWidth == 3 && depthwise:
		return tiling.Conv3x3DW, nil
	case kernelWidth == 1 && !depthwise:
		return tiling.Conv1x1, nil
	}
	return 0, &ValidationError{
		Field: fmt.Sprintf("kernel_width(depthwise=%t)", depthwise),
		Value: kernelWidth,
		Err:   ErrUnsupportedVariant,
	}
}

func variantFlag(v tiling.Variant) uint32 {
	switch v {
	case tiling.Conv1x1:
		return ne16.FlagMode1x1
	case tiling.Conv3x3DW:
		return ne16.FlagMode3x3DW
	default:
		return ne16.FlagMode3x3
	}
}

func validateConv(w Weights, in, out Feature, stride int) error {
	if w.Bitwidth < 2 || w.Bitwidth > 8 {
		return invalid("weights.bitwidth", w.Bitwidth, ErrWeightBitwidthOutOfRange)
	}
	if w.OffsetMode != OffsetLayerWise {
		return invalid("weights.offset_mode", int(w.OffsetMode), ErrUnsupportedOffsetMode)
	}
	if in.Bitwidth != 8 && in.Bitwidth != 16 {
		return invalid("input.bitwidth", in.Bitwidth, ErrUnsupportedFeatureBitwidth)
	}
	if out.Bitwidth != 8 && out.Bitwidth != 32 {
		return invalid("output.bitwidth", out.Bitwidth, ErrUnsupportedFeatureBitwidth)
	}
	if stride != 1 && stride != 2 {
		return invalid("stride", stride, ErrUnsupportedStride)
	}
	return nil
}

// Conv validates the convolution parameters, sets the mode word in conf0 and
// computes the subtiles and strides for variant v.
//
// The checks run in order: weight bitwidth, offset mode, feature bitwidths,
// stride. The first failure is returned and cfg is not modified.
func Conv(cfg Config, v tiling.Variant, w Weights, in, out Feature, pad Padding, stride int, p ne16.Params) (Config, BuildContext, error) {
	if err := validateConv(w, in, out, stride); err != nil {
		return cfg, BuildContext{}, err
	}

	mode16 := in.Bitwidth == 16
	var modeFlag uint32 = ne16.FlagModeBasic
	if mode16 {
		modeFlag = ne16.FlagMode16
	}
	var strideFlag uint32
	if stride == 2 && v == tiling.Conv3x3 {
		strideFlag = ne16.FlagStride2x2
	}
	var shift uint
	if stride == 2 {
		shift = 1
	}

	cfg.Conf0 |= uint32(w.OffsetMode) | variantFlag(v) | modeFlag | strideFlag | uint32(w.Bitwidth-1)

	bc := BuildContext{
		Variant: v,
		Params:  p,
		Scaling: tiling.Scaling{
			WeightBits:     w.Bitwidth,
			WeightD0Stride: p.WeightD0Stride(mode16),
			OutputBytes:    out.Bitwidth / 8,
			StrideShift:    shift,
		},
	}

	g := tiling.Geometry{
		OutHeight:    out.Height,
		OutWidth:     out.Width,
		InWidth:      in.Width,
		OutChannels:  out.Depth,
		InChannels:   in.Depth,
		InRowStride:  in.Width,
		OutRowStride: out.Width,
		Pad:          pad.Border(),
	}
	cfg = UpdateDims(cfg, bc, g)
	cfg.WeightOffsetFactor = uint32(w.OffsetFactor)

	return cfg, bc, nil
}

// UpdateDims recomputes the subtile descriptor and strides of cfg for
// geometry g, keeping every other field.
func UpdateDims(cfg Config, bc BuildContext, g tiling.Geometry) Config {
	d := tiling.Compute(bc.Variant, g, bc.Scaling, bc.Params)
	cfg.Subtile = d.Subtile
	cfg.InputStride = d.Input
	cfg.OutputStride = d.Output
	cfg.WeightsStride = d.Weights
	return cfg
}

// NormQuant validates the requantization parameters and merges the
// normalization and quantization flags into conf0.
func NormQuant(cfg Config, norm Norm, quant Quant) (Config, error) {
	if quant.ShiftAmount < 0 || quant.ShiftAmount > ne16.MaxQuantShift {
		return cfg, invalid("quant.shift_amount", quant.ShiftAmount, ErrShiftOutOfRange)
	}
	if quant.Mode == QuantMode16Bit {
		return cfg, invalid("quant.mode", int(quant.Mode), ErrUnsupportedQuantMode)
	}

	cfg.Conf0 |= ne16.FlagNormQuant |
		uint32(quant.Function) |
		uint32(quant.Mode) |
		uint32(quant.ShiftAmount)<<ne16.ShiftQuantShift |
		b2u(quant.FlagRounding)<<ne16.ShiftRounding |
		uint32(norm.Mode) |
		b2u(norm.FlagBias)<<ne16.ShiftNormBias |
		b2u(norm.FlagShift)<<ne16.ShiftNormShift
	return cfg, nil
}

// PadInput encodes the padding counts and fill value.
func PadInput(cfg Config, pad Padding) Config {
	cfg.Padding = uint32(pad.Top&0xF)<<28 |
		uint32(pad.Right&0xF)<<24 |
		uint32(pad.Bottom&0xF)<<20 |
		uint32(pad.Left&0xF)<<16 |
		uint32(pad.Value)
	return cfg
}

// MaskFilter sets the filter-edge mask, one byte lane per side.
func MaskFilter(cfg Config, top, right, bottom, left uint8) Config {
	cfg.FilterMask = uint32(top)<<24 | uint32(right)<<16 | uint32(bottom)<<8 | uint32(left)
	return cfg
}

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
