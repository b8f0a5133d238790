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

// Package layer turns a logical convolution layer into a register image and
// submits it to the accelerator.
//
// A Description is what a model compiler or parameter generator knows about a
// layer: shapes, bitwidths, activation and output shift. Build derives the
// variant, validates every parameter and encodes the image without touching
// any device register, so a rejected layer never leaves the device partially
// configured.
package layer

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/config"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/tiling"
)

var (
	ErrUnsupportedActivation = errors.New("unsupported activation")
	ErrUnsupportedNormMode   = errors.New("unsupported normalization mode")
	ErrInvalidShape          = errors.New("tensor extent out of range")
	ErrPaddingOutOfRange     = errors.New("padding out of range")
)

// Limits of the packed register fields.
const (
	maxExtent  = 0xFFFF
	maxPadding = 0xF
)

// Shape is a feature map in HWC order.
type Shape struct {
	Height   int `yaml:"height"`
	Width    int `yaml:"width"`
	Channels int `yaml:"channels"`
}

// Kernel is the weight tensor shape.
type Kernel struct {
	Height      int `yaml:"height"`
	Width       int `yaml:"width"`
	ChannelsIn  int `yaml:"channels_in"`
	ChannelsOut int `yaml:"channels_out"`
}

// Padding is the input padding in pixels and the fill value.
type Padding struct {
	Top    int    `yaml:"top"`
	Right  int    `yaml:"right"`
	Bottom int    `yaml:"bottom"`
	Left   int    `yaml:"left"`
	Value  uint16 `yaml:"value"`
}

// Description is a logical convolution layer.
type Description struct {
	Name    string `yaml:"name"`
	Input   Shape  `yaml:"input"`
	Output  Shape  `yaml:"output"`
	Weights Kernel `yaml:"weights"`

	InputBits    int   `yaml:"input_bits"`
	OutputBits   int   `yaml:"output_bits"`
	WeightBits   int   `yaml:"weight_bits"`
	WeightOffset int32 `yaml:"weight_offset"`

	Activation string  `yaml:"activation"`
	OutShift   int     `yaml:"out_shift"`
	Rounding   bool    `yaml:"rounding"`
	NormBits   int     `yaml:"norm_bits"`
	NormBias   bool    `yaml:"norm_bias"`
	NormShift  bool    `yaml:"norm_shift"`
	Stride     int     `yaml:"stride"`
	Padding    Padding `yaml:"padding"`
}

// Default returns the 8-bit ReLU layer settings every description starts
// from: 8-bit features and weights, zero weight offset, 32-bit scale, stride
// 1 and no padding. Shapes are left zero.
func Default() Description {
	return Description{
		InputBits:  8,
		OutputBits: 8,
		WeightBits: 8,
		Activation: "relu",
		NormBits:   32,
		Stride:     1,
	}
}

// Parse decodes a YAML or JSON layer description over Default.
func Parse(data []byte) (Description, error) {
	d := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("parse layer description: %w", err)
	}
	return d, nil
}

// Load reads a layer description from path.
func Load(path string) (Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Description{}, err
	}
	d, err := Parse(data)
	if err != nil {
		return Description{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Depthwise reports whether each filter sees a single input channel of a
// multi-channel input.
func (d Description) Depthwise() bool {
	return d.Weights.ChannelsIn == 1 && d.Input.Channels != 1
}

// Variant selects the convolution variant for d.
func (d Description) Variant() (tiling.Variant, error) {
	return config.SelectVariant(d.Weights.Width, d.Depthwise())
}

// MACs is the number of multiply-accumulates of one inference of d.
func (d Description) MACs() int {
	return d.Output.Height * d.Output.Width * d.Output.Channels *
		d.Weights.Height * d.Weights.Width * d.Weights.ChannelsIn
}

func (d Description) String() string {
	var b strings.Builder
	if d.Name != "" {
		fmt.Fprintf(&b, "Layer %s:\n", d.Name)
	} else {
		b.WriteString("Layer info:\n")
	}
	fmt.Fprintf(&b, " - input: (%dx%dx%d)\n", d.Input.Height, d.Input.Width, d.Input.Channels)
	fmt.Fprintf(&b, " - output: (%dx%dx%d)\n", d.Output.Height, d.Output.Width, d.Output.Channels)
	fmt.Fprintf(&b, " - weights: (%dx%dx%dx%d)\n",
		d.Weights.ChannelsOut, d.Weights.Height, d.Weights.Width, d.Weights.ChannelsIn)
	fmt.Fprintf(&b, " - operations: %d MAC\n", d.MACs())
	return b.String()
}

func (d Description) activation() (config.Activation, error) {
	switch strings.ToLower(d.Activation) {
	case "relu", "":
		return config.ActivationReLU, nil
	case "identity", "none", "linear":
		return config.ActivationIdentity, nil
	}
	return 0, fmt.Errorf("layer: activation %q: %w", d.Activation, ErrUnsupportedActivation)
}

func (d Description) normMode() (config.NormMode, error) {
	switch d.NormBits {
	case 8:
		return config.NormMode8Bit, nil
	case 16:
		return config.NormMode16Bit, nil
	case 32:
		return config.NormMode32Bit, nil
	}
	return 0, &config.ValidationError{Field: "norm_bits", Value: d.NormBits, Err: ErrUnsupportedNormMode}
}

func (d Description) quantMode() config.QuantMode {
	switch d.OutputBits {
	case 32:
		return config.QuantMode32Bit
	case 16:
		return config.QuantMode16Bit
	}
	return config.QuantMode8Bit
}

func (d Description) checkShapes() error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"input.height", d.Input.Height},
		{"input.width", d.Input.Width},
		{"input.channels", d.Input.Channels},
		{"output.height", d.Output.Height},
		{"output.width", d.Output.Width},
		{"output.channels", d.Output.Channels},
		{"weights.height", d.Weights.Height},
		{"weights.width", d.Weights.Width},
		{"weights.channels_in", d.Weights.ChannelsIn},
		{"weights.channels_out", d.Weights.ChannelsOut},
	} {
		if f.value < 1 || f.value > maxExtent {
			return &config.ValidationError{Field: f.name, Value: f.value, Err: ErrInvalidShape}
		}
	}
	return nil
}

// checkPadding keeps every side within its 4-bit field and the bottom and
// right padding below the last input subtile.
func (d Description) checkPadding(v tiling.Variant, p ne16.Params) error {
	pad := d.Padding
	for _, f := range []struct {
		name  string
		value int
	}{
		{"padding.top", pad.Top},
		{"padding.right", pad.Right},
		{"padding.bottom", pad.Bottom},
		{"padding.left", pad.Left},
	} {
		if f.value < 0 || f.value > maxPadding {
			return &config.ValidationError{Field: f.name, Value: f.value, Err: ErrPaddingOutOfRange}
		}
	}
	extra := v.KernelExtra()
	if tiling.Remainder(d.Output.Height, p.FilterSize)+extra-pad.Bottom < 1 {
		return &config.ValidationError{Field: "padding.bottom", Value: pad.Bottom, Err: ErrPaddingOutOfRange}
	}
	if tiling.Remainder(d.Output.Width, p.FilterSize)+extra-pad.Right < 1 {
		return &config.ValidationError{Field: "padding.right", Value: pad.Right, Err: ErrPaddingOutOfRange}
	}
	return nil
}

// Buffers are the device addresses of the layer's tensors. The caller owns
// their sizes and lifetimes.
type Buffers struct {
	Input      uint32 `yaml:"input"`
	Output     uint32 `yaml:"output"`
	Weights    uint32 `yaml:"weights"`
	Scale      uint32 `yaml:"scale"`
	ScaleShift uint32 `yaml:"scale_shift"`
	ScaleBias  uint32 `yaml:"scale_bias"`
}

func (b Buffers) pointers() regfile.Pointers {
	return regfile.Pointers{
		Weights:    b.Weights,
		Infeat:     b.Input,
		Outfeat:    b.Output,
		Scale:      b.Scale,
		ScaleShift: b.ScaleShift,
		ScaleBias:  b.ScaleBias,
	}
}

// Build encodes d into a complete register image pointing at bufs.
func Build(d Description, bufs Buffers) (regfile.Image, error) {
	return BuildWith(d, bufs, ne16.DefaultParams())
}

// BuildWith is Build for an accelerator with parameters p.
func BuildWith(d Description, bufs Buffers, p ne16.Params) (regfile.Image, error) {
	if err := d.checkShapes(); err != nil {
		return regfile.Image{}, err
	}
	v, err := d.Variant()
	if err != nil {
		return regfile.Image{}, err
	}
	if err := d.checkPadding(v, p); err != nil {
		return regfile.Image{}, err
	}
	act, err := d.activation()
	if err != nil {
		return regfile.Image{}, err
	}
	nm, err := d.normMode()
	if err != nil {
		return regfile.Image{}, err
	}

	w := config.Weights{
		Height:       d.Weights.Height,
		Width:        d.Weights.Width,
		Depth:        d.Weights.ChannelsIn,
		Count:        d.Weights.ChannelsOut,
		Bitwidth:     d.WeightBits,
		OffsetFactor: d.WeightOffset,
		OffsetMode:   config.OffsetLayerWise,
	}
	in := config.Feature{Height: d.Input.Height, Width: d.Input.Width, Depth: d.Input.Channels, Bitwidth: d.InputBits}
	out := config.Feature{Height: d.Output.Height, Width: d.Output.Width, Depth: d.Output.Channels, Bitwidth: d.OutputBits}
	pad := config.Padding{
		Top:    d.Padding.Top,
		Right:  d.Padding.Right,
		Bottom: d.Padding.Bottom,
		Left:   d.Padding.Left,
		Value:  d.Padding.Value,
	}

	cfg, _, err := config.Conv(config.Config{}, v, w, in, out, pad, d.Stride, p)
	if err != nil {
		return regfile.Image{}, err
	}
	cfg, err = config.NormQuant(cfg,
		config.Norm{Mode: nm, FlagBias: d.NormBias, FlagShift: d.NormShift},
		config.Quant{ShiftAmount: d.OutShift, Mode: d.quantMode(), Function: act, FlagRounding: d.Rounding})
	if err != nil {
		return regfile.Image{}, err
	}
	cfg = config.PadInput(cfg, pad)

	return regfile.Image{Pointers: bufs.pointers(), Config: cfg}, nil
}
