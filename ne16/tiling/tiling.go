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

// Package tiling decomposes a convolution's tensor geometry into the
// accelerator's native subtiles.
//
// A tensor is partitioned into a grid of subtiles sized to the hardware
// throughput: output channels (Ko), input channels (Ki) and output
// rows/columns (Ho, Wo). For each dimension the accelerator takes the number
// of subtiles and the extent of the last one. When the dimension divides
// evenly the last subtile is a full one, so the remainder is the throughput
// itself and never zero.
//
// Compute is pure and has no error path; callers validate the geometry
// first.
package tiling

import (
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/bitpack"
)

// Variant is a convolution shape the accelerator supports natively.
type Variant int

const (
	Conv3x3 Variant = iota
	Conv3x3DW
	Conv1x1
)

func (v Variant) String() string {
	switch v {
	case Conv1x1:
		return "1x1"
	case Conv3x3:
		return "3x3"
	case Conv3x3DW:
		return "3x3 depthwise"
	default:
		return "unknown"
	}
}

// KernelSize returns the kernel side length.
func (v Variant) KernelSize() int {
	if v == Conv1x1 {
		return 1
	}
	return 3
}

// KernelExtra is the number of input rows/columns a kernel reads beyond
// one output row/column.
func (v Variant) KernelExtra() int {
	return v.KernelSize() - 1
}

// Depthwise reports whether v is the depthwise variant.
func (v Variant) Depthwise() bool {
	return v == Conv3x3DW
}

// Border holds per-side padding counts.
type Border struct {
	Top, Right, Bottom, Left int
}

// Geometry is the logical layer geometry the subtiles are derived from.
// Row strides are in elements and equal the widths for contiguous buffers.
type Geometry struct {
	OutHeight   int
	OutWidth    int
	InWidth     int
	OutChannels int
	InChannels  int

	InRowStride  int
	OutRowStride int

	Pad Border
}

// Scaling carries the encoding-dependent factors of the stride computation.
// It is produced by the configuration step and never derived here.
type Scaling struct {
	WeightBits     int  // weight precision in bits (qw)
	WeightD0Stride int  // weight d0 stride for the input mode
	OutputBytes    int  // output feature width in bytes
	StrideShift    uint // 1 for stride 2, 0 otherwise
}

// Stride is one d0/d1/d2 byte-stride triple of the address generators.
type Stride struct {
	D0, D1, D2 uint32
}

// Subtile holds the packed subtile counts and remainders.
type Subtile struct {
	NumberKoKi    uint32
	NumberHoWo    uint32
	RemainderKoKi uint32
	RemainderHoWo uint32
	RemainderHiWi uint32
}

// Dims is the full output of Compute.
type Dims struct {
	Subtile Subtile
	Input   Stride
	Output  Stride
	Weights Stride
}

// Counts is the unpacked view of a Subtile.
type Counts struct {
	NumKo, NumKi, NumHo, NumWo int
	RemKo, RemKi, RemHo, RemWo int
	RemHi, RemWi               int
}

// Counts unpacks s.
func (s Subtile) Counts() Counts {
	var c Counts
	c.NumKo, c.NumKi = bitpack.Unpack(s.NumberKoKi)
	c.NumHo, c.NumWo = bitpack.Unpack(s.NumberHoWo)
	c.RemKo, c.RemKi = bitpack.Unpack(s.RemainderKoKi)
	c.RemHo, c.RemWo = bitpack.Unpack(s.RemainderHoWo)
	c.RemHi, c.RemWi = bitpack.Unpack(s.RemainderHiWi)
	return c
}

// Tiles returns the number of subtiles of size t covering d: ceil(d/t).
func Tiles(d, t int) int {
	return (d-1)/t + 1
}

// Remainder returns the extent of the last subtile of size t covering d.
// An exact multiple yields t, not 0.
func Remainder(d, t int) int {
	return (d-1)%t + 1
}

// Compute derives the subtile descriptor and the input, output and weight
// strides for variant v.
func Compute(v Variant, g Geometry, s Scaling, p ne16.Params) Dims {
	c := counts(v, g, p)

	d := Dims{
		Subtile: Subtile{
			NumberKoKi:    bitpack.Pack(c.NumKo, c.NumKi),
			NumberHoWo:    bitpack.Pack(c.NumHo, c.NumWo),
			RemainderKoKi: bitpack.Pack(c.RemKo, c.RemKi),
			RemainderHoWo: bitpack.Pack(c.RemHo, c.RemWo),
			RemainderHiWi: bitpack.Pack(c.RemHi, c.RemWi),
		},
	}

	// Depthwise reads one input channel per output channel.
	channels := g.InChannels
	if v.Depthwise() {
		channels = g.OutChannels
	}
	d.Input = Stride{
		D0: uint32(channels),
		D1: uint32(channels * g.InRowStride),
	}
	if !v.Depthwise() {
		d.Input.D2 = uint32(channels * p.FilterBufferSize * p.FilterBufferSize)
	}

	d.Output = Stride{
		D0: ne16.OutputD0Stride,
		D1: uint32(g.OutChannels*s.OutputBytes) >> s.StrideShift,
		D2: uint32(g.OutChannels*s.OutputBytes*g.OutRowStride) >> s.StrideShift,
	}

	switch v {
	case Conv1x1:
		d.Weights = Stride{
			D0: uint32(s.WeightD0Stride * s.WeightBits),
			D1: uint32(s.WeightD0Stride * s.WeightBits * c.NumKi),
		}
	case Conv3x3:
		area := p.KernelArea()
		d.Weights = Stride{
			D0: uint32(area * s.WeightD0Stride),
			D1: uint32(area * s.WeightD0Stride * s.WeightBits * c.NumKi),
		}
	case Conv3x3DW:
		// No repetition across input-channel subtiles.
		d.Weights = Stride{
			D0: uint32(p.KernelArea() * s.WeightD0Stride),
		}
	}

	return d
}

func counts(v Variant, g Geometry, p ne16.Params) Counts {
	var c Counts
	if v.Depthwise() {
		// Output channels are tiled by the input-channel throughput and the
		// input tiling mirrors it.
		c.NumKo = Tiles(g.OutChannels, p.InputChannelThroughput)
		c.RemKo = Remainder(g.OutChannels, p.InputChannelThroughput)
		c.NumKi, c.RemKi = c.NumKo, c.RemKo
	} else {
		c.NumKo = Tiles(g.OutChannels, p.OutputChannelThroughput)
		c.RemKo = Remainder(g.OutChannels, p.OutputChannelThroughput)
		c.NumKi = Tiles(g.InChannels, p.InputChannelThroughput)
		c.RemKi = Remainder(g.InChannels, p.InputChannelThroughput)
	}

	c.NumHo = Tiles(g.OutHeight, p.FilterSize)
	c.NumWo = Tiles(g.OutWidth, p.FilterSize)
	c.RemHo = Remainder(g.OutHeight, p.FilterSize)
	c.RemWo = Remainder(g.OutWidth, p.FilterSize)

	extra := v.KernelExtra()
	c.RemHi = c.RemHo + extra - g.Pad.Bottom
	c.RemWi = c.RemWo + extra - g.Pad.Right
	return c
}
