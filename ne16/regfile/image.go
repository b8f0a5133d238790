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

// Package regfile is the typed boundary between the driver and the
// accelerator's memory-mapped registers.
//
// An Image is the complete job context as a value object. It is serialized
// word by word, in a fixed field order, to an address-indexed RegisterFile.
// Memory backs a RegisterFile with a map for tests and simulation; MMIO maps
// the physical register window of real hardware.
package regfile

import (
	"fmt"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/config"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/tiling"
)

// RegisterFile is a 32-bit word addressed register space. Offsets are byte
// offsets and multiples of 4.
type RegisterFile interface {
	Read32(off uint32) uint32
	Write32(off, v uint32)
}

// Pointers holds the raw buffer addresses of a job. Sizes and lifetimes are
// the caller's responsibility.
type Pointers struct {
	Weights    uint32
	Infeat     uint32
	Outfeat    uint32
	Scale      uint32
	ScaleShift uint32
	ScaleBias  uint32
}

// Image is the full job context written to the accelerator.
type Image struct {
	Pointers
	config.Config
}

// Words serializes img in register order.
func (img Image) Words() [ne16.ImageWords]uint32 {
	var w [ne16.ImageWords]uint32
	w[ne16.WordWeightsPtr] = img.Pointers.Weights
	w[ne16.WordInfeatPtr] = img.Infeat
	w[ne16.WordOutfeatPtr] = img.Outfeat
	w[ne16.WordScalePtr] = img.Scale
	w[ne16.WordScaleShiftPtr] = img.ScaleShift
	w[ne16.WordScaleBiasPtr] = img.ScaleBias

	putStride(w[ne16.WordInfeatD0Stride:], img.InputStride)
	putStride(w[ne16.WordOutfeatD0Stride:], img.OutputStride)
	putStride(w[ne16.WordWeightsD0Stride:], img.WeightsStride)

	w[ne16.WordSubtileRemainder0] = img.Subtile.RemainderKoKi
	w[ne16.WordSubtileRemainder1] = img.Subtile.RemainderHoWo
	w[ne16.WordSubtileRemainder2] = img.Subtile.RemainderHiWi
	w[ne16.WordSubtileNumber0] = img.Subtile.NumberKoKi
	w[ne16.WordSubtileNumber1] = img.Subtile.NumberHoWo

	w[ne16.WordPadding] = img.Padding
	w[ne16.WordWeightOffsetFactor] = img.WeightOffsetFactor
	w[ne16.WordFilterMask] = img.FilterMask
	w[ne16.WordConf0] = img.Conf0
	return w
}

// FromWords decodes a register image.
func FromWords(w [ne16.ImageWords]uint32) Image {
	var img Image
	img.Pointers = Pointers{
		Weights:    w[ne16.WordWeightsPtr],
		Infeat:     w[ne16.WordInfeatPtr],
		Outfeat:    w[ne16.WordOutfeatPtr],
		Scale:      w[ne16.WordScalePtr],
		ScaleShift: w[ne16.WordScaleShiftPtr],
		ScaleBias:  w[ne16.WordScaleBiasPtr],
	}
	img.InputStride = getStride(w[ne16.WordInfeatD0Stride:])
	img.OutputStride = getStride(w[ne16.WordOutfeatD0Stride:])
	img.WeightsStride = getStride(w[ne16.WordWeightsD0Stride:])
	img.Subtile = tiling.Subtile{
		RemainderKoKi: w[ne16.WordSubtileRemainder0],
		RemainderHoWo: w[ne16.WordSubtileRemainder1],
		RemainderHiWi: w[ne16.WordSubtileRemainder2],
		NumberKoKi:    w[ne16.WordSubtileNumber0],
		NumberHoWo:    w[ne16.WordSubtileNumber1],
	}
	img.Padding = w[ne16.WordPadding]
	img.WeightOffsetFactor = w[ne16.WordWeightOffsetFactor]
	img.FilterMask = w[ne16.WordFilterMask]
	img.Conf0 = w[ne16.WordConf0]
	return img
}

func putStride(dst []uint32, s tiling.Stride) {
	dst[0], dst[1], dst[2] = s.D0, s.D1, s.D2
}

func getStride(src []uint32) tiling.Stride {
	return tiling.Stride{D0: src[0], D1: src[1], D2: src[2]}
}

// Flush writes the whole image to the job-context registers of rf.
func Flush(rf RegisterFile, img Image) {
	words := img.Words()
	for i, v := range words {
		rf.Write32(ne16.ContextOffset(i), v)
	}
}

// FlushPointers writes only the buffer pointers of img.
func FlushPointers(rf RegisterFile, img Image) {
	words := img.Words()
	for i := range ne16.PointerWords {
		rf.Write32(ne16.ContextOffset(i), words[i])
	}
}

// Snapshot reads the job-context registers back from rf.
func Snapshot(rf RegisterFile) Image {
	var words [ne16.ImageWords]uint32
	for i := range words {
		words[i] = rf.Read32(ne16.ContextOffset(i))
	}
	return FromWords(words)
}

// WordName returns the register name of job-context word i.
func WordName(i int) string {
	if i < 0 || i >= len(wordNames) {
		return fmt.Sprintf("word%d", i)
	}
	return wordNames[i]
}

var wordNames = [ne16.ImageWords]string{
	"weights_ptr",
	"infeat_ptr",
	"outfeat_ptr",
	"scale_ptr",
	"scale_shift_ptr",
	"scale_bias_ptr",
	"infeat_d0_stride",
	"infeat_d1_stride",
	"infeat_d2_stride",
	"outfeat_d0_stride",
	"outfeat_d1_stride",
	"outfeat_d2_stride",
	"weights_d0_stride",
	"weights_d1_stride",
	"weights_d2_stride",
	"subtile_remainder_0",
	"subtile_remainder_1",
	"subtile_remainder_2",
	"subtile_number_0",
	"subtile_number_1",
	"padding",
	"weight_offset_factor",
	"filter_masking",
	"conf0",
}
