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

package ne16

// conf0 flag bits.
const (
	FlagNormBias              = 1 << 25
	FlagNormShift             = 1 << 24
	FlagQuantFunctionIdentity = 1 << 23
	FlagQuantFunctionReLU     = 0 << 23
	QuantMode8Bit             = 0 << 21
	QuantMode16Bit            = 1 << 21
	QuantMode32Bit            = 2 << 21
	FlagWeightOffsetSymmetric = 0 << 15
	FlagWeightOffsetLayerWise = 1 << 15
	FlagStreamIn              = 1 << 14
	NormMode8Bit              = 0 << 12
	NormMode16Bit             = 1 << 12
	NormMode32Bit             = 2 << 12
	FlagRounding              = 1 << 11
	FlagActivationPrefetch    = 1 << 10
	FlagUseWMem               = 1 << 9
	FlagStride2x2             = 1 << 8
	FlagLinearMode            = 1 << 7
	FlagMode3x3               = 0 << 5
	FlagMode3x3DW             = 1 << 5
	FlagMode1x1               = 2 << 5
	FlagNormQuant             = 1 << 4
	FlagModeBasic             = 0 << 3
	FlagMode16                = 1 << 3
)

// Bit positions of the single-bit and multi-bit conf0 fields.
const (
	ShiftNormBias   = 25
	ShiftNormShift  = 24
	ShiftQuantShift = 16
	ShiftRounding   = 11
	ShiftMode       = 5

	MaskQuantShift = 0x1F << ShiftQuantShift
	MaskMode       = 0x3 << ShiftMode
	MaskWeightBits = 0x7
	MaskQuantMode  = 0x3 << 21
	MaskNormMode   = 0x3 << 12
)

// MaxQuantShift is the largest shift the 5-bit field holds.
const MaxQuantShift = 31
