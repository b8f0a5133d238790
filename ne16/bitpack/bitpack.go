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

// Package bitpack packs two 16-bit values into one 32-bit register word.
//
// The accelerator stores paired dimensions (Ko/Ki, Ho/Wo, Hi/Wi) as a single
// word with the first value in the high half and the second in the low half.
// Values wider than HalfBits are truncated.
package bitpack

const (
	// HalfBits is the width of each half of a packed word.
	HalfBits = 16
	// HalfMask selects one half.
	HalfMask = 1<<HalfBits - 1
)

// Pack concatenates hi and lo into one word: hi in bits [31:16], lo in
// bits [15:0].
func Pack(hi, lo int) uint32 {
	return uint32(hi&HalfMask)<<HalfBits | uint32(lo&HalfMask)
}

// Unpack splits a packed word back into its high and low halves.
func Unpack(w uint32) (hi, lo int) {
	return int(w >> HalfBits), int(w & HalfMask)
}

// Pair is an unpacked (high, low) word.
type Pair struct {
	Hi, Lo int
}

// Word packs the pair.
func (p Pair) Word() uint32 {
	return Pack(p.Hi, p.Lo)
}

// PairOf unpacks w into a Pair.
func PairOf(w uint32) Pair {
	hi, lo := Unpack(w)
	return Pair{Hi: hi, Lo: lo}
}
