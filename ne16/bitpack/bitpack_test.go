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

package bitpack

import "testing"

func TestPack(t *testing.T) {
	tests := []struct {
		hi, lo int
		want   uint32
	}{
		{0, 0, 0},
		{1, 0, 0x00010000},
		{0, 1, 0x00000001},
		{2, 1, 0x00020001},
		{0xFFFF, 0xFFFF, 0xFFFFFFFF},
		{0x12345, 0x6789A, 0x2345789A}, // truncated to 16 bits
	}
	for _, tt := range tests {
		if got := Pack(tt.hi, tt.lo); got != tt.want {
			t.Errorf("Pack(%#x, %#x) = %#08x, want %#08x", tt.hi, tt.lo, got, tt.want)
		}
	}
}

func TestUnpackInvertsPack(t *testing.T) {
	for _, hi := range []int{0, 1, 16, 32, 255, 0xFFFF} {
		for _, lo := range []int{0, 1, 3, 34, 0xFFFF} {
			gotHi, gotLo := Unpack(Pack(hi, lo))
			if gotHi != hi || gotLo != lo {
				t.Errorf("Unpack(Pack(%d, %d)) = (%d, %d)", hi, lo, gotHi, gotLo)
			}
		}
	}
}

func TestPair(t *testing.T) {
	p := Pair{Hi: 11, Lo: 2}
	if got := PairOf(p.Word()); got != p {
		t.Errorf("PairOf(Word()) = %+v, want %+v", got, p)
	}
}
