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

package config

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/tiling"
)

func baseLayer() (Weights, Feature, Feature) {
	w := Weights{Height: 3, Width: 3, Depth: 16, Count: 32, Bitwidth: 8, OffsetMode: OffsetLayerWise}
	in := Feature{Height: 34, Width: 34, Depth: 16, Bitwidth: 8}
	out := Feature{Height: 32, Width: 32, Depth: 32, Bitwidth: 8}
	return w, in, out
}

// seeded returns a configuration with every field set so that an untouched
// result is distinguishable from a zero one.
func seeded() Config {
	return Config{
		InputStride:        tiling.Stride{D0: 1, D1: 2, D2: 3},
		Subtile:            tiling.Subtile{NumberKoKi: 7},
		Padding:            0xAA,
		WeightOffsetFactor: 5,
		FilterMask:         0x01020304,
		Conf0:              ne16.FlagLinearMode,
	}
}

func TestConvWeightBitwidth(t *testing.T) {
	p := ne16.DefaultParams()
	for bits := 0; bits <= 10; bits++ {
		w, in, out := baseLayer()
		w.Bitwidth = bits
		before := seeded()
		got, _, err := Conv(before, tiling.Conv3x3, w, in, out, Padding{}, 1, p)
		if bits >= 2 && bits <= 8 {
			if err != nil {
				t.Errorf("bitwidth %d: unexpected error %v", bits, err)
				continue
			}
			if got.Conf0&ne16.MaskWeightBits != uint32(bits-1) {
				t.Errorf("bitwidth %d: conf0 precision = %d, want %d", bits, got.Conf0&ne16.MaskWeightBits, bits-1)
			}
			continue
		}
		if !errors.Is(err, ErrWeightBitwidthOutOfRange) {
			t.Errorf("bitwidth %d: err = %v, want ErrWeightBitwidthOutOfRange", bits, err)
		}
		if diff := cmp.Diff(before, got); diff != "" {
			t.Errorf("bitwidth %d: config modified on error (-want +got):\n%s", bits, diff)
		}
	}
}

func TestConvValidationOrder(t *testing.T) {
	p := ne16.DefaultParams()
	tests := []struct {
		name   string
		mutate func(w *Weights, in, out *Feature, stride *int)
		want   error
	}{
		{"offset mode", func(w *Weights, in, out *Feature, s *int) { w.OffsetMode = OffsetSymmetric }, ErrUnsupportedOffsetMode},
		{"input bitwidth", func(w *Weights, in, out *Feature, s *int) { in.Bitwidth = 32 }, ErrUnsupportedFeatureBitwidth},
		{"output bitwidth", func(w *Weights, in, out *Feature, s *int) { out.Bitwidth = 16 }, ErrUnsupportedFeatureBitwidth},
		{"stride", func(w *Weights, in, out *Feature, s *int) { *s = 3 }, ErrUnsupportedStride},
		{"bitwidth before stride", func(w *Weights, in, out *Feature, s *int) { w.Bitwidth = 9; *s = 3 }, ErrWeightBitwidthOutOfRange},
		{"offset before feature", func(w *Weights, in, out *Feature, s *int) { w.OffsetMode = OffsetSymmetric; in.Bitwidth = 4 }, ErrUnsupportedOffsetMode},
		{"feature before stride", func(w *Weights, in, out *Feature, s *int) { out.Bitwidth = 4; *s = 0 }, ErrUnsupportedFeatureBitwidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, in, out := baseLayer()
			stride := 1
			tt.mutate(&w, &in, &out, &stride)
			before := seeded()
			got, bc, err := Conv(before, tiling.Conv3x3, w, in, out, Padding{}, stride, p)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err %T is not a *ValidationError", err)
			}
			if got != before {
				t.Errorf("config modified on error: %+v", got)
			}
			if bc != (BuildContext{}) {
				t.Errorf("build context not empty on error: %+v", bc)
			}
		})
	}
}

func TestConvModeWord(t *testing.T) {
	p := ne16.DefaultParams()
	tests := []struct {
		v       tiling.Variant
		stride  int
		inBits  int
		want    uint32
		wantNot uint32
	}{
		{tiling.Conv1x1, 1, 8, ne16.FlagMode1x1, ne16.FlagMode16 | ne16.FlagStride2x2},
		{tiling.Conv1x1, 2, 8, ne16.FlagMode1x1, ne16.FlagStride2x2},
		{tiling.Conv3x3, 1, 8, ne16.FlagMode3x3, ne16.MaskMode | ne16.FlagStride2x2},
		{tiling.Conv3x3, 2, 16, ne16.FlagStride2x2 | ne16.FlagMode16, ne16.MaskMode},
		{tiling.Conv3x3DW, 2, 8, ne16.FlagMode3x3DW, ne16.FlagStride2x2},
	}
	for _, tt := range tests {
		w, in, out := baseLayer()
		in.Bitwidth = tt.inBits
		got, _, err := Conv(Config{}, tt.v, w, in, out, Padding{}, tt.stride, p)
		if err != nil {
			t.Fatalf("%v stride %d: %v", tt.v, tt.stride, err)
		}
		if got.Conf0&tt.want != tt.want {
			t.Errorf("%v stride %d: conf0 %#x missing %#x", tt.v, tt.stride, got.Conf0, tt.want)
		}
		if got.Conf0&tt.wantNot != 0 && tt.want&tt.wantNot == 0 {
			t.Errorf("%v stride %d: conf0 %#x has unexpected bits %#x", tt.v, tt.stride, got.Conf0, got.Conf0&tt.wantNot)
		}
		if got.Conf0&ne16.FlagWeightOffsetLayerWise == 0 {
			t.Errorf("%v: layer-wise offset flag missing", tt.v)
		}
		if gotMode := got.Conf0 & ne16.MaskMode; gotMode != variantFlag(tt.v) {
			t.Errorf("%v: mode bits = %#x, want %#x", tt.v, gotMode, variantFlag(tt.v))
		}
	}
}

func TestConvOrsIntoConf0(t *testing.T) {
	w, in, out := baseLayer()
	cfg := Config{Conf0: ne16.FlagLinearMode}
	got, _, err := Conv(cfg, tiling.Conv3x3, w, in, out, Padding{}, 1, ne16.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if got.Conf0&ne16.FlagLinearMode == 0 {
		t.Errorf("existing conf0 bits cleared: %#x", got.Conf0)
	}
}

func TestConvEndToEnd3x3(t *testing.T) {
	w, in, out := baseLayer()
	w.OffsetFactor = -128
	got, bc, err := Conv(Config{}, tiling.Conv3x3, w, in, out, Padding{}, 1, ne16.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	wantCtx := BuildContext{
		Variant: tiling.Conv3x3,
		Params:  ne16.DefaultParams(),
		Scaling: tiling.Scaling{WeightBits: 8, WeightD0Stride: 2, OutputBytes: 1},
	}
	if diff := cmp.Diff(wantCtx, bc); diff != "" {
		t.Errorf("BuildContext mismatch (-want +got):\n%s", diff)
	}

	c := got.Subtile.Counts()
	if c.NumKo != 2 {
		t.Errorf("NumKo = %d, want 2", c.NumKo)
	}
	if c.RemHi != c.RemHo+2 || c.RemWi != c.RemWo+2 {
		t.Errorf("RemHi/RemWi = %d/%d, want %d/%d", c.RemHi, c.RemWi, c.RemHo+2, c.RemWo+2)
	}
	if got.WeightsStride.D0 != 9*2 || got.WeightsStride.D1 != 9*2*8*uint32(c.NumKi) {
		t.Errorf("WeightsStride = %+v", got.WeightsStride)
	}
	if got.WeightOffsetFactor != uint32(0xFFFFFF80) {
		t.Errorf("WeightOffsetFactor = %#x, want 0xffffff80", got.WeightOffsetFactor)
	}
}

func TestUpdateDimsKeepsFlags(t *testing.T) {
	w, in, out := baseLayer()
	cfg, bc, err := Conv(Config{}, tiling.Conv3x3, w, in, out, Padding{}, 2, ne16.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	g := tiling.Geometry{OutHeight: 8, OutWidth: 8, InWidth: 18, OutChannels: 16, InChannels: 16, InRowStride: 18, OutRowStride: 8}
	next := UpdateDims(cfg, bc, g)
	if next.Conf0 != cfg.Conf0 || next.WeightOffsetFactor != cfg.WeightOffsetFactor {
		t.Errorf("UpdateDims changed non-geometry fields")
	}
	if want := uint32(16*1*8) >> 1; next.OutputStride.D2 != want {
		t.Errorf("OutputStride.D2 = %d, want %d", next.OutputStride.D2, want)
	}
}

func TestSelectVariant(t *testing.T) {
	tests := []struct {
		k    int
		dw   bool
		want tiling.Variant
		ok   bool
	}{
		{1, false, tiling.Conv1x1, true},
		{3, false, tiling.Conv3x3, true},
		{3, true, tiling.Conv3x3DW, true},
		{1, true, 0, false},
		{5, false, 0, false},
		{5, true, 0, false},
	}
	for _, tt := range tests {
		got, err := SelectVariant(tt.k, tt.dw)
		if tt.ok {
			if err != nil || got != tt.want {
				t.Errorf("SelectVariant(%d, %v) = %v, %v, want %v", tt.k, tt.dw, got, err, tt.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnsupportedVariant) {
			t.Errorf("SelectVariant(%d, %v) err = %v, want ErrUnsupportedVariant", tt.k, tt.dw, err)
		}
	}
}

func TestNormQuant(t *testing.T) {
	norm := Norm{Mode: NormMode32Bit, FlagBias: true, FlagShift: true}
	quant := Quant{ShiftAmount: 31, Mode: QuantMode8Bit, Function: ActivationIdentity, FlagRounding: true}
	got, err := NormQuant(Config{Conf0: ne16.FlagMode1x1}, norm, quant)
	if err != nil {
		t.Fatal(err)
	}
	want := uint32(ne16.FlagMode1x1 | ne16.FlagNormQuant | ne16.FlagQuantFunctionIdentity |
		ne16.QuantMode8Bit | 31<<16 | ne16.FlagRounding | ne16.NormMode32Bit |
		ne16.FlagNormBias | ne16.FlagNormShift)
	if got.Conf0 != want {
		t.Errorf("Conf0 = %#08x, want %#08x", got.Conf0, want)
	}
	if got.Conf0&ne16.MaskQuantShift>>ne16.ShiftQuantShift != 31 {
		t.Errorf("shift field = %d, want 31", got.Conf0&ne16.MaskQuantShift>>ne16.ShiftQuantShift)
	}
}

func TestNormQuantRejects(t *testing.T) {
	tests := []struct {
		name  string
		quant Quant
		want  error
	}{
		{"shift 32", Quant{ShiftAmount: 32, Mode: QuantMode8Bit}, ErrShiftOutOfRange},
		{"negative shift", Quant{ShiftAmount: -1, Mode: QuantMode8Bit}, ErrShiftOutOfRange},
		{"16 bit", Quant{ShiftAmount: 8, Mode: QuantMode16Bit}, ErrUnsupportedQuantMode},
		{"shift checked first", Quant{ShiftAmount: 40, Mode: QuantMode16Bit}, ErrShiftOutOfRange},
	}
	for _, tt := range tests {
		before := seeded()
		got, err := NormQuant(before, Norm{}, tt.quant)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
		}
		if got != before {
			t.Errorf("%s: config modified on error", tt.name)
		}
	}
}

func TestNormQuantReLUAndMode32(t *testing.T) {
	got, err := NormQuant(Config{}, Norm{Mode: NormMode8Bit}, Quant{ShiftAmount: 0, Mode: QuantMode32Bit, Function: ActivationReLU})
	if err != nil {
		t.Fatal(err)
	}
	if got.Conf0 != ne16.FlagNormQuant|ne16.QuantMode32Bit {
		t.Errorf("Conf0 = %#x", got.Conf0)
	}
}

func TestPadInput(t *testing.T) {
	got := PadInput(Config{}, Padding{Top: 1, Right: 2, Bottom: 3, Left: 4, Value: 0x80})
	if want := uint32(0x12340080); got.Padding != want {
		t.Errorf("Padding = %#08x, want %#08x", got.Padding, want)
	}
}

func TestMaskFilter(t *testing.T) {
	got := MaskFilter(Config{}, 1, 2, 3, 4)
	if want := uint32(0x01020304); got.FilterMask != want {
		t.Errorf("FilterMask = %#08x, want %#08x", got.FilterMask, want)
	}
}
