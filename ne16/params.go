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

// Params describes the fixed throughput of the accelerator datapath.
//
// All subtile counts and strides are derived from these values:
//   - InputChannelThroughput: input channels consumed per subtile (Ki)
//   - OutputChannelThroughput: output channels produced per subtile (Ko)
//   - FilterSize: output rows/columns per spatial subtile (Ho, Wo)
//   - FilterBufferSize: side of the input buffer feeding one spatial subtile
//   - WeightD0StrideMode8/Mode16: weight d0 stride for 8- and 16-bit input
type Params struct {
	InputChannelThroughput  int
	OutputChannelThroughput int
	FilterSize              int
	FilterBufferSize        int
	WeightD0StrideMode8     int
	WeightD0StrideMode16    int
}

// DefaultParams returns the parameters of the NE16 instance the driver
// targets.
func DefaultParams() Params {
	return Params{
		InputChannelThroughput:  16,
		OutputChannelThroughput: 16,
		FilterSize:              3,
		FilterBufferSize:        5,
		WeightD0StrideMode8:     16 / 8,
		WeightD0StrideMode16:    16 / 16,
	}
}

// KernelArea is the number of taps of the 3x3 kernel.
func (p Params) KernelArea() int {
	return p.FilterSize * p.FilterSize
}

// WeightD0Stride returns the weight d0 stride for the given input mode.
func (p Params) WeightD0Stride(mode16 bool) int {
	if mode16 {
		return p.WeightD0StrideMode16
	}
	return p.WeightD0StrideMode8
}

// OutputD0Stride is the fixed output d0 stride in bytes.
const OutputD0Stride = 32
