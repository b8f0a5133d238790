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

// Command ne16ctl plans and runs NE16 convolution layers.
//
//	ne16ctl plan layer.yaml     print the register image of a layer
//	ne16ctl run layer.yaml      run the layer on the simulated device
//	ne16ctl info                print host and wait backend details
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/layer"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ne16ctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ne16ctl",
		Short:         "Plan and run NE16 convolution layers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPlanCmd(), newRunCmd(), newInfoCmd())
	return root
}

// bufferFlags registers the tensor address flags shared by plan and run.
func bufferFlags(fs *pflag.FlagSet, b *layer.Buffers) {
	fs.Uint32Var(&b.Input, "input-addr", 0x1000_0000, "input feature map address")
	fs.Uint32Var(&b.Output, "output-addr", 0x1001_0000, "output feature map address")
	fs.Uint32Var(&b.Weights, "weights-addr", 0x1002_0000, "packed weights address")
	fs.Uint32Var(&b.Scale, "scale-addr", 0x1003_0000, "normalization scale address")
	fs.Uint32Var(&b.ScaleShift, "scale-shift-addr", 0, "normalization shift address")
	fs.Uint32Var(&b.ScaleBias, "scale-bias-addr", 0, "normalization bias address")
}
