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

package main

import (
	"fmt"
	"io"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/layer"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
)

type planOptions struct {
	bufs    layer.Buffers
	nonZero bool
}

func newPlanCmd() *cobra.Command {
	var opts planOptions
	cmd := &cobra.Command{
		Use:   "plan LAYER",
		Short: "Print the register image of a layer description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := layer.Load(args[0])
			if err != nil {
				return err
			}
			img, err := layer.Build(d, opts.bufs)
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), d, img, opts.nonZero)
		},
	}
	bufferFlags(cmd.Flags(), &opts.bufs)
	cmd.Flags().BoolVar(&opts.nonZero, "non-zero", false, "only print non-zero words")
	return cmd
}

// register is one line of a register dump.
type register struct {
	Offset uint32
	Name   string
	Value  uint32
}

func registers(img regfile.Image) []register {
	words := img.Words()
	return lo.Map(words[:], func(v uint32, i int) register {
		return register{Offset: ne16.ContextOffset(i), Name: regfile.WordName(i), Value: v}
	})
}

func writePlan(w io.Writer, d layer.Description, img regfile.Image, nonZero bool) error {
	v, err := d.Variant()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%sVariant: %s\n\n", d, v); err != nil {
		return err
	}
	regs := registers(img)
	if nonZero {
		regs = lo.Filter(regs, func(r register, _ int) bool { return r.Value != 0 })
	}
	width := lo.Max(lo.Map(regs, func(r register, _ int) int { return len(r.Name) }))
	for _, r := range regs {
		if _, err := fmt.Fprintf(w, "0x%02x  %-*s  0x%08x\n", r.Offset, width, r.Name, r.Value); err != nil {
			return err
		}
	}
	return nil
}
