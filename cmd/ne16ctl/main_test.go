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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const layerYAML = `
name: conv1
input: {height: 34, width: 34, channels: 16}
output: {height: 32, width: 32, channels: 32}
weights: {height: 3, width: 3, channels_in: 16, channels_out: 32}
out_shift: 8
`

func writeLayer(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "layer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestPlan(t *testing.T) {
	out, err := execute(t, "plan", writeLayer(t, layerYAML), "--weights-addr", "0x2000")
	require.NoError(t, err)
	require.Contains(t, out, "Layer conv1:")
	require.Contains(t, out, "Variant: 3x3\n")
	require.Regexp(t, `0x20\s+weights_ptr\s+0x00002000`, out)
	require.Regexp(t, `conf0\s+0x0008a017`, out)
	require.Equal(t, 24, strings.Count(out, "\n0x"))
	// Names pad to the longest, weight_offset_factor; values are eight digits.
	require.Contains(t, out, fmt.Sprintf("\n0x7c  %-20s  0x0008a017\n", "conf0"))
	require.Contains(t, out, fmt.Sprintf("\n0x20  %-20s  0x00002000\n", "weights_ptr"))
}

func TestPlanNonZero(t *testing.T) {
	out, err := execute(t, "plan", writeLayer(t, layerYAML), "--non-zero")
	require.NoError(t, err)
	require.NotContains(t, out, "scale_bias_ptr")
	require.Contains(t, out, "conf0")
}

func TestPlanDepthwiseVariant(t *testing.T) {
	dw := strings.Replace(layerYAML, "channels_in: 16, channels_out: 32", "channels_in: 1, channels_out: 16", 1)
	dw = strings.Replace(dw, "output: {height: 32, width: 32, channels: 32}", "output: {height: 32, width: 32, channels: 16}", 1)
	out, err := execute(t, "plan", writeLayer(t, dw))
	require.NoError(t, err)
	require.Contains(t, out, "Variant: 3x3 depthwise\n")
}

func TestPlanRejectsInvalidLayer(t *testing.T) {
	_, err := execute(t, "plan", writeLayer(t, layerYAML+"stride: 3\n"))
	require.ErrorContains(t, err, "unsupported stride")
}

func TestRun(t *testing.T) {
	for _, wait := range []string{"spin", "event"} {
		t.Run(wait, func(t *testing.T) {
			out, err := execute(t, "run", writeLayer(t, layerYAML), "-n", "3", "--latency", "1us", "--wait", wait, "--timeout", "0")
			require.NoError(t, err)
			require.Equal(t, 3, strings.Count(out, ": Done\n"))
			require.Contains(t, out, "14155776 MAC in")
		})
	}
}

func TestRunFlags(t *testing.T) {
	path := writeLayer(t, layerYAML)

	_, err := execute(t, "run", path, "--wait", "bogus", "--timeout", "0")
	require.ErrorContains(t, err, `unknown wait backend "bogus"`)

	_, err = execute(t, "run", path, "-n", "0")
	require.ErrorContains(t, err, "--jobs")

	_, err = execute(t, "run")
	require.Error(t, err)
}

func TestInfo(t *testing.T) {
	out, err := execute(t, "info")
	require.NoError(t, err)
	require.Contains(t, out, "GOARCH:")
	require.Contains(t, out, "Wait backend:")
}
