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

// Package hostinfo reports the host the driver runs on: platform, CPU count,
// the CPU features detected by golang.org/x/sys/cpu and the selected wait
// backend.
package hostinfo

import (
	"fmt"
	"io"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/cpu"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
)

// Feature is one detected CPU feature.
type Feature struct {
	Name    string
	Present bool
	Note    string
}

// Report is a snapshot of the host.
type Report struct {
	GOOS        string
	GOARCH      string
	NumCPU      int
	CacheLine   int
	WaitMode    ne16.WaitMode
	WaitTimeout time.Duration
	Features    []Feature
}

// Collect gathers the report for the running process.
func Collect() Report {
	return Report{
		GOOS:        runtime.GOOS,
		GOARCH:      runtime.GOARCH,
		NumCPU:      runtime.NumCPU(),
		CacheLine:   cacheLineSize(),
		WaitMode:    ne16.CurrentWaitMode(),
		WaitTimeout: ne16.CurrentWaitTimeout(),
		Features:    features(runtime.GOARCH),
	}
}

func features(arch string) []Feature {
	switch arch {
	case "arm64":
		return []Feature{
			{"ASIMD", cpu.ARM64.HasASIMD, "NEON baseline"},
			{"FP", cpu.ARM64.HasFP, ""},
			{"ATOMICS", cpu.ARM64.HasATOMICS, "Large System Extensions"},
			{"CRC32", cpu.ARM64.HasCRC32, ""},
			{"DCPOP", cpu.ARM64.HasDCPOP, ""},
		}
	case "amd64":
		return []Feature{
			{"SSE2", cpu.X86.HasSSE2, ""},
			{"SSE42", cpu.X86.HasSSE42, ""},
			{"AVX2", cpu.X86.HasAVX2, ""},
			{"AVX512F", cpu.X86.HasAVX512F, ""},
		}
	case "riscv64":
		return []Feature{
			{"FastMisaligned", cpu.RISCV64.HasFastMisaligned, ""},
			{"C", cpu.RISCV64.HasC, "compressed instructions"},
			{"V", cpu.RISCV64.HasV, "vector extension"},
		}
	}
	return nil
}

func cacheLineSize() int {
	return int(unsafe.Sizeof(cpu.CacheLinePad{}))
}

// Write prints r in the layout of the info command.
func Write(w io.Writer, r Report) error {
	_, err := fmt.Fprintf(w, "GOOS: %s\nGOARCH: %s\nNumCPU: %d\nCache line: %d bytes\n\n",
		r.GOOS, r.GOARCH, r.NumCPU, r.CacheLine)
	if err != nil {
		return err
	}
	timeout := "none"
	if r.WaitTimeout > 0 {
		timeout = r.WaitTimeout.String()
	}
	if _, err := fmt.Fprintf(w, "Wait backend: %s\nWait timeout: %s\n", r.WaitMode, timeout); err != nil {
		return err
	}
	if len(r.Features) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n=== golang.org/x/sys/cpu (%s) ===\n", r.GOARCH); err != nil {
		return err
	}
	for _, f := range r.Features {
		line := fmt.Sprintf("  Has%-15s %v", f.Name+":", f.Present)
		if f.Note != "" {
			line += " (" + f.Note + ")"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
