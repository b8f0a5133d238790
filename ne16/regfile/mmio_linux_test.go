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

//go:build linux

package regfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
)

// A regular file stands in for the device node; the mapping is shared so
// writes land in the file.
func TestMMIOOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regs")
	if err := os.WriteFile(path, make([]byte, 2*os.Getpagesize()), 0o600); err != nil {
		t.Fatal(err)
	}

	m, err := OpenMMIO(path, 0x100, 0x100)
	if err != nil {
		t.Fatal(err)
	}
	img := sampleImage()
	Flush(m, img)
	if got := Snapshot(m); got != img {
		t.Errorf("Snapshot = %+v, want %+v", got, img)
	}
	m.Write32(ne16.RegSoftClear, 0x55)
	if got := m.Read32(ne16.RegSoftClear); got != 0x55 {
		t.Errorf("Read32(soft clear) = %#x, want 0x55", got)
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	off := 0x100 + ne16.ContextOffset(ne16.WordConf0)
	got := uint32(raw[off]) | uint32(raw[off+1])<<8 | uint32(raw[off+2])<<16 | uint32(raw[off+3])<<24
	if got != img.Conf0 {
		t.Errorf("conf0 in backing file = %#x, want %#x", got, img.Conf0)
	}
}

func TestMMIOOpenMissing(t *testing.T) {
	if _, err := OpenMMIO(filepath.Join(t.TempDir(), "nope"), 0, 4); err == nil {
		t.Error("OpenMMIO on a missing node succeeded")
	}
}
