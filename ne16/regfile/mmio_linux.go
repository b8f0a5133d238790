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
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MMIO is a RegisterFile backed by a mapping of a physical register window,
// typically through /dev/mem or a UIO device node.
type MMIO struct {
	f    *os.File
	mem  []byte
	skew uint32 // base offset inside the first mapped page
	size uint32
}

// OpenMMIO maps size bytes of physical address space starting at base from
// the device node path.
func OpenMMIO(path string, base uint64, size uint32) (*MMIO, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("regfile: open %s: %w", path, err)
	}

	page := uint64(unix.Getpagesize())
	pageBase := base &^ (page - 1)
	skew := uint32(base - pageBase)
	length := int(skew + size)

	mem, err := unix.Mmap(int(f.Fd()), int64(pageBase), length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("regfile: mmap %#x+%#x: %w", base, size, err)
	}
	return &MMIO{f: f, mem: mem, skew: skew, size: size}, nil
}

func (m *MMIO) word(off uint32) *uint32 {
	checkAligned(off)
	if off+4 > m.size {
		panic(fmt.Sprintf("regfile: register offset %#x outside %#x byte window", off, m.size))
	}
	return (*uint32)(unsafe.Pointer(&m.mem[m.skew+off]))
}

// Read32 loads the register at off.
func (m *MMIO) Read32(off uint32) uint32 {
	return atomic.LoadUint32(m.word(off))
}

// Write32 stores v to the register at off.
func (m *MMIO) Write32(off, v uint32) {
	atomic.StoreUint32(m.word(off), v)
}

// Close unmaps the window and closes the device node.
func (m *MMIO) Close() error {
	err := unix.Munmap(m.mem)
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
