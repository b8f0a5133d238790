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

package regfile

import (
	"fmt"
	"sync"
)

// Memory is an in-memory RegisterFile. It records every write so tests can
// check the order in which registers were touched.
type Memory struct {
	mu     sync.Mutex
	words  map[uint32]uint32
	writes []Write
}

// Write is one recorded register write.
type Write struct {
	Off, Value uint32
}

// NewMemory returns an empty register file.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint32]uint32)}
}

// Read32 returns the word at off, zero if never written.
func (m *Memory) Read32(off uint32) uint32 {
	checkAligned(off)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.words[off]
}

// Write32 stores v at off.
func (m *Memory) Write32(off, v uint32) {
	checkAligned(off)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[off] = v
	m.writes = append(m.writes, Write{Off: off, Value: v})
}

// Writes returns a copy of the write log.
func (m *Memory) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Write, len(m.writes))
	copy(out, m.writes)
	return out
}

// Reset clears the contents and the write log.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.words)
	m.writes = m.writes[:0]
}

func checkAligned(off uint32) {
	if off%4 != 0 {
		panic(fmt.Sprintf("regfile: unaligned register offset %#x", off))
	}
}
