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

import (
	"os"
	"strings"
	"time"
)

// WaitMode selects how the controller blocks on the device.
type WaitMode int

const (
	// WaitSpin polls the status registers without yielding.
	WaitSpin WaitMode = iota
	// WaitEvent parks on the accelerator event line and clears it on wake.
	WaitEvent
)

func (m WaitMode) String() string {
	switch m {
	case WaitSpin:
		return "spin"
	case WaitEvent:
		return "event"
	default:
		return "unknown"
	}
}

// ParseWaitMode maps a backend name to a WaitMode. Unknown names fall back
// to WaitSpin and report ok=false.
func ParseWaitMode(s string) (WaitMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spin", "poll", "polled":
		return WaitSpin, true
	case "event", "evt", "irq":
		return WaitEvent, true
	default:
		return WaitSpin, false
	}
}

var (
	currentWaitMode    WaitMode
	currentWaitTimeout time.Duration
)

func init() {
	currentWaitMode = WaitEvent
	if v, ok := os.LookupEnv("NE16_WAIT"); ok {
		if m, ok := ParseWaitMode(v); ok {
			currentWaitMode = m
		}
	}
	if v := os.Getenv("NE16_WAIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			currentWaitTimeout = d
		}
	}
}

// CurrentWaitMode returns the wait backend selected from NE16_WAIT.
// Defaults to WaitEvent.
func CurrentWaitMode() WaitMode {
	return currentWaitMode
}

// CurrentWaitTimeout returns the deadline selected from NE16_WAIT_TIMEOUT,
// or zero when waits are unbounded.
func CurrentWaitTimeout() time.Duration {
	return currentWaitTimeout
}
