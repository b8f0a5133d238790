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

package job

import (
	"errors"
	"runtime"
	"time"
)

// ErrDeviceTimeout is returned by TimeoutWaiter when the device does not
// reach the awaited state before the deadline.
var ErrDeviceTimeout = errors.New("ne16: device wait timed out")

// EventUnit is the per-core event unit the accelerator signals on job end.
type EventUnit interface {
	// WaitAndClear parks until an event in mask is pending, then clears and
	// returns the pending events in mask.
	WaitAndClear(mask uint32) uint32
}

// Waiter blocks until done reports true. Waits are unbounded unless the
// backend says otherwise.
type Waiter interface {
	Wait(done func() bool) error
}

// SpinWaiter re-evaluates the condition in a tight loop.
type SpinWaiter struct{}

// Wait implements Waiter.
func (SpinWaiter) Wait(done func() bool) error {
	for !done() {
	}
	return nil
}

// EventWaiter parks on the event unit between checks. A pending event is
// consumed on wake, so an event raised between the check and the park is
// not lost.
type EventWaiter struct {
	Events EventUnit
	Mask   uint32
}

// Wait implements Waiter.
func (w EventWaiter) Wait(done func() bool) error {
	for !done() {
		w.Events.WaitAndClear(w.Mask)
	}
	return nil
}

// TimeoutWaiter polls the condition until Timeout elapses. Between checks it
// sleeps Interval, or yields the processor when Interval is zero.
type TimeoutWaiter struct {
	Timeout  time.Duration
	Interval time.Duration
}

// Wait implements Waiter.
func (w TimeoutWaiter) Wait(done func() bool) error {
	deadline := time.Now().Add(w.Timeout)
	for !done() {
		if !time.Now().Before(deadline) {
			return ErrDeviceTimeout
		}
		if w.Interval > 0 {
			time.Sleep(w.Interval)
		} else {
			runtime.Gosched()
		}
	}
	return nil
}
