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

// Package device simulates the NE16 register protocol.
//
// The model has two job slots. Reading the acquire register reserves a slot
// and returns a monotonically increasing job id; job-context writes land in
// the context registers; a trigger write queues the acquired job. Jobs
// complete only when Step is called, or after a fixed latency once Start has
// launched the background runner. On completion the running-job register
// advances past the finished id and the event line is raised.
//
// The accelerator arithmetic is not modelled: a completed job records the
// register image it was triggered with.
package device

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
)

// Slots is the number of jobs the device holds at once.
const Slots = 2

// Completed is a job the device has finished.
type Completed struct {
	ID    uint8
	Image regfile.Image
}

type queued struct {
	id      uint8
	image   regfile.Image
	started bool
}

// Device is a simulated accelerator. It implements regfile.RegisterFile for
// the accelerator registers and the event-unit wait used by the controller.
type Device struct {
	mu   sync.Mutex
	cond *sync.Cond

	ctx      [ne16.ImageWords]uint32
	acquired bool
	acqID    uint8
	nextID   uint8
	queue    []queued
	running  uint8
	finished uint32
	done     []Completed

	events uint32

	hwpe uint32
	hci  uint32

	kick   chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New returns an idle device.
func New() *Device {
	d := &Device{kick: make(chan struct{}, 1)}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Read32 implements regfile.RegisterFile.
func (d *Device) Read32(off uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch off {
	case ne16.RegAcquire:
		return d.acquireLocked()
	case ne16.RegStatus:
		return d.statusLocked()
	case ne16.RegRunningJob:
		return uint32(d.running)
	case ne16.RegFinished:
		return d.finished
	}
	if i, ok := contextWord(off); ok {
		return d.ctx[i]
	}
	return 0
}

// Write32 implements regfile.RegisterFile.
func (d *Device) Write32(off, v uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch off {
	case ne16.RegTrigger:
		d.triggerLocked(v)
		return
	case ne16.RegSoftClear:
		d.softClearLocked()
		return
	}
	if i, ok := contextWord(off); ok {
		d.ctx[i] = v
	}
}

func contextWord(off uint32) (int, bool) {
	if off < ne16.RegJobContext {
		return 0, false
	}
	i := int(off-ne16.RegJobContext) / 4
	if i >= ne16.ImageWords {
		return 0, false
	}
	return i, true
}

func (d *Device) acquireLocked() uint32 {
	if d.acquired || len(d.queue) >= Slots {
		return ne16.AcquireBusy
	}
	d.acquired = true
	d.acqID = d.nextID
	d.nextID++
	return uint32(d.acqID)
}

func (d *Device) statusLocked() uint32 {
	switch n := len(d.queue); {
	case n == 0:
		return ne16.StatusEmpty
	case n >= Slots:
		return ne16.StatusFull
	default:
		return 0x001
	}
}

func (d *Device) triggerLocked(v uint32) {
	if !d.acquired {
		// A bare trigger starts previously committed jobs.
		if v == ne16.TriggerRun {
			for i := range d.queue {
				d.queue[i].started = true
			}
			d.kickRunner()
		}
		return
	}
	d.queue = append(d.queue, queued{
		id:      d.acqID,
		image:   regfile.FromWords(d.ctx),
		started: v == ne16.TriggerRun,
	})
	d.acquired = false
	if v == ne16.TriggerRun {
		d.kickRunner()
	}
	d.cond.Broadcast()
}

func (d *Device) softClearLocked() {
	d.ctx = [ne16.ImageWords]uint32{}
	d.acquired = false
	d.queue = nil
	d.nextID = 0
	d.running = 0
	d.finished = 0
	d.events = 0
	d.cond.Broadcast()
}

func (d *Device) kickRunner() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// Step completes the job at the head of the queue if it has been started.
func (d *Device) Step() (Completed, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.queue) == 0 || !d.queue[0].started {
		return Completed{}, false
	}
	head := d.queue[0]
	d.queue = d.queue[1:]
	d.running = head.id + 1
	d.finished++
	c := Completed{ID: head.id, Image: head.image}
	d.done = append(d.done, c)
	d.events |= ne16.EventMask
	d.cond.Broadcast()
	return c, true
}

// WaitAndClear parks until any event in mask is pending, clears the pending
// events in mask and returns them.
func (d *Device) WaitAndClear(mask uint32) uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.events&mask == 0 {
		d.cond.Wait()
	}
	got := d.events & mask
	d.events &^= got
	return got
}

// Signal raises the events in mask without completing a job.
func (d *Device) Signal(mask uint32) {
	d.mu.Lock()
	d.events |= mask
	d.mu.Unlock()
	d.cond.Broadcast()
}

// Start completes started jobs in the background, each latency after it
// reaches the head of the queue.
func (d *Device) Start(latency time.Duration) {
	d.mu.Lock()
	if d.group != nil {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	d.cancel, d.group = cancel, g
	d.mu.Unlock()

	g.Go(func() error {
		return d.run(ctx, latency)
	})
}

func (d *Device) run(ctx context.Context, latency time.Duration) error {
	t := time.NewTimer(latency)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.kick:
		}
		for {
			t.Reset(latency)
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}
			if _, ok := d.Step(); !ok {
				break
			}
		}
	}
}

// Stop halts the background runner started by Start.
func (d *Device) Stop() error {
	d.mu.Lock()
	cancel, g := d.cancel, d.group
	d.cancel, d.group = nil, nil
	d.mu.Unlock()
	if g == nil {
		return nil
	}
	cancel()
	return g.Wait()
}

// Completed returns the jobs finished so far, in completion order.
func (d *Device) Completed() []Completed {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Completed, len(d.done))
	copy(out, d.done)
	return out
}

// Pending returns the number of queued jobs, started or not.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
