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

// Package job drives the NE16 accelerator through its register protocol.
//
// A Controller owns one device. The lifecycle of a job is
//
//	Idle -> Acquiring -> Configured -> Running -> Idle
//
// with Init required once before the first acquisition and Term draining the
// device back to the uninitialized state. The controller does not lock:
// concurrent offloads need external mutual exclusion (see layer.Arbiter).
//
// Every wait blocks on the configured Waiter. Spin and event waits are
// unbounded; wrap them with TimeoutWaiter, or select it through
// NE16_WAIT_TIMEOUT, to get ErrDeviceTimeout instead of a hang.
package job

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
)

// ErrInvalidState is returned when an operation is not allowed in the
// current lifecycle state. No register is written in that case.
var ErrInvalidState = errors.New("ne16: invalid job state")

// State is a lifecycle state of the controller or of a job.
type State int

const (
	Uninitialized State = iota
	Idle
	Acquiring
	Configured
	Running
	Draining
	Done
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Idle:
		return "idle"
	case Acquiring:
		return "acquiring"
	case Configured:
		return "configured"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Job is one acquired accelerator invocation.
type Job struct {
	ID    uint8
	State State
	Image regfile.Image
}

// DefaultSettle is the delay after a soft clear before the device is used.
const DefaultSettle = time.Microsecond

// Controller runs jobs on one accelerator.
type Controller struct {
	regs    regfile.RegisterFile
	cluster regfile.RegisterFile
	events  EventUnit
	waiter  Waiter
	logger  *slog.Logger

	settle   time.Duration
	logPolls bool

	state  State
	primed bool // a full image has been flushed since the last soft clear
}

// Option configures a Controller.
type Option func(*Controller)

// WithCluster sets the cluster-controller registers used by Init and Term.
func WithCluster(rf regfile.RegisterFile) Option {
	return func(c *Controller) { c.cluster = rf }
}

// WithEvents sets the event unit used by the event wait backend.
func WithEvents(eu EventUnit) Option {
	return func(c *Controller) { c.events = eu }
}

// WithWaiter overrides the wait backend.
func WithWaiter(w Waiter) Option {
	return func(c *Controller) { c.waiter = w }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithSettle sets the soft-clear settle delay.
func WithSettle(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

// WithPollLogging logs every failed attempt of AcquirePolled.
func WithPollLogging(on bool) Option {
	return func(c *Controller) { c.logPolls = on }
}

// NewController returns a controller for the accelerator registers regs.
//
// Without WithWaiter the backend follows ne16.CurrentWaitMode and
// ne16.CurrentWaitTimeout; the event backend needs WithEvents and falls back
// to spinning otherwise.
func NewController(regs regfile.RegisterFile, opts ...Option) *Controller {
	c := &Controller{
		regs:   regs,
		settle: DefaultSettle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.cluster == nil {
		c.cluster = regfile.NewMemory()
	}
	if c.waiter == nil {
		c.waiter = c.defaultWaiter()
	}
	return c
}

func (c *Controller) defaultWaiter() Waiter {
	if d := ne16.CurrentWaitTimeout(); d > 0 {
		return TimeoutWaiter{Timeout: d}
	}
	if ne16.CurrentWaitMode() == ne16.WaitEvent && c.events != nil {
		return EventWaiter{Events: c.events, Mask: ne16.EventMask}
	}
	return SpinWaiter{}
}

// State returns the controller's lifecycle state.
func (c *Controller) State() State {
	return c.state
}

func (c *Controller) transition(to State) {
	c.logger.Debug("ne16 state", "from", c.state, "to", to)
	c.state = to
}

// Init opens the clock gate, gives the accelerator memory priority, clears
// the max stall and soft-clears the device.
func (c *Controller) Init() {
	hwpe := c.cluster.Read32(ne16.ClusterCtrlHWPE)
	c.cluster.Write32(ne16.ClusterCtrlHWPE, hwpe|ne16.HWPEClockGateEnable)

	hci := c.cluster.Read32(ne16.ClusterCtrlHCI)
	hci |= ne16.HCIPriorityNE16
	hci &^= ne16.HCIMaxStallMask
	c.cluster.Write32(ne16.ClusterCtrlHCI, hci)

	c.SoftClear()
	c.logger.Info("ne16 initialized")
	c.transition(Idle)
}

// Term soft-clears the device, restores core priority and the default max
// stall and closes the clock gate.
func (c *Controller) Term() {
	c.transition(Draining)
	c.SoftClear()

	hci := c.cluster.Read32(ne16.ClusterCtrlHCI)
	hci &^= ne16.HCIPriorityNE16 | ne16.HCIMaxStallMask
	hci |= ne16.DefaultMaxStall
	c.cluster.Write32(ne16.ClusterCtrlHCI, hci)

	hwpe := c.cluster.Read32(ne16.ClusterCtrlHWPE)
	c.cluster.Write32(ne16.ClusterCtrlHWPE, hwpe&^ne16.HWPEClockGateEnable)

	c.logger.Info("ne16 terminated")
	c.transition(Uninitialized)
}

// SoftClear aborts all in-flight device state and waits for it to settle.
func (c *Controller) SoftClear() {
	c.regs.Write32(ne16.RegSoftClear, 0)
	if c.settle > 0 {
		time.Sleep(c.settle)
	}
	c.primed = false
}

// Empty reports whether no job is in flight.
func (c *Controller) Empty() bool {
	return c.regs.Read32(ne16.RegStatus) == ne16.StatusEmpty
}

// Full reports whether both job slots are taken.
func (c *Controller) Full() bool {
	return c.regs.Read32(ne16.RegStatus) == ne16.StatusFull
}

// RunningJobID returns the id held in the running-job register.
func (c *Controller) RunningJobID() uint8 {
	return uint8(c.regs.Read32(ne16.RegRunningJob))
}

func (c *Controller) tryAcquire() (uint8, bool) {
	v := c.regs.Read32(ne16.RegAcquire)
	if int32(v) < 0 {
		return 0, false
	}
	return uint8(v), true
}

func (c *Controller) acquired(id uint8) Job {
	c.transition(Acquiring)
	return Job{ID: id, State: Acquiring}
}

// Acquire blocks on the wait backend until the device grants a job slot.
func (c *Controller) Acquire() (Job, error) {
	if c.state == Uninitialized || c.state == Draining {
		return Job{}, fmt.Errorf("acquire in state %v: %w", c.state, ErrInvalidState)
	}
	var id uint8
	err := c.waiter.Wait(func() bool {
		var ok bool
		id, ok = c.tryAcquire()
		return ok
	})
	if err != nil {
		return Job{}, fmt.Errorf("acquire: %w", err)
	}
	return c.acquired(id), nil
}

// AcquirePolled reads the acquire register until a slot is granted, without
// parking.
func (c *Controller) AcquirePolled() (Job, error) {
	if c.state == Uninitialized || c.state == Draining {
		return Job{}, fmt.Errorf("acquire in state %v: %w", c.state, ErrInvalidState)
	}
	for attempt := 1; ; attempt++ {
		if id, ok := c.tryAcquire(); ok {
			return c.acquired(id), nil
		}
		if c.logPolls {
			c.logger.Debug("ne16 acquire busy", "attempt", attempt)
		}
	}
}

// Offload writes the full register image for j.
func (c *Controller) Offload(j *Job, img regfile.Image) error {
	if j.State != Acquiring && j.State != Configured {
		return fmt.Errorf("offload job %d in state %v: %w", j.ID, j.State, ErrInvalidState)
	}
	regfile.Flush(c.regs, img)
	c.primed = true
	j.Image = img
	j.State = Configured
	c.transition(Configured)
	return nil
}

// OffloadPointers writes only the buffer pointers of img, reusing the
// configuration of the previously offloaded job.
func (c *Controller) OffloadPointers(j *Job, img regfile.Image) error {
	if j.State != Acquiring && j.State != Configured {
		return fmt.Errorf("offload pointers of job %d in state %v: %w", j.ID, j.State, ErrInvalidState)
	}
	if !c.primed {
		return fmt.Errorf("offload pointers of job %d with no prior configuration: %w", j.ID, ErrInvalidState)
	}
	regfile.FlushPointers(c.regs, img)
	j.Image = regfile.Snapshot(c.regs)
	j.State = Configured
	c.transition(Configured)
	return nil
}

func (c *Controller) trigger(j *Job, v uint32) error {
	if j.State != Configured {
		return fmt.Errorf("trigger job %d in state %v: %w", j.ID, j.State, ErrInvalidState)
	}
	c.regs.Write32(ne16.RegTrigger, v)
	j.State = Running
	c.transition(Running)
	return nil
}

// RunAsync triggers j and returns immediately.
func (c *Controller) RunAsync(j *Job) error {
	return c.trigger(j, ne16.TriggerRun)
}

// Commit queues j without starting it. A later trigger starts it.
func (c *Controller) Commit(j *Job) error {
	return c.trigger(j, ne16.TriggerCommit)
}

// Run triggers j and waits until the device is empty.
func (c *Controller) Run(j *Job) error {
	if err := c.RunAsync(j); err != nil {
		return err
	}
	if err := c.WaitEmpty(); err != nil {
		return err
	}
	j.State = Done
	return nil
}

// WaitEmpty blocks until no job is in flight.
func (c *Controller) WaitEmpty() error {
	if err := c.waiter.Wait(c.Empty); err != nil {
		return fmt.Errorf("wait empty: %w", err)
	}
	c.idleIfEmpty()
	return nil
}

// idleIfEmpty moves a running controller to Idle once the device has
// drained.
func (c *Controller) idleIfEmpty() {
	if c.state == Running && c.Empty() {
		c.transition(Idle)
	}
}

// WaitNotFull blocks until a job slot is free.
func (c *Controller) WaitNotFull() error {
	if err := c.waiter.Wait(func() bool { return !c.Full() }); err != nil {
		return fmt.Errorf("wait not full: %w", err)
	}
	return nil
}

// WaitOnID blocks until the running-job register has moved past id, that
// is until job id and every job before it has completed.
func (c *Controller) WaitOnID(id uint8) error {
	w := c.waiter
	if c.events != nil {
		if _, spin := w.(SpinWaiter); spin {
			w = EventWaiter{Events: c.events, Mask: ne16.EventMask}
		}
	}
	if err := w.Wait(func() bool { return c.RunningJobID() > id }); err != nil {
		return fmt.Errorf("wait on job %d: %w", id, err)
	}
	c.idleIfEmpty()
	return nil
}

// Wait blocks until j has completed.
func (c *Controller) Wait(j *Job) error {
	if err := c.WaitOnID(j.ID); err != nil {
		return err
	}
	j.State = Done
	return nil
}

// Busywait spins on the status register until the device is empty,
// regardless of the wait backend.
func (c *Controller) Busywait() {
	for !c.Empty() {
	}
	c.idleIfEmpty()
}
