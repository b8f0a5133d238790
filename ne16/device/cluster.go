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

package device

import (
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
)

// Cluster returns the cluster-controller registers that gate the device.
func (d *Device) Cluster() regfile.RegisterFile {
	return cluster{d}
}

type cluster struct {
	d *Device
}

func (c cluster) Read32(off uint32) uint32 {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	switch off {
	case ne16.ClusterCtrlHWPE:
		return c.d.hwpe
	case ne16.ClusterCtrlHCI:
		return c.d.hci
	}
	return 0
}

func (c cluster) Write32(off, v uint32) {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	switch off {
	case ne16.ClusterCtrlHWPE:
		c.d.hwpe = v
	case ne16.ClusterCtrlHCI:
		c.d.hci = v
	}
}

// ClockEnabled reports whether the accelerator clock gate is open.
func (d *Device) ClockEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hwpe&ne16.HWPEClockGateEnable != 0
}

// PriorityNE16 reports whether the accelerator has memory priority over the
// cores.
func (d *Device) PriorityNE16() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hci&ne16.HCIPriorityNE16 != 0
}

// MaxStall returns the configured HCI max stall.
func (d *Device) MaxStall() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hci & ne16.HCIMaxStallMask
}
