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

// Control registers, byte offsets from the accelerator base address.
const (
	RegTrigger    = 0x00 // write 0: trigger, write 1: commit only
	RegAcquire    = 0x04 // read: job id, negative when no slot is free
	RegFinished   = 0x08 // number of finished jobs
	RegStatus     = 0x0C // 0 when empty, StatusFull when both slots busy
	RegRunningJob = 0x10 // id of the job at the head of the queue
	RegSoftClear  = 0x14 // write: abort all in-flight state
	RegSwSync     = 0x18
	RegURiscyIMem = 0x1C

	// RegJobContext is the first job-context register. The register image
	// is written word by word from this offset.
	RegJobContext = 0x20
)

// Job-context word indices, in register order.
const (
	WordWeightsPtr = iota
	WordInfeatPtr
	WordOutfeatPtr
	WordScalePtr
	WordScaleShiftPtr
	WordScaleBiasPtr
	WordInfeatD0Stride
	WordInfeatD1Stride
	WordInfeatD2Stride
	WordOutfeatD0Stride
	WordOutfeatD1Stride
	WordOutfeatD2Stride
	WordWeightsD0Stride
	WordWeightsD1Stride
	WordWeightsD2Stride
	WordSubtileRemainder0
	WordSubtileRemainder1
	WordSubtileRemainder2
	WordSubtileNumber0
	WordSubtileNumber1
	WordPadding
	WordWeightOffsetFactor
	WordFilterMask
	WordConf0

	// ImageWords is the size of the full register image in words.
	ImageWords
)

// PointerWords is the number of leading image words holding buffer
// pointers. A pointer-only update writes just these.
const PointerWords = WordScaleBiasPtr + 1

// ContextOffset returns the byte offset of job-context word i.
func ContextOffset(i int) uint32 {
	return RegJobContext + uint32(i)*4
}

// Status register values.
const (
	StatusEmpty = 0x000
	StatusFull  = 0x101
)

// Trigger register values.
const (
	TriggerRun    = 0
	TriggerCommit = 1
)

// AcquireBusy is the value read from RegAcquire when no slot is free.
const AcquireBusy = 0xFFFFFFFF

// EventLine is the event unit line the accelerator raises on job end.
const EventLine = 12

// EventMask is the event unit mask for EventLine.
const EventMask = 1 << EventLine

// Cluster controller registers gating the accelerator.
const (
	ClusterCtrlHWPE = 0x18
	ClusterCtrlHCI  = 0x20

	HWPEClockGateEnable = 0x800
	HCIPriorityNE16     = 0x100
	HCIMaxStallMask     = 0xFF
)

// DefaultMaxStall is the HCI max stall value restored by Term.
const DefaultMaxStall = 8
