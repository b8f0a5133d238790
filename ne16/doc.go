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

// Package ne16 holds the hardware definitions of the NE16 convolution
// accelerator: throughput parameters, conf0 flag bits, register offsets and
// the selection of the wait backend used by the job controller.
//
// The driver itself lives in the sub-packages:
//
//   - bitpack: two-half word packing used by the subtile registers
//   - tiling: pure geometry to subtile/stride decomposition
//   - config: validation and bit-packing of the configuration image
//   - regfile: fixed-layout register image and register-file adapters
//   - device: a simulated accelerator implementing the register protocol
//   - job: the job lifecycle controller and blocking waits
//   - layer: logical layer description to a complete offload task
//
// # Offload sequence
//
//	img, err := layer.Build(desc, bufs)
//	if err != nil {
//	    return err
//	}
//	ctrl := job.NewController(dev)
//	ctrl.Init()
//	j, _ := ctrl.Acquire()
//	ctrl.Offload(&j, img)
//	ctrl.Run()
//	ctrl.Term()
//
// # Wait backend
//
// The controller waits either by spinning on the status register or by
// parking on the accelerator event line. The default is read once from the
// NE16_WAIT environment variable ("spin" or "event"); NE16_WAIT_TIMEOUT adds
// a deadline to every wait.
package ne16
