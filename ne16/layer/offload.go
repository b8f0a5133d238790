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

package layer

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/job"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/regfile"
)

// Offload acquires a job slot on ctrl, writes img and runs it to completion.
func Offload(ctrl *job.Controller, img regfile.Image) (job.Job, error) {
	j, err := ctrl.Acquire()
	if err != nil {
		return j, err
	}
	if err := ctrl.Offload(&j, img); err != nil {
		return j, err
	}
	if err := ctrl.Run(&j); err != nil {
		return j, fmt.Errorf("run job %d: %w", j.ID, err)
	}
	return j, nil
}

// Arbiter serializes submissions from concurrent callers onto one
// controller. The zero value is not usable; use NewArbiter.
type Arbiter struct {
	sem  *semaphore.Weighted
	ctrl *job.Controller
}

// NewArbiter returns an Arbiter owning ctrl.
func NewArbiter(ctrl *job.Controller) *Arbiter {
	return &Arbiter{sem: semaphore.NewWeighted(1), ctrl: ctrl}
}

// Do runs fn with exclusive use of the controller. It returns ctx.Err() if
// ctx is done before the controller is free.
func (a *Arbiter) Do(ctx context.Context, fn func(*job.Controller) error) error {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer a.sem.Release(1)
	return fn(a.ctrl)
}

// Offload is Offload under the arbiter.
func (a *Arbiter) Offload(ctx context.Context, img regfile.Image) (job.Job, error) {
	var j job.Job
	err := a.Do(ctx, func(c *job.Controller) error {
		var err error
		j, err = Offload(c, img)
		return err
	})
	return j, err
}
