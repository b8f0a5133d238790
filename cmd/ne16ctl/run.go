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

package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/device"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/job"
	"github.com/lukamac/Solution-APAI22-LAB08-PULP-NE16/ne16/layer"
)

// title capitalizes job state names in the run summary.
var title = cases.Title(language.English)

type runOptions struct {
	bufs    layer.Buffers
	jobs    int
	latency time.Duration
	wait    string
	timeout time.Duration
	verbose bool
}

func newRunCmd() *cobra.Command {
	opts := runOptions{wait: ne16.CurrentWaitMode().String(), timeout: ne16.CurrentWaitTimeout()}
	cmd := &cobra.Command{
		Use:   "run LAYER",
		Short: "Run a layer on the simulated device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := layer.Load(args[0])
			if err != nil {
				return err
			}
			return runLayer(cmd, d, opts)
		},
	}
	fs := cmd.Flags()
	bufferFlags(fs, &opts.bufs)
	fs.IntVarP(&opts.jobs, "jobs", "n", 1, "number of concurrent submissions")
	fs.DurationVar(&opts.latency, "latency", 10*time.Microsecond, "simulated job latency")
	fs.StringVar(&opts.wait, "wait", opts.wait, "wait backend: spin or event")
	fs.DurationVar(&opts.timeout, "timeout", opts.timeout, "fail waits after this long (0 waits forever)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log controller transitions")
	return cmd
}

func waiterFor(opts runOptions, dev *device.Device) (job.Waiter, error) {
	mode, ok := ne16.ParseWaitMode(opts.wait)
	if !ok {
		return nil, fmt.Errorf("unknown wait backend %q", opts.wait)
	}
	if opts.timeout > 0 {
		return job.TimeoutWaiter{Timeout: opts.timeout}, nil
	}
	if mode == ne16.WaitEvent {
		return job.EventWaiter{Events: dev, Mask: ne16.EventMask}, nil
	}
	return job.SpinWaiter{}, nil
}

func runLayer(cmd *cobra.Command, d layer.Description, opts runOptions) (err error) {
	if opts.jobs < 1 {
		return fmt.Errorf("--jobs must be at least 1, got %d", opts.jobs)
	}
	img, err := layer.Build(d, opts.bufs)
	if err != nil {
		return err
	}

	dev := device.New()
	waiter, err := waiterFor(opts, dev)
	if err != nil {
		return err
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	dev.Start(opts.latency)
	defer func() {
		if stopErr := dev.Stop(); err == nil {
			err = stopErr
		}
	}()

	ctrl := job.NewController(dev,
		job.WithCluster(dev.Cluster()),
		job.WithEvents(dev),
		job.WithWaiter(waiter),
		job.WithLogger(logger),
	)
	ctrl.Init()
	defer ctrl.Term()

	arb := layer.NewArbiter(ctrl)
	done := make([]job.Job, opts.jobs)
	start := time.Now()
	g, ctx := errgroup.WithContext(cmd.Context())
	for i := range opts.jobs {
		g.Go(func() error {
			j, err := arb.Offload(ctx, img)
			done[i] = j
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return writeRun(cmd.OutOrStdout(), d, done, time.Since(start))
}

func writeRun(w io.Writer, d layer.Description, done []job.Job, elapsed time.Duration) error {
	if _, err := fmt.Fprint(w, d); err != nil {
		return err
	}
	for _, j := range done {
		if _, err := fmt.Fprintf(w, "job %d: %s\n", j.ID, title.String(j.State.String())); err != nil {
			return err
		}
	}
	macs := d.MACs() * len(done)
	_, err := fmt.Fprintf(w, "%d MAC in %v\n", macs, elapsed.Round(time.Microsecond))
	return err
}
