/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package startStop wraps a run/close function pair with the Start/Stop/
// Restart/IsRunning lifecycle used by the module's background goroutines
// (write aggregators, worker pools). The run function is expected to block
// until its context is cancelled or an unrecoverable error occurs; the close
// function performs any additional teardown once the run goroutine has
// returned.
package startStop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nabbar/abel/runner"
)

// FuncRun is the long-running body started in its own goroutine by Start.
// It must return when ctx is cancelled.
type FuncRun func(ctx context.Context) error

// FuncClose performs teardown once the run goroutine has exited.
type FuncClose func(ctx context.Context) error

// StartStop is the lifecycle contract shared by the module's background
// processing loops.
type StartStop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New builds a StartStop around fnRun and fnClose. fnClose may be nil.
func New(fnRun FuncRun, fnClose FuncClose) StartStop {
	return &runStop{
		fnRun:   fnRun,
		fnClose: fnClose,
	}
}

const maxErrHistory = 16

type runStop struct {
	fnRun   FuncRun
	fnClose FuncClose

	mu      sync.Mutex
	cancel  context.CancelFunc
	started time.Time
	running atomic.Bool

	errMu sync.Mutex
	errs  []error
}

func (o *runStop) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running.Load() {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	cctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.started = time.Now()
	o.running.Store(true)

	go func() {
		defer func() {
			runner.RecoveryCaller("golib/runner/startStop/run", recover())
		}()

		err := o.fnRun(cctx)
		o.addErr(err)

		if o.fnClose != nil {
			o.addErr(o.fnClose(context.Background()))
		}

		o.running.Store(false)
	}()

	return nil
}

func (o *runStop) Stop(ctx context.Context) error {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if ctx == nil {
		ctx = context.Background()
	}

	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()

	for o.running.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-time.After(time.Millisecond):
		}
	}

	return nil
}

func (o *runStop) Restart(ctx context.Context) error {
	if e := o.Stop(ctx); e != nil {
		return e
	}
	return o.Start(ctx)
}

func (o *runStop) IsRunning() bool {
	return o.running.Load()
}

func (o *runStop) Uptime() time.Duration {
	if !o.running.Load() {
		return 0
	}
	return time.Since(o.started)
}

func (o *runStop) addErr(e error) {
	if e == nil {
		return
	}

	o.errMu.Lock()
	defer o.errMu.Unlock()

	o.errs = append(o.errs, e)
	if len(o.errs) > maxErrHistory {
		o.errs = o.errs[len(o.errs)-maxErrHistory:]
	}
}

func (o *runStop) ErrorsLast() error {
	o.errMu.Lock()
	defer o.errMu.Unlock()

	if len(o.errs) == 0 {
		return nil
	}
	return o.errs[len(o.errs)-1]
}

func (o *runStop) ErrorsList() []error {
	o.errMu.Lock()
	defer o.errMu.Unlock()

	if len(o.errs) == 0 {
		return nil
	}

	res := make([]error, len(o.errs))
	copy(res, o.errs)
	return res
}
