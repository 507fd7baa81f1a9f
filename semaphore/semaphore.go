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

// Package semaphore provides a bounded worker-counting semaphore used to cap
// concurrent goroutines launched from a single dispatch point (the write
// aggregator's async callback, background task fan-out). A max of zero or
// less means unlimited: NewWorkerTry always succeeds and DeferWorker is a
// no-op counter decrement.
package semaphore

import (
	"context"
	"sync/atomic"
)

// Semaphore bounds the number of concurrently running workers spawned from a
// single call site.
type Semaphore interface {
	// NewWorkerTry attempts to reserve a worker slot without blocking.
	// It returns false when the semaphore is already at capacity.
	NewWorkerTry() bool

	// DeferWorker releases a slot reserved by a successful NewWorkerTry.
	// Call it in a defer right after the goroutine it guards is launched.
	DeferWorker()

	// DeferMain releases any bookkeeping held for the semaphore's owner
	// goroutine. Call it once when the owning loop returns.
	DeferMain()

	// Running returns the number of slots currently in use.
	Running() int64
}

// New builds a Semaphore capped at max concurrent workers. max <= 0 means
// unlimited. ctx is kept for interface parity with the rest of the module's
// constructors; it is not otherwise used since the semaphore holds no
// background goroutine of its own. debug is accepted for call-site parity
// and currently unused.
func New(ctx context.Context, max int, debug bool) Semaphore {
	return &sem{max: int64(max)}
}

type sem struct {
	max     int64
	running atomic.Int64
}

func (s *sem) NewWorkerTry() bool {
	if s.max <= 0 {
		s.running.Add(1)
		return true
	}

	for {
		cur := s.running.Load()
		if cur >= s.max {
			return false
		}
		if s.running.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

func (s *sem) DeferWorker() {
	s.running.Add(-1)
}

func (s *sem) DeferMain() {}

func (s *sem) Running() int64 {
	return s.running.Load()
}
