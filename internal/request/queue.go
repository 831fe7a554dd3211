// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package request

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout is the default per-ADU wait, spec.md §5.
const DefaultTimeout = 3000 * time.Millisecond

// MaxTimeout is the upper bound a caller may configure, spec.md §5.
const MaxTimeout = 15000 * time.Millisecond

// DefaultMaxSize is the admission cap per spec.md §3/§4.8.
const DefaultMaxSize = 256

// ErrQueueFull is returned by Enqueue when a device's lane already
// holds maxSize waiting requests (the one in flight is not counted). spec.md §9 leaves "surface an error vs. silently
// drop" open; this repository surfaces it (see DESIGN.md).
var ErrQueueFull = fmt.Errorf("request: queue full")

// SendFunc dispatches one ADU to the field for the request it belongs
// to. The queue calls it once per ADU, in order, waiting for a
// matching response (or the per-ADU timeout) before calling it again.
type SendFunc func(cr *ClientRequest, aduIndex int, adu []byte)

// FinishFunc is called exactly once per executed request, after every
// ADU has either been answered or the request has timed out.
type FinishFunc func(cr *ClientRequest, timedOut bool)

// Queue is a FIFO executor with one independent serialised lane per
// device: the per-device generalisation of the teacher's single
// global worker (spec.md §9, DESIGN.md).
type Queue struct {
	maxSize int
	timeout time.Duration

	mu    sync.Mutex
	lanes map[string]*lane
}

type job struct {
	cr     *ClientRequest
	send   SendFunc
	finish FinishFunc
}

type lane struct {
	ch chan job

	mu       sync.Mutex
	inFlight *ClientRequest
}

// NewQueue creates a Queue with the given per-lane admission cap and
// per-ADU wait timeout.
func NewQueue(maxSize int, timeout time.Duration) *Queue {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	return &Queue{
		maxSize: maxSize,
		timeout: timeout,
		lanes:   make(map[string]*lane),
	}
}

// Enqueue admits cr onto its device's lane, starting the lane's
// goroutine on first use. send dispatches each ADU; finish is called
// once execution completes. Enqueue returns ErrQueueFull if the lane
// is already at its admission cap.
func (q *Queue) Enqueue(cr *ClientRequest, send SendFunc, finish FinishFunc) error {
	l := q.laneFor(cr.DeviceID)

	select {
	case l.ch <- job{cr: cr, send: send, finish: finish}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *Queue) laneFor(device string) *lane {
	q.mu.Lock()
	defer q.mu.Unlock()

	l, ok := q.lanes[device]
	if !ok {
		l = &lane{ch: make(chan job, q.maxSize)}
		q.lanes[device] = l
		go q.run(l)
	}
	return l
}

func (q *Queue) run(l *lane) {
	for j := range l.ch {
		l.mu.Lock()
		l.inFlight = j.cr
		l.mu.Unlock()

		timedOut := q.execute(j.cr, j.send)

		l.mu.Lock()
		l.inFlight = nil
		l.mu.Unlock()

		j.finish(j.cr, timedOut)
	}
}

// execute runs the per-request algorithm from spec.md §4.8: post each
// ADU in order, wait for its response or the per-ADU timeout, and stop
// at the first timeout, leaving any remaining ADUs unsent.
func (q *Queue) execute(cr *ClientRequest, send SendFunc) bool {
	for i, adu := range cr.ADUs {
		send(cr, i, adu)

		deadline := time.NewTimer(q.timeout)
		for {
			if cr.ResponseCount() > i {
				deadline.Stop()
				break
			}
			select {
			case <-cr.notify:
				continue
			case <-deadline.C:
				return true
			}
		}
	}
	return false
}

// RouteResponse appends an inbound field response to the device's
// currently in-flight request, per spec.md §4.8 "Response routing". It
// is a no-op if no request is in flight for device.
func (q *Queue) RouteResponse(device string, payload []byte) {
	q.mu.Lock()
	l, ok := q.lanes[device]
	q.mu.Unlock()
	if !ok {
		return
	}
	l.mu.Lock()
	cr := l.inFlight
	l.mu.Unlock()
	if cr == nil {
		return
	}
	cr.AppendResponse(payload)
}
