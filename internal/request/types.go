// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package request holds the canonical request/frame/client-request
// types and the per-device serialising queue that drives them to the
// wire and back.
package request

import "sync"

// CanonicalRequest is a validated request in terse internal form.
// Pointer-ish optional fields use nil to mean "absent".
type CanonicalRequest struct {
	ID     int
	Fn     string // "r", "u", "d", "m"
	Dt     string // "bi", "bo", "ni", "no" ("" if absent)
	Range  []int  // [lo, hi] or nil
	List   []int  // or nil
	Values []int  // write payload, aligned to List or Range order; or nil
	Subfn  string // diagnostic subfunction token, or ""
	Packet []byte // raw modbus payload, or nil
}

// Clone returns a deep copy, so a ClientRequest's canonical request
// can be echoed in a response without aliasing the original slices.
func (r CanonicalRequest) Clone() CanonicalRequest {
	c := r
	c.Range = append([]int(nil), r.Range...)
	c.List = append([]int(nil), r.List...)
	c.Values = append([]int(nil), r.Values...)
	c.Packet = append([]byte(nil), r.Packet...)
	return c
}

// Frame is an abstract Modbus frame: unit id, function code, and
// either an address/count pair (read/write/diagnosis) or a raw
// payload (modbus passthrough). Values carries a write's payload,
// aligned one-to-one with the addresses the frame covers, in address
// order.
type Frame struct {
	UnitID   byte
	FuncCode byte
	Address  uint16
	Count    uint16
	Values   []int
	Raw      []byte // used only for passthrough ("m") frames
}

// ClientRequest aggregates one accepted request end to end: the
// canonical request, enough of the original vocabulary to project a
// response back, the target device, the ordered ADUs to send and the
// response buffers collected for them.
type ClientRequest struct {
	Canonical CanonicalRequest
	Format    string
	Original  map[string]any
	ClientID  string
	DeviceID  string
	Frames    []Frame
	ADUs      [][]byte

	mu        sync.Mutex
	responses [][]byte
	notify    chan struct{}
}

// New creates a ClientRequest ready for execution by a Queue.
func New(canonical CanonicalRequest, format, clientID, deviceID string, original map[string]any) *ClientRequest {
	return &ClientRequest{
		Canonical: canonical,
		Format:    format,
		ClientID:  clientID,
		DeviceID:  deviceID,
		Original:  original,
		notify:    make(chan struct{}, 1),
	}
}

// AppendResponse records a response buffer (tag byte already
// stripped) for the next unanswered ADU and wakes up a goroutine
// waiting in Queue.execute. Safe for concurrent use: the broker
// dispatch callback calls this while the queue's lane goroutine reads
// the collected responses, per spec.md §5.
func (cr *ClientRequest) AppendResponse(buf []byte) {
	cr.mu.Lock()
	cr.responses = append(cr.responses, buf)
	cr.mu.Unlock()

	select {
	case cr.notify <- struct{}{}:
	default:
	}
}

// ResponseCount reports how many response buffers have been collected
// so far.
func (cr *ClientRequest) ResponseCount() int {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return len(cr.responses)
}

// Responses returns a snapshot of the collected response buffers.
func (cr *ClientRequest) Responses() [][]byte {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	out := make([][]byte, len(cr.responses))
	copy(out, cr.responses)
	return out
}
