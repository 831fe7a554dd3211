// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package devicesim

import (
	"bytes"
	"io"
	"sync"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/crc"
	gwmodbus "github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
)

// Port adapts a Slave to an io.ReadWriteCloser, standing in for a
// serial line in tests: Write hands a whole CRC-checked ADU to the
// slave, and the reply (CRC appended) becomes available to the next
// Read calls, each returning as many pending bytes as its buffer holds.
type Port struct {
	slave *Slave
	unit  byte

	mu      sync.Mutex
	pending bytes.Buffer
}

// NewPort returns a Port that answers only requests addressed to
// unit; frames for any other unit id are silently dropped, matching
// how a real RS-485 slave ignores traffic not addressed to it.
func NewPort(slave *Slave, unit byte) *Port {
	return &Port{slave: slave, unit: unit}
}

func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !crc.Check(b) {
		return len(b), nil
	}
	frame := b[:len(b)-2]
	if len(frame) < 2 {
		return len(b), nil
	}
	if frame[0] != p.unit {
		return len(b), nil
	}

	req := gwmodbus.ProtocolDataUnit{FunctionCode: frame[1], Data: frame[2:]}
	resp := p.slave.Process(req)

	reply := make([]byte, 0, len(resp.Data)+2)
	reply = append(reply, p.unit, resp.FunctionCode)
	reply = append(reply, resp.Data...)
	reply = crc.Append(reply)
	p.pending.Write(reply)
	return len(b), nil
}

func (p *Port) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending.Len() == 0 {
		return 0, io.EOF
	}
	return p.pending.Read(b)
}

func (p *Port) Close() error {
	return p.slave.Close()
}
