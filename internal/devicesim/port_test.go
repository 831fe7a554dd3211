// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package devicesim

import (
	"encoding/binary"
	"testing"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/crc"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/persistence"
)

func TestPortRoundTrip(t *testing.T) {
	slave := newTestSlave(t)
	port := NewPort(slave, 0x11)
	defer port.Close()

	req := make([]byte, 6)
	req[0] = 0x11
	req[1] = 0x03
	binary.BigEndian.PutUint16(req[2:4], 0)
	binary.BigEndian.PutUint16(req[4:6], 1)
	frame := crc.Append(req)

	if _, err := port.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 64)
	n, err := port.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	resp := buf[:n]
	if !crc.Check(resp) {
		t.Fatalf("response failed CRC check: %x", resp)
	}
	if resp[0] != 0x11 || resp[1] != 0x03 {
		t.Fatalf("unexpected header: %x", resp[:2])
	}
	if resp[2] != 2 {
		t.Fatalf("expected byte count 2, got %v", resp[2])
	}
}

func TestPortIgnoresOtherUnitIDs(t *testing.T) {
	s, err := NewSlave(persistence.NewMemoryStorage())
	if err != nil {
		t.Fatalf("NewSlave: %v", err)
	}
	port := NewPort(s, 0x11)
	defer port.Close()

	req := make([]byte, 6)
	req[0] = 0x22
	req[1] = 0x03
	binary.BigEndian.PutUint16(req[2:4], 0)
	binary.BigEndian.PutUint16(req[4:6], 1)
	frame := crc.Append(req)

	if _, err := port.Write(frame); err != nil {
		t.Fatalf("Write: %v", err)
	}

	buf := make([]byte, 64)
	if _, err := port.Read(buf); err == nil {
		t.Fatal("expected no reply for a frame addressed to a different unit")
	}
}
