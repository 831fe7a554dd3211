// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package devicesim

import (
	"encoding/binary"
	"testing"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/persistence"
	gwmodbus "github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
)

func newTestSlave(t *testing.T) *Slave {
	t.Helper()
	s, err := NewSlave(persistence.NewMemoryStorage())
	if err != nil {
		t.Fatalf("NewSlave: %v", err)
	}
	return s
}

func TestSlaveWriteThenReadHoldingRegisters(t *testing.T) {
	s := newTestSlave(t)
	defer s.Close()

	writeData := make([]byte, 6)
	binary.BigEndian.PutUint16(writeData[0:2], 0)
	binary.BigEndian.PutUint16(writeData[2:4], 2)
	writeData[4] = 4
	writeData = append(writeData, 0x00, 0x7B, 0x01, 0xC8)

	resp := s.Process(gwmodbus.ProtocolDataUnit{
		FunctionCode: gwmodbus.FuncCodeWriteMultipleRegisters,
		Data:         writeData,
	})
	if resp.FunctionCode != gwmodbus.FuncCodeWriteMultipleRegisters {
		t.Fatalf("unexpected write response: %+v", resp)
	}

	readData := make([]byte, 4)
	binary.BigEndian.PutUint16(readData[0:2], 0)
	binary.BigEndian.PutUint16(readData[2:4], 2)
	resp = s.Process(gwmodbus.ProtocolDataUnit{
		FunctionCode: gwmodbus.FuncCodeReadHoldingRegisters,
		Data:         readData,
	})
	if resp.FunctionCode != gwmodbus.FuncCodeReadHoldingRegisters {
		t.Fatalf("unexpected read response: %+v", resp)
	}
	if resp.Data[0] != 4 {
		t.Fatalf("unexpected byte count: %v", resp.Data[0])
	}
	if binary.BigEndian.Uint16(resp.Data[1:3]) != 0x007B {
		t.Fatalf("register 0 mismatch: %x", resp.Data[1:3])
	}
	if binary.BigEndian.Uint16(resp.Data[3:5]) != 0x01C8 {
		t.Fatalf("register 1 mismatch: %x", resp.Data[3:5])
	}
}

func TestSlaveUnknownFunctionReturnsIllegalFunction(t *testing.T) {
	s := newTestSlave(t)
	defer s.Close()

	resp := s.Process(gwmodbus.ProtocolDataUnit{FunctionCode: 0x7F})
	if resp.FunctionCode != 0x7F|0x80 {
		t.Fatalf("expected exception function code, got %x", resp.FunctionCode)
	}
	if resp.Data[0] != gwmodbus.ExceptionCodeIllegalFunction {
		t.Fatalf("expected illegal function, got %x", resp.Data[0])
	}
}

func TestSlaveOutOfRangeReadReturnsIllegalDataAddress(t *testing.T) {
	s := newTestSlave(t)
	defer s.Close()

	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], 65535)
	binary.BigEndian.PutUint16(data[2:4], 10)
	resp := s.Process(gwmodbus.ProtocolDataUnit{
		FunctionCode: gwmodbus.FuncCodeReadHoldingRegisters,
		Data:         data,
	})
	if resp.FunctionCode != gwmodbus.FuncCodeReadHoldingRegisters|0x80 {
		t.Fatalf("expected exception, got %x", resp.FunctionCode)
	}
	if resp.Data[0] != gwmodbus.ExceptionCodeIllegalDataAddress {
		t.Fatalf("expected illegal data address, got %x", resp.Data[0])
	}
}

func TestSlaveDiagnosticsEchoesRequest(t *testing.T) {
	s := newTestSlave(t)
	defer s.Close()

	resp := s.Process(gwmodbus.ProtocolDataUnit{
		FunctionCode: gwmodbus.FuncCodeDiagnostics,
		Data:         []byte{0x00, 0x00, 0xCA, 0xFE},
	})
	if resp.FunctionCode != gwmodbus.FuncCodeDiagnostics {
		t.Fatalf("unexpected function code: %x", resp.FunctionCode)
	}
	if string(resp.Data) != string([]byte{0x00, 0x00, 0xCA, 0xFE}) {
		t.Fatalf("expected loopback echo, got %x", resp.Data)
	}
}
