// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package decoder

import (
	"testing"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

func TestDecodeRangeRead(t *testing.T) {
	cr := request.New(request.CanonicalRequest{ID: 1, Fn: "r", Dt: "no", Range: []int{0, 1}}, "terse", "client", "device", nil)
	cr.Frames = []request.Frame{{UnitID: 1, FuncCode: modbus.FuncCodeReadHoldingRegisters, Address: 0, Count: 2}}
	cr.ADUs = [][]byte{{1, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x00, 0x00, 0x02}}
	cr.AppendResponse([]byte{1, modbus.FuncCodeReadHoldingRegisters, 4, 0x00, 0x0A, 0x00, 0x14})

	out := Decode(cr)
	if out["st"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
	fd, _ := out["fd"].([]any)
	if len(fd) != 2 || fd[0] != 10 || fd[1] != 20 {
		t.Fatalf("unexpected fetched data: %v", fd)
	}
}

func TestDecodeTimesOutWhenResponsesAreMissing(t *testing.T) {
	cr := request.New(request.CanonicalRequest{ID: 1, Fn: "r", Dt: "no", Range: []int{0, 1}}, "terse", "client", "device", nil)
	cr.ADUs = [][]byte{{1, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x00, 0x00, 0x02}}

	out := Decode(cr)
	if out["st"] != false || out["ms"] != "Timed Out" {
		t.Fatalf("expected timeout result, got %+v", out)
	}
}

func TestDecodeNullSentinelReportsFailure(t *testing.T) {
	cr := request.New(request.CanonicalRequest{ID: 1, Fn: "r", Dt: "no", Range: []int{0, 0}}, "terse", "client", "device", nil)
	cr.ADUs = [][]byte{{1, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x00, 0x00, 0x01}}
	cr.AppendResponse(modbus.NullSentinel)

	out := Decode(cr)
	if out["st"] != false || out["ms"] != "Error Retrieving Data" {
		t.Fatalf("expected null-sentinel failure, got %+v", out)
	}
}

func TestDecodeListReordersByOriginalAddresses(t *testing.T) {
	cr := request.New(request.CanonicalRequest{ID: 1, Fn: "r", Dt: "no", List: []int{20, 5}}, "terse", "client", "device", nil)
	cr.Frames = []request.Frame{
		{UnitID: 1, FuncCode: modbus.FuncCodeReadHoldingRegisters, Address: 5, Count: 1},
		{UnitID: 1, FuncCode: modbus.FuncCodeReadHoldingRegisters, Address: 20, Count: 1},
	}
	cr.ADUs = [][]byte{
		{1, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x05, 0x00, 0x01},
		{1, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x14, 0x00, 0x01},
	}
	cr.AppendResponse([]byte{1, modbus.FuncCodeReadHoldingRegisters, 2, 0x00, 0x05})
	cr.AppendResponse([]byte{1, modbus.FuncCodeReadHoldingRegisters, 2, 0x00, 0x14})

	out := Decode(cr)
	fd, _ := out["fd"].([]any)
	if len(fd) != 2 || fd[0] != 20 || fd[1] != 5 {
		t.Fatalf("expected fetched data in original list order [20,5], got %v", fd)
	}
}

func TestDecodeModbusPassthrough(t *testing.T) {
	cr := request.New(request.CanonicalRequest{ID: 1, Fn: "m", Packet: []byte{0x03, 0x00, 0x00, 0x00, 0x01}}, "terse", "client", "device", nil)
	cr.ADUs = [][]byte{{1, 0x03, 0x00, 0x00, 0x00, 0x01}}
	cr.AppendResponse([]byte{0x01, 0x02, 0xCA, 0xFE})

	out := Decode(cr)
	if out["st"] != true {
		t.Fatalf("expected success, got %+v", out)
	}
	fd, _ := out["fd"].([]byte)
	if string(fd) != string([]byte{0x01, 0x02, 0xCA, 0xFE}) {
		t.Fatalf("unexpected passthrough payload: %x", fd)
	}
}
