// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package buffer

import (
	"testing"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

func TestBuffiriseReadHoldingRegisters(t *testing.T) {
	frame := request.Frame{UnitID: 3, FuncCode: modbus.FuncCodeReadHoldingRegisters, Address: 10, Count: 2}
	adu, err := Bufferise("r", "no", frame)
	if err != nil {
		t.Fatalf("Bufferise: %v", err)
	}
	want := []byte{3, modbus.FuncCodeReadHoldingRegisters, 0x00, 0x0A, 0x00, 0x02}
	if string(adu) != string(want) {
		t.Fatalf("got %x, want %x", adu, want)
	}
}

func TestBufferiseWriteMultipleCoils(t *testing.T) {
	frame := request.Frame{UnitID: 1, FuncCode: modbus.FuncCodeWriteMultipleCoils, Address: 0, Count: 10, Values: []int{1, 0, 1, 1, 0, 0, 0, 0, 1, 0}}
	adu, err := Bufferise("u", "bo", frame)
	if err != nil {
		t.Fatalf("Bufferise: %v", err)
	}
	if adu[7] != 0x0D || adu[8] != 0x01 {
		t.Fatalf("unexpected packed bits: %x", adu[7:9])
	}
}

func TestBufferisePassthroughUsesRawBytes(t *testing.T) {
	frame := request.Frame{UnitID: 9, Raw: []byte{0x03, 0x00, 0x00, 0x00, 0x01}}
	adu, err := Bufferise("m", "", frame)
	if err != nil {
		t.Fatalf("Bufferise: %v", err)
	}
	if adu[0] != 9 || string(adu[1:]) != string(frame.Raw) {
		t.Fatalf("unexpected passthrough ADU: %x", adu)
	}
}

func TestDebufferiseReadNumeric(t *testing.T) {
	frame := request.Frame{Address: 0, Count: 2}
	resp := []byte{1, modbus.FuncCodeReadHoldingRegisters, 4, 0x00, 0x0A, 0x00, 0x14}
	values, err := Debufferise("r", "no", false, frame, resp)
	if err != nil {
		t.Fatalf("Debufferise: %v", err)
	}
	if values[0] != 10 || values[1] != 20 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestDebufferiseReadBoolean(t *testing.T) {
	frame := request.Frame{Address: 0, Count: 3}
	resp := []byte{1, modbus.FuncCodeReadCoils, 1, 0x05}
	values, err := Debufferise("r", "bo", false, frame, resp)
	if err != nil {
		t.Fatalf("Debufferise: %v", err)
	}
	if values[0] != true || values[1] != false || values[2] != true {
		t.Fatalf("unexpected booleans: %v", values)
	}
}

func TestDebufferiseShortResponseErrors(t *testing.T) {
	frame := request.Frame{Address: 0, Count: 4}
	resp := []byte{1, modbus.FuncCodeReadHoldingRegisters, 4, 0x00}
	if _, err := Debufferise("r", "no", false, frame, resp); err == nil {
		t.Fatal("expected error for truncated response")
	}
}

func TestDebufferiseDiagnosisDataFetching(t *testing.T) {
	resp := []byte{1, modbus.FuncCodeDiagnostics, 0x00, 0x00, 0x12, 0x34}
	values, err := Debufferise("d", "", true, request.Frame{}, resp)
	if err != nil {
		t.Fatalf("Debufferise: %v", err)
	}
	if values[0] != 0x1234 {
		t.Fatalf("unexpected datum: %v", values[0])
	}
}

func TestDebufferiseWriteCarriesNoData(t *testing.T) {
	values, err := Debufferise("u", "no", false, request.Frame{}, nil)
	if err != nil {
		t.Fatalf("Debufferise: %v", err)
	}
	if values != nil {
		t.Fatalf("expected nil values for a write, got %v", values)
	}
}
