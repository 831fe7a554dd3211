// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package buffer serialises abstract Modbus frames into byte ADUs
// (the bufferiser) and reconstructs structured values from response
// bodies (the debufferiser). CRC is never computed here: it is
// appended exclusively by the field agent (spec.md §9, "CRC
// ownership").
package buffer

import (
	"encoding/binary"
	"fmt"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

// Bufferise serialises one abstract frame into its byte ADU (pre-CRC).
func Bufferise(fn, dt string, frame request.Frame) ([]byte, error) {
	if frame.Raw != nil {
		out := make([]byte, 0, len(frame.Raw)+1)
		out = append(out, frame.UnitID)
		out = append(out, frame.Raw...)
		return out, nil
	}

	switch frame.FuncCode {
	case modbus.FuncCodeReadCoils, modbus.FuncCodeReadDiscreteInputs,
		modbus.FuncCodeReadHoldingRegisters, modbus.FuncCodeReadInputRegisters:
		adu := make([]byte, 6)
		adu[0] = frame.UnitID
		adu[1] = frame.FuncCode
		binary.BigEndian.PutUint16(adu[2:4], frame.Address)
		binary.BigEndian.PutUint16(adu[4:6], frame.Count)
		return adu, nil

	case modbus.FuncCodeWriteMultipleRegisters:
		byteCount := int(frame.Count) * 2
		adu := make([]byte, 7+byteCount)
		adu[0] = frame.UnitID
		adu[1] = frame.FuncCode
		binary.BigEndian.PutUint16(adu[2:4], frame.Address)
		binary.BigEndian.PutUint16(adu[4:6], frame.Count)
		adu[6] = byte(byteCount)
		for i, v := range frame.Values {
			binary.BigEndian.PutUint16(adu[7+i*2:9+i*2], uint16(v))
		}
		return adu, nil

	case modbus.FuncCodeWriteMultipleCoils:
		byteCount := (int(frame.Count) + 7) / 8
		adu := make([]byte, 7+byteCount)
		adu[0] = frame.UnitID
		adu[1] = frame.FuncCode
		binary.BigEndian.PutUint16(adu[2:4], frame.Address)
		binary.BigEndian.PutUint16(adu[4:6], frame.Count)
		adu[6] = byte(byteCount)
		for i, v := range frame.Values {
			if v != 0 {
				adu[7+i/8] |= 1 << uint(i%8)
			}
		}
		return adu, nil

	case modbus.FuncCodeDiagnostics:
		adu := make([]byte, 6)
		adu[0] = frame.UnitID
		adu[1] = frame.FuncCode
		binary.BigEndian.PutUint16(adu[2:4], frame.Address) // subfunction code
		binary.BigEndian.PutUint16(adu[4:6], frame.Count)   // data word
		return adu, nil
	}

	return nil, fmt.Errorf("buffer: no bufferiser for function code 0x%02X", frame.FuncCode)
}

// Debufferise reconstructs the structured values carried by a
// response ADU for one frame of a read, write or diagnosis request.
// It returns (nil, err) on any parse error; the caller treats that as
// the frame decoding to "null" (spec.md §4.6/§4.7).
func Debufferise(fn, dt string, dataFetching bool, frame request.Frame, resp []byte) ([]any, error) {
	switch fn {
	case "r":
		return debufferiseRead(dt, frame, resp)
	case "u":
		return nil, nil // writes carry no fetched data
	case "d":
		return debufferiseDiagnosis(dataFetching, resp)
	}
	return nil, fmt.Errorf("buffer: no debufferiser for fn %q", fn)
}

func debufferiseRead(dt string, frame request.Frame, resp []byte) ([]any, error) {
	if len(resp) < 3 {
		return nil, fmt.Errorf("buffer: read response too short")
	}
	byteCount := int(resp[2])
	if len(resp) < 3+byteCount {
		return nil, fmt.Errorf("buffer: read response shorter than its byte count")
	}
	data := resp[3 : 3+byteCount]

	switch dt {
	case "bi", "bo":
		want := (int(frame.Count) + 7) / 8
		if len(data) < want {
			return nil, fmt.Errorf("buffer: boolean read response too short for count %d", frame.Count)
		}
		out := make([]any, frame.Count)
		for i := 0; i < int(frame.Count); i++ {
			bit := (data[i/8] >> uint(i%8)) & 1
			out[i] = bit != 0
		}
		return out, nil
	case "ni", "no":
		if len(data) < int(frame.Count)*2 {
			return nil, fmt.Errorf("buffer: numeric read response too short for count %d", frame.Count)
		}
		out := make([]any, frame.Count)
		for i := 0; i < int(frame.Count); i++ {
			out[i] = int(binary.BigEndian.Uint16(data[i*2 : i*2+2]))
		}
		return out, nil
	}
	return nil, fmt.Errorf("buffer: unsupported datatype %q", dt)
}

func debufferiseDiagnosis(dataFetching bool, resp []byte) ([]any, error) {
	if len(resp) < 6 {
		return nil, fmt.Errorf("buffer: diagnosis response too short")
	}
	if !dataFetching {
		return []any{}, nil
	}
	datum := int(binary.BigEndian.Uint16(resp[4:6]))
	return []any{datum}, nil
}
