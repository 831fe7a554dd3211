// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package encoder translates a canonical request into one or more
// abstract Modbus frames, coalescing address lists into the
// minimum-count contiguous runs that cover them.
package encoder

import (
	"fmt"
	"sort"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/registry"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

// funcCodeFor returns the Modbus function code for a (fn, dt) pair,
// per spec.md §4.4's table.
func funcCodeFor(fn, dt string) (byte, error) {
	switch fn + "+" + dt {
	case "r+bo":
		return modbus.FuncCodeReadCoils, nil
	case "r+bi":
		return modbus.FuncCodeReadDiscreteInputs, nil
	case "r+no":
		return modbus.FuncCodeReadHoldingRegisters, nil
	case "r+ni":
		return modbus.FuncCodeReadInputRegisters, nil
	case "u+bo":
		return modbus.FuncCodeWriteMultipleCoils, nil
	case "u+no":
		return modbus.FuncCodeWriteMultipleRegisters, nil
	}
	return 0, fmt.Errorf("encoder: no function code for fn=%q dt=%q", fn, dt)
}

// Encode translates cr into the ordered abstract frames that realize
// it on the wire.
func Encode(unitID byte, cr request.CanonicalRequest) ([]request.Frame, error) {
	switch cr.Fn {
	case "r", "u":
		return encodeReadWrite(unitID, cr)
	case "d":
		return encodeDiagnosis(unitID, cr)
	case "m":
		return []request.Frame{{UnitID: unitID, Raw: append([]byte(nil), cr.Packet...)}}, nil
	}
	return nil, fmt.Errorf("encoder: unsupported fn %q", cr.Fn)
}

func encodeReadWrite(unitID byte, cr request.CanonicalRequest) ([]request.Frame, error) {
	code, err := funcCodeFor(cr.Fn, cr.Dt)
	if err != nil {
		return nil, err
	}

	if cr.Range != nil {
		lo, hi := cr.Range[0], cr.Range[1]
		count := hi - lo + 1
		frame := request.Frame{UnitID: unitID, FuncCode: code, Address: uint16(lo), Count: uint16(count)}
		if cr.Fn == "u" {
			frame.Values = append([]int(nil), cr.Values...)
		}
		return []request.Frame{frame}, nil
	}

	// List form: sort addresses, remembering each address's paired
	// write value, then split into maximal contiguous runs.
	type addrVal struct {
		addr int
		val  int
	}
	pairs := make([]addrVal, len(cr.List))
	for i, a := range cr.List {
		v := 0
		if cr.Fn == "u" {
			v = cr.Values[i]
		}
		pairs[i] = addrVal{a, v}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].addr < pairs[j].addr })

	var frames []request.Frame
	i := 0
	for i < len(pairs) {
		j := i + 1
		for j < len(pairs) && pairs[j].addr == pairs[j-1].addr+1 {
			j++
		}
		run := pairs[i:j]
		frame := request.Frame{
			UnitID:   unitID,
			FuncCode: code,
			Address:  uint16(run[0].addr),
			Count:    uint16(len(run)),
		}
		if cr.Fn == "u" {
			vals := make([]int, len(run))
			for k, p := range run {
				vals[k] = p.val
			}
			frame.Values = vals
		}
		frames = append(frames, frame)
		i = j
	}
	return frames, nil
}

func encodeDiagnosis(unitID byte, cr request.CanonicalRequest) ([]request.Frame, error) {
	entry, ok := registry.Subfunctions[cr.Subfn]
	if !ok {
		return nil, fmt.Errorf("encoder: unregistered subfunction %q", cr.Subfn)
	}
	return []request.Frame{{
		UnitID:   unitID,
		FuncCode: modbus.FuncCodeDiagnostics,
		Address:  entry.Code, // subfunction code, reuses the Address slot
		Count:    0x0000,
	}}, nil
}
