// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"unsafe"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/model"
)

// Byte layout shared by FileStorage and MmapStorage:
//   - Coils:            65536 bytes (offset 0)
//   - DiscreteInputs:   65536 bytes
//   - HoldingRegisters: 65536*2 bytes
//   - InputRegisters:   65536*2 bytes
const (
	sizeCoils    = model.MaxAddress + 1
	sizeDiscrete = model.MaxAddress + 1
	sizeHolding  = (model.MaxAddress + 1) * 2
	sizeInput    = (model.MaxAddress + 1) * 2
	totalSize    = sizeCoils + sizeDiscrete + sizeHolding + sizeInput

	offsetCoils    = 0
	offsetDiscrete = offsetCoils + sizeCoils
	offsetHolding  = offsetDiscrete + sizeDiscrete
	offsetInput    = offsetHolding + sizeHolding
)

// mapBytesToModel builds a DataModel backed directly by data: no copy,
// but multi-byte values take the host's endianness.
func mapBytesToModel(data []byte) *model.DataModel {
	m := &model.DataModel{}
	m.Coils = data[offsetCoils : offsetCoils+sizeCoils]
	m.DiscreteInputs = data[offsetDiscrete : offsetDiscrete+sizeDiscrete]

	holdingBytes := data[offsetHolding : offsetHolding+sizeHolding]
	m.HoldingRegisters = unsafe.Slice((*uint16)(unsafe.Pointer(&holdingBytes[0])), sizeHolding/2)

	inputBytes := data[offsetInput : offsetInput+sizeInput]
	m.InputRegisters = unsafe.Slice((*uint16)(unsafe.Pointer(&inputBytes[0])), sizeInput/2)
	return m
}
