// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package model is the in-memory register map behind the device
// simulator: a flat, full 16-bit-address-space Modbus data table.
package model

import (
	"encoding/binary"
	"fmt"
	"sync"
)

const MaxAddress = 65535

// TableType identifies one of the four Modbus register tables.
type TableType int

const (
	TableCoils TableType = iota
	TableDiscreteInputs
	TableHoldingRegisters
	TableInputRegisters
)

// DataModel holds one simulated device's register state.
type DataModel struct {
	mu sync.RWMutex

	Coils            []byte
	DiscreteInputs   []byte
	HoldingRegisters []uint16
	InputRegisters   []uint16
}

// NewDataModel creates a model initialised to zero.
func NewDataModel() *DataModel {
	return &DataModel{
		Coils:            make([]byte, MaxAddress+1),
		DiscreteInputs:   make([]byte, MaxAddress+1),
		HoldingRegisters: make([]uint16, MaxAddress+1),
		InputRegisters:   make([]uint16, MaxAddress+1),
	}
}

// ReadCoils reads quantity coils starting at address, packed LSB-first.
func (m *DataModel) ReadCoils(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packBits(m.Coils, address, quantity), nil
}

// ReadDiscreteInputs reads quantity discrete inputs, packed LSB-first.
func (m *DataModel) ReadDiscreteInputs(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packBits(m.DiscreteInputs, address, quantity), nil
}

// ReadHoldingRegisters reads quantity holding registers, big-endian.
func (m *DataModel) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packRegisters(m.HoldingRegisters, address, quantity), nil
}

// ReadInputRegisters reads quantity input registers, big-endian.
func (m *DataModel) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := validateRange(address, quantity); err != nil {
		return nil, err
	}
	return packRegisters(m.InputRegisters, address, quantity), nil
}

// WriteMultipleCoils writes quantity coils from packed LSB-first data.
func (m *DataModel) WriteMultipleCoils(address, quantity uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validateRange(address, quantity); err != nil {
		return err
	}
	if len(data) < (int(quantity)+7)/8 {
		return fmt.Errorf("model: insufficient data length")
	}
	for i := 0; i < int(quantity); i++ {
		bit := (data[i/8] >> uint(i%8)) & 1
		m.Coils[int(address)+i] = bit
	}
	return nil
}

// WriteMultipleRegisters writes quantity holding registers from
// big-endian data.
func (m *DataModel) WriteMultipleRegisters(address, quantity uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := validateRange(address, quantity); err != nil {
		return err
	}
	if len(data) < int(quantity)*2 {
		return fmt.Errorf("model: insufficient data length")
	}
	for i := 0; i < int(quantity); i++ {
		m.HoldingRegisters[int(address)+i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return nil
}

func packBits(table []byte, address, quantity uint16) []byte {
	out := make([]byte, (int(quantity)+7)/8)
	for i := 0; i < int(quantity); i++ {
		if table[int(address)+i] != 0 {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func packRegisters(table []uint16, address, quantity uint16) []byte {
	out := make([]byte, int(quantity)*2)
	for i := 0; i < int(quantity); i++ {
		binary.BigEndian.PutUint16(out[i*2:], table[int(address)+i])
	}
	return out
}

func validateRange(address, quantity uint16) error {
	if quantity == 0 {
		return fmt.Errorf("model: quantity must be greater than 0")
	}
	if int(address)+int(quantity) > MaxAddress+1 {
		return fmt.Errorf("model: address range out of bounds")
	}
	return nil
}
