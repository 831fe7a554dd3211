// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package devicesim is an in-process Modbus RTU slave used only by
// tests: it answers the subset of function codes this gateway's wire
// vocabulary ever emits (spec.md §4.4), backed by a pluggable
// persistence.Storage.
package devicesim

import (
	"encoding/binary"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/model"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/persistence"
	gwmodbus "github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
)

// Slave answers Modbus PDUs against a DataModel.
type Slave struct {
	storage persistence.Storage
	model   *model.DataModel
}

// NewSlave loads m's model from storage (creating a fresh one if none
// exists) and returns a Slave ready to Process requests.
func NewSlave(storage persistence.Storage) (*Slave, error) {
	m, err := storage.Load()
	if err != nil {
		return nil, err
	}
	return &Slave{storage: storage, model: m}, nil
}

// Close releases the underlying storage.
func (s *Slave) Close() error {
	return s.storage.Close()
}

// Process executes one PDU against the model, returning either the
// normal response PDU or a Modbus exception PDU (function code with
// the high bit set).
func (s *Slave) Process(req gwmodbus.ProtocolDataUnit) gwmodbus.ProtocolDataUnit {
	switch req.FunctionCode {
	case gwmodbus.FuncCodeReadCoils:
		return s.handleRead(req, s.model.ReadCoils)
	case gwmodbus.FuncCodeReadDiscreteInputs:
		return s.handleRead(req, s.model.ReadDiscreteInputs)
	case gwmodbus.FuncCodeReadHoldingRegisters:
		return s.handleRead(req, s.model.ReadHoldingRegisters)
	case gwmodbus.FuncCodeReadInputRegisters:
		return s.handleRead(req, s.model.ReadInputRegisters)
	case gwmodbus.FuncCodeWriteMultipleCoils:
		return s.handleWriteMultipleCoils(req)
	case gwmodbus.FuncCodeWriteMultipleRegisters:
		return s.handleWriteMultipleRegisters(req)
	case gwmodbus.FuncCodeDiagnostics:
		return s.handleDiagnostics(req)
	default:
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalFunction)
	}
}

type readFunc func(address, quantity uint16) ([]byte, error)

func (s *Slave) handleRead(req gwmodbus.ProtocolDataUnit, read readFunc) gwmodbus.ProtocolDataUnit {
	if len(req.Data) != 4 {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])

	data, err := read(address, quantity)
	if err != nil {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataAddress)
	}

	resp := make([]byte, 1+len(data))
	resp[0] = byte(len(data))
	copy(resp[1:], data)
	return gwmodbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: resp}
}

func (s *Slave) handleWriteMultipleCoils(req gwmodbus.ProtocolDataUnit) gwmodbus.ProtocolDataUnit {
	if len(req.Data) < 6 {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])
	byteCount := req.Data[4]
	if byte(len(req.Data)-5) != byteCount {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}

	if err := s.model.WriteMultipleCoils(address, quantity, req.Data[5:]); err != nil {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataAddress)
	}
	s.storage.OnWrite(model.TableCoils, address, quantity)

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], address)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return gwmodbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: resp}
}

func (s *Slave) handleWriteMultipleRegisters(req gwmodbus.ProtocolDataUnit) gwmodbus.ProtocolDataUnit {
	if len(req.Data) < 6 {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}
	address := binary.BigEndian.Uint16(req.Data[0:2])
	quantity := binary.BigEndian.Uint16(req.Data[2:4])
	byteCount := req.Data[4]
	if byte(len(req.Data)-5) != byteCount {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}

	if err := s.model.WriteMultipleRegisters(address, quantity, req.Data[5:]); err != nil {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataAddress)
	}
	s.storage.OnWrite(model.TableHoldingRegisters, address, quantity)

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], address)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return gwmodbus.ProtocolDataUnit{FunctionCode: req.FunctionCode, Data: resp}
}

// handleDiagnostics answers every sub-function by echoing the whole
// request PDU unchanged, matching real slaves' loopback behaviour for
// sub-function 0x0000; no sub-function computes a counter or register
// value of its own.
func (s *Slave) handleDiagnostics(req gwmodbus.ProtocolDataUnit) gwmodbus.ProtocolDataUnit {
	if len(req.Data) != 4 {
		return s.exception(req.FunctionCode, gwmodbus.ExceptionCodeIllegalDataValue)
	}
	return req
}

func (s *Slave) exception(funcCode, code byte) gwmodbus.ProtocolDataUnit {
	return gwmodbus.ProtocolDataUnit{FunctionCode: funcCode | 0x80, Data: []byte{code}}
}
