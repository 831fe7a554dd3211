// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package modbus defines the wire-level vocabulary shared by the
// encoder, bufferiser, debufferiser, decoder and field agent: function
// codes, exception codes and the protocol data unit they operate on.
package modbus

// ProtocolDataUnit is the function code plus payload of a Modbus frame,
// i.e. everything except the unit id and (on RTU) the CRC.
type ProtocolDataUnit struct {
	FunctionCode byte
	Data         []byte
}

// Function codes.
const (
	FuncCodeReadCoils              = 0x01
	FuncCodeReadDiscreteInputs     = 0x02
	FuncCodeReadHoldingRegisters   = 0x03
	FuncCodeReadInputRegisters     = 0x04
	FuncCodeWriteSingleCoil        = 0x05
	FuncCodeWriteSingleRegister    = 0x06
	FuncCodeDiagnostics            = 0x08
	FuncCodeWriteMultipleCoils     = 0x0F
	FuncCodeWriteMultipleRegisters = 0x10
)

// Exception codes.
const (
	ExceptionCodeIllegalFunction     = 0x01
	ExceptionCodeIllegalDataAddress  = 0x02
	ExceptionCodeIllegalDataValue    = 0x03
	ExceptionCodeServerDeviceFailure = 0x04
)

// NullSentinel is the in-band marker the field agent emits (after its
// tag byte) when an RTU exchange fails: CRC mismatch, zero-length
// read, or first-byte timeout.
var NullSentinel = []byte("Null")

// IsNull reports whether body's first four bytes equal the "Null"
// sentinel, per spec: any response whose first four bytes match marks
// the exchange as failed irrespective of its remaining bytes.
func IsNull(body []byte) bool {
	if len(body) < len(NullSentinel) {
		return false
	}
	for i, b := range NullSentinel {
		if body[i] != b {
			return false
		}
	}
	return true
}
