// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package persistence backs the device simulator's register state with
// one of several storage strategies behind a common interface.
package persistence

import "github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/model"

// Storage persists a simulated device's DataModel.
type Storage interface {
	// Load returns the model to serve, creating a fresh one if none
	// exists yet.
	Load() (*model.DataModel, error)

	// Save writes the full model to the backing store.
	Save(m *model.DataModel) error

	// OnWrite is called after every write operation, letting the
	// storage persist in real time rather than only on Save.
	OnWrite(table model.TableType, address, quantity uint16)

	// Close releases any resources Load acquired.
	Close() error
}
