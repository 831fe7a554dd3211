// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/model"
)

// FileStorage persists the register table to a plain file, syncing on
// every write.
type FileStorage struct {
	path string
	file *os.File
	data []byte
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (ms *FileStorage) Load() (*model.DataModel, error) {
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	ms.file = f

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() != int64(totalSize) {
		if err := f.Truncate(int64(totalSize)); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize file: %w", err)
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	ms.data = data
	return mapBytesToModel(data), nil
}

func (ms *FileStorage) Save(m *model.DataModel) error {
	return ms.sync()
}

func (ms *FileStorage) OnWrite(table model.TableType, address, quantity uint16) {
	if err := ms.sync(); err != nil {
		slog.Error("failed to sync file", "err", err)
	}
}

func (ms *FileStorage) sync() error {
	if ms.data == nil || ms.file == nil {
		return nil
	}
	if _, err := ms.file.WriteAt(ms.data, 0); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return ms.file.Sync()
}

func (ms *FileStorage) Close() error {
	if ms.file == nil {
		return nil
	}
	return ms.file.Close()
}
