// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/devicesim/model"
)

// MmapStorage persists the register table via a memory-mapped file:
// writes land in the page cache immediately and Flush forces them to
// disk, with no explicit read/write syscall per access.
type MmapStorage struct {
	path string
	file *os.File
	data mmap.MMap
}

func NewMmapStorage(path string) *MmapStorage {
	return &MmapStorage{path: path}
}

func (ms *MmapStorage) Load() (*model.DataModel, error) {
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
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
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	ms.data = data

	return mapBytesToModel([]byte(data)), nil
}

func (ms *MmapStorage) Save(m *model.DataModel) error {
	return ms.sync()
}

func (ms *MmapStorage) OnWrite(table model.TableType, address, quantity uint16) {
	if err := ms.sync(); err != nil {
		slog.Error("failed to msync mmap file", "err", err)
	}
}

func (ms *MmapStorage) sync() error {
	if ms.data == nil {
		return nil
	}
	return ms.data.Flush()
}

func (ms *MmapStorage) Close() error {
	var err error
	if ms.data != nil {
		err = ms.data.Unmap()
		ms.data = nil
	}
	if ms.file != nil {
		if cerr := ms.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
