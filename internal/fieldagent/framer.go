// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package fieldagent is the RS-485-side half of the system (spec.md
// §4.10): one MQTT client bound to one physical bus, performing
// CRC-checked half-duplex RTU exchanges on behalf of the gateway.
package fieldagent

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/grid-x/serial"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/broker"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/crc"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
)

// Tag bytes on the mbnet topic, spec.md §6.
const (
	tagBrokerOrigin byte = 0x00
	tagFieldOrigin  byte = 0x01
)

const (
	// TFirst is the default wait for the first reply byte, spec.md §5.
	TFirst = 500 * time.Millisecond

	maxFrame = 256

	// readPoll bounds each individual port.Read call so the deadline
	// loop below can re-check elapsed time at fine enough grain; it is
	// not itself a protocol timeout.
	readPoll = 20 * time.Millisecond

	// settleDelay is a short pause after the write completes, giving a
	// half-duplex RS-485 transceiver time to release the line before
	// reception begins (spec.md §5, "Field side").
	settleDelay = 2 * time.Millisecond
)

// SerialConfig carries the UART parameters the inter-symbol timeout is
// derived from, mirroring the gateway's own config.SerialConfig field
// names.
type SerialConfig struct {
	Device   string
	BaudRate int
	DataBits int
	Parity   string
	StopBits int
}

// Agent binds one broker Adapter to one physical serial port.
type Agent struct {
	ClientID string
	DeviceID string

	broker broker.Adapter
	port   io.ReadWriteCloser
	cfg    SerialConfig

	tFirst       time.Duration
	tIntersymbol time.Duration
}

// New builds an Agent. It does not open the port or connect the
// broker; call Start for that.
func New(clientID, deviceID string, adapter broker.Adapter, cfg SerialConfig) *Agent {
	return &Agent{
		ClientID:     clientID,
		DeviceID:     deviceID,
		broker:       adapter,
		cfg:          cfg,
		tFirst:       TFirst,
		tIntersymbol: intersymbolTimeout(cfg),
	}
}

// intersymbolTimeout computes T_intersymbol per spec.md §4.10/§9:
// max(1ms, ceil(1500*(data+parity+stop)/baud)), i.e. roughly 3.5
// character times.
func intersymbolTimeout(cfg SerialConfig) time.Duration {
	dataBits := cfg.DataBits
	if dataBits <= 0 {
		dataBits = 8
	}
	stopBits := cfg.StopBits
	if stopBits <= 0 {
		stopBits = 1
	}
	parityBits := 0
	if !strings.EqualFold(cfg.Parity, "N") && cfg.Parity != "" {
		parityBits = 1
	}
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = 9600
	}

	bits := dataBits + parityBits + stopBits
	ms := (1500*bits + baud - 1) / baud // ceil(1500*bits/baud) milliseconds
	d := time.Duration(ms) * time.Millisecond
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// Start opens the serial port and subscribes to this device's mbnet
// topic.
func (a *Agent) Start() error {
	port, err := serial.Open(&serial.Config{
		Address:  a.cfg.Device,
		BaudRate: a.cfg.BaudRate,
		DataBits: a.cfg.DataBits,
		StopBits: a.cfg.StopBits,
		Parity:   a.cfg.Parity,
		Timeout:  readPoll,
	})
	if err != nil {
		return fmt.Errorf("fieldagent %s: open serial: %w", a.DeviceID, err)
	}
	a.port = port

	if err := a.broker.Connect(); err != nil {
		return fmt.Errorf("fieldagent %s: connect: %w", a.DeviceID, err)
	}
	topic := fmt.Sprintf("+/%s/mbnet", a.DeviceID)
	if err := a.broker.Subscribe(topic, a.handleMbnet); err != nil {
		return fmt.Errorf("fieldagent %s: subscribe: %w", a.DeviceID, err)
	}
	slog.Info("field agent started", "device", a.DeviceID, "port", a.cfg.Device)
	return nil
}

// Stop closes the serial port and disconnects the broker.
func (a *Agent) Stop() {
	a.broker.Disconnect()
	if a.port != nil {
		a.port.Close()
	}
}

// handleMbnet implements spec.md §4.10: ignore field-origin echoes,
// run one RTU exchange for broker-origin frames, and republish the
// tagged reply (or "Null" sentinel) on the same topic.
func (a *Agent) handleMbnet(topic string, payload []byte, _ string) {
	if len(payload) == 0 || payload[0] != tagBrokerOrigin {
		return
	}
	body := payload[1:]

	reply := a.exchange(body)

	tagged := make([]byte, 0, len(reply)+1)
	tagged = append(tagged, tagFieldOrigin)
	tagged = append(tagged, reply...)
	if err := a.broker.Publish(topic, tagged); err != nil {
		slog.Error("fieldagent: publish reply failed", "topic", topic, "err", err)
	}
}

// exchange performs one CRC-appended half-duplex RTU exchange for
// body, returning the response frame with its trailing CRC stripped,
// or the "Null" sentinel on any failure. One attempt; no retries.
func (a *Agent) exchange(body []byte) []byte {
	frame := crc.Append(append([]byte(nil), body...))

	if _, err := a.port.Write(frame); err != nil {
		slog.Warn("fieldagent: write failed", "device", a.DeviceID, "err", err)
		return modbus.NullSentinel
	}
	time.Sleep(settleDelay)

	resp := a.readFrame()
	if len(resp) == 0 {
		return modbus.NullSentinel
	}
	if !crc.Check(resp) {
		slog.Warn("fieldagent: crc mismatch", "device", a.DeviceID)
		return modbus.NullSentinel
	}
	return resp[:len(resp)-2]
}

// readFrame reads the reply with the two-stage timeout of spec.md
// §4.10: T_first for the first byte, then T_intersymbol per
// subsequent byte, stopping as soon as that elapses.
func (a *Agent) readFrame() []byte {
	data := make([]byte, 0, maxFrame)
	buf := make([]byte, 1)
	deadline := time.Now().Add(a.tFirst)

	for len(data) < maxFrame {
		if time.Now().After(deadline) {
			break
		}
		n, err := a.port.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		data = append(data, buf[0])
		deadline = time.Now().Add(a.tIntersymbol)
	}
	return data
}
