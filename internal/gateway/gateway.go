// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package gateway wires the broker adapter to the request pipeline:
// it is the "Gateway Glue" of spec.md §4.9, the broker-side half of
// the system that the field agent (internal/fieldagent) completes.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/broker"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/buffer"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/decoder"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/encoder"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/format"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/registry"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/validate"
)

// tagBrokerOrigin and tagFieldOrigin are the mbnet leading tag bytes,
// spec.md §6.
const (
	tagBrokerOrigin byte = 0x00
	tagFieldOrigin  byte = 0x01
)

// Gateway is a single broker-side instance: one Adapter, one Queue,
// dispatching every client/device pair through the same pipeline.
type Gateway struct {
	Name   string
	Broker broker.Adapter
	Queue  *request.Queue
}

// New creates a Gateway bound to adapter, with a fresh per-device
// queue built from maxSize/timeout (maxSize<=0 or timeout<=0 select
// the request package's defaults).
func New(name string, adapter broker.Adapter, maxSize int, timeout time.Duration) *Gateway {
	return &Gateway{
		Name:   name,
		Broker: adapter,
		Queue:  request.NewQueue(maxSize, timeout),
	}
}

// Start connects the broker and subscribes to every request/mbnet
// topic. It does not block; the adapter delivers inbound messages to
// the handlers registered here from its own goroutines.
func (g *Gateway) Start() error {
	if err := g.Broker.Connect(); err != nil {
		return fmt.Errorf("gateway %s: connect: %w", g.Name, err)
	}
	if err := g.Broker.Subscribe("+/+/request", g.handleRequest); err != nil {
		return fmt.Errorf("gateway %s: subscribe request: %w", g.Name, err)
	}
	if err := g.Broker.Subscribe("+/+/mbnet", g.handleMbnet); err != nil {
		return fmt.Errorf("gateway %s: subscribe mbnet: %w", g.Name, err)
	}
	slog.Info("gateway started", "name", g.Name)
	return nil
}

// Stop disconnects the broker.
func (g *Gateway) Stop() {
	g.Broker.Disconnect()
}

// splitTopic extracts client and device from a <client>/<device>/<leaf>
// topic. ok is false for anything shorter.
func splitTopic(topic string) (client, device string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// handleRequest implements spec.md §4.9's first bullet: parse, validate,
// and either enqueue a Client Request or publish a validator error.
func (g *Gateway) handleRequest(topic string, payload []byte, _ string) {
	client, device, ok := splitTopic(topic)
	if !ok {
		slog.Warn("gateway: malformed request topic", "topic", topic)
		return
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		slog.Warn("gateway: invalid JSON on request topic", "topic", topic, "err", err)
		return
	}

	result := validate.Validate(raw)
	if !result.OK {
		g.publishError(client, device, raw, result)
		return
	}

	canonical, detectedFormat := format.Canonicalize(raw)
	frames, err := encoder.Encode(byte(canonical.ID), canonical)
	if err != nil {
		g.publishError(client, device, raw, validate.Result{Format: detectedFormat, Message: err.Error()})
		return
	}

	adus := make([][]byte, len(frames))
	for i, f := range frames {
		adu, err := buffer.Bufferise(canonical.Fn, canonical.Dt, f)
		if err != nil {
			g.publishError(client, device, raw, validate.Result{Format: detectedFormat, Message: err.Error()})
			return
		}
		adus[i] = adu
	}

	cr := request.New(canonical, detectedFormat, client, device, raw)
	cr.Frames = frames
	cr.ADUs = adus

	if err := g.Queue.Enqueue(cr, g.sendADU, g.finishRequest); err != nil {
		g.publishError(client, device, raw, validate.Result{Format: detectedFormat, Message: "Queue Full"})
	}
}

// handleMbnet implements spec.md §4.9's second bullet, the broker's
// reception half of response routing (§4.8).
func (g *Gateway) handleMbnet(topic string, payload []byte, _ string) {
	_, device, ok := splitTopic(topic)
	if !ok || len(payload) == 0 {
		return
	}
	if payload[0] != tagFieldOrigin {
		return
	}
	g.Queue.RouteResponse(device, payload[1:])
}

// sendADU publishes one outgoing frame on client/device/mbnet, tagged
// as broker-origin, per spec.md §4.9/§6.
func (g *Gateway) sendADU(cr *request.ClientRequest, _ int, adu []byte) {
	topic := fmt.Sprintf("%s/%s/mbnet", cr.ClientID, cr.DeviceID)
	tagged := make([]byte, 0, len(adu)+1)
	tagged = append(tagged, tagBrokerOrigin)
	tagged = append(tagged, adu...)
	if err := g.Broker.Publish(topic, tagged); err != nil {
		slog.Error("gateway: publish mbnet failed", "topic", topic, "err", err)
	}
}

// finishRequest decodes the collected responses and publishes the
// client-facing response, per spec.md §4.7/§4.8.
func (g *Gateway) finishRequest(cr *request.ClientRequest, _ bool) {
	resp := decoder.Decode(cr)
	projected := format.ProjectFormat(resp, cr.Original, cr.Format)
	g.publish(cr.ClientID, cr.DeviceID, projected)
}

// publishError builds and publishes a failed response directly from a
// validation Result, without ever constructing a Client Request.
func (g *Gateway) publishError(client, device string, original map[string]any, result validate.Result) {
	resp := map[string]any{
		"st": false,
		"ms": result.Message,
	}
	if len(result.AllowedValues) > 0 {
		resp["av"] = result.AllowedValues
	}
	f := result.Format
	if f == "" {
		f = format.Detect(original)
	}
	// Echo whatever recognisable request fields are present, same as a
	// successful decode would.
	for terse := range registry.Fields {
		wireKey := registry.FieldKey(terse, f)
		if v, ok := original[wireKey]; ok {
			resp[terse] = v
		}
	}
	projected := format.ProjectFormat(resp, original, f)
	g.publish(client, device, projected)
}

func (g *Gateway) publish(client, device string, payload map[string]any) {
	topic := fmt.Sprintf("%s/%s/response", client, device)
	buf, err := json.Marshal(payload)
	if err != nil {
		slog.Error("gateway: marshal response failed", "topic", topic, "err", err)
		return
	}
	if err := g.Broker.Publish(topic, buf); err != nil {
		slog.Error("gateway: publish response failed", "topic", topic, "err", err)
	}
}
