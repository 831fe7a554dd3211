// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package decoder inverts the encoder: it reassembles the client-facing
// response from a ClientRequest's collected response buffers,
// validating each against the frame that produced it.
package decoder

import (
	"bytes"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/buffer"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/modbus"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/registry"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

// headerBytes returns how many leading bytes of a response must match
// the outgoing frame's header, per spec.md §4.7.
func headerBytes(fn string) int {
	if fn == "u" || fn == "d" {
		return 4
	}
	return 2
}

// Decode reassembles the client-facing response for cr. It clones the
// canonical request so echo fields survive, then adds fetched-data,
// status and (on failure) message.
func Decode(cr *request.ClientRequest) map[string]any {
	out := canonicalToMap(cr.Canonical)

	responses := cr.Responses()
	if len(responses) != len(cr.ADUs) {
		out["st"] = false
		out["ms"] = "Timed Out"
		return out
	}

	for _, r := range responses {
		if modbus.IsNull(r) {
			out["st"] = false
			out["ms"] = "Error Retrieving Data"
			return out
		}
	}

	if cr.Canonical.Fn == "m" {
		out["fd"] = append([]byte(nil), responses[0]...)
		out["st"] = true
		return out
	}

	k := headerBytes(cr.Canonical.Fn)
	var dataFetching bool
	if cr.Canonical.Fn == "d" {
		dataFetching = registry.Subfunctions[cr.Canonical.Subfn].DataFetching
	}

	type decoded struct {
		frame  request.Frame
		values []any
	}
	results := make([]decoded, len(cr.Frames))
	for i, frame := range cr.Frames {
		adu := cr.ADUs[i]
		resp := responses[i]
		if len(adu) < k || len(resp) < k || !bytes.Equal(adu[:k], resp[:k]) {
			out["st"] = false
			out["ms"] = "Error Retrieving Data"
			return out
		}
		values, err := buffer.Debufferise(cr.Canonical.Fn, cr.Canonical.Dt, dataFetching, frame, resp)
		if err != nil {
			out["st"] = false
			out["ms"] = "Error Retrieving Data"
			return out
		}
		results[i] = decoded{frame, values}
	}

	switch cr.Canonical.Fn {
	case "d":
		if dataFetching {
			out["fd"] = results[0].values
		}
		out["st"] = true
		return out
	case "u":
		out["st"] = true
		return out
	case "r":
		if cr.Canonical.Range != nil {
			var fd []any
			for _, d := range results {
				fd = append(fd, d.values...)
			}
			out["fd"] = fd
			out["st"] = true
			return out
		}
		// List form: project decoded values back into the caller's
		// original list order.
		byAddr := make(map[int]any)
		for _, d := range results {
			for i, v := range d.values {
				byAddr[int(d.frame.Address)+i] = v
			}
		}
		fd := make([]any, len(cr.Canonical.List))
		for i, addr := range cr.Canonical.List {
			fd[i] = byAddr[addr]
		}
		out["fd"] = fd
		out["st"] = true
		return out
	}

	out["st"] = true
	return out
}

func canonicalToMap(cr request.CanonicalRequest) map[string]any {
	m := map[string]any{
		"id": cr.ID,
		"fn": cr.Fn,
	}
	if cr.Dt != "" {
		m["dt"] = cr.Dt
	}
	if cr.Range != nil {
		m["rg"] = cr.Range
	}
	if cr.List != nil {
		m["ls"] = cr.List
	}
	if cr.Values != nil {
		m["dv"] = cr.Values
	}
	if cr.Subfn != "" {
		m["sf"] = cr.Subfn
	}
	if cr.Packet != nil {
		m["pk"] = cr.Packet
	}
	return m
}
