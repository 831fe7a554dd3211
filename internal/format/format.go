// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package format detects whether an inbound request uses terse or
// verbose field names, normalises it into canonical (terse) form, and
// projects a response back into the caller's original vocabulary.
package format

import (
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/registry"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/request"
)

const (
	Terse   = "terse"
	Verbose = "verbose"
)

// Detect reports the format of an inbound record: presence of "id"
// implies terse, presence of "identifier" implies verbose.
func Detect(raw map[string]any) string {
	if _, ok := raw["id"]; ok {
		return Terse
	}
	if _, ok := raw["identifier"]; ok {
		return Verbose
	}
	return Terse
}

// canonicalField reads raw's value for field under whichever key
// matches format, substituting the terse form of any recognised enum
// token.
func canonicalField(raw map[string]any, field, format string, enum map[string]registry.Token) (any, bool) {
	key := registry.FieldKey(field, format)
	v, ok := raw[key]
	if !ok {
		return nil, false
	}
	if enum != nil {
		if s, isStr := v.(string); isStr {
			return registry.Canonicalize(enum, s), true
		}
	}
	return v, true
}

// Canonicalize normalises raw into a CanonicalRequest, reading each of
// the eight canonical fields under the caller's detected format. It
// does not validate; callers must validate raw first.
func Canonicalize(raw map[string]any) (request.CanonicalRequest, string) {
	f := Detect(raw)
	var cr request.CanonicalRequest

	if v, ok := canonicalField(raw, "id", f, nil); ok {
		cr.ID = toInt(v)
	}
	if v, ok := canonicalField(raw, "fn", f, registry.Functions); ok {
		cr.Fn, _ = v.(string)
	}
	if v, ok := canonicalField(raw, "dt", f, registry.Datatypes); ok {
		cr.Dt, _ = v.(string)
	}
	if v, ok := canonicalField(raw, "rg", f, nil); ok {
		cr.Range = toIntSlice(v)
	}
	if v, ok := canonicalField(raw, "ls", f, nil); ok {
		cr.List = toIntSlice(v)
	}
	if v, ok := canonicalField(raw, "dv", f, nil); ok {
		cr.Values = toIntSlice(v)
	}
	if v, ok := canonicalField(raw, "sf", f, registry.SubfunctionTokens()); ok {
		cr.Subfn, _ = v.(string)
	}
	if v, ok := canonicalField(raw, "pk", f, nil); ok {
		cr.Packet = toByteSlice(v)
	}
	return cr, f
}

// ProjectFormat re-projects a response into the caller's original
// vocabulary: for each key in resp, it looks up the original-format
// key name; if original carried a value at that key, the original
// value is echoed verbatim (preserving exact casing/representation),
// otherwise the new value is emitted under the projected key.
func ProjectFormat(resp map[string]any, original map[string]any, targetFormat string) map[string]any {
	out := make(map[string]any, len(resp))
	for terseKey, value := range resp {
		var wireKey string
		if _, ok := registry.Fields[terseKey]; ok {
			wireKey = registry.FieldKey(terseKey, targetFormat)
		} else if _, ok := registry.ResponseFields[terseKey]; ok {
			wireKey = registry.ResponseFieldKey(terseKey, targetFormat)
		} else {
			wireKey = terseKey
		}
		if original != nil {
			if ov, ok := original[wireKey]; ok {
				out[wireKey] = ov
				continue
			}
		}
		out[wireKey] = value
	}
	return out
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func toIntSlice(v any) []int {
	switch s := v.(type) {
	case []int:
		return s
	case []any:
		out := make([]int, len(s))
		for i, e := range s {
			out[i] = toInt(e)
		}
		return out
	}
	return nil
}

func toByteSlice(v any) []byte {
	switch s := v.(type) {
	case []byte:
		return s
	case []any:
		out := make([]byte, len(s))
		for i, e := range s {
			out[i] = byte(toInt(e))
		}
		return out
	}
	return nil
}
