// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package registry is the single source of truth for the gateway's
// wire vocabulary: the terse/verbose spelling of every field name and
// enumerated value. No other package may hard-code these strings.
package registry

// Token pairs a field's terse (internal, canonical) spelling with its
// verbose spelling.
type Token struct {
	Terse   string
	Verbose string
}

// Fields maps every canonical field to its token pair. The map key is
// always the terse spelling.
var Fields = map[string]Token{
	"id": {"id", "identifier"},
	"fn": {"fn", "function"},
	"dt": {"dt", "datatype"},
	"rg": {"rg", "range"},
	"ls": {"ls", "list"},
	"dv": {"dv", "values"},
	"sf": {"sf", "subfunction"},
	"pk": {"pk", "packet"},
}

// ResponseFields extends Fields with the response-only keys the
// decoder adds.
var ResponseFields = map[string]Token{
	"fd": {"fetched-data", "fetched-data"},
	"st": {"status", "status"},
	"ms": {"message", "message"},
	"av": {"allowed-values", "allowed-values"},
}

// Functions maps the terse `fn` enum to its token pair.
var Functions = map[string]Token{
	"r": {"r", "read"},
	"u": {"u", "write"},
	"d": {"d", "diagnosis"},
	"m": {"m", "modbus"},
}

// Datatypes maps the terse `dt` enum to its token pair.
var Datatypes = map[string]Token{
	"bi": {"bi", "boolean-input"},
	"bo": {"bo", "boolean-output"},
	"ni": {"ni", "numeric-input"},
	"no": {"no", "numeric-output"},
}

// SubfunctionEntry is one row of the diagnostic subfunction registry.
type SubfunctionEntry struct {
	Token
	Code         uint16
	DataFetching bool
}

// Subfunctions maps the terse diagnostic subfunction token to its
// entry. DataFetching marks subfunctions whose reply carries two
// further bytes of fetched data (spec.md §4.6/§9).
var Subfunctions = map[string]SubfunctionEntry{
	"rqdt": {Token{"rqdt", "return-query-data"}, 0x0000, true},
	"rstc": {Token{"rstc", "restart-comms-option"}, 0x0001, false},
	"rdrg": {Token{"rdrg", "return-diagnostic-register"}, 0x0002, true},
	"flo":  {Token{"flo", "force-listen-only-mode"}, 0x0004, false},
	"clrc": {Token{"clrc", "clear-counters-and-diagnostic-register"}, 0x000A, false},
	"rbmc": {Token{"rbmc", "return-bus-message-count"}, 0x000B, true},
	"rbec": {Token{"rbec", "return-bus-comm-error-count"}, 0x000C, true},
	"rbxc": {Token{"rbxc", "return-bus-exception-error-count"}, 0x000D, true},
	"rsmc": {Token{"rsmc", "return-server-message-count"}, 0x000E, true},
	"rsnc": {Token{"rsnc", "return-server-no-response-count"}, 0x000F, true},
}

// SubfunctionTokens projects Subfunctions down to a plain Token table,
// for use with Canonicalize/Project.
func SubfunctionTokens() map[string]Token {
	out := make(map[string]Token, len(Subfunctions))
	for k, v := range Subfunctions {
		out[k] = v.Token
	}
	return out
}

// Canonicalize maps any recognised verbose or terse token for a value
// enumeration (fn, dt or a subfunction) to its terse form. Unknown
// tokens pass through unchanged: the validator is responsible for
// having already rejected them.
func Canonicalize(table map[string]Token, token string) string {
	if _, ok := table[token]; ok {
		return token
	}
	for terse, pair := range table {
		if pair.Verbose == token {
			return terse
		}
	}
	return token
}

// Project returns the token for terse in the requested format
// ("terse" or "verbose"). Unknown terse tokens pass through unchanged.
func Project(table map[string]Token, terse, format string) string {
	pair, ok := table[terse]
	if !ok {
		return terse
	}
	if format == "verbose" {
		return pair.Verbose
	}
	return pair.Terse
}

// FieldKey returns the wire key to use for a canonical field in the
// given format.
func FieldKey(field, format string) string {
	pair, ok := Fields[field]
	if !ok {
		return field
	}
	if format == "verbose" {
		return pair.Verbose
	}
	return pair.Terse
}

// ResponseFieldKey returns the wire key to use for a response-only
// field in the given format.
func ResponseFieldKey(field, format string) string {
	pair, ok := ResponseFields[field]
	if !ok {
		return field
	}
	if format == "verbose" {
		return pair.Verbose
	}
	return pair.Terse
}

// AllowedFunctions returns the verbose or terse spellings of every
// registered `fn` value, for use in a validator's AllowedValues.
func AllowedFunctions(format string) []string {
	return allowedOf(Functions, format)
}

// AllowedDatatypes returns the verbose or terse spellings of every
// registered `dt` value.
func AllowedDatatypes(format string) []string {
	return allowedOf(Datatypes, format)
}

// AllowedSubfunctions returns the verbose or terse spellings of every
// registered diagnostic subfunction.
func AllowedSubfunctions(format string) []string {
	out := make([]string, 0, len(Subfunctions))
	for _, entry := range Subfunctions {
		if format == "verbose" {
			out = append(out, entry.Verbose)
		} else {
			out = append(out, entry.Terse)
		}
	}
	return out
}

func allowedOf(table map[string]Token, format string) []string {
	out := make([]string, 0, len(table))
	for _, pair := range table {
		if format == "verbose" {
			out = append(out, pair.Verbose)
		} else {
			out = append(out, pair.Terse)
		}
	}
	return out
}
