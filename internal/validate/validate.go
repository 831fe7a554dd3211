// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package validate implements structural and cross-field validation of
// an inbound request, under either vocabulary. It never mutates its
// input and reports at most one, first-encountered, failure.
package validate

import (
	"fmt"

	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/format"
	"github.com/HadlerHT/Gateway-MQTT-Modbus/internal/registry"
)

// Result is the outcome of validating one request.
type Result struct {
	OK            bool
	Format        string
	Message       string
	AllowedValues []string
}

// Validate checks raw against the schema in spec.md §4.3. It never
// mutates raw.
func Validate(raw map[string]any) Result {
	f := format.Detect(raw)
	fail := func(msg string, allowed ...string) Result {
		return Result{OK: false, Format: f, Message: msg, AllowedValues: allowed}
	}

	idKey := registry.FieldKey("id", f)
	idVal, hasID := raw[idKey]
	if !hasID {
		return fail(fmt.Sprintf("missing required field %q", idKey))
	}
	id, isInt := asInt(idVal)
	if !isInt || id < 1 || id > 247 {
		return fail(fmt.Sprintf("field %q must be an integer in [1,247]", idKey))
	}

	fnKey := registry.FieldKey("fn", f)
	fnRaw, hasFn := raw[fnKey]
	fnStr, _ := fnRaw.(string)
	if !hasFn || fnStr == "" {
		return fail(fmt.Sprintf("missing required field %q", fnKey))
	}
	fn := registry.Canonicalize(registry.Functions, fnStr)
	if _, ok := registry.Functions[fn]; !ok {
		return fail(fmt.Sprintf("field %q has unrecognised value %q", fnKey, fnStr), registry.AllowedFunctions(f)...)
	}

	rgKey, lsKey, dvKey := registry.FieldKey("rg", f), registry.FieldKey("ls", f), registry.FieldKey("dv", f)
	dtKey, sfKey, pkKey := registry.FieldKey("dt", f), registry.FieldKey("sf", f), registry.FieldKey("pk", f)

	rgVal, hasRg := raw[rgKey]
	lsVal, hasLs := raw[lsKey]
	dvVal, hasDv := raw[dvKey]
	dtVal, hasDt := raw[dtKey]
	sfVal, hasSf := raw[sfKey]
	pkVal, hasPk := raw[pkKey]

	var rg, ls, dv []int
	if hasRg {
		rg = asIntSlice(rgVal)
		if len(rg) != 2 || rg[1] <= rg[0] {
			return fail(fmt.Sprintf("field %q must be two strictly ascending integers", rgKey))
		}
	}
	if hasLs {
		ls = asIntSlice(lsVal)
		if len(ls) == 0 {
			return fail(fmt.Sprintf("field %q must be a non-empty array", lsKey))
		}
		if !allUnique(ls) {
			return fail(fmt.Sprintf("field %q must contain unique integers", lsKey))
		}
	}
	if hasDv {
		dv = asIntSlice(dvVal)
		if len(dv) == 0 {
			return fail(fmt.Sprintf("field %q must be a non-empty array", dvKey))
		}
	}
	if hasPk {
		pk := asIntSlice(pkVal)
		for _, b := range pk {
			if b < 0 || b > 255 {
				return fail(fmt.Sprintf("field %q must contain bytes in [0,255]", pkKey))
			}
		}
	}

	switch fn {
	case "r": // read
		if hasRg == hasLs {
			return fail(fmt.Sprintf("exactly one of %q or %q must be present for a read", rgKey, lsKey))
		}
		if hasDv || hasSf || hasPk {
			return fail("read requests must not carry values, subfunction or packet fields")
		}
		if !hasDt {
			return fail(fmt.Sprintf("missing required field %q", dtKey))
		}
		dtStr, _ := dtVal.(string)
		dt := registry.Canonicalize(registry.Datatypes, dtStr)
		if _, ok := registry.Datatypes[dt]; !ok {
			return fail(fmt.Sprintf("field %q has unrecognised value %q", dtKey, dtStr), registry.AllowedDatatypes(f)...)
		}

	case "u": // write
		if hasRg == hasLs {
			return fail(fmt.Sprintf("exactly one of %q or %q must be present for a write", rgKey, lsKey))
		}
		if hasSf || hasPk {
			return fail("write requests must not carry subfunction or packet fields")
		}
		if !hasDv {
			return fail(fmt.Sprintf("missing required field %q", dvKey))
		}
		want := len(ls)
		if hasRg {
			want = rg[1] - rg[0] + 1
		}
		if len(dv) != want {
			return fail(fmt.Sprintf("field %q length must equal the range size or list length", dvKey))
		}
		if !hasDt {
			return fail(fmt.Sprintf("missing required field %q", dtKey))
		}
		dtStr, _ := dtVal.(string)
		dt := registry.Canonicalize(registry.Datatypes, dtStr)
		if dt != "bo" && dt != "no" {
			return fail(fmt.Sprintf("field %q must be boolean-output or numeric-output for a write", dtKey), registry.AllowedDatatypes(f)...)
		}

	case "d": // diagnosis
		if !hasSf {
			return fail(fmt.Sprintf("missing required field %q", sfKey))
		}
		if hasDv || hasDt || hasRg || hasLs || hasPk {
			return fail("diagnosis requests must not carry values, datatype, range, list or packet fields")
		}
		sfStr, _ := sfVal.(string)
		sf := registry.Canonicalize(registry.SubfunctionTokens(), sfStr)
		if _, ok := registry.Subfunctions[sf]; !ok {
			return fail(fmt.Sprintf("field %q has unrecognised value %q", sfKey, sfStr), registry.AllowedSubfunctions(f)...)
		}

	case "m": // raw modbus
		if !hasPk {
			return fail(fmt.Sprintf("missing required field %q", pkKey))
		}
		if hasDv || hasDt || hasRg || hasLs || hasSf {
			return fail("modbus requests must not carry values, datatype, range, list or subfunction fields")
		}
	}

	return Result{OK: true, Format: f}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func asIntSlice(v any) []int {
	switch s := v.(type) {
	case []int:
		return s
	case []any:
		out := make([]int, 0, len(s))
		for _, e := range s {
			n, ok := asInt(e)
			if !ok {
				return nil
			}
			out = append(out, n)
		}
		return out
	}
	return nil
}

func allUnique(xs []int) bool {
	seen := make(map[int]struct{}, len(xs))
	for _, x := range xs {
		if _, ok := seen[x]; ok {
			return false
		}
		seen[x] = struct{}{}
	}
	return true
}
