// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package registry

import "testing"

func TestCanonicalizeAcceptsTerseAndVerbose(t *testing.T) {
	if got := Canonicalize(Functions, "r"); got != "r" {
		t.Fatalf("terse passthrough: got %q", got)
	}
	if got := Canonicalize(Functions, "read"); got != "r" {
		t.Fatalf("verbose mapping: got %q", got)
	}
	if got := Canonicalize(Functions, "bogus"); got != "bogus" {
		t.Fatalf("unknown token should pass through unchanged: got %q", got)
	}
}

func TestProjectRoundTrips(t *testing.T) {
	if got := Project(Datatypes, "bo", Verbose); got != "boolean-output" {
		t.Fatalf("got %q", got)
	}
	if got := Project(Datatypes, "bo", Terse); got != "bo" {
		t.Fatalf("got %q", got)
	}
}

func TestFieldKey(t *testing.T) {
	if got := FieldKey("id", Terse); got != "id" {
		t.Fatalf("got %q", got)
	}
	if got := FieldKey("id", Verbose); got != "identifier" {
		t.Fatalf("got %q", got)
	}
}

func TestAllowedSubfunctionsCoversEveryEntry(t *testing.T) {
	terse := AllowedSubfunctions(Terse)
	if len(terse) != len(Subfunctions) {
		t.Fatalf("got %d entries, want %d", len(terse), len(Subfunctions))
	}
}

const (
	Terse   = "terse"
	Verbose = "verbose"
)
