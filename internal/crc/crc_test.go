// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package crc

import "testing"

func TestCRC(t *testing.T) {
	var c CRC
	c.Reset()
	c.PushBytes([]byte{0x02, 0x07})

	if c.Value() != 0x1241 {
		t.Fatalf("crc expected %v, actual %v", 0x1241, c.Value())
	}
}

func TestAppendAndCheckRoundTrip(t *testing.T) {
	frame := []byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x01}
	withCRC := Append(append([]byte(nil), frame...))
	if len(withCRC) != len(frame)+2 {
		t.Fatalf("unexpected length: %d", len(withCRC))
	}
	if !Check(withCRC) {
		t.Fatal("expected a freshly appended frame to pass Check")
	}
}

func TestCheckRejectsCorruptedFrame(t *testing.T) {
	frame := Append([]byte{0x11, 0x03, 0x00, 0x00, 0x00, 0x01})
	frame[0] ^= 0xFF
	if Check(frame) {
		t.Fatal("expected Check to reject a corrupted frame")
	}
}

func TestCheckRejectsTooShortFrame(t *testing.T) {
	if Check([]byte{0x01}) {
		t.Fatal("expected Check to reject a frame shorter than 2 bytes")
	}
}
