// Copyright 2026 The x730 Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleMessage struct {
	Call  string `cbor:"call"`
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleMessage{
		Call:  "x730.reboot",
		OK:    true,
		Error: "",
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleMessage
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	message := sampleMessage{Call: "x730.poweroff", OK: false, Error: "boom"}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(message)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("same value produced different encodings")
	}
}

func TestDecodeMapIntoAny(t *testing.T) {
	data, err := Marshal(map[string]any{"force": true})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	asMap, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type = %T, want map[string]any", decoded)
	}
	if asMap["force"] != true {
		t.Errorf("force = %v, want true", asMap["force"])
	}
}

func TestStreamEncoderDecoder(t *testing.T) {
	var buffer bytes.Buffer

	if err := NewEncoder(&buffer).Encode(sampleMessage{Call: "a", OK: true}); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if err := NewEncoder(&buffer).Encode(sampleMessage{Call: "b", OK: false, Error: "x"}); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoder := NewDecoder(&buffer)
	var first, second sampleMessage
	if err := decoder.Decode(&first); err != nil {
		t.Fatalf("Decode first: %v", err)
	}
	if err := decoder.Decode(&second); err != nil {
		t.Fatalf("Decode second: %v", err)
	}
	if first.Call != "a" || second.Call != "b" {
		t.Errorf("stream order wrong: %q then %q", first.Call, second.Call)
	}
}
