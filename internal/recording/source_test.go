package recording

import (
	"encoding/binary"
	"testing"
)

func pcmBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestBufferSourceRoundTrip(t *testing.T) {
	src := NewBufferSource()

	if err := src.Append(pcmBytes(1)); err == nil {
		t.Fatalf("expected append before begin to fail")
	}
	if _, err := src.Drain(); err == nil {
		t.Fatalf("expected drain before begin to fail")
	}

	if err := src.Begin(44100); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := src.Begin(44100); err == nil {
		t.Fatalf("expected second begin to fail")
	}

	if err := src.Append(pcmBytes(1, -2)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := src.Append(pcmBytes(3)); err != nil {
		t.Fatalf("Append second chunk: %v", err)
	}
	if err := src.Append([]byte{0x01}); err == nil {
		t.Fatalf("expected odd-length payload to fail")
	}

	samples, err := src.Drain()
	if err != nil {
		t.Fatalf("Drain: %v", err)
	}
	want := []int16{1, -2, 3}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("sample %d: expected %d, got %d", i, want[i], samples[i])
		}
	}

	// Drain 结束本段，下一段从空开始
	if err := src.Begin(44100); err != nil {
		t.Fatalf("Begin second segment: %v", err)
	}
	samples, err = src.Drain()
	if err != nil {
		t.Fatalf("Drain second segment: %v", err)
	}
	if len(samples) != 0 {
		t.Fatalf("expected empty second segment, got %d samples", len(samples))
	}
}
