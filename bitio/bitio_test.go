package bitio

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	fields := []struct {
		value uint64
		bits  int
	}{
		{1, 1},
		{0, 1},
		{5, 3},
		{1234, 11},
		{0xFFFFFFFFFFFFFFFF, 64},
		{7, 3},
	}
	for _, f := range fields {
		if err := w.WriteBits(f.value, f.bits); err != nil {
			t.Fatalf("WriteBits(%d, %d): %v", f.value, f.bits, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(&buf)
	for _, f := range fields {
		got, err := r.ReadBits(f.bits)
		if err != nil {
			t.Fatalf("ReadBits(%d): %v", f.bits, err)
		}
		if got != f.value {
			t.Errorf("ReadBits(%d) = %d, want %d", f.bits, got, f.value)
		}
	}
}

func TestAlignToByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(1, 3); err != nil {
		t.Fatal(err)
	}
	if err := w.AlignToByte(); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteBits(0xAB, 8); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 2 {
		t.Fatalf("expected 2 bytes after alignment, got %d", buf.Len())
	}

	r := NewReader(&buf)
	v, err := r.ReadBits(3)
	if err != nil || v != 1 {
		t.Fatalf("ReadBits(3) = %d, %v", v, err)
	}
	r.AlignToByte()
	v, err = r.ReadBits(8)
	if err != nil || v != 0xAB {
		t.Fatalf("ReadBits(8) after align = %d, %v", v, err)
	}
}

func TestShortRead(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(1, 4); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	if _, err := r.ReadBits(4); err != nil {
		t.Fatalf("first read: %v", err)
	}
	// Close padded the stream to one whole byte, so only 4 bits remain.
	_, err := r.ReadBits(8)
	if !errors.Is(err, ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", err)
	}
}

func TestPosition(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteBits(1, 3)
	w.WriteBits(2, 5)
	if w.Position() != 8 {
		t.Fatalf("writer position = %d, want 8", w.Position())
	}
	w.Close()

	r := NewReader(&buf)
	r.ReadBits(3)
	if r.Position() != 3 {
		t.Fatalf("reader position = %d, want 3", r.Position())
	}
}

func TestInvalidWidth(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteBits(0, 0); err == nil {
		t.Error("expected error for 0-bit write")
	}
	if err := w.WriteBits(0, 65); err == nil {
		t.Error("expected error for 65-bit write")
	}

	r := NewReader(&buf)
	if _, err := r.ReadBits(0); err == nil {
		t.Error("expected error for 0-bit read")
	}
}
