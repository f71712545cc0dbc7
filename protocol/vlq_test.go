package protocol

import (
	"bytes"
	"testing"
)

func TestVLQWireBytes(t *testing.T) {
	tests := []struct {
		v    int32
		wire []byte
	}{
		{0, []byte{0x00}},
		{95, []byte{0x5F}},
		{-1, []byte{0x7F}},
		{-32, []byte{0x60}},
		{96, []byte{0x80, 0x60}},
		{4095, []byte{0x9F, 0x7F}},
		{-33, []byte{0xFF, 0x5F}},
		{12288, []byte{0x80, 0xE0, 0x00}},
	}
	for _, tc := range tests {
		if got := EncodeVLQ(tc.v); !bytes.Equal(got, tc.wire) {
			t.Errorf("%d: expected %x, got %x", tc.v, tc.wire, got)
		}
		v, n, err := DecodeVLQ(tc.wire)
		if err != nil || v != tc.v || n != len(tc.wire) {
			t.Errorf("%x: decoded %d in %d bytes, err %v", tc.wire, v, n, err)
		}
	}
}

func TestVLQSampleFields(t *testing.T) {
	// generation, supply in uV, a 12-bit sample, and the extremes
	values := []uint32{0, 1, 4095, 65535, 3_300_000, 5_998_535, 0x80000000, 0xFFFFFFFF}

	scratch := NewScratchOutput()
	for _, v := range values {
		EncodeVLQUint(scratch, v)
	}
	data := scratch.Result()
	for _, want := range values {
		got, err := DecodeVLQUint(&data)
		if err != nil || got != want {
			t.Fatalf("Expected %d, got %d (%v)", want, got, err)
		}
	}
	if len(data) != 0 {
		t.Errorf("Expected stream consumed, %d bytes left", len(data))
	}
}

func TestVLQSignedRange(t *testing.T) {
	for _, v := range []int32{-128, 127, -4096, 12287, -1_000_000, 1_000_000, 2147483647, -2147483648} {
		enc := EncodeVLQ(v)
		if len(enc) > maxVLQLen {
			t.Errorf("%d: %d bytes", v, len(enc))
		}
		data := enc
		got, err := DecodeVLQInt(&data)
		if err != nil || got != v || len(data) != 0 {
			t.Errorf("%d: decoded %d, err %v, %d left", v, got, err, len(data))
		}
	}
}

func TestVLQMalformed(t *testing.T) {
	truncated := []byte{0x9F}
	if _, err := DecodeVLQInt(&truncated); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
	if len(truncated) != 1 {
		t.Error("Expected input untouched on error")
	}

	long := []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, _, err := DecodeVLQ(long); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ, got %v", err)
	}
	if _, _, err := DecodeVLQ(nil); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall on empty input, got %v", err)
	}
}
