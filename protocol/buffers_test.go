package protocol

import (
	"bytes"
	"io"
	"testing"
)

func TestSliceInputBufferPop(t *testing.T) {
	in := NewSliceInputBuffer([]byte{0x05, 0x10, 0x7E})
	in.Pop(1)
	if in.Available() != 2 || in.Data()[0] != 0x10 {
		t.Errorf("Expected [0x10 0x7e] left, got %x", in.Data())
	}
	in.Pop(10)
	if in.Available() != 0 {
		t.Errorf("Expected over-pop to empty the buffer, got %x", in.Data())
	}
}

func TestScratchOutputPatch(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{0, 0x10})
	start := scratch.CurPosition()
	scratch.Output([]byte{0x01, 0x02, 0x03})

	if got := scratch.DataSince(start); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Expected payload [1 2 3], got %v", got)
	}
	if scratch.DataSince(9) != nil {
		t.Error("Expected nil past the write position")
	}

	scratch.Update(0, byte(scratch.CurPosition()))
	if got := scratch.Result(); !bytes.Equal(got, []byte{5, 0x10, 1, 2, 3}) {
		t.Errorf("Expected patched length, got %v", got)
	}

	scratch.Reset()
	if scratch.CurPosition() != 0 || len(scratch.Result()) != 0 {
		t.Errorf("Expected empty block after reset, got %v", scratch.Result())
	}
}

func TestRxBuffer(t *testing.T) {
	rx := NewRxBuffer(8)

	if n := rx.Write([]byte{1, 2, 3, 4, 5, 6}); n != 6 {
		t.Fatalf("Expected 6 bytes accepted, got %d", n)
	}
	rx.Pop(4)
	if rx.Free() != 6 {
		t.Errorf("Expected 6 free after pop, got %d", rx.Free())
	}

	// needs compaction to fit
	if n := rx.Write([]byte{7, 8, 9, 10, 11}); n != 5 {
		t.Fatalf("Expected 5 bytes accepted, got %d", n)
	}
	if got := rx.Data(); !bytes.Equal(got, []byte{5, 6, 7, 8, 9, 10, 11}) {
		t.Errorf("Unexpected data after compaction: %v", got)
	}

	if n := rx.Write([]byte{12, 13, 14}); n != 1 {
		t.Errorf("Expected 1 byte accepted when nearly full, got %d", n)
	}
	if rx.Free() != 0 || rx.Write([]byte{15}) != 0 {
		t.Error("Expected full buffer to refuse writes")
	}

	rx.Pop(rx.Available())
	if rx.Available() != 0 || rx.Free() != 8 {
		t.Errorf("Expected empty buffer, %d available %d free", rx.Available(), rx.Free())
	}

	rx.Write([]byte{1, 2})
	rx.Reset()
	if rx.Available() != 0 {
		t.Errorf("Expected reset to discard data, got %v", rx.Data())
	}
}

func TestScratchOutputOverflow(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output(make([]byte, MessageLengthMax-1))
	if scratch.Overflowed() {
		t.Fatal("Unexpected overflow below capacity")
	}

	scratch.Output([]byte{1, 2})
	if !scratch.Overflowed() {
		t.Error("Expected overflow past capacity")
	}
	if scratch.CurPosition() != MessageLengthMax {
		t.Errorf("Expected position clamped to %d, got %d", MessageLengthMax, scratch.CurPosition())
	}

	scratch.Reset()
	if scratch.Overflowed() {
		t.Error("Reset should clear overflow")
	}
}

func TestWriterOutput(t *testing.T) {
	var buf bytes.Buffer
	out := NewWriterOutput(&buf)

	enc := NewEncoder(out)
	for gen := uint32(1); gen <= 2; gen++ {
		if err := enc.Encode(&SampleFrame{Generation: gen, ResolutionBits: 12, Samples: []uint16{1, 2}}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	if out.Err() != nil || out.CurPosition() != buf.Len() {
		t.Errorf("Position %d does not match %d written, err %v", out.CurPosition(), buf.Len(), out.Err())
	}

	var gens []uint32
	dec := NewDecoder(func(seq uint8, f *SampleFrame) { gens = append(gens, f.Generation) })
	dec.Receive(NewSliceInputBuffer(buf.Bytes()))
	if len(gens) != 2 || gens[1] != 2 {
		t.Errorf("Expected generations [1 2], got %v", gens)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriterOutputError(t *testing.T) {
	out := NewWriterOutput(failingWriter{})
	out.Output([]byte{1})
	out.Output([]byte{2})
	if out.Err() != io.ErrClosedPipe || out.CurPosition() != 0 {
		t.Errorf("Expected sticky error, got %v at %d", out.Err(), out.CurPosition())
	}
}
