package protocol

import "io"

// InputBuffer is a queue of received bytes that the decoder consumes from
// the front.
type InputBuffer interface {
	Data() []byte
	Available() int

	// Pop drops n bytes from the front.
	Pop(n int)
}

// OutputBuffer collects encoded bytes.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int

	// Update patches an already written byte, e.g. the block length.
	Update(pos int, val byte)

	DataSince(pos int) []byte
}

// SliceInputBuffer is an InputBuffer over a fixed byte slice.
type SliceInputBuffer struct {
	data []byte
}

// NewSliceInputBuffer wraps data without copying.
func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte {
	return s.data
}

func (s *SliceInputBuffer) Available() int {
	return len(s.data)
}

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput is an OutputBuffer holding exactly one block.
type ScratchOutput struct {
	buf      [MessageLengthMax]byte
	pos      int
	overflow bool
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	n := copy(s.buf[s.pos:], data)
	s.pos += n
	if n < len(data) {
		s.overflow = true
	}
}

// Overflowed reports whether any output was dropped since the last Reset.
func (s *ScratchOutput) Overflowed() bool {
	return s.overflow
}

func (s *ScratchOutput) CurPosition() int {
	return s.pos
}

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos < len(s.buf) {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns the block built so far.
func (s *ScratchOutput) Result() []byte {
	return s.buf[:s.pos]
}

func (s *ScratchOutput) Reset() {
	s.pos = 0
	s.overflow = false
}

// WriterOutput forwards whole blocks to an io.Writer such as a UART.
// Positions count bytes written; Update and DataSince are not supported.
type WriterOutput struct {
	w   io.Writer
	n   int
	err error
}

// NewWriterOutput creates an output writing to w.
func NewWriterOutput(w io.Writer) *WriterOutput {
	return &WriterOutput{w: w}
}

func (o *WriterOutput) Output(data []byte) {
	if o.err != nil {
		return
	}
	n, err := o.w.Write(data)
	o.n += n
	o.err = err
}

func (o *WriterOutput) CurPosition() int {
	return o.n
}

func (o *WriterOutput) Update(pos int, val byte) {}

func (o *WriterOutput) DataSince(pos int) []byte {
	return nil
}

// Err returns the first write error. Output is dropped after an error.
func (o *WriterOutput) Err() error {
	return o.err
}

// RxBuffer queues received bytes for the decoder. Bytes stay contiguous so
// Data never copies; consumed space is reclaimed by sliding the remainder
// to the front when a write needs room.
type RxBuffer struct {
	buf   []byte
	start int
	end   int
}

// NewRxBuffer creates a buffer holding up to capacity bytes.
func NewRxBuffer(capacity int) *RxBuffer {
	return &RxBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count.
func (r *RxBuffer) Write(data []byte) int {
	if len(data) > len(r.buf)-r.end && r.start > 0 {
		r.end = copy(r.buf, r.buf[r.start:r.end])
		r.start = 0
	}
	n := copy(r.buf[r.end:], data)
	r.end += n
	return n
}

func (r *RxBuffer) Data() []byte {
	return r.buf[r.start:r.end]
}

func (r *RxBuffer) Available() int {
	return r.end - r.start
}

// Free returns how many bytes a Write can accept.
func (r *RxBuffer) Free() int {
	return len(r.buf) - r.Available()
}

func (r *RxBuffer) Pop(n int) {
	r.start += n
	if r.start >= r.end {
		r.start, r.end = 0, 0
	}
}

// Reset discards everything queued.
func (r *RxBuffer) Reset() {
	r.start, r.end = 0, 0
}
