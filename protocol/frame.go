package protocol

import "errors"

var (
	ErrBadCRC         = errors.New("block CRC mismatch")
	ErrFrameTooLong   = errors.New("frame exceeds block size")
	ErrBadSync        = errors.New("block framing invalid")
	ErrUnknownMessage = errors.New("unknown message id")
)

// MaxFrameSamples keeps a 12-bit frame inside MessageLengthMax even with
// five-byte generation and supply fields.
const MaxFrameSamples = 16

// SampleFrame is one snapshot of the continuous sampler together with the
// supply measurement needed to scale it.
type SampleFrame struct {
	Generation     uint32
	VddaUV         uint32
	ResolutionBits uint8
	Samples        []uint16
}

// EncodeFrame writes f as a single block with sequence number seq.
// Nothing is written when the frame does not fit.
func EncodeFrame(output OutputBuffer, seq uint8, f *SampleFrame) error {
	if len(f.Samples) > MaxFrameSamples {
		return ErrFrameTooLong
	}

	var scratch ScratchOutput
	scratch.Output([]byte{0, MessageDest | seq&MessageSeqMask})
	EncodeVLQUint(&scratch, MsgSampleFrame)
	EncodeVLQUint(&scratch, f.Generation)
	EncodeVLQUint(&scratch, f.VddaUV)
	EncodeVLQUint(&scratch, uint32(f.ResolutionBits))
	EncodeVLQUint(&scratch, uint32(len(f.Samples)))
	for _, s := range f.Samples {
		EncodeVLQUint(&scratch, uint32(s))
	}

	n := scratch.CurPosition() + MessageTrailerSize
	if scratch.Overflowed() || n > MessageLengthMax {
		return ErrFrameTooLong
	}
	scratch.Update(MessagePositionLen, uint8(n))

	crc := CRC16(scratch.Result())
	scratch.Output([]byte{
		uint8(crc >> 8),
		uint8(crc & 0xFF),
		MessageValueSync,
	})
	output.Output(scratch.Result())
	return nil
}

// DecodeFrame validates one complete block and decodes its payload.
// block must start at the length byte; bytes past the block are ignored.
func DecodeFrame(block []byte) (uint8, *SampleFrame, error) {
	seq, payload, err := checkBlock(block)
	if err != nil {
		return 0, nil, err
	}
	f, err := decodePayload(payload)
	return seq, f, err
}

// checkBlock verifies length, destination, sync byte and CRC, and returns
// the sequence number and payload.
func checkBlock(block []byte) (uint8, []byte, error) {
	if len(block) < MessageLengthMin {
		return 0, nil, ErrBufferTooSmall
	}
	msgLen := int(block[MessagePositionLen])
	if msgLen > MessageLengthMax {
		return 0, nil, ErrFrameTooLong
	}
	if msgLen < MessageLengthMin {
		return 0, nil, ErrBadSync
	}
	if len(block) < msgLen {
		return 0, nil, ErrBufferTooSmall
	}

	seq := block[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest || block[msgLen-MessageTrailerSync] != MessageValueSync {
		return 0, nil, ErrBadSync
	}

	frameCRC := uint16(block[msgLen-MessageTrailerCRC])<<8 |
		uint16(block[msgLen-MessageTrailerCRC+1])
	if frameCRC != CRC16(block[:msgLen-MessageTrailerSize]) {
		return 0, nil, ErrBadCRC
	}
	return seq & MessageSeqMask, block[MessageHeaderSize : msgLen-MessageTrailerSize], nil
}

func decodePayload(data []byte) (*SampleFrame, error) {
	var fields [5]uint32
	for i := range fields {
		v, err := DecodeVLQUint(&data)
		if err != nil {
			return nil, err
		}
		fields[i] = v
		if i == 0 && v != MsgSampleFrame {
			return nil, ErrUnknownMessage
		}
	}

	count := fields[4]
	if count > MaxFrameSamples {
		return nil, ErrFrameTooLong
	}
	f := &SampleFrame{
		Generation:     fields[1],
		VddaUV:         fields[2],
		ResolutionBits: uint8(fields[3]),
		Samples:        make([]uint16, count),
	}
	for i := range f.Samples {
		v, err := DecodeVLQUint(&data)
		if err != nil {
			return nil, err
		}
		f.Samples[i] = uint16(v)
	}
	return f, nil
}

// Encoder numbers outgoing frames.
type Encoder struct {
	output OutputBuffer
	seq    uint8
}

// NewEncoder creates an encoder writing to output.
func NewEncoder(output OutputBuffer) *Encoder {
	return &Encoder{output: output}
}

// Encode writes f with the next sequence number. The number only advances
// when the frame was written.
func (e *Encoder) Encode(f *SampleFrame) error {
	if err := EncodeFrame(e.output, e.seq, f); err != nil {
		return err
	}
	e.seq = (e.seq + 1) & MessageSeqMask
	return nil
}

// FrameHandler receives each decoded frame.
type FrameHandler func(seq uint8, f *SampleFrame)

// DecoderStats counts what the decoder saw.
type DecoderStats struct {
	Frames  uint32 // frames delivered
	Dropped uint32 // frames missing according to sequence numbers
	Resyncs uint32 // times framing was lost
	Errors  uint32 // well-framed blocks whose payload was rejected
}

// Decoder extracts frames from a byte stream, resynchronizing on the sync
// byte after garbage or corruption.
type Decoder struct {
	handler      FrameHandler
	onError      func(error)
	synchronized bool
	haveSeq      bool
	nextSeq      uint8
	stats        DecoderStats
}

// NewDecoder creates a decoder that calls handler for every good frame.
func NewDecoder(handler FrameHandler) *Decoder {
	return &Decoder{handler: handler, synchronized: true}
}

// SetErrorHandler installs a callback for rejected blocks.
func (d *Decoder) SetErrorHandler(fn func(error)) {
	d.onError = fn
}

// Stats returns the running counters.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// Receive consumes every complete block in input. A trailing partial block
// is left in input for the next call.
func (d *Decoder) Receive(input InputBuffer) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == MessageValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.synchronized = true
			continue
		}

		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}
		if len(data) < MessageLengthMin {
			break
		}
		msgLen := int(data[MessagePositionLen])
		if msgLen >= MessageLengthMin && msgLen <= MessageLengthMax && len(data) < msgLen {
			break
		}

		seq, payload, err := checkBlock(data)
		if err != nil {
			d.synchronized = false
			d.haveSeq = false
			d.stats.Resyncs++
			d.report(err)
			continue
		}
		data = data[msgLen:]

		f, err := decodePayload(payload)
		if err != nil {
			d.stats.Errors++
			d.haveSeq = true
			d.nextSeq = (seq + 1) & MessageSeqMask
			d.report(err)
			continue
		}
		d.deliver(seq, f)
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (d *Decoder) deliver(seq uint8, f *SampleFrame) {
	if d.haveSeq && seq != d.nextSeq {
		d.stats.Dropped += uint32((seq - d.nextSeq) & MessageSeqMask)
	}
	d.haveSeq = true
	d.nextSeq = (seq + 1) & MessageSeqMask
	d.stats.Frames++
	if d.handler != nil {
		d.handler(seq, f)
	}
}

func (d *Decoder) report(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}
