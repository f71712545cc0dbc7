// Package protocol implements the telemetry link between the ADC firmware
// and the host: VLQ-encoded payloads carried in CRC16-checked blocks.
package protocol

// Version is the telemetry format version reported by the firmware banner.
const Version = "0.1.0"

// Block layout: len, seq, payload..., crc_hi, crc_lo, sync
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	MessageSeqMask = 0x0F
)

// Message identifiers, the first VLQ of every payload.
const (
	MsgSampleFrame = 1
)
