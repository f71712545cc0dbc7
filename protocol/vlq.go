package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// maxVLQLen covers any 32-bit value.
const maxVLQLen = 5

// AppendVLQ appends v to dst as big-endian seven bit groups, setting the top
// bit on every byte but the last. Bits 5 and 6 of the first byte carry the
// sign, so a single byte holds [-32, 96).
func AppendVLQ(dst []byte, v int32) []byte {
	n := 1
	for lim := int64(1 << 5); n < maxVLQLen; lim <<= 7 {
		if int64(v) >= -lim && int64(v) < 3*lim {
			break
		}
		n++
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, byte(v>>(7*i))&0x7F|0x80)
	}
	return append(dst, byte(v)&0x7F)
}

// EncodeVLQInt writes v to output in a single Output call.
func EncodeVLQInt(output OutputBuffer, v int32) {
	var b [maxVLQLen]byte
	output.Output(AppendVLQ(b[:0], v))
}

// EncodeVLQUint writes v as its int32 bit pattern; DecodeVLQUint restores it.
func EncodeVLQUint(output OutputBuffer, v uint32) {
	EncodeVLQInt(output, int32(v))
}

// EncodeVLQ returns the encoding of v.
func EncodeVLQ(v int32) []byte {
	return AppendVLQ(nil, v)
}

// DecodeVLQ decodes the value at the start of data and returns it together
// with the number of bytes it occupied.
func DecodeVLQ(data []byte) (int32, int, error) {
	if len(data) == 0 {
		return 0, 0, ErrBufferTooSmall
	}
	c := data[0]
	v := uint32(c & 0x7F)
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	n := 1
	for c&0x80 != 0 {
		switch {
		case n == maxVLQLen:
			return 0, 0, ErrInvalidVLQ
		case n == len(data):
			return 0, 0, ErrBufferTooSmall
		}
		c = data[n]
		n++
		v = v<<7 | uint32(c&0x7F)
	}
	return int32(v), n, nil
}

// DecodeVLQInt decodes a value and advances data past it. data is left
// untouched on error.
func DecodeVLQInt(data *[]byte) (int32, error) {
	v, n, err := DecodeVLQ(*data)
	if err != nil {
		return 0, err
	}
	*data = (*data)[n:]
	return v, nil
}

func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}
