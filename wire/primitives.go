// Package wire implements the leaf-level binary primitives of the OrientDB
// network protocol: fixed-width network-order integers, LEB128/zig-zag
// varints, length-prefixed byte strings and booleans.
//
// Every decode function follows the same shape: it takes a byte slice and
// returns (value, rest, error). An ErrNeedMore error means the slice is a
// valid, possibly-empty prefix of a longer
// encoding and the caller should retry once more bytes arrive — this is what
// lets the connection state machine (package orientgo) treat reads as
// streaming and restartable (spec §4.3, "streaming decode").
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrNeedMore indicates the supplied bytes are a valid but incomplete
// prefix of an encoded value. Callers should buffer more bytes and retry.
var ErrNeedMore = errors.New("wire: need more bytes")

// ErrMalformedVarint indicates a varint continued for more than 10 bytes
// without terminating.
var ErrMalformedVarint = errors.New("wire: malformed varint")

// nullLen is the length sentinel used by the wire format to mean "null"
// instead of an empty (zero-length) byte string.
const nullLen = -1

// EncodeBool encodes a boolean as a single byte: 0x01 for true, 0x00 for false.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{0x01}
	}
	return []byte{0x00}
}

// DecodeBool decodes a single boolean byte.
func DecodeBool(b []byte) (bool, []byte, error) {
	if len(b) < 1 {
		return false, b, ErrNeedMore
	}
	return b[0] != 0x00, b[1:], nil
}

// EncodeInt16 encodes a signed 16-bit integer, network byte order.
func EncodeInt16(v int16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, uint16(v))
	return buf
}

// DecodeInt16 decodes a signed 16-bit integer, network byte order.
func DecodeInt16(b []byte) (int16, []byte, error) {
	if len(b) < 2 {
		return 0, b, ErrNeedMore
	}
	return int16(binary.BigEndian.Uint16(b[:2])), b[2:], nil
}

// EncodeInt32 encodes a signed 32-bit integer, network byte order.
func EncodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v))
	return buf
}

// DecodeInt32 decodes a signed 32-bit integer, network byte order.
func DecodeInt32(b []byte) (int32, []byte, error) {
	if len(b) < 4 {
		return 0, b, ErrNeedMore
	}
	return int32(binary.BigEndian.Uint32(b[:4])), b[4:], nil
}

// EncodeInt64 encodes a signed 64-bit integer, network byte order.
func EncodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// DecodeInt64 decodes a signed 64-bit integer, network byte order.
func DecodeInt64(b []byte) (int64, []byte, error) {
	if len(b) < 8 {
		return 0, b, ErrNeedMore
	}
	return int64(binary.BigEndian.Uint64(b[:8])), b[8:], nil
}

// EncodeFloat encodes an IEEE-754 single-precision float, network byte order.
func EncodeFloat(v float32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// DecodeFloat decodes an IEEE-754 single-precision float, network byte order.
func DecodeFloat(b []byte) (float32, []byte, error) {
	if len(b) < 4 {
		return 0, b, ErrNeedMore
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[:4])), b[4:], nil
}

// EncodeDouble encodes an IEEE-754 double-precision float, network byte order.
func EncodeDouble(v float64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(v))
	return buf
}

// DecodeDouble decodes an IEEE-754 double-precision float, network byte order.
func DecodeDouble(b []byte) (float64, []byte, error) {
	if len(b) < 8 {
		return 0, b, ErrNeedMore
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:8])), b[8:], nil
}

// EncodeBytes encodes a length-prefixed byte string: i32 length || bytes.
// A nil slice encodes as a length of -1 ("null"); use EncodeBytes([]byte{})
// to encode an empty-but-present string.
func EncodeBytes(v []byte) []byte {
	if v == nil {
		return EncodeInt32(nullLen)
	}
	buf := make([]byte, 0, 4+len(v))
	buf = append(buf, EncodeInt32(int32(len(v)))...) //nolint:gosec // wire protocol caps length well under int32
	buf = append(buf, v...)
	return buf
}

// EncodeString encodes a UTF-8 string the same way as EncodeBytes.
func EncodeString(s string) []byte {
	return EncodeBytes([]byte(s))
}

// DecodeBytes decodes a length-prefixed byte string. A length of -1 decodes
// to a nil slice ("null"); a length of 0 decodes to a non-nil empty slice.
func DecodeBytes(b []byte) ([]byte, []byte, error) {
	n, rest, err := DecodeInt32(b)
	if err != nil {
		return nil, b, err
	}
	if n == nullLen {
		return nil, rest, nil
	}
	if n < 0 {
		return nil, b, fmt.Errorf("wire: negative length-prefixed string length %d", n)
	}
	if int64(len(rest)) < int64(n) {
		return nil, b, ErrNeedMore
	}
	return rest[:n], rest[n:], nil
}

// DecodeString decodes a length-prefixed UTF-8 string. A null string decodes
// to "".
func DecodeString(b []byte) (string, []byte, error) {
	v, rest, err := DecodeBytes(b)
	if err != nil {
		return "", b, err
	}
	return string(v), rest, nil
}

// EncodeVarint encodes a signed integer as a zig-zag LEB128 varint: the
// value is first mapped n -> (n<<1) ^ (n>>63) so small magnitudes (positive
// or negative) use few bytes, then emitted 7 bits at a time, low byte
// first, with the high bit of each byte set on all but the last byte.
func EncodeVarint(n int64) []byte {
	zz := uint64((n << 1) ^ (n >> 63)) //nolint:gosec // intentional zig-zag bit trick
	var buf []byte
	for {
		b := byte(zz & 0x7f)
		zz >>= 7
		if zz != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			break
		}
	}
	return buf
}

// DecodeVarint decodes a zig-zag LEB128 varint. It returns ErrNeedMore if
// the slice ends before a terminating (high-bit-clear) byte is seen, and
// ErrMalformedVarint if the first 10 bytes all carry the continuation bit
// (10 bytes is the most a 64-bit zig-zag value can ever need).
func DecodeVarint(b []byte) (int64, []byte, error) {
	var zz uint64
	for i := 0; ; i++ {
		if i >= 10 {
			return 0, b, ErrMalformedVarint
		}
		if i >= len(b) {
			return 0, b, ErrNeedMore
		}
		cur := b[i]
		zz |= uint64(cur&0x7f) << (7 * i)
		if cur&0x80 == 0 {
			n := int64(zz>>1) ^ -(int64(zz) & 1)
			return n, b[i+1:], nil
		}
	}
}
