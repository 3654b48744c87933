// Package packed implements the low-level, bit-exact encodings shared by the
// config-block and slot formats: fixed-width little-endian integers,
// alignment rounding, and the relative-offset variable-blob record
// (PackedBytes) used to embed short or long byte strings inline in a packed
// structure without a separate schema for each case.
package packed

import "fmt"

// Size is the on-disk size of a PackedBytes record.
const Size = 8

// inlineThreshold is the largest payload length that is stored inline
// within the record itself rather than indirected through data_offset.
const inlineThreshold = Size - 4 // data_offset must stay >= 4 for inline payloads up to 4 bytes

// ErrOutOfRange is returned when a computed relative offset or size does not
// fit in the 24-bit field that must hold it.
var ErrOutOfRange = fmt.Errorf("packed: relative offset out of 24-bit range")

// ErrCorrupt is returned when decoding a PackedBytes record whose indirect
// payload bounds fall outside the backing buffer.
var ErrCorrupt = fmt.Errorf("packed: corrupt PackedBytes record")

// RoundUpBits rounds x up to the next multiple of 1<<bits. It is idempotent:
// RoundUpBits(bits, RoundUpBits(bits, x)) == RoundUpBits(bits, x).
func RoundUpBits(bits uint, x int64) int64 {
	size := int64(1) << bits
	return (x + size - 1) &^ (size - 1)
}

func putUint24(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}

func getUint24(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// EncodedSize returns the number of bytes an Encode call for a payload of
// length l will consume from the buffer in total, including the 8-byte
// record itself: Size when l <= 4 (inline), Size+l otherwise.
func EncodedSize(l int) int {
	if l <= 4 {
		return Size
	}
	return Size + l
}

// Encode writes a PackedBytes record at buf[recordOffset:recordOffset+Size].
//
// If len(payload) <= 4, the payload is stored inline within the record and
// payloadOffset is ignored. Otherwise payloadOffset must be the absolute
// offset (within buf) of a free region at least len(payload) bytes long,
// with payloadOffset >= recordOffset+Size; the payload is copied there and
// the record stores the relative delta to it.
func Encode(buf []byte, recordOffset, payloadOffset int, payload []byte) error {
	rec := buf[recordOffset : recordOffset+Size]
	for i := range rec {
		rec[i] = 0
	}

	l := len(payload)
	if l <= inlineThreshold {
		dataOffset := Size - l
		putUint24(rec[0:3], uint32(dataOffset))
		copy(rec[dataOffset:Size], payload)
		return nil
	}

	delta := payloadOffset - recordOffset
	if delta < Size {
		return fmt.Errorf("packed: payload offset %d must be at least %d past record offset %d", payloadOffset, Size, recordOffset)
	}
	if delta > 0xFFFFFF || l > 0xFFFFFF {
		return ErrOutOfRange
	}
	putUint24(rec[0:3], uint32(delta))
	putUint24(rec[4:7], uint32(l))
	copy(buf[payloadOffset:payloadOffset+l], payload)
	return nil
}

// Decode returns the payload referenced by the PackedBytes record at
// buf[recordOffset:recordOffset+Size], resolving an indirect reference
// against buf as a whole.
func Decode(buf []byte, recordOffset int) ([]byte, error) {
	if recordOffset < 0 || recordOffset+Size > len(buf) {
		return nil, ErrCorrupt
	}
	rec := buf[recordOffset : recordOffset+Size]
	dataOffset := getUint24(rec[0:3])

	if dataOffset < Size {
		return rec[dataOffset:Size], nil
	}

	dataSize := getUint24(rec[4:7])
	start := recordOffset + int(dataOffset)
	end := start + int(dataSize)
	if start < 0 || end > len(buf) || end < start {
		return nil, ErrCorrupt
	}
	return buf[start:end], nil
}
