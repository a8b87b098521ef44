package varint

import (
	"encoding/binary"
	"math"
)

// Pack8 packs a uint8 into a VarInt.
func Pack8(n uint8) []byte {
	return Pack64(uint64(n))
}

// Pack64 packs a uint64 into a VarInt.
func Pack64(n uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	size := binary.PutUvarint(buf, n)
	return buf[:size]
}

// Unpack8 unpacks a VarInt into a uint8. It returns the extracted int, how many bytes were used and an error.
func Unpack8(blob []byte) (uint8, int, error) {
	n, size, err := Unpack64(blob)
	if err != nil {
		return 0, 0, err
	}
	if n > math.MaxUint8 {
		return 0, 0, &valueExceededError{max: "uint8"}
	}
	return uint8(n), size, nil
}

// Unpack64 unpacks a VarInt into a uint64. It returns the extracted int, how many bytes were used and an error.
func Unpack64(blob []byte) (uint64, int, error) {
	if len(blob) == 0 {
		return 0, 0, ErrEmptyBuf
	}
	n, size := binary.Uvarint(blob)
	switch {
	case size == 0:
		return 0, 0, ErrTooSmall
	case size < 0:
		return 0, 0, &valueExceededError{max: "uint64"}
	}
	return n, size, nil
}
