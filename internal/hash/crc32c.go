package hash

import (
	"encoding/binary"
	"errors"
	"hash"
	"hash/crc32"
)

// TrailerSize is the number of bytes Seal appends.
const TrailerSize = 4

// ErrChecksum is returned by Verify when a frame is truncated or its
// trailer does not match the payload.
var ErrChecksum = errors.New("hash: checksum mismatch")

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C computes the CRC32-Castagnoli checksum of data.
func CRC32C(data []byte) uint32 {
	return crc32.Checksum(data, crc32cTable)
}

// NewCRC32C returns a streaming CRC32-Castagnoli hash.
func NewCRC32C() hash.Hash32 {
	return crc32.New(crc32cTable)
}

// Seal returns payload followed by its checksum. payload is not modified.
func Seal(payload []byte) []byte {
	out := make([]byte, len(payload), len(payload)+TrailerSize)
	copy(out, payload)
	return binary.LittleEndian.AppendUint32(out, CRC32C(payload))
}

// Verify checks a frame produced by Seal and returns its payload, which
// aliases frame.
func Verify(frame []byte) ([]byte, error) {
	if len(frame) < TrailerSize {
		return nil, ErrChecksum
	}
	n := len(frame) - TrailerSize
	if binary.LittleEndian.Uint32(frame[n:]) != CRC32C(frame[:n]) {
		return nil, ErrChecksum
	}
	return frame[:n], nil
}
