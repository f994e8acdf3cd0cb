// Package hash checksums persisted frames with CRC32-Castagnoli.
//
// Seal appends a little-endian CRC32C trailer to a frame and Verify checks
// and strips it:
//
//	frame := hash.Seal(payload)
//	payload, err := hash.Verify(frame)
//
// Go's hash/crc32 uses the SSE4.2 and ARM CRC instructions when they are
// available.
package hash
