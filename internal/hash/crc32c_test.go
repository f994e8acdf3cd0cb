package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC32C_KnownValue(t *testing.T) {
	// RFC 3720 check value.
	assert.Equal(t, uint32(0xE3069283), CRC32C([]byte("123456789")))

	h := NewCRC32C()
	_, _ = h.Write([]byte("12345"))
	_, _ = h.Write([]byte("6789"))
	assert.Equal(t, uint32(0xE3069283), h.Sum32())
}

func TestSealVerify(t *testing.T) {
	payload := []byte("snapshot payload")
	frame := Seal(payload)
	require.Len(t, frame, len(payload)+TrailerSize)

	got, err := Verify(frame)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	empty, err := Verify(Seal(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestVerify_Corrupt(t *testing.T) {
	frame := Seal([]byte("snapshot payload"))
	frame[3] ^= 0xff
	_, err := Verify(frame)
	assert.ErrorIs(t, err, ErrChecksum)

	_, err = Verify([]byte{1, 2})
	assert.ErrorIs(t, err, ErrChecksum)
}
