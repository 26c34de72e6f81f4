package bitio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadBits(t *testing.T) {
	// 0b10110010, 0b00000001
	r := NewReader([]byte{0xB2, 0x01})

	v, err := r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1011), v)

	v, err = r.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b0010), v)

	v, err = r.ReadBits(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x01), v)
}

func TestReadUnary(t *testing.T) {
	// 0b00010000
	r := NewReader([]byte{0x10})
	n, err := r.ReadUnary()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestReadPastEndReturnsErrShortBuffer(t *testing.T) {
	r := NewReader([]byte{0xFF})
	_, err := r.ReadBits(4)
	require.NoError(t, err)
	_, err = r.ReadBits(8)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestAlign(t *testing.T) {
	r := NewReader([]byte{0xFF, 0xAA})
	_, _ = r.ReadBits(3)
	r.Align()
	assert.Equal(t, 1, r.BytePos())
}
