package fits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestImageBzeroUnsignedRoundTrip verifies the canonical BZERO-encoded
// unsigned case: BITPIX=16 with BZERO=32768 decodes raw samples
// [0,-32768,32767,-1] to [32768,0,65535,32767], all within [0,65535].
func TestImageBzeroUnsignedRoundTrip(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("BITPIX", 16))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", 4))
	require.NoError(t, h.SetInt("NAXIS2", 1))
	require.NoError(t, h.SetFloat("BZERO", 32768))
	require.NoError(t, h.SetFloat("BSCALE", 1))

	raw := make([]byte, 8)
	samples := []int16{0, -32768, 32767, -1}
	for i, s := range samples {
		writeBE(raw[i*2:i*2+2], 16, int64(s))
	}

	img, err := NewImageFromHeader(h, raw)
	require.NoError(t, err)

	frame, err := img.GetFrame(0)
	require.NoError(t, err)
	require.Equal(t, FrameUint64, frame.Kind)
	assert.Equal(t, []uint64{32768, 0, 65535, 32767}, frame.UInts)

	for _, v := range frame.UInts {
		assert.GreaterOrEqual(t, v, uint64(0))
		assert.LessOrEqual(t, v, uint64(65535))
	}
}

func TestImageFloatBitpix(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("BITPIX", -32))
	require.NoError(t, h.SetInt("NAXIS", 1))
	require.NoError(t, h.SetInt("NAXIS1", 1))

	raw := make([]byte, 4)
	writeBEFloat(raw, -32, 3.5)

	img, err := NewImageFromHeader(h, raw)
	require.NoError(t, err)
	frame, err := img.GetFrame(0)
	require.NoError(t, err)
	require.Equal(t, FrameFloat64, frame.Kind)
	assert.InDelta(t, 3.5, frame.Floats[0], 1e-6)
}

func TestImageSignedIntNoShift(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("BITPIX", 32))
	require.NoError(t, h.SetInt("NAXIS", 1))
	require.NoError(t, h.SetInt("NAXIS1", 1))

	raw := make([]byte, 4)
	writeBE(raw, 32, -12345)

	img, err := NewImageFromHeader(h, raw)
	require.NoError(t, err)
	frame, err := img.GetFrame(0)
	require.NoError(t, err)
	require.Equal(t, FrameInt64, frame.Kind)
	assert.Equal(t, int64(-12345), frame.Ints[0])
}
