package fits

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMinimalPrimaryImage(t *testing.T, pixels []byte) []byte {
	t.Helper()
	h := NewHeader()
	require.NoError(t, h.SetBool("SIMPLE", true))
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 1))
	require.NoError(t, h.SetInt("NAXIS1", int64(len(pixels))))

	var buf bytes.Buffer
	require.NoError(t, WriteHeader(&buf, h))
	require.NoError(t, WriteData(&buf, pixels))

	return buf.Bytes()
}

func TestParseRoundTripsMinimalImage(t *testing.T) {
	pixels := []byte{1, 2, 3, 4}
	data := buildMinimalPrimaryImage(t, pixels)

	assert.Equal(t, 0, len(data)%BlockSize)

	file, err := ParseBytes(data, ParseOptions{StrictValidation: true})
	require.NoError(t, err)
	require.Len(t, file.HDUs, 1)

	img, ok := file.HDUs[0].Data.(*Image)
	require.True(t, ok)

	frame, err := img.GetFrame(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, frame.Ints)
}

func TestParseRejectsMissingEND(t *testing.T) {
	block := make([]byte, BlockSize)
	for i := range block {
		block[i] = ' '
	}
	copy(block[0:8], "SIMPLE  ")
	block[8] = '='
	block[10] = 'T'

	_, err := ParseBytes(block, ParseOptions{StrictValidation: true})
	assert.Error(t, err)
}
