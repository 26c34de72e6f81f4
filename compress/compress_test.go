package compress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/format"
)

func TestNoopCodecRoundTrip(t *testing.T) {
	data := []byte("sample pixel bytes")
	codec, err := CreateCodec(format.CodecNone)
	require.NoError(t, err)

	compressed, err := codec.Compress(data)
	require.NoError(t, err)
	decompressed, err := codec.Decompress(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, decompressed)
}

func TestZlibCodecRoundTrip(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 251)
	}

	codec := ZlibCodec{}
	compressed, err := codec.Compress(data)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(data))

	decompressed, err := codec.Decompress(compressed, len(data))
	require.NoError(t, err)
	assert.Equal(t, data, decompressed)
}

func TestLZ4CodecRoundTrip(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 17)
	}

	for _, hc := range []bool{false, true} {
		codec := LZ4Codec{highCompression: hc}
		compressed, err := codec.Compress(data)
		require.NoError(t, err)

		decompressed, err := codec.Decompress(compressed, len(data))
		require.NoError(t, err)
		assert.Equal(t, data, decompressed)
	}
}

func TestShuffleUnshuffleRoundTrip(t *testing.T) {
	data := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06, 0x07, 0x08,
		0x09, 0x0A, 0x0B, 0x0C,
	}

	shuffled, err := Shuffle(data, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x05, 0x09, 0x02, 0x06, 0x0A, 0x03, 0x07, 0x0B, 0x04, 0x08, 0x0C}, shuffled)

	unshuffled, err := Unshuffle(shuffled, 4)
	require.NoError(t, err)
	assert.Equal(t, data, unshuffled)
}

func TestShuffleRejectsBadItemSize(t *testing.T) {
	_, err := Shuffle([]byte{1, 2, 3}, 4)
	assert.Error(t, err)
}

func TestCreateCodecUnknown(t *testing.T) {
	_, err := CreateCodec(format.CompressionCodec(200))
	assert.Error(t, err)
}
