package tiles

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRiceConstantTile covers the constant-tile Rice scenario: a
// BYTEPIX=1 tile whose stream is a raw first pixel (42) followed by a
// zero-entropy block marker, which must decode to four pixels all
// equal to 42.
func TestRiceConstantTile(t *testing.T) {
	compressed := []byte{42, 0x00}
	out, err := RiceDecoder{}.Decode(compressed, Params{Width: 4, Height: 1, Bytepix: 1, BlockSize: 4})
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 42, 42, 42}, out)
}

// TestHCompressNullTile covers the null-tile HCompress scenario: a
// tile whose sum-all field and coefficient bit planes are all zero
// decodes to all-zero pixels.
func TestHCompressNullTile(t *testing.T) {
	compressed := make([]byte, hcompressHeaderLen)
	compressed[0], compressed[1] = 0xDD, 0x99
	// nx=4, ny=1, scale=1, sum-all=0, nbitplanes all zero
	compressed[5] = 4
	compressed[9] = 1
	compressed[13] = 1

	out, err := HCompressDecoder{}.Decode(compressed, Params{Width: 4, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 0, 0}, out)
}

// TestHCompressRestoresDCFromSumAll covers a tile with no per-pixel
// bitplane detail: every decoded pixel must equal the sum-all field,
// since that field alone seeds the H-transform's DC coefficient.
func TestHCompressRestoresDCFromSumAll(t *testing.T) {
	compressed := make([]byte, hcompressHeaderLen)
	compressed[0], compressed[1] = 0xDD, 0x99
	// nx=2, ny=2, scale=1
	compressed[5] = 2
	compressed[9] = 2
	compressed[13] = 1
	binary.BigEndian.PutUint64(compressed[14:22], uint64(40)) // sum-all

	out, err := HCompressDecoder{}.Decode(compressed, Params{Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{40, 40, 40, 40}, out)
}

func TestPLIORunLength(t *testing.T) {
	header := make([]byte, plioHeaderWords*2) // encoded length/start position, unused by the decoder
	body := []byte{
		0x00, 0x02, // opcode 0 (run): 2 pixels at the current value (0)
		0x10, 0x00, // opcode 1 (load), high data=0
		0x00, 0x05, // low data=5 -> value becomes 5
		0x00, 0x02, // opcode 0 (run): 2 pixels at value 5
	}
	compressed := append(header, body...)

	out, err := PLIODecoder{}.Decode(compressed, Params{Width: 4, Height: 1})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 0, 5, 5}, out)
}

func TestRegistryDispatchesUnknownToProvider(t *testing.T) {
	reg := NewRegistry()
	reg.Provider = func(algorithm string, compressed []byte, p Params) ([]int64, bool, error) {
		if algorithm == "CUSTOM_1" {
			return []int64{1, 2, 3}, true, nil
		}

		return nil, false, nil
	}

	out, err := reg.Decode("CUSTOM_1", nil, Params{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, out)

	_, err = reg.Decode("NOPE", nil, Params{})
	assert.Error(t, err)
}
