package fits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildCompressedImageHeader(t *testing.T, width, height int) *Header {
	t.Helper()
	h := NewHeader()
	require.NoError(t, h.SetString("XTENSION", "BINTABLE"))
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", 8)) // one compressed-data element * 8 bytes placeholder
	require.NoError(t, h.SetInt("NAXIS2", 1))
	require.NoError(t, h.SetInt("PCOUNT", 2))
	require.NoError(t, h.SetInt("GCOUNT", 1))
	require.NoError(t, h.SetInt("TFIELDS", 1))
	require.NoError(t, h.SetString("TFORM1", "PB"))
	require.NoError(t, h.SetString("TTYPE1", "COMPRESSED_DATA"))
	require.NoError(t, h.Set(Card{Keyword: "ZIMAGE", Type: ValueBool, Bool: true}))
	require.NoError(t, h.SetString("ZCMPTYPE", "RICE_1"))
	require.NoError(t, h.SetInt("ZBITPIX", 8))
	require.NoError(t, h.SetInt("ZNAXIS", 2))
	require.NoError(t, h.SetInt("ZNAXIS1", int64(width)))
	require.NoError(t, h.SetInt("ZNAXIS2", int64(height)))
	require.NoError(t, h.SetInt("ZTILE1", int64(width)))
	require.NoError(t, h.SetInt("ZTILE2", int64(height)))
	require.NoError(t, h.SetInt("BYTEPIX", 1))
	require.NoError(t, h.SetFloat("ZSCALE", 1))
	require.NoError(t, h.SetFloat("ZZERO", 0))

	return h
}

func TestCompressedImageRiceConstantTile(t *testing.T) {
	h := buildCompressedImageHeader(t, 4, 1)

	// Row layout: one PB heap descriptor (length=2, offset=0), then the
	// heap bytes [42, 0x00] (Rice constant-tile stream, see fits/tiles).
	row := make([]byte, 8)
	writeBE(row[0:4], 32, 2)
	writeBE(row[4:8], 32, 0)
	heap := []byte{42, 0x00}
	raw := append(row, heap...)

	ci, err := NewCompressedImageFromHeader(h, raw)
	require.NoError(t, err)

	frame, err := ci.GetFrame()
	require.NoError(t, err)
	assert.Equal(t, []float64{42, 42, 42, 42}, frame.Floats)
}
