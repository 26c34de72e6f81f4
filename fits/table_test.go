package fits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTFormFixed(t *testing.T) {
	col, err := ParseTForm("4J")
	require.NoError(t, err)
	assert.Equal(t, byte('J'), col.TypeCode)
	assert.Equal(t, 4, col.Repeat)
	assert.Equal(t, 16, col.ByteWidth)
}

func TestParseTFormVarLength(t *testing.T) {
	col, err := ParseTForm("PJ(100)")
	assert.Error(t, err) // the parenthesized max-count suffix is not matched by the bare pattern

	col, err = ParseTForm("PJ")
	require.NoError(t, err)
	assert.True(t, col.VarLength)
	assert.False(t, col.Wide)
	assert.Equal(t, 8, col.ByteWidth)

	col, err = ParseTForm("QD")
	require.NoError(t, err)
	assert.True(t, col.VarLength)
	assert.True(t, col.Wide)
	assert.Equal(t, 16, col.ByteWidth)
}

func TestParseTFormBits(t *testing.T) {
	col, err := ParseTForm("10X")
	require.NoError(t, err)
	assert.Equal(t, 2, col.ByteWidth) // ceil(10/8)
}

func buildSimpleBinTableHeader(t *testing.T, rowBytes, rowCount, pcount int) *Header {
	t.Helper()
	h := NewHeader()
	require.NoError(t, h.SetString("XTENSION", "BINTABLE"))
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", int64(rowBytes)))
	require.NoError(t, h.SetInt("NAXIS2", int64(rowCount)))
	require.NoError(t, h.SetInt("PCOUNT", int64(pcount)))
	require.NoError(t, h.SetInt("GCOUNT", 1))
	require.NoError(t, h.SetInt("TFIELDS", 1))

	return h
}

func TestBinaryTableFixedIntColumn(t *testing.T) {
	h := buildSimpleBinTableHeader(t, 4, 2, 0)
	require.NoError(t, h.SetString("TFORM1", "1J"))
	require.NoError(t, h.SetString("TTYPE1", "FLUX"))

	raw := make([]byte, 8)
	writeBE(raw[0:4], 32, 100)
	writeBE(raw[4:8], 32, -5)

	bt, err := NewBinaryTableFromHeader(h, raw)
	require.NoError(t, err)

	c0, err := bt.Field(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, c0.Ints)

	c1, err := bt.Field(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{-5}, c1.Ints)
}

func TestBinaryTableVariableLengthHeap(t *testing.T) {
	h := buildSimpleBinTableHeader(t, 8, 1, 12)
	require.NoError(t, h.SetString("TFORM1", "PJ"))
	require.NoError(t, h.SetString("TTYPE1", "SPECTRUM"))

	row := make([]byte, 8)
	writeBE(row[0:4], 32, 3) // length=3
	writeBE(row[4:8], 32, 0) // heap offset=0

	heap := make([]byte, 12)
	writeBE(heap[0:4], 32, 1)
	writeBE(heap[4:8], 32, 2)
	writeBE(heap[8:12], 32, 3)

	raw := append(row, heap...)
	bt, err := NewBinaryTableFromHeader(h, raw)
	require.NoError(t, err)

	cell, err := bt.Field(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, cell.Ints)
	assert.True(t, cell.IsVar)
	assert.Equal(t, 3, cell.VarLen)
}
