package fits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/errs"
)

func TestHeaderDataLength(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("BITPIX", 16))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", 4))
	require.NoError(t, h.SetInt("NAXIS2", 1))

	assert.EqualValues(t, 8, h.DataLength())
}

func TestHeaderDataLengthZeroAxis(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 0))
	assert.EqualValues(t, 0, h.DataLength())
}

func TestHeaderBitpixValidationStrict(t *testing.T) {
	h := NewHeader()
	err := h.SetInt("BITPIX", 17)
	assert.Error(t, err)
}

func TestHeaderBitpixValidationRelaxed(t *testing.T) {
	var warned bool
	h := NewHeader()
	h.StrictValidation = false
	h.OnWarning = func(w errs.Warning) { warned = true }
	err := h.SetInt("BITPIX", 17)
	assert.NoError(t, err)
	assert.True(t, warned)
}

func TestHeaderCommentHistoryAppend(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.Set(Card{Keyword: "COMMENT", Str: "first"}))
	require.NoError(t, h.Set(Card{Keyword: "COMMENT", Str: "second"}))
	require.NoError(t, h.Set(Card{Keyword: "HISTORY", Str: "processed"}))

	assert.Equal(t, []string{"first", "second"}, h.Comments)
	assert.Equal(t, []string{"processed"}, h.History)
}

func TestHeaderDataTypeDiscrimination(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetBool("SIMPLE", true))
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", 2))
	require.NoError(t, h.SetInt("NAXIS2", 2))
	assert.Equal(t, DataImage, h.DataType())

	h2 := NewHeader()
	require.NoError(t, h2.SetString("XTENSION", "BINTABLE"))
	require.NoError(t, h2.SetBool("ZIMAGE", true))
	assert.Equal(t, DataCompressedImage, h2.DataType())
}

func TestHeaderNaxis(t *testing.T) {
	h := NewHeader()
	require.NoError(t, h.SetInt("NAXIS", 3))
	require.NoError(t, h.SetInt("NAXIS1", 10))
	require.NoError(t, h.SetInt("NAXIS2", 20))
	require.NoError(t, h.SetInt("NAXIS3", 3))
	assert.Equal(t, []int{10, 20, 3}, h.Naxis())
}
