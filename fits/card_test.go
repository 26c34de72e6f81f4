package fits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(s string) []byte {
	b := make([]byte, CardSize)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)

	return b
}

func TestParseCardInteger(t *testing.T) {
	c, err := ParseCard(record("BITPIX  =                   16 / bits per pixel"))
	require.NoError(t, err)
	assert.Equal(t, "BITPIX", c.Keyword)
	assert.Equal(t, ValueInt, c.Type)
	assert.EqualValues(t, 16, c.Int)
	assert.Equal(t, "bits per pixel", c.Comment)
}

func TestParseCardString(t *testing.T) {
	c, err := ParseCard(record("OBJECT  = 'M31''s Andromeda'    / target"))
	require.NoError(t, err)
	assert.Equal(t, ValueString, c.Type)
	assert.Equal(t, "M31's Andromeda", c.Str)
	assert.Equal(t, "target", c.Comment)
}

func TestParseCardBool(t *testing.T) {
	c, err := ParseCard(record("SIMPLE  =                    T"))
	require.NoError(t, err)
	assert.Equal(t, ValueBool, c.Type)
	assert.True(t, c.Bool)
}

func TestParseCardFloat(t *testing.T) {
	c, err := ParseCard(record("BZERO   =               32768.0"))
	require.NoError(t, err)
	assert.Equal(t, ValueFloat, c.Type)
	assert.InDelta(t, 32768.0, c.Float, 1e-9)
}

func TestParseCardCommentKeyword(t *testing.T) {
	c, err := ParseCard(record("COMMENT this is a comment line"))
	require.NoError(t, err)
	assert.Equal(t, "COMMENT", c.Keyword)
	assert.Equal(t, "this is a comment line", c.Str)
}

func TestBareKeyword(t *testing.T) {
	assert.Equal(t, "NAXIS", bareKeyword("NAXIS3"))
	assert.Equal(t, "ZTILE", bareKeyword("ZTILE2"))
	assert.Equal(t, "BITPIX", bareKeyword("BITPIX"))
}

func TestCardBytesRoundTrip(t *testing.T) {
	c := Card{Keyword: "NAXIS1", Type: ValueInt, Int: 512, Comment: "length of axis 1"}
	b := c.Bytes()
	assert.Len(t, b, CardSize)

	parsed, err := ParseCard(b)
	require.NoError(t, err)
	assert.Equal(t, c.Keyword, parsed.Keyword)
	assert.Equal(t, c.Int, parsed.Int)
	assert.Equal(t, c.Comment, parsed.Comment)
}

func TestCardBytesEscapesQuotes(t *testing.T) {
	c := Card{Keyword: "OBJECT", Type: ValueString, Str: "M31's core"}
	b := c.Bytes()
	parsed, err := ParseCard(b)
	require.NoError(t, err)
	assert.Equal(t, "M31's core", parsed.Str)
}
