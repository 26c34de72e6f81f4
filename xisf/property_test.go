package xisf

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intElement(id, typ, value string) Element {
	return Element{
		XMLName: xml.Name{Local: "Property"},
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: id},
			{Name: xml.Name{Local: "type"}, Value: typ},
			{Name: xml.Name{Local: "value"}, Value: value},
		},
	}
}

func TestParsePropertyScalarInt(t *testing.T) {
	p, err := ParseProperty(nil, intElement("Instrument:Gain", "Int32", "42"), nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.Int)
	assert.Equal(t, "Int32", p.Type)
}

func TestParsePropertyScalarFloat(t *testing.T) {
	p, err := ParseProperty(nil, intElement("Observation:Temperature", "Float64", "-12.5"), nil, "")
	require.NoError(t, err)
	assert.InDelta(t, -12.5, p.Float, 1e-9)
}

func TestParsePropertyBadInt(t *testing.T) {
	_, err := ParseProperty(nil, intElement("X", "Int32", "not-a-number"), nil, "")
	assert.Error(t, err)
}

func TestParsePropertyStringInlineText(t *testing.T) {
	e := Element{
		XMLName: xml.Name{Local: "Property"},
		Attrs: []xml.Attr{
			{Name: xml.Name{Local: "id"}, Value: "Observer:Name"},
			{Name: xml.Name{Local: "type"}, Value: "String"},
		},
		Content: "  Jane Doe  ",
	}
	p, err := ParseProperty(nil, e, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", p.Str)
}

func TestDecodeVectorBytesInt32(t *testing.T) {
	data := []byte{1, 0, 0, 0, 2, 0, 0, 0, 255, 255, 255, 255}
	p, err := decodeVectorBytes(Property{}, "Int32", 3, data)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, -1}, p.Ints)
}

func TestDecodeVectorBytesShortData(t *testing.T) {
	_, err := decodeVectorBytes(Property{}, "Int32", 3, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestEncodeDecodeVectorRoundTrip(t *testing.T) {
	p := Property{Ints: []int64{10, -20, 30}}
	data, count, err := encodeVectorBytes(p, "Int32")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	decoded, err := decodeVectorBytes(Property{}, "Int32", count, data)
	require.NoError(t, err)
	assert.Equal(t, p.Ints, decoded.Ints)
}
