package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/format"
	"github.com/arlobase/astrofmt/xisf"
)

func buildUInt16FITS(t *testing.T, width, height int, wire []int64) *fits.File {
	t.Helper()

	h := fits.NewHeader()
	require.NoError(t, h.SetBool("SIMPLE", true))
	require.NoError(t, h.SetInt("BITPIX", 16))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", int64(width)))
	require.NoError(t, h.SetInt("NAXIS2", int64(height)))
	require.NoError(t, h.SetFloat("BZERO", 32768))
	require.NoError(t, h.SetFloat("BSCALE", 1))

	raw := fits.EncodeImageSamples(16, wire)
	img, err := fits.NewImageFromHeader(h, raw)
	require.NoError(t, err)

	return &fits.File{HDUs: []fits.HDU{{Header: h, Data: img}}}
}

func TestFITSToXISFUInt16RoundTrip(t *testing.T) {
	// physical pixel values 0, 32768, 65535 map to wire values
	// -32768, 0, 32767 under BZERO=32768.
	physical := []int64{0, 32768, 65535, 100}
	wire := make([]int64, len(physical))
	for i, v := range physical {
		wire[i] = v - 32768
	}

	file := buildUInt16FITS(t, 4, 1, wire)

	u, err := FITSToXISF(file, Options{})
	require.NoError(t, err)
	require.Len(t, u.Images, 1)

	img := u.Images[0]
	require.Equal(t, format.SampleUInt16, img.Sample)
	require.Equal(t, []int{4, 1, 1}, img.Geometry)
	require.Equal(t, physical, img.Pixels)

	back, rawData, err := XISFToFITS(u, Options{})
	require.NoError(t, err)
	require.Len(t, back.HDUs, 1)
	require.Len(t, rawData, 1)

	bitpix, ok := back.HDUs[0].Header.GetInt("BITPIX")
	require.True(t, ok)
	require.Equal(t, int64(16), bitpix)

	bzero, ok := back.HDUs[0].Header.GetFloat("BZERO")
	require.True(t, ok)
	require.Equal(t, 32768.0, bzero)
	require.Equal(t, raw(wire), rawData[0])
}

func raw(wire []int64) []byte {
	return fits.EncodeImageSamples(16, wire)
}

func TestFITSToXISFPreservesNonImageHDU(t *testing.T) {
	file := buildUInt16FITS(t, 2, 1, []int64{-1, 0})

	tableHeader := fits.NewHeader()
	require.NoError(t, tableHeader.SetString("XTENSION", "BINTABLE"))
	require.NoError(t, tableHeader.SetInt("BITPIX", 8))
	require.NoError(t, tableHeader.SetInt("NAXIS", 2))
	require.NoError(t, tableHeader.SetInt("NAXIS1", 4))
	require.NoError(t, tableHeader.SetInt("NAXIS2", 1))
	require.NoError(t, tableHeader.SetInt("TFIELDS", 1))
	require.NoError(t, tableHeader.SetString("TTYPE1", "FLAG"))
	require.NoError(t, tableHeader.SetString("TFORM1", "1J"))
	table := &fits.BinaryTable{Header: tableHeader, RowBytes: 4, RowCount: 1, RowData: []byte{0, 0, 0, 7}}
	file.HDUs = append(file.HDUs, fits.HDU{Header: tableHeader, Data: table})

	u, err := FITSToXISF(file, Options{})
	require.NoError(t, err)
	require.Len(t, u.Images, 1)
	require.Len(t, u.Metadata, 1)
	require.Equal(t, preservedLayoutPropertyID, u.Metadata[0].ID)

	back, rawData, err := XISFToFITS(u, Options{})
	require.NoError(t, err)
	require.Len(t, back.HDUs, 2)
	require.Len(t, rawData, 2)
	require.Equal(t, []byte{0, 0, 0, 7}, rawData[1])
	xtension := back.HDUs[1].Header.GetString("XTENSION")
	require.Equal(t, "BINTABLE", xtension)
}

func TestComplex64RoundTripsThroughBinTable(t *testing.T) {
	img := xisf.Image{
		ID:         "C1",
		Geometry:   []int{2, 1, 1},
		Sample:     format.SampleComplex64,
		Storage:    xisf.StorageNormal,
		ColorSpace: "Gray",
		Bounds:     [2]float64{0, 1},
		Pixels:     []int64{1, 2, 3, 4}, // (1+2i), (3+4i) as raw bit patterns for this test
	}
	u := &xisf.Unit{Version: "1.0", Images: []xisf.Image{img}}

	back, rawData, err := XISFToFITS(u, Options{})
	require.NoError(t, err)
	require.Len(t, back.HDUs, 2) // synthetic empty primary + BINTABLE
	require.Len(t, rawData, 2)

	simple, ok := back.HDUs[0].Header.GetBool("SIMPLE")
	require.True(t, ok)
	require.True(t, simple)

	complexTable := &fits.BinaryTable{Header: back.HDUs[1].Header, RowData: rawData[1]}
	forward := &fits.File{HDUs: []fits.HDU{back.HDUs[0], {Header: back.HDUs[1].Header, Data: complexTable}}}

	roundTripped, err := FITSToXISF(forward, Options{})
	require.NoError(t, err)
	require.Len(t, roundTripped.Images, 1)
	require.Equal(t, format.SampleComplex64, roundTripped.Images[0].Sample)
	require.Equal(t, img.Pixels, roundTripped.Images[0].Pixels)
}
