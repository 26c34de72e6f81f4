package astrofmt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/hips"
)

func buildTestFITSImage(t *testing.T, width, height int) *fits.Image {
	t.Helper()

	h := fits.NewHeader()
	require.NoError(t, h.SetBool("SIMPLE", true))
	require.NoError(t, h.SetInt("BITPIX", -64))
	require.NoError(t, h.SetInt("NAXIS", 2))
	require.NoError(t, h.SetInt("NAXIS1", int64(width)))
	require.NoError(t, h.SetInt("NAXIS2", int64(height)))
	require.NoError(t, h.SetFloat("CRPIX1", float64(width)/2))
	require.NoError(t, h.SetFloat("CRPIX2", float64(height)/2))
	require.NoError(t, h.SetFloat("CRVAL1", 10.0))
	require.NoError(t, h.SetFloat("CRVAL2", 20.0))
	require.NoError(t, h.SetFloat("CDELT1", -0.001))
	require.NoError(t, h.SetFloat("CDELT2", 0.001))

	samples := make([]float64, width*height)
	for i := range samples {
		samples[i] = float64(i)
	}
	raw := fits.EncodeImageFloats(-64, samples)

	img, err := fits.NewImageFromHeader(h, raw)
	require.NoError(t, err)

	return img
}

func TestParseWriteFITSRoundTrip(t *testing.T) {
	h := fits.NewHeader()
	require.NoError(t, h.SetBool("SIMPLE", true))
	require.NoError(t, h.SetInt("BITPIX", 8))
	require.NoError(t, h.SetInt("NAXIS", 0))

	var buf bytes.Buffer
	require.NoError(t, WriteFITS(&buf, &fits.File{HDUs: []fits.HDU{{Header: h}}}, [][]byte{nil}))

	file, err := ParseFITS(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.HDUs, 1)
	require.True(t, file.HDUs[0].Header.IsPrimary())
}

func TestBuildHiPSAndReadBack(t *testing.T) {
	img := buildTestFITSImage(t, 32, 32)

	wcs, err := hips.WCSFromHeader(img.Header)
	require.NoError(t, err)

	store := NewLocalStorage(t.TempDir())
	opts := BuildHiPSOptions{
		MinOrder:      1,
		MaxOrder:      2,
		TileWidth:     16,
		Formats:       []string{"fits"},
		Interpolation: hips.NearestProjector{},
		Healpix:       hips.RingHealpix{},
		EmitMOC:       true,
		Properties: hips.DatasetProperties{
			CreatorDID:      "ivo://test/survey",
			ObsTitle:        "Test Survey",
			DataProductType: "image",
			HipsFrame:       "equatorial",
		},
	}

	require.NoError(t, BuildHiPS(img, wcs, store, opts))
	require.True(t, store.Exists(hips.PropertiesPath))
	require.True(t, store.Exists(hips.MOCPath))

	centerRA, centerDec := wcs.PixToSky(16, 16)
	pix := hips.RingHealpix{}.AngToPix(2, centerRA, centerDec)

	tile, err := HiPSTile(store, 2, pix, "fits")
	require.NoError(t, err)
	require.Equal(t, 16, tile.Width)

	cutout, err := HiPSCutout(store, hips.CutoutOptions{
		RA: centerRA, Dec: centerDec, FovDeg: 0.02,
		OutputWidth: 8, Order: 2,
		Healpix: hips.RingHealpix{}, Interpolation: hips.NearestProjector{},
	})
	require.NoError(t, err)
	require.Equal(t, 8, cutout.Width)

	samples, err := HiPSMap(store, hips.RingHealpix{}, 2, "fits", false)
	require.NoError(t, err)
	require.Equal(t, hips.RingHealpix{}.Npix(2), len(samples))
}
