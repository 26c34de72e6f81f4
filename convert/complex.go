package convert

import (
	"encoding/binary"
	"fmt"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/format"
	"github.com/arlobase/astrofmt/xisf"
)

// complex FITS images have no native BITPIX representation, so they
// round-trip through a single-column BINTABLE extension instead: one
// row, one 'C' (Complex32) or 'M' (Complex64) field holding every pixel
// in raster order, tagged with enough XISF-specific cards to rebuild
// the original geometry and sample format on the way back.
const (
	cardComplexMarker = "XISFCPLX"
	cardComplexFormat = "XISFSFMT"
	cardComplexWidth  = "XISFWID"
	cardComplexHeight = "XISFHEI"
	cardComplexDepth  = "XISFDEP"
	cardComplexChans  = "XISFCHN"
)

// complexImageToHDU builds the BINTABLE header and row bytes for a
// complex-sample XISF image. img.Pixels holds interleaved real,
// imaginary components (2 per pixel), matching EncodePixelBytes'
// contract for complex formats.
func complexImageToHDU(img xisf.Image, primary bool) (*fits.Header, []byte, error) {
	typeCode := byte('M')
	elemSize := 16
	if img.Sample == format.SampleComplex32 {
		typeCode = 'C'
		elemSize = 8
	}

	pixelCount := len(img.Pixels) / 2
	rowBytes := pixelCount * elemSize

	h := fits.NewHeader()
	if primary {
		return nil, nil, errs.NewConversionError("xisf", "fits", "a complex image cannot be the primary HDU; it must follow a primary image or an empty primary HDU")
	}
	if err := setAll(h,
		kv{"XTENSION", "BINTABLE"},
		kv{"BITPIX", int64(8)},
		kv{"NAXIS", int64(2)},
		kv{"NAXIS1", int64(rowBytes)},
		kv{"NAXIS2", int64(1)},
		kv{"PCOUNT", int64(0)},
		kv{"GCOUNT", int64(1)},
		kv{"TFIELDS", int64(1)},
		kv{"TTYPE1", "PIXELS"},
		kv{"TFORM1", fmt.Sprintf("%d%c", pixelCount, typeCode)},
		kv{cardComplexMarker, true},
		kv{cardComplexFormat, img.Sample.String()},
		kv{cardComplexWidth, int64(dim(img.Geometry, 0))},
		kv{cardComplexHeight, int64(dim(img.Geometry, 1))},
		kv{cardComplexDepth, int64(pixelCount)},
		kv{cardComplexChans, int64(dim(img.Geometry, len(img.Geometry)-1))},
	); err != nil {
		return nil, nil, err
	}

	row := make([]byte, rowBytes)
	for i := 0; i < pixelCount; i++ {
		re, im := img.Pixels[i*2], img.Pixels[i*2+1]
		off := i * elemSize
		if typeCode == 'C' {
			binary.BigEndian.PutUint32(row[off:off+4], uint32(re))
			binary.BigEndian.PutUint32(row[off+4:off+8], uint32(im))
		} else {
			binary.BigEndian.PutUint64(row[off:off+8], uint64(re))
			binary.BigEndian.PutUint64(row[off+8:off+16], uint64(im))
		}
	}

	return h, row, nil
}

// isComplexHDU reports whether hdu carries the XISFCPLX marker this
// package writes for a complex-sample XISF image.
func isComplexHDU(hdu fits.HDU) bool {
	v, ok := hdu.Header.GetBool(cardComplexMarker)

	return ok && v
}

// complexHDUToImage decodes a BINTABLE built by complexImageToHDU back
// into an XISF image.
func complexHDUToImage(hdu fits.HDU, index int) (xisf.Image, error) {
	table, ok := hdu.Data.(*fits.BinaryTable)
	if !ok {
		return xisf.Image{}, errs.NewConversionError("fits", "xisf", "XISFCPLX HDU is not a binary table")
	}

	sampleToken := hdu.Header.GetString(cardComplexFormat)
	sample, ok := format.ParseSampleFormat(sampleToken)
	if !ok || !isComplexFormat(sample) {
		return xisf.Image{}, errs.NewConversionError("fits", "xisf", "XISFCPLX HDU carries an unrecognized "+cardComplexFormat)
	}

	width, _ := hdu.Header.GetInt(cardComplexWidth)
	height, _ := hdu.Header.GetInt(cardComplexHeight)
	channels, _ := hdu.Header.GetInt(cardComplexChans)
	depth, _ := hdu.Header.GetInt(cardComplexDepth)

	elemSize := 16
	if sample == format.SampleComplex32 {
		elemSize = 8
	}

	row := table.RowData
	if len(row) < int(depth)*elemSize {
		return xisf.Image{}, errs.NewValidationError("fits", "PIXELS", "row shorter than TFORM declares")
	}

	pixels := make([]int64, depth*2)
	for i := 0; i < int(depth); i++ {
		off := i * elemSize
		if elemSize == 8 {
			pixels[i*2] = int64(binary.BigEndian.Uint32(row[off : off+4]))
			pixels[i*2+1] = int64(binary.BigEndian.Uint32(row[off+4 : off+8]))
		} else {
			pixels[i*2] = int64(binary.BigEndian.Uint64(row[off : off+8]))
			pixels[i*2+1] = int64(binary.BigEndian.Uint64(row[off+8 : off+16]))
		}
	}

	geometry := []int{int(width), int(height), int(channels)}

	return xisf.Image{
		ID:         fmt.Sprintf("FITS_IMG%d", index),
		Geometry:   geometry,
		Sample:     sample,
		Storage:    xisf.StorageNormal,
		ColorSpace: "Gray",
		Bounds:     [2]float64{0, 1},
		Pixels:     pixels,
	}, nil
}

// emptyPrimaryHeader builds a dataless SIMPLE primary HDU, used when
// the first image in a Unit is complex-sampled and therefore must be
// an extension rather than the primary HDU.
func emptyPrimaryHeader() (*fits.Header, []byte, error) {
	h := fits.NewHeader()
	if err := setAll(h,
		kv{"SIMPLE", true},
		kv{"BITPIX", int64(8)},
		kv{"NAXIS", int64(0)},
	); err != nil {
		return nil, nil, err
	}

	return h, nil, nil
}

type kv struct {
	key string
	val any
}

func setAll(h *fits.Header, cards ...kv) error {
	for _, c := range cards {
		var err error
		switch v := c.val.(type) {
		case string:
			err = h.SetString(c.key, v)
		case int64:
			err = h.SetInt(c.key, v)
		case float64:
			err = h.SetFloat(c.key, v)
		case bool:
			err = h.SetBool(c.key, v)
		default:
			err = errs.NewValidationError("fits", c.key, "unsupported card value type")
		}
		if err != nil {
			return err
		}
	}

	return nil
}
