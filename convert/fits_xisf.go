package convert

import (
	"encoding/base64"
	"fmt"
	"math"
	"sort"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/format"
	"github.com/arlobase/astrofmt/xisf"
)

const preservedLayoutPropertyID = "FITS:PreservedHDULayout"

// bitpixFor maps an XISF sample format to the FITS BITPIX/BZERO pair
// the writer direction uses, following the BZERO-encoded unsigned
// representation convention. Complex formats return complex=true
// instead, since they need a BINTABLE wrapper rather than an image HDU.
func bitpixFor(sample format.SampleFormat) (bitpix int, bzero float64, complex bool, ok bool) {
	switch sample {
	case format.SampleUInt8:
		return 8, 0, false, true
	case format.SampleUInt16:
		return 16, 32768, false, true
	case format.SampleUInt32:
		return 32, 2147483648, false, true
	case format.SampleUInt64:
		return 64, 9223372036854775808.0, false, true
	case format.SampleInt8:
		return 8, 0, false, true
	case format.SampleInt16:
		return 16, 0, false, true
	case format.SampleInt32:
		return 32, 0, false, true
	case format.SampleInt64:
		return 64, 0, false, true
	case format.SampleFloat32:
		return -32, 0, false, true
	case format.SampleFloat64:
		return -64, 0, false, true
	case format.SampleComplex32, format.SampleComplex64:
		return 0, 0, true, true
	default:
		return 0, 0, false, false
	}
}

// sampleFor is the inverse of bitpixFor's non-complex branch, used by
// FITSToXISF to pick a sample format from a decoded Frame's kind and
// the header's BITPIX.
func sampleFor(bitpix int, kind fits.FrameKind) format.SampleFormat {
	abs := bitpix
	if abs < 0 {
		abs = -abs
	}

	if kind == fits.FrameFloat64 {
		if bitpix == -32 {
			return format.SampleFloat32
		}

		return format.SampleFloat64
	}

	unsigned := kind == fits.FrameUint64
	switch abs {
	case 8:
		if unsigned {
			return format.SampleUInt8
		}

		return format.SampleInt8
	case 16:
		if unsigned {
			return format.SampleUInt16
		}

		return format.SampleInt16
	case 32:
		if unsigned {
			return format.SampleUInt32
		}

		return format.SampleInt32
	default:
		if unsigned {
			return format.SampleUInt64
		}

		return format.SampleInt64
	}
}

// FITSToXISF converts a FITS file into a single XISF Unit: every image
// HDU becomes an XISF <Image>, and every HDU that has no XISF image
// representation (ASCII tables, extra binary tables, non-image
// extensions) is captured wholesale into the "FITS:PreservedHDULayout"
// metadata property so the reverse conversion can reconstruct the
// original HDU sequence byte-for-byte.
func FITSToXISF(file *fits.File, opts Options) (*xisf.Unit, error) {
	u := &xisf.Unit{Version: "1.0"}

	layout := preservedLayout{}

	for i, hdu := range file.HDUs {
		if isComplexHDU(hdu) {
			xImg, err := complexHDUToImage(hdu, i)
			if err != nil {
				return nil, err
			}
			layout.ImageSourceIndices = append(layout.ImageSourceIndices, i)
			u.Images = append(u.Images, xImg)

			continue
		}

		img, ok := hdu.Data.(*fits.Image)
		if !ok {
			preserved, err := preserveHDU(hdu, i)
			if err != nil {
				if failErr := opts.warn("fits", err.Error()); failErr != nil {
					return nil, failErr
				}

				continue
			}
			layout.NonImageHDUs = append(layout.NonImageHDUs, preserved)

			continue
		}

		xImg, err := imageToXISF(img, i)
		if err != nil {
			return nil, err
		}
		layout.ImageSourceIndices = append(layout.ImageSourceIndices, i)
		u.Images = append(u.Images, xImg)
	}

	if len(layout.NonImageHDUs) > 0 || len(file.HDUs) != len(u.Images) {
		text, err := marshalLayout(layout)
		if err != nil {
			return nil, err
		}
		u.Metadata = append(u.Metadata, xisf.Property{ID: preservedLayoutPropertyID, Type: "String", Str: text})
	}

	return u, nil
}

func preserveHDU(hdu fits.HDU, index int) (preservedHDU, error) {
	cards := make([]preservedCard, 0, len(hdu.Header.Cards()))
	for _, c := range hdu.Header.Cards() {
		cards = append(cards, cardToPreserved(c))
	}

	return preservedHDU{
		Index:      index,
		Cards:      cards,
		DataBase64: base64.StdEncoding.EncodeToString(hduRawBytes(hdu)),
	}, nil
}

func imageToXISF(img *fits.Image, index int) (xisf.Image, error) {
	frame, err := img.GetFrame(0)
	if err != nil {
		return xisf.Image{}, err
	}

	sample := sampleFor(img.Bitpix, frame.Kind)
	pixels := make([]int64, frame.Len())
	switch frame.Kind {
	case fits.FrameInt64:
		copy(pixels, frame.Ints)
	case fits.FrameUint64:
		for i, v := range frame.UInts {
			pixels[i] = int64(v)
		}
	default:
		for i, v := range frame.Floats {
			if sample == format.SampleFloat32 {
				pixels[i] = int64(math.Float32bits(float32(v)))
			} else {
				pixels[i] = int64(math.Float64bits(v))
			}
		}
	}

	geometry := append(append([]int(nil), img.Naxis...), 1)

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

// XISFToFITS converts a Unit back into a FITS file, replaying the
// "FITS:PreservedHDULayout" property (if present) to interleave
// reconstructed non-image HDUs with fresh image HDUs in their
// original order; returns the parallel raw data-unit byte slices
// fits.WriteFile needs.
func XISFToFITS(u *xisf.Unit, opts Options) (*fits.File, [][]byte, error) {
	layout, hasLayout := findPreservedLayout(u)

	file := &fits.File{}
	var rawData [][]byte

	if !hasLayout {
		for _, img := range u.Images {
			if err := appendImageHDU(file, &rawData, img); err != nil {
				return nil, nil, err
			}
		}

		return file, rawData, nil
	}

	maxIndex := -1
	for _, idx := range layout.ImageSourceIndices {
		if idx > maxIndex {
			maxIndex = idx
		}
	}
	for _, nh := range layout.NonImageHDUs {
		if nh.Index > maxIndex {
			maxIndex = nh.Index
		}
	}

	nonImageByIndex := make(map[int]preservedHDU, len(layout.NonImageHDUs))
	for _, nh := range layout.NonImageHDUs {
		nonImageByIndex[nh.Index] = nh
	}
	imageAt := make(map[int]int, len(layout.ImageSourceIndices)) // hdu index -> position in u.Images
	for pos, idx := range layout.ImageSourceIndices {
		imageAt[idx] = pos
	}

	order := make([]int, 0, maxIndex+1)
	for i := 0; i <= maxIndex; i++ {
		order = append(order, i)
	}
	sort.Ints(order)

	for _, i := range order {
		if pos, ok := imageAt[i]; ok {
			if err := appendImageHDU(file, &rawData, u.Images[pos]); err != nil {
				return nil, nil, err
			}

			continue
		}
		if nh, ok := nonImageByIndex[i]; ok {
			h := fits.NewHeader()
			for _, pc := range nh.Cards {
				if err := h.Set(preservedToCard(pc)); err != nil {
					return nil, nil, err
				}
			}
			raw, err := base64.StdEncoding.DecodeString(nh.DataBase64)
			if err != nil {
				return nil, nil, errs.NewConversionError("xisf", "fits", "malformed PreservedHDULayout dataBase64")
			}
			file.HDUs = append(file.HDUs, fits.HDU{Header: h})
			rawData = append(rawData, raw)
		}
	}

	return file, rawData, nil
}

// appendImageHDU appends one XISF image as a FITS HDU, inserting a
// dataless primary HDU first if img is complex-sampled and would
// otherwise have to be the (unsupported) primary HDU.
func appendImageHDU(file *fits.File, rawData *[][]byte, img xisf.Image) error {
	if isComplexFormat(img.Sample) {
		if len(file.HDUs) == 0 {
			h, raw, err := emptyPrimaryHeader()
			if err != nil {
				return err
			}
			file.HDUs = append(file.HDUs, fits.HDU{Header: h})
			*rawData = append(*rawData, raw)
		}
		h, raw, err := complexImageToHDU(img, false)
		if err != nil {
			return err
		}
		file.HDUs = append(file.HDUs, fits.HDU{Header: h})
		*rawData = append(*rawData, raw)

		return nil
	}

	h, raw, err := xisfImageToHDUHeader(img, len(file.HDUs) == 0)
	if err != nil {
		return err
	}
	file.HDUs = append(file.HDUs, fits.HDU{Header: h})
	*rawData = append(*rawData, raw)

	return nil
}

func findPreservedLayout(u *xisf.Unit) (preservedLayout, bool) {
	for _, p := range u.Metadata {
		if p.ID == preservedLayoutPropertyID {
			l, err := unmarshalLayout(p.Str)
			if err != nil {
				return preservedLayout{}, false
			}

			return l, true
		}
	}

	return preservedLayout{}, false
}

// xisfImageToHDUHeader builds the FITS header and raw pixel bytes for
// one XISF image, applying the BZERO-encoded unsigned mapping.
func xisfImageToHDUHeader(img xisf.Image, primary bool) (*fits.Header, []byte, error) {
	bitpix, bzero, isComplex, ok := bitpixFor(img.Sample)
	if !ok {
		return nil, nil, errs.NewConversionError("xisf", "fits", "unsupported sample format: "+img.Sample.String())
	}
	if isComplex {
		return nil, nil, errs.NewConversionError("xisf", "fits", "complex sample formats require the BINTABLE wrapper path (see complexImageToHDU)")
	}

	h := fits.NewHeader()
	if primary {
		if err := h.SetBool("SIMPLE", true); err != nil {
			return nil, nil, err
		}
	} else {
		if err := h.SetString("XTENSION", "IMAGE"); err != nil {
			return nil, nil, err
		}
	}
	if err := h.SetInt("BITPIX", int64(bitpix)); err != nil {
		return nil, nil, err
	}

	naxis := img.Geometry
	if len(naxis) > 0 && naxis[len(naxis)-1] == 1 {
		naxis = naxis[:len(naxis)-1] // drop the synthetic mono channel axis
	}
	if err := h.SetInt("NAXIS", int64(len(naxis))); err != nil {
		return nil, nil, err
	}
	for i, n := range naxis {
		if err := h.SetInt(fmt.Sprintf("NAXIS%d", i+1), int64(n)); err != nil {
			return nil, nil, err
		}
	}
	if !primary {
		if err := h.SetInt("PCOUNT", 0); err != nil {
			return nil, nil, err
		}
		if err := h.SetInt("GCOUNT", 1); err != nil {
			return nil, nil, err
		}
	}
	if bzero != 0 {
		if err := h.SetFloat("BZERO", bzero); err != nil {
			return nil, nil, err
		}
		if err := h.SetFloat("BSCALE", 1); err != nil {
			return nil, nil, err
		}
	}

	var raw []byte
	if img.Sample.IsFloat() {
		floats := make([]float64, len(img.Pixels))
		for i, v := range img.Pixels {
			if bitpix == -32 {
				floats[i] = float64(math.Float32frombits(uint32(v)))
			} else {
				floats[i] = math.Float64frombits(uint64(v))
			}
		}
		raw = fits.EncodeImageFloats(bitpix, floats)
	} else {
		wire := make([]int64, len(img.Pixels))
		for i, v := range img.Pixels {
			wire[i] = v - int64(bzero)
		}
		raw = fits.EncodeImageSamples(bitpix, wire)
	}

	return h, raw, nil
}
