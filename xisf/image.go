package xisf

import (
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/format"
)

// PixelStorage is an Image element's "pixelStorage" attribute: whether
// multi-channel samples are interleaved per pixel or stored one
// channel-plane at a time.
type PixelStorage int

const (
	StorageNormal PixelStorage = iota // per-pixel interleaved channels
	StoragePlanar                     // one contiguous plane per channel
)

// Image is a decoded XISF <Image> element: geometry, sample encoding,
// and its pixel DataBlock. It plays the role fits.Image plays for FITS,
// but geometry carries an explicit trailing channel-count dimension
// instead of FITS's separate Bitpix/Naxis scheme, and pixelStorage has
// no FITS analogue (FITS image data is always channel-interleaved-by-
// plane already, i.e. always "Normal").
type Image struct {
	ID         string
	Geometry   []int // last element is channel count
	Sample     format.SampleFormat
	Storage    PixelStorage
	ColorSpace string // "Gray", "RGB", or "CIELab"
	Bounds     [2]float64
	Properties []Property
	Element    Element

	// Pixels holds freshly-built sample data for an Image constructed
	// for writing (as opposed to one produced by ParseImage, whose
	// pixel data lives behind a DataBlock reference in Element). The
	// writer encodes Pixels into a DataBlock when Element is the zero
	// value.
	Pixels []int64
}

// Width, Height, and Channels decompose Geometry for the common 2D
// image case (Geometry == [width, height, channels]).
func (img Image) Width() int    { return dim(img.Geometry, 0) }
func (img Image) Height() int   { return dim(img.Geometry, 1) }
func (img Image) Channels() int { return dim(img.Geometry, len(img.Geometry)-1) }

func dim(geometry []int, i int) int {
	if i < 0 || i >= len(geometry) {
		return 0
	}

	return geometry[i]
}

// ParseImage decodes an <Image> element's attributes. It does not
// resolve pixel data; call DecodePixels for that once the caller has
// configured checksum/resolver policy.
func ParseImage(e Element) (Image, error) {
	img := Image{ID: e.Attr("id"), Element: e}

	geometry, err := parseIntList(e.Attr("geometry"))
	if err != nil {
		return Image{}, errs.NewValidationError("xisf", "geometry", err.Error())
	}
	img.Geometry = geometry

	sampleToken := e.Attr("sampleFormat")
	sample, ok := format.ParseSampleFormat(sampleToken)
	if !ok {
		return Image{}, errs.NewValidationError("xisf", "sampleFormat", "unknown sample format: "+sampleToken)
	}
	img.Sample = sample

	if e.Attr("pixelStorage") == "Planar" {
		img.Storage = StoragePlanar
	}

	img.ColorSpace = e.Attr("colorSpace")
	if img.ColorSpace == "" {
		img.ColorSpace = "Gray"
	}

	if b := e.Attr("bounds"); b != "" {
		lo, hi, err := parseBounds(b)
		if err != nil {
			return Image{}, err
		}
		img.Bounds = [2]float64{lo, hi}
	} else {
		img.Bounds = [2]float64{0, 1}
	}

	for _, pe := range e.ChildrenNamed("Property") {
		img.Properties = append(img.Properties, Property{ID: pe.Attr("id"), Type: pe.Attr("type")})
	}

	return img, nil
}

// DecodePixels resolves, checksums, and decompresses the image's pixel
// DataBlock, then unpacks it into a flat sample slice in the sample
// format's physical encoding (caller applies any further numeric
// interpretation, matching fits.Image.GetFrame's int64 raw-sample
// contract).
func (img Image) DecodePixels(c *Container, resolver ResourceResolver, headerDir string) ([]int64, error) {
	data, err := decodeDataBlock(c, img.Element, resolver, headerDir)
	if err != nil {
		return nil, err
	}

	width := 1
	for _, d := range img.Geometry {
		width *= d
	}

	size := img.Sample.BytesPerSample()
	if size == 0 {
		return nil, errs.NewValidationError("xisf", "sampleFormat", "unsupported for pixel decode: "+img.Sample.String())
	}
	if width*size > len(data) {
		return nil, errs.NewValidationError("xisf", "Image", "pixel DataBlock shorter than geometry implies")
	}

	// Complex samples pack two real/imaginary components per pixel;
	// each component is decoded as its own half-width element so a
	// 16-byte Complex64 sample never overflows readLE's uint64 return.
	parts := 1
	if isComplexFormat(img.Sample) {
		parts = 2
	}
	elemSize := size / parts

	out := make([]int64, width*parts)
	for i := 0; i < width*parts; i++ {
		chunk := data[i*elemSize : i*elemSize+elemSize]
		u := readLE(chunk)
		if img.Sample.IsFloat() {
			out[i] = int64(u) // caller reinterprets via math.Float32/64frombits
		} else if strings.HasPrefix(img.Sample.String(), "Int") {
			out[i] = signExtend(u, elemSize)
		} else {
			out[i] = int64(u)
		}
	}

	return out, nil
}

func isComplexFormat(s format.SampleFormat) bool {
	return s == format.SampleComplex32 || s == format.SampleComplex64
}

// EncodePixelBytes packs samples (in the same int64 physical-bit
// representation DecodePixels produces) as little-endian bytes of the
// given sample format's width, the exact inverse of DecodePixels'
// unpacking loop. For complex formats samples holds interleaved
// real/imaginary components, each encoded at half the format's byte
// width.
func EncodePixelBytes(sample format.SampleFormat, samples []int64) []byte {
	size := sample.BytesPerSample()
	elemSize := size
	if isComplexFormat(sample) {
		elemSize = size / 2
	}
	out := make([]byte, len(samples)*elemSize)
	for i, v := range samples {
		writeLE(out[i*elemSize:i*elemSize+elemSize], uint64(v))
	}

	return out
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, errs.NewFormatError("xisf", "missing geometry attribute")
	}
	parts := strings.Split(s, ":")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = n
	}

	return out, nil
}

func parseBounds(s string) (float64, float64, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, errs.NewFormatError("xisf", "malformed bounds attribute: "+s)
	}
	lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, errs.NewFormatError("xisf", "malformed bounds attribute: "+s)
	}

	return lo, hi, nil
}
