package fits

import (
	"math"

	"github.com/arlobase/astrofmt/errs"
)

// FrameKind discriminates the Go type backing a decoded Frame: integer
// BITPIX with integer BZERO/BSCALE keeps integer precision (widened to
// cover the shifted range); anything else decodes to float64.
type FrameKind uint8

const (
	FrameInt64 FrameKind = iota
	FrameUint64
	FrameFloat64
)

// Frame is one decoded image plane: a flat row-major pixel buffer in
// one of three backing types, a flat sum type in place of a
// polymorphic class hierarchy.
type Frame struct {
	Kind   FrameKind
	Ints   []int64
	UInts  []uint64
	Floats []float64
	Shape  []int // axis extents for this frame, fastest axis first
}

// Len returns the pixel count of the frame.
func (f Frame) Len() int {
	switch f.Kind {
	case FrameInt64:
		return len(f.Ints)
	case FrameUint64:
		return len(f.UInts)
	default:
		return len(f.Floats)
	}
}

// At returns pixel i as a float64 regardless of backing Kind.
func (f Frame) At(i int) float64 {
	switch f.Kind {
	case FrameInt64:
		return float64(f.Ints[i])
	case FrameUint64:
		return float64(f.UInts[i])
	default:
		return f.Floats[i]
	}
}

// Image is a FITS image data unit: n-D pixel array with an optional
// affine BZERO/BSCALE transform. Decoding is lazy per frame: the raw
// bytes are kept as a view and a Frame is only materialized on
// GetFrame.
type Image struct {
	Header *Header
	Raw    []byte // big-endian raw pixel bytes, unowned view into the source buffer
	Bitpix int
	Naxis  []int
	Bzero  float64
	Bscale float64
	// BzeroIsInt and BscaleIsInt record whether BZERO and BSCALE hold
	// integral values (true when the keyword is absent and its default
	// applies), which the output-type rule depends on.
	BzeroIsInt  bool
	BscaleIsInt bool
}

// NewImageFromHeader builds an Image view over raw from h. raw must be
// exactly h.DataLength() bytes (or longer; only the prefix is used).
func NewImageFromHeader(h *Header, raw []byte) (*Image, error) {
	bitpix := h.Bitpix()
	naxis := h.Naxis()

	bzero := 0.0
	bzeroIsInt := true
	if v, ok := h.GetFloat("BZERO"); ok {
		bzero = v
		bzeroIsInt = v == math.Trunc(v)
	}

	bscale := 1.0
	bscaleIsInt := true
	if v, ok := h.GetFloat("BSCALE"); ok {
		bscale = v
		bscaleIsInt = v == math.Trunc(v)
	}

	return &Image{
		Header:      h,
		Raw:         raw,
		Bitpix:      bitpix,
		Naxis:       naxis,
		Bzero:       bzero,
		Bscale:      bscale,
		BzeroIsInt:  bzeroIsInt,
		BscaleIsInt: bscaleIsInt,
	}, nil
}

// planePixelCount is the number of pixels of one frame: the product of
// every NAXISi, trailing axis included.
func (img *Image) planePixelCount() int {
	n := 1
	for _, a := range img.Naxis {
		n *= a
	}

	return n
}

func (img *Image) sampleBytes() int {
	bp := img.Bitpix
	if bp < 0 {
		bp = -bp
	}

	return bp / 8
}

// outputKind applies the BITPIX/BZERO/BSCALE output-type selection rule.
func (img *Image) outputKind() FrameKind {
	if img.Bitpix < 0 {
		return FrameFloat64
	}
	if !img.BzeroIsInt || !img.BscaleIsInt {
		return FrameFloat64
	}

	// 64-bit integer BITPIX with canonical unsigned BZERO (2^63) and
	// integer scale keeps 64-bit integer precision.
	if img.Bitpix == 64 {
		if img.Bzero == 9223372036854775808.0 && img.Bscale == 1 {
			return FrameUint64
		}
		if img.Bzero == 0 && img.Bscale == 1 {
			return FrameInt64
		}

		return FrameFloat64
	}

	// Unsigned n-bit retained when BZERO == 2^(n-1) and BSCALE == 1.
	if img.Bscale == 1 && img.Bzero == float64(int64(1)<<(uint(img.Bitpix-1))) {
		return FrameUint64
	}
	if img.Bzero == 0 && img.Bscale == 1 {
		return FrameInt64
	}

	return FrameFloat64
}

// GetFrame decodes the frame at frameIndex and returns it with the
// BZERO/BSCALE affine transform applied. A frame spans every NAXISi
// axis, so frame 0 is the whole data unit (a cube's trailing axis
// included) and a higher index is out of range unless Raw holds more
// than one such array; single planes along the trailing axis are not
// sliced out. Pixels are read big-endian per the FITS standard and
// converted to host order.
func (img *Image) GetFrame(frameIndex int) (Frame, error) {
	planeN := img.planePixelCount()
	if len(img.Naxis) == 0 || planeN == 0 {
		return Frame{Kind: FrameFloat64}, nil
	}

	sb := img.sampleBytes()
	offset := frameIndex * planeN * sb
	if offset+planeN*sb > len(img.Raw) {
		return Frame{}, errs.NewValidationError("fits", "NAXIS", "frame index out of range of data unit")
	}
	data := img.Raw[offset : offset+planeN*sb]

	kind := img.outputKind()
	frame := Frame{Kind: kind, Shape: append([]int(nil), img.Naxis...)}

	switch kind {
	case FrameFloat64:
		frame.Floats = make([]float64, planeN)
		for i := 0; i < planeN; i++ {
			raw := readBE(data[i*sb:i*sb+sb], img.Bitpix)
			frame.Floats[i] = img.Bzero + img.Bscale*raw
		}
	case FrameUint64:
		frame.UInts = make([]uint64, planeN)
		for i := 0; i < planeN; i++ {
			if img.Bitpix == 64 {
				// BZERO = 2^63: adding it flips the stored value's sign bit.
				frame.UInts[i] = uint64(readBE64Exact(data[i*sb:i*sb+sb])) ^ (1 << 63)

				continue
			}
			raw := readBE(data[i*sb:i*sb+sb], img.Bitpix)
			frame.UInts[i] = uint64(raw + img.Bzero)
		}
	default:
		frame.Ints = make([]int64, planeN)
		for i := 0; i < planeN; i++ {
			if img.Bitpix == 64 {
				frame.Ints[i] = readBE64Exact(data[i*sb : i*sb+sb])

				continue
			}
			raw := readBE(data[i*sb:i*sb+sb], img.Bitpix)
			frame.Ints[i] = int64(raw + img.Bzero)
		}
	}

	return frame, nil
}

// readBE decodes one big-endian sample of the given BITPIX width as a
// float64 (sufficient precision for BITPIX <= 32; BITPIX == 64 direct
// integer paths avoid the float64 round trip via readBE64Exact).
func readBE(b []byte, bitpix int) float64 {
	switch bitpix {
	case 8:
		return float64(b[0])
	case 16:
		return float64(int16(uint16(b[0])<<8 | uint16(b[1])))
	case 32:
		v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])

		return float64(int32(v))
	case 64:
		return float64(readBE64Exact(b))
	case -32:
		v := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])

		return float64(math.Float32frombits(v))
	case -64:
		var v uint64
		for i := 0; i < 8; i++ {
			v = v<<8 | uint64(b[i])
		}

		return math.Float64frombits(v)
	default:
		return 0
	}
}

func readBE64Exact(b []byte) int64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}

	return int64(v)
}

// writeBE encodes one big-endian sample of the given BITPIX width.
func writeBE(dst []byte, bitpix int, raw int64) {
	switch bitpix {
	case 8:
		dst[0] = byte(raw)
	case 16:
		u := uint16(int16(raw))
		dst[0] = byte(u >> 8)
		dst[1] = byte(u)
	case 32:
		u := uint32(int32(raw))
		dst[0] = byte(u >> 24)
		dst[1] = byte(u >> 16)
		dst[2] = byte(u >> 8)
		dst[3] = byte(u)
	case 64:
		u := uint64(raw)
		for i := 0; i < 8; i++ {
			dst[i] = byte(u >> uint(56-8*i))
		}
	}
}

func writeBEFloat(dst []byte, bitpix int, v float64) {
	switch bitpix {
	case -32:
		u := math.Float32bits(float32(v))
		dst[0] = byte(u >> 24)
		dst[1] = byte(u >> 16)
		dst[2] = byte(u >> 8)
		dst[3] = byte(u)
	case -64:
		u := math.Float64bits(v)
		for i := 0; i < 8; i++ {
			dst[i] = byte(u >> uint(56-8*i))
		}
	}
}
