package ser

import (
	"fmt"

	"github.com/arlobase/astrofmt/endian"
	"github.com/arlobase/astrofmt/errs"
)

// ParseOptions configures File decoding tolerance, mirroring the
// StrictValidation/OnWarning shape used by fits.ParseOptions.
type ParseOptions struct {
	StrictValidation bool
	OnWarning        errs.WarningFunc
	Endianness       EndiannessPolicy
}

// File is a fully parsed SER container: header, raw frame payload, and
// optional trailer timestamps, ready for per-frame lazy decode.
type File struct {
	Header       Header
	frames       []byte // raw frame payload, FrameCount*FrameStride bytes
	Timestamps   []int64
	littleEndian bool
	Monotonic    bool
}

// Parse decodes a complete SER file from data: header, frame payload,
// and an optional trailer of one u64 timestamp per frame.
func Parse(data []byte, opts ParseOptions) (*File, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	stride := h.FrameStride()
	frameBytes := stride * int64(h.FrameCount)
	if int64(len(data)) < int64(HeaderSize)+frameBytes {
		return nil, errs.NewFormatError("ser", "file shorter than header + declared frame payload")
	}
	frameEnd := int64(HeaderSize) + frameBytes
	frames := data[HeaderSize:frameEnd]

	trailerLen := int64(len(data)) - frameEnd
	var timestamps []int64
	if trailerLen >= 8*int64(h.FrameCount) && h.FrameCount > 0 {
		timestamps = make([]int64, h.FrameCount)
		engine := endian.GetLittleEndianEngine()
		for i := range timestamps {
			off := frameEnd + int64(i)*8
			timestamps[i] = int64(engine.Uint64(data[off : off+8]))
		}
	} else if trailerLen > 0 {
		errs.Warn(opts.OnWarning, errs.Warning{Subsystem: "ser", Detail: "trailer present but shorter than frameCount*8 bytes, ignored"})
	}

	f := &File{
		Header:     h,
		frames:     frames,
		Timestamps: timestamps,
	}

	policy := opts.Endianness
	if policy == EndianAuto {
		f.littleEndian = f.resolveAutoEndian()
	} else {
		f.littleEndian = h.ResolveLittleEndian(policy)
	}

	f.Monotonic = checkMonotonic(timestamps)
	if !f.Monotonic {
		errs.Warn(opts.OnWarning, errs.Warning{Subsystem: "ser", Detail: "frame timestamps are not monotonically increasing"})
	}

	return f, nil
}

func checkMonotonic(ts []int64) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i] < ts[i-1] {
			return false
		}
	}

	return true
}

// FrameCount returns the declared frame count.
func (f *File) FrameCount() int {
	return int(f.Header.FrameCount)
}

// DurationTicks returns the span between the first and last frame
// timestamp, in .NET ticks, or 0 if fewer than two timestamps exist.
func (f *File) DurationTicks() int64 {
	n := len(f.Timestamps)
	if n < 2 {
		return 0
	}

	return f.Timestamps[n-1] - f.Timestamps[0]
}

// EstimatedFPS returns the average frame rate implied by DurationTicks
// across FrameCount-1 intervals, or 0 if it cannot be estimated.
func (f *File) EstimatedFPS() float64 {
	n := len(f.Timestamps)
	if n < 2 {
		return 0
	}
	dur := f.DurationTicks()
	if dur <= 0 {
		return 0
	}
	// ticks are 100ns units; 10_000_000 ticks per second.
	seconds := float64(dur) / 1e7

	return float64(n-1) / seconds
}

// GetFrame returns frame i's raw interleaved samples as a flat []int64,
// in the file's on-disk channel order (no BGR->RGB swap), matching the
// contract fits.Image.GetFrame uses for lazily decoded pixel data.
func (f *File) GetFrame(i int) ([]int64, error) {
	if i < 0 || i >= int(f.Header.FrameCount) {
		return nil, errs.NewValidationError("ser", "frame index", fmt.Sprintf("%d out of range [0,%d)", i, f.Header.FrameCount))
	}

	stride := f.Header.FrameStride()
	start := int64(i) * stride
	raw := f.frames[start : start+stride]

	bps := f.Header.BytesPerSample()
	count := len(raw) / bps
	out := make([]int64, count)
	engine := f.sampleEngine()
	for s := 0; s < count; s++ {
		chunk := raw[s*bps : s*bps+bps]
		if bps == 1 {
			out[s] = int64(chunk[0])
		} else {
			out[s] = int64(engine.Uint16(chunk))
		}
	}

	return out, nil
}

// GetFrameRGB returns frame i reordered to R,G,B channel order: a
// straight pass-through for ColorRGB, a channel swap for ColorBGR, and
// an error for mono/Bayer color IDs (those have no fixed 3-channel
// layout to reorder).
func (f *File) GetFrameRGB(i int) ([]int64, error) {
	if f.Header.ColorID != ColorRGB && f.Header.ColorID != ColorBGR {
		return nil, errs.NewConversionError("ser", "rgb", "GetFrameRGB requires a 3-channel color id (RGB or BGR)")
	}

	samples, err := f.GetFrame(i)
	if err != nil {
		return nil, err
	}
	if f.Header.ColorID == ColorRGB {
		return samples, nil
	}

	out := make([]int64, len(samples))
	for px := 0; px+3 <= len(samples); px += 3 {
		out[px], out[px+1], out[px+2] = samples[px+2], samples[px+1], samples[px]
	}

	return out, nil
}

func (f *File) sampleEngine() interface {
	Uint16([]byte) uint16
} {
	if f.littleEndian {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// resolveAutoEndian decodes the first frame under both byte-order
// interpretations and picks whichever yields a smoother sample
// histogram (lower total variation between adjacent sample values),
// implementing the EndianAuto policy.
func (f *File) resolveAutoEndian() bool {
	if len(f.frames) == 0 || f.Header.BytesPerSample() == 1 {
		return f.Header.ResolveLittleEndian(EndianCompat)
	}

	stride := f.Header.FrameStride()
	n := stride
	if n > int64(len(f.frames)) {
		n = int64(len(f.frames))
	}
	first := f.frames[:n]

	littleVariation := totalVariation(first, endian.GetLittleEndianEngine())
	bigVariation := totalVariation(first, endian.GetBigEndianEngine())

	return littleVariation <= bigVariation
}

func totalVariation(raw []byte, engine interface{ Uint16([]byte) uint16 }) int64 {
	count := len(raw) / 2
	if count < 2 {
		return 0
	}
	var prev int64
	var total int64
	for i := 0; i < count; i++ {
		v := int64(engine.Uint16(raw[i*2 : i*2+2]))
		if i > 0 {
			d := v - prev
			if d < 0 {
				d = -d
			}
			total += d
		}
		prev = v
	}

	return total
}
