// Package ser decodes and encodes the SER planetary/deep-sky video
// format: a fixed 178-byte header followed by a sequence of raw frames
// and an optional per-frame timestamp trailer.
package ser

import (
	"strings"
	"time"

	"github.com/arlobase/astrofmt/endian"
	"github.com/arlobase/astrofmt/errs"
)

// HeaderSize is the fixed byte length of the SER header (offset 0-177).
const HeaderSize = 178

// ColorID identifies the pixel layout of a SER file: either monochrome,
// one of the eight Bayer mosaic patterns, or pre-demosaiced RGB/BGR.
type ColorID int32

const (
	ColorMono      ColorID = 0
	ColorBayerRGGB ColorID = 8
	ColorBayerGRBG ColorID = 9
	ColorBayerGBRG ColorID = 10
	ColorBayerBGGR ColorID = 11
	ColorBayerCYYM ColorID = 16
	ColorBayerYCMY ColorID = 17
	ColorBayerYMCY ColorID = 18
	ColorBayerMYCY ColorID = 19
	ColorRGB       ColorID = 100
	ColorBGR       ColorID = 101
)

// ChannelCount returns the number of interleaved samples stored per
// pixel: 3 for RGB/BGR, 1 for mono and every Bayer pattern (the mosaic
// is stored as a single raw plane; demosaicing is outside this package's
// scope).
func (c ColorID) ChannelCount() int {
	switch c {
	case ColorRGB, ColorBGR:
		return 3
	default:
		return 1
	}
}

func (c ColorID) String() string {
	switch c {
	case ColorMono:
		return "MONO"
	case ColorBayerRGGB:
		return "BAYER_RGGB"
	case ColorBayerGRBG:
		return "BAYER_GRBG"
	case ColorBayerGBRG:
		return "BAYER_GBRG"
	case ColorBayerBGGR:
		return "BAYER_BGGR"
	case ColorBayerCYYM:
		return "BAYER_CYYM"
	case ColorBayerYCMY:
		return "BAYER_YCMY"
	case ColorBayerYMCY:
		return "BAYER_YMCY"
	case ColorBayerMYCY:
		return "BAYER_MYCY"
	case ColorRGB:
		return "RGB"
	case ColorBGR:
		return "BGR"
	default:
		return "UNKNOWN"
	}
}

func validColorID(c ColorID) bool {
	switch c {
	case ColorMono, ColorBayerRGGB, ColorBayerGRBG, ColorBayerGBRG, ColorBayerBGGR,
		ColorBayerCYYM, ColorBayerYCMY, ColorBayerYMCY, ColorBayerMYCY, ColorRGB, ColorBGR:
		return true
	default:
		return false
	}
}

// EndiannessPolicy resolves the historically-inverted littleEndianFlag
// field. The SER standard defines flag=1 as little-endian, but the de
// facto tooling that most capture software follows writes 0 for
// little-endian; astrofmt defaults to that de facto convention.
type EndiannessPolicy int

const (
	// EndianCompat treats flag==0 as little-endian, flag!=0 as
	// big-endian: the widely deployed (non-literal) convention, and
	// astrofmt's default.
	EndianCompat EndiannessPolicy = iota
	// EndianSpec treats flag==1 as little-endian per the literal SER
	// standard text.
	EndianSpec
	// EndianAuto decodes the first frame under both interpretations
	// and picks whichever produces a smoother sample histogram.
	EndianAuto
)

// Header is the fixed 178-byte SER file header, offsets per §6 of the
// container layout: 14-byte identifier, LuID, colorID, endian flag,
// width/height, pixel depth, frame count, three 40-char ASCII fields,
// two timestamps.
type Header struct {
	FileID           string // 14-byte ASCII, normally "LUCAM-RECORDER"
	LuID             int32
	ColorID          ColorID
	LittleEndianFlag int32 // raw wire value, before EndiannessPolicy resolution
	Width            int32
	Height           int32
	PixelDepth       int32 // bits per sample, 1-16
	FrameCount       int32
	Observer         string
	Instrument       string
	Telescope        string
	DateTime         int64 // .NET ticks, local time
	DateTimeUTC      int64 // .NET ticks, UTC
}

const (
	fileIDLen      = 14
	stringFieldLen = 40
)

// ParseHeader decodes a Header from the first HeaderSize bytes of data.
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, errs.NewFormatError("ser", "header shorter than 178 bytes")
	}

	engine := endian.GetLittleEndianEngine() // every multi-byte header field is little-endian on the wire

	h := Header{
		FileID:           strings.TrimRight(string(data[0:14]), "\x00"),
		LuID:             int32(engine.Uint32(data[14:18])),
		ColorID:          ColorID(engine.Uint32(data[18:22])),
		LittleEndianFlag: int32(engine.Uint32(data[22:26])),
		Width:            int32(engine.Uint32(data[26:30])),
		Height:           int32(engine.Uint32(data[30:34])),
		PixelDepth:       int32(engine.Uint32(data[34:38])),
		FrameCount:       int32(engine.Uint32(data[38:42])),
		Observer:         strings.TrimRight(string(data[42:82]), "\x00"),
		Instrument:       strings.TrimRight(string(data[82:122]), "\x00"),
		Telescope:        strings.TrimRight(string(data[122:162]), "\x00"),
		DateTime:         int64(engine.Uint64(data[162:170])),
		DateTimeUTC:      int64(engine.Uint64(data[170:178])),
	}

	if !validColorID(h.ColorID) {
		return Header{}, errs.NewValidationError("ser", "ColorID", "unrecognized color id")
	}
	if h.PixelDepth < 1 || h.PixelDepth > 16 {
		return Header{}, errs.NewValidationError("ser", "PixelDepth", "must be in 1..16")
	}
	if h.Width <= 0 || h.Height <= 0 {
		return Header{}, errs.NewValidationError("ser", "Width/Height", "must be positive")
	}

	return h, nil
}

// Bytes serializes the header back into its fixed 178-byte wire form.
func (h Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.GetLittleEndianEngine()

	copy(b[0:14], padField(h.FileID, fileIDLen))
	engine.PutUint32(b[14:18], uint32(h.LuID))
	engine.PutUint32(b[18:22], uint32(h.ColorID))
	engine.PutUint32(b[22:26], uint32(h.LittleEndianFlag))
	engine.PutUint32(b[26:30], uint32(h.Width))
	engine.PutUint32(b[30:34], uint32(h.Height))
	engine.PutUint32(b[34:38], uint32(h.PixelDepth))
	engine.PutUint32(b[38:42], uint32(h.FrameCount))
	copy(b[42:82], padField(h.Observer, stringFieldLen))
	copy(b[82:122], padField(h.Instrument, stringFieldLen))
	copy(b[122:162], padField(h.Telescope, stringFieldLen))
	engine.PutUint64(b[162:170], uint64(h.DateTime))
	engine.PutUint64(b[170:178], uint64(h.DateTimeUTC))

	return b
}

func padField(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)

	return b
}

// BytesPerSample returns the storage width of one channel sample: 1 if
// PixelDepth <= 8, else 2 (SER never packs sub-byte depths).
func (h Header) BytesPerSample() int {
	if h.PixelDepth <= 8 {
		return 1
	}

	return 2
}

// FrameStride returns the byte length of one frame: w*h*channels*bytesPerSample.
func (h Header) FrameStride() int64 {
	return int64(h.Width) * int64(h.Height) * int64(h.ColorID.ChannelCount()) * int64(h.BytesPerSample())
}

// ResolveLittleEndian applies policy to the raw wire flag and reports
// whether pixel samples are little-endian. EndianAuto requires sample
// data, so Parse resolves it with File.resolveAutoEndian instead; calling
// it here with EndianAuto falls back to EndianCompat.
func (h Header) ResolveLittleEndian(policy EndiannessPolicy) bool {
	switch policy {
	case EndianSpec:
		return h.LittleEndianFlag == 1
	default:
		return h.LittleEndianFlag == 0
	}
}

// dotNetEpoch is January 1, year 1, the epoch of .NET's DateTime.Ticks,
// expressed as ticks-since-Unix-epoch conversion base.
var dotNetEpoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)

// TicksToTime converts a .NET DateTime.Ticks value (100ns units since
// 0001-01-01) to a time.Time.
func TicksToTime(ticks int64) time.Time {
	return dotNetEpoch.Add(time.Duration(ticks * 100))
}

// TimeToTicks converts a time.Time to .NET DateTime.Ticks.
func TimeToTicks(t time.Time) int64 {
	return int64(t.Sub(dotNetEpoch) / 100)
}
