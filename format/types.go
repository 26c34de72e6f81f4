// Package format holds small shared enumerations used across the fits,
// xisf, ser, hips, and convert packages: sample formats, compression
// codec identifiers, and checksum algorithm identifiers. Centralizing
// these avoids duplicate definitions and import cycles between the
// format packages.
package format

// SampleFormat identifies the physical encoding of one pixel sample,
// shared between FITS (derived from BITPIX/BZERO/BSCALE) and XISF
// (declared directly via the sampleFormat attribute).
type SampleFormat uint8

const (
	SampleUnknown SampleFormat = iota
	SampleUInt8
	SampleUInt16
	SampleUInt32
	SampleUInt64
	SampleInt8
	SampleInt16
	SampleInt32
	SampleInt64
	SampleFloat32
	SampleFloat64
	SampleComplex32
	SampleComplex64
)

func (s SampleFormat) String() string {
	switch s {
	case SampleUInt8:
		return "UInt8"
	case SampleUInt16:
		return "UInt16"
	case SampleUInt32:
		return "UInt32"
	case SampleUInt64:
		return "UInt64"
	case SampleInt8:
		return "Int8"
	case SampleInt16:
		return "Int16"
	case SampleInt32:
		return "Int32"
	case SampleInt64:
		return "Int64"
	case SampleFloat32:
		return "Float32"
	case SampleFloat64:
		return "Float64"
	case SampleComplex32:
		return "Complex32"
	case SampleComplex64:
		return "Complex64"
	default:
		return "Unknown"
	}
}

// ParseSampleFormat maps an XISF sampleFormat attribute token to a
// SampleFormat.
func ParseSampleFormat(token string) (SampleFormat, bool) {
	switch token {
	case "UInt8":
		return SampleUInt8, true
	case "UInt16":
		return SampleUInt16, true
	case "UInt32":
		return SampleUInt32, true
	case "UInt64":
		return SampleUInt64, true
	case "Int8":
		return SampleInt8, true
	case "Int16":
		return SampleInt16, true
	case "Int32":
		return SampleInt32, true
	case "Int64":
		return SampleInt64, true
	case "Float32":
		return SampleFloat32, true
	case "Float64":
		return SampleFloat64, true
	case "Complex32":
		return SampleComplex32, true
	case "Complex64":
		return SampleComplex64, true
	default:
		return SampleUnknown, false
	}
}

// BytesPerSample returns the width in bytes of one sample of this format,
// or 0 for SampleUnknown.
func (s SampleFormat) BytesPerSample() int {
	switch s {
	case SampleUInt8, SampleInt8:
		return 1
	case SampleUInt16, SampleInt16:
		return 2
	case SampleUInt32, SampleInt32, SampleFloat32:
		return 4
	case SampleUInt64, SampleInt64, SampleFloat64, SampleComplex32:
		return 8
	case SampleComplex64:
		return 16
	default:
		return 0
	}
}

// IsFloat reports whether the format is a floating-point or complex
// format, which therefore has no BZERO/BSCALE unsigned-shift encoding.
func (s SampleFormat) IsFloat() bool {
	switch s {
	case SampleFloat32, SampleFloat64, SampleComplex32, SampleComplex64:
		return true
	default:
		return false
	}
}

// CompressionCodec identifies an XISF DataBlock compression codec.
type CompressionCodec uint8

const (
	CodecNone CompressionCodec = iota
	CodecZlib
	CodecLZ4
	CodecLZ4HC
	CodecZstd
)

func (c CompressionCodec) String() string {
	switch c {
	case CodecZlib:
		return "zlib"
	case CodecLZ4:
		return "lz4"
	case CodecLZ4HC:
		return "lz4hc"
	case CodecZstd:
		return "zstd"
	default:
		return "none"
	}
}

// ParseCompressionCodec maps an XISF compression attribute's codec token
// (the part before "+sh", if any) to a CompressionCodec.
func ParseCompressionCodec(token string) (CompressionCodec, bool) {
	switch token {
	case "zlib":
		return CodecZlib, true
	case "lz4":
		return CodecLZ4, true
	case "lz4hc":
		return CodecLZ4HC, true
	case "zstd":
		return CodecZstd, true
	default:
		return CodecNone, false
	}
}

// ChecksumAlgorithm identifies an XISF DataBlock checksum algorithm.
type ChecksumAlgorithm uint8

const (
	ChecksumNone ChecksumAlgorithm = iota
	ChecksumSHA1
	ChecksumSHA256
	ChecksumSHA512
	ChecksumSHA3_256
	ChecksumSHA3_512
)

func (a ChecksumAlgorithm) String() string {
	switch a {
	case ChecksumSHA1:
		return "sha1"
	case ChecksumSHA256:
		return "sha256"
	case ChecksumSHA512:
		return "sha512"
	case ChecksumSHA3_256:
		return "sha3-256"
	case ChecksumSHA3_512:
		return "sha3-512"
	default:
		return "none"
	}
}

// ParseChecksumAlgorithm maps an XISF checksum attribute's algorithm
// token to a ChecksumAlgorithm.
func ParseChecksumAlgorithm(token string) (ChecksumAlgorithm, bool) {
	switch token {
	case "sha-1", "sha1":
		return ChecksumSHA1, true
	case "sha-256", "sha256":
		return ChecksumSHA256, true
	case "sha-512", "sha512":
		return ChecksumSHA512, true
	case "sha3-256":
		return ChecksumSHA3_256, true
	case "sha3-512":
		return ChecksumSHA3_512, true
	default:
		return ChecksumNone, false
	}
}
