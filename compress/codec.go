// Package compress implements the DataBlock compression codecs used by
// the XISF container: zlib, lz4, lz4hc, and zstd, each with an optional
// byte-shuffle pre/post transform ("+sh" in the XISF compression
// attribute). FITS GZIP_1 tiles are decoded by fits/tiles on its own
// and do not go through this package.
package compress

import (
	"fmt"

	"github.com/arlobase/astrofmt/format"
)

// Compressor compresses a byte buffer.
//
// The returned slice is newly allocated, except from NoopCodec, which
// returns the input slice itself; the input slice is never modified.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses a byte buffer previously produced by the
// matching Compressor. uncompressedSize, when known (XISF records it in
// the compression attribute), is passed as a size hint; 0 means
// unknown and implementations must grow their buffer adaptively.
type Decompressor interface {
	Decompress(data []byte, uncompressedSize int) ([]byte, error)
}

// Codec combines both directions.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the built-in Codec for the given compression
// codec identifier.
func CreateCodec(codec format.CompressionCodec) (Codec, error) {
	switch codec {
	case format.CodecNone:
		return NoopCodec{}, nil
	case format.CodecZlib:
		return ZlibCodec{}, nil
	case format.CodecLZ4:
		return LZ4Codec{highCompression: false}, nil
	case format.CodecLZ4HC:
		return LZ4Codec{highCompression: true}, nil
	case format.CodecZstd:
		return ZstdCodec{}, nil
	default:
		return nil, fmt.Errorf("compress: unsupported codec %q", codec)
	}
}

// NoopCodec bypasses compression. It backs format.CodecNone and is also
// the default Codec used by callers that never attached a compression
// element.
type NoopCodec struct{}

var _ Codec = NoopCodec{}

func (NoopCodec) Compress(data []byte) ([]byte, error) { return data, nil }

func (NoopCodec) Decompress(data []byte, _ int) ([]byte, error) { return data, nil }
