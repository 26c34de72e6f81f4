package compress

import (
	"bytes"
	"compress/zlib"
	"io"
)

// ZlibCodec implements the XISF "zlib" DataBlock compression codec.
//
// klauspost/compress does not ship a zlib (RFC 1950) implementation —
// only raw flate, gzip, and its own zstd/s2 formats — so this codec
// uses the standard library's compress/zlib, which is the exact
// concern XISF's "zlib" codec name refers to.
type ZlibCodec struct{}

var _ Codec = ZlibCodec{}

func (ZlibCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (ZlibCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	if uncompressedSize > 0 {
		out := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}

		return out, nil
	}

	return io.ReadAll(r)
}
