//go:build cgo

package compress

import (
	"github.com/valyala/gozstd"
)

func (c ZstdCodec) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

func (c ZstdCodec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var dst []byte
	if uncompressedSize > 0 {
		dst = make([]byte, 0, uncompressedSize)
	}

	return gozstd.Decompress(dst, data)
}
