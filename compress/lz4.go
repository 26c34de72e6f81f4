package compress

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// LZ4Codec implements the XISF "lz4" and "lz4hc" DataBlock compression
// codecs via the streaming frame API of pierrec/lz4/v4. highCompression
// selects the high-compression level ("lz4hc") at write time; the
// frame format read back is identical either way.
type LZ4Codec struct {
	highCompression bool
}

var _ Codec = LZ4Codec{}

func (c LZ4Codec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if c.highCompression {
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
			return nil, err
		}
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (c LZ4Codec) Decompress(data []byte, uncompressedSize int) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	if uncompressedSize > 0 {
		out := make([]byte, uncompressedSize)
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, err
		}

		return out, nil
	}

	return io.ReadAll(r)
}
