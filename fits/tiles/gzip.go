package tiles

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
)

// GZIPDecoder implements the GZIP_1 tile algorithm: each tile is the
// big-endian byte image of the tile's samples (at the target bit
// width), compressed with a plain gzip stream. Decoding inflates the
// stream and reinterprets the bytes at the requested sample width.
//
// Uses klauspost/compress's gzip implementation rather than the
// standard library's; the same module is the pure-Go zstd backend of
// github.com/arlobase/astrofmt/compress, whose zlib codec uses the
// standard library.
type GZIPDecoder struct{}

func (GZIPDecoder) Decode(compressed []byte, p Params) ([]int64, error) {
	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	raw, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}

	bytepix := abs(p.Bitpix) / 8
	if bytepix == 0 {
		bytepix = p.Bytepix
	}
	if bytepix == 0 {
		bytepix = 4
	}

	npix := p.Width * p.Height
	out := make([]int64, npix)
	for i := 0; i < npix && (i+1)*bytepix <= len(raw); i++ {
		chunk := raw[i*bytepix : (i+1)*bytepix]
		var v uint64
		for _, b := range chunk {
			v = v<<8 | uint64(b)
		}

		// Sign-extend for integer bit widths; float tiles (negative
		// Bitpix) are reinterpreted by the caller via math.Float*frombits.
		if p.Bitpix > 0 {
			shift := uint(64 - bytepix*8)
			out[i] = int64(v<<shift) >> shift
		} else {
			out[i] = int64(v)
		}
	}

	return out, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
