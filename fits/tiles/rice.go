package tiles

import (
	"github.com/arlobase/astrofmt/internal/bitio"
)

// RiceDecoder implements the RICE_1 tile compression algorithm: pixel
// values are delta-encoded against a running predictor and each block
// of pixels is split into a unary quotient plus a fixed-width
// remainder, with escape codes for constant-value and incompressible
// blocks.
type RiceDecoder struct{}

// riceParams returns the (bbits, fsbits, fsmax, mask) derived from
// BYTEPIX, following the standard Rice parameterization: fsbits is the
// bit width of the block's Rice parameter field and fsmax = 2^fsbits-2
// is reserved to flag an uncompressed block.
func riceParams(bytepix int) (bbits, fsbits, fsmax int, mask uint64) {
	bbits = bytepix * 8
	switch bytepix {
	case 2:
		fsbits = 4
	case 4:
		fsbits = 5
	default:
		fsbits = 3
	}
	fsmax = (1 << uint(fsbits)) - 2
	mask = (uint64(1) << uint(bbits)) - 1

	return bbits, fsbits, fsmax, mask
}

// Decode implements Decoder.
func (RiceDecoder) Decode(compressed []byte, p Params) ([]int64, error) {
	bytepix := p.Bytepix
	if bytepix == 0 {
		bytepix = 4
	}
	blockSize := p.BlockSize
	if blockSize == 0 {
		blockSize = 32
	}

	npix := p.Width * p.Height
	out := make([]int64, 0, npix)
	if npix == 0 {
		return out, nil
	}

	bbits, fsbits, fsmax, mask := riceParams(bytepix)
	r := bitio.NewReader(compressed)

	firstRaw, err := r.ReadBits(bbits)
	if err != nil {
		return nil, err
	}
	lastpix := int64(firstRaw)
	out = append(out, lastpix)

	for len(out) < npix {
		blockLen := blockSize
		if remaining := npix - len(out); remaining < blockLen {
			blockLen = remaining
		}

		rawFs, err := r.ReadBits(fsbits)
		if err != nil {
			return nil, err
		}
		fs := int(rawFs) - 1

		switch {
		case fs == -1:
			// Zero-entropy block: every pixel equals the running predictor.
			for i := 0; i < blockLen; i++ {
				out = append(out, lastpix)
			}
		case fs == fsmax:
			// Escape: pixels stored uncompressed at full width.
			for i := 0; i < blockLen; i++ {
				raw, err := r.ReadBits(bbits)
				if err != nil {
					return nil, err
				}
				lastpix = int64(raw)
				out = append(out, lastpix)
			}
		default:
			for i := 0; i < blockLen; i++ {
				quotient, err := r.ReadUnary()
				if err != nil {
					return nil, err
				}
				var remainder uint64
				if fs > 0 {
					remainder, err = r.ReadBits(fs)
					if err != nil {
						return nil, err
					}
				}
				diff := (uint64(quotient) << uint(fs)) | remainder

				var signed int64
				if diff&1 != 0 {
					signed = -int64(diff>>1) - 1
				} else {
					signed = int64(diff >> 1)
				}

				lastpix = int64(uint64(lastpix+signed) & mask)
				out = append(out, lastpix)
			}
		}
	}

	return out, nil
}
