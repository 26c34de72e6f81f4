package tiles

import "encoding/binary"

// PLIODecoder implements the PLIO_1 tile algorithm: IRAF's pixel-list
// run-length encoding for integer mask images. The stream opens with a
// 5-word (16-bit big-endian) header carrying the encoded pixel count
// and starting row/column, followed by a sequence of 16-bit
// instruction words. Each instruction word splits into a 4-bit opcode
// (bits 12-15) and 12-bit data (bits 0-11):
//
//   - opcode 0, 4, 5: emit a run of the current value, data pixels long
//   - opcode 1: load a new current value from this word's 12 data bits
//     (high) and the next word's 12 data bits (low), a 24-bit value
//     split across two words
//   - opcode 2, 3: add/subtract data from the current value, no pixels
//     emitted
//   - opcode 6, 7: add/subtract data from the current value and emit a
//     single pixel at the result
//
// This follows cfitsio's documented opcode layout rather than its
// internal recursive line-list folding, which only affects encoded
// stream size, not decoded pixel values, so that folding is omitted.
type PLIODecoder struct{}

const (
	plioOpRunA     = 0
	plioOpLoad     = 1
	plioOpAdd      = 2
	plioOpSub      = 3
	plioOpRunB     = 4
	plioOpRunC     = 5
	plioOpDeltaAdd = 6
	plioOpDeltaSub = 7
)

const plioHeaderWords = 5 // encoded pixel count plus starting row/column; not needed to reproduce pixel values

func (PLIODecoder) Decode(compressed []byte, p Params) ([]int64, error) {
	npix := p.Width * p.Height
	out := make([]int64, 0, npix)
	if npix == 0 {
		return out, nil
	}

	words := make([]uint16, len(compressed)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(compressed[i*2 : i*2+2])
	}

	if len(words) < plioHeaderWords {
		return nil, errShortHeader
	}
	idx := plioHeaderWords

	value := int64(0)
	for len(out) < npix {
		if idx >= len(words) {
			// Truncated stream: pad with the current value.
			out = append(out, value)

			continue
		}
		word := words[idx]
		idx++
		opcode := word >> 12
		data := int64(word & 0x0FFF)

		switch opcode {
		case plioOpRunA, plioOpRunB, plioOpRunC:
			for i := int64(0); i < data && len(out) < npix; i++ {
				out = append(out, value)
			}
		case plioOpLoad:
			var low int64
			if idx < len(words) {
				low = int64(words[idx] & 0x0FFF)
				idx++
			}
			value = data<<12 | low
		case plioOpAdd:
			value += data
		case plioOpSub:
			value -= data
		case plioOpDeltaAdd:
			value += data
			out = append(out, value)
		case plioOpDeltaSub:
			value -= data
			out = append(out, value)
		}
	}

	return out, nil
}
