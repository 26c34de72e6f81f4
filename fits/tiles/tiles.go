// Package tiles implements the FITS tile-compression algorithms: Rice,
// HCompress, PLIO, and GZIP_1, plus a pluggable Registry that hands
// algorithms beyond those four, by name, to an optional Provider
// function.
package tiles

import (
	"errors"
	"fmt"
)

// errShortHeader is returned when a tile's compressed payload is too
// short to contain the algorithm's fixed header, and by HCOMPRESS_1
// when the payload does not open with its magic bytes.
var errShortHeader = errors.New("tiles: truncated tile header")

// Params carries the per-tile decode parameters taken from the FITS
// compressed-image header (ZBITPIX, ZTILEi, BLOCKSIZE, BYTEPIX,
// SMOOTH) plus the tile's own pixel extents, which may be clipped at
// image edges.
type Params struct {
	Width, Height int // this tile's clipped pixel extents
	Bitpix        int // ZBITPIX: target sample width, negative = float
	BlockSize     int // Rice BLOCKSIZE, default 32
	Bytepix       int // Rice BYTEPIX, default 4
	Smooth        bool
}

// Decoder decodes one compressed tile into a flat row-major int64
// pixel array of Params.Width*Params.Height samples (raw, pre-
// dequantization values — the dither/scale/zero transform is applied
// by the caller).
type Decoder interface {
	Decode(compressed []byte, p Params) ([]int64, error)
}

// Provider is the pluggable hook for algorithms beyond the four
// built-ins. It returns (result, true, err) when it recognizes
// algorithm, or (nil, false, nil) to signal "unsupported" and let the
// caller fall through to an error.
type Provider func(algorithm string, compressed []byte, p Params) ([]int64, bool, error)

// Registry dispatches ZCMPTYPE values to decoders, falling back to an
// optional external Provider for anything it doesn't recognize itself.
type Registry struct {
	builtin  map[string]Decoder
	Provider Provider
}

// NewRegistry returns a Registry with the four built-in algorithms
// (RICE_1, GZIP_1, PLIO_1, HCOMPRESS_1) registered.
func NewRegistry() *Registry {
	return &Registry{
		builtin: map[string]Decoder{
			"RICE_1":      RiceDecoder{},
			"GZIP_1":      GZIPDecoder{},
			"PLIO_1":      PLIODecoder{},
			"HCOMPRESS_1": HCompressDecoder{},
		},
	}
}

// Decode dispatches to the registered decoder for algorithm.
func (r *Registry) Decode(algorithm string, compressed []byte, p Params) ([]int64, error) {
	if d, ok := r.builtin[algorithm]; ok {
		return d.Decode(compressed, p)
	}

	if r.Provider != nil {
		if result, ok, err := r.Provider(algorithm, compressed, p); ok {
			return result, err
		}
	}

	return nil, fmt.Errorf("tiles: unsupported compression algorithm %q", algorithm)
}
