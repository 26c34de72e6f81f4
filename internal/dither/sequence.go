// Package dither implements the Park-Miller pseudo-random sequence used
// by the FITS tile-compression "subtractive dither" quantization modes
// (ZQUANTIZ = SUBTRACTIVE_DITHER_1/2) to derive a per-tile noise offset
// that is applied before quantizing on write and removed after
// dequantizing on read.
package dither

// SequenceLength is the number of precomputed entries in the standard
// table (cfitsio's "10000 entries" convention, referenced by the
// Z_DITHER_SEED header keyword range).
const SequenceLength = 10000

const (
	parkMillerMultiplier = 16807
	parkMillerModulus    = 2147483647 // 2^31 - 1
	parkMillerSeed       = 1
)

// table is lazily built on first use and cached; it never changes.
var table [SequenceLength]float64

var tableBuilt bool

// Table returns the 10000-entry Park-Miller sequence scaled to [0, 1),
// building it on first call.
func Table() [SequenceLength]float64 {
	if !tableBuilt {
		build()
	}

	return table
}

func build() {
	seed := int64(parkMillerSeed)
	for i := 0; i < SequenceLength; i++ {
		seed = (seed * parkMillerMultiplier) % parkMillerModulus
		table[i] = float64(seed) / float64(parkMillerModulus)
	}
	tableBuilt = true
}

// StartIndex computes the dither start index for a tile, per the
// specification: seed index = ((tileIndex + ditherSeed - 1) - 1) mod
// 10000, then the starting sample offset is floor(R*500), where R is
// the sequence value at that seed index. A secondary seed (seedIndex+1,
// wrapped) is used if the caller detects overflow past the tile's
// pixel count; StartIndex returns the seed index (and StartOffset the
// primary offset) so callers can compute the secondary seed
// deterministically.
func StartIndex(tileIndex, ditherSeed int) int {
	idx := ((tileIndex + ditherSeed - 1) - 1) % SequenceLength
	if idx < 0 {
		idx += SequenceLength
	}

	return idx
}

// StartOffset returns floor(R*500) for the sequence value at seedIndex.
func StartOffset(seedIndex int) int {
	t := Table()
	r := t[seedIndex%SequenceLength]

	return int(r * 500)
}
