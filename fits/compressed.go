package fits

import (
	"math"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits/tiles"
	"github.com/arlobase/astrofmt/internal/dither"
)

// CompressedImage is a FITS tile-compressed image (ZIMAGE = T):
// a BINTABLE whose rows each hold one compressed tile (column
// "COMPRESSED_DATA") plus optional per-tile ZSCALE/ZZERO/ZBLANK
// override columns and an UNCOMPRESSED_DATA fallback column for tiles
// the encoder chose not to compress.
//
// It wraps a BinaryTable rather than reimplementing row/heap access:
// the table does the row/heap bookkeeping, CompressedImage adds the
// tile-grid-to-pixel-grid placement and the dequantize/dither
// reconstruction on top.
type CompressedImage struct {
	Header *Header
	Table  *BinaryTable

	ZNaxis    []int // original (pre-tiling) image axis extents
	TileSize  []int // ZTILEi per axis, same length as ZNaxis
	Algorithm string // ZCMPTYPE
	Bitpix    int    // ZBITPIX
	BlockSize int
	Bytepix   int
	Smooth    bool

	ZScale, ZZero float64
	HasZBlank     bool
	ZBlank        int64

	DitherMethod  int // 0 = none, 1 = SUBTRACTIVE_DITHER_1, 2 = SUBTRACTIVE_DITHER_2
	DitherSeed    int
	DitherOffset  int // ZDITHER0

	Registry *tiles.Registry

	compDataCol, uncompDataCol, zscaleCol, zzeroCol, zblankCol int
}

// NewCompressedImageFromHeader builds a CompressedImage view over a
// BINTABLE data unit whose header carries ZIMAGE = T.
func NewCompressedImageFromHeader(h *Header, raw []byte) (*CompressedImage, error) {
	bt, err := NewBinaryTableFromHeader(h, raw)
	if err != nil {
		return nil, err
	}

	znaxis, _ := h.GetInt("ZNAXIS")
	axes := make([]int, znaxis)
	tile := make([]int, znaxis)
	for i := 1; i <= int(znaxis); i++ {
		v, _ := h.GetInt(indexedKeyword("ZNAXIS", i))
		axes[i-1] = int(v)
		t, ok := h.GetInt(indexedKeyword("ZTILE", i))
		if !ok || t == 0 {
			t = int64(axes[i-1])
			if i == 1 {
				t = int64(axes[0]) // row default: whole first axis
			} else {
				t = 1 // all other axes default to 1 row of tiling
			}
		}
		tile[i-1] = int(t)
	}

	ci := &CompressedImage{
		Header:        h,
		Table:         bt,
		ZNaxis:        axes,
		TileSize:      tile,
		Algorithm:     h.GetString("ZCMPTYPE"),
		Bitpix:        int(firstInt(h, "ZBITPIX", int64(h.Bitpix()))),
		BlockSize:     int(zparam(h, "BLOCKSIZE", 32)),
		Bytepix:       int(zparam(h, "BYTEPIX", 4)),
		Registry:      tiles.NewRegistry(),
		compDataCol:   -1,
		uncompDataCol: -1,
		zscaleCol:     -1,
		zzeroCol:      -1,
		zblankCol:     -1,
	}

	ci.Smooth = func() bool { b, _ := h.GetBool("ZSMOOTH"); return b }()

	if v, ok := h.GetFloat("ZSCALE"); ok {
		ci.ZScale = v
	} else {
		ci.ZScale = 1
	}
	if v, ok := h.GetFloat("ZZERO"); ok {
		ci.ZZero = v
	}
	if v, ok := h.GetInt("ZBLANK"); ok {
		ci.HasZBlank = true
		ci.ZBlank = v
	}
	if v, ok := h.GetInt("ZDITHER0"); ok {
		ci.DitherOffset = int(v)
	}

	quantiz := h.GetString("ZQUANTIZ")
	switch quantiz {
	case "SUBTRACTIVE_DITHER_1":
		ci.DitherMethod = 1
	case "SUBTRACTIVE_DITHER_2":
		ci.DitherMethod = 2
	}

	for i, col := range bt.Columns {
		switch col.Name {
		case "COMPRESSED_DATA":
			ci.compDataCol = i
		case "UNCOMPRESSED_DATA":
			ci.uncompDataCol = i
		case "ZSCALE":
			ci.zscaleCol = i
		case "ZZERO":
			ci.zzeroCol = i
		case "ZBLANK":
			ci.zblankCol = i
		}
	}

	if ci.compDataCol == -1 && ci.uncompDataCol == -1 {
		return nil, errs.NewValidationError("fits", "COMPRESSED_DATA", "ZIMAGE table has neither compressed nor uncompressed data column")
	}

	return ci, nil
}

func firstInt(h *Header, keyword string, fallback int64) int64 {
	if v, ok := h.GetInt(keyword); ok {
		return v
	}

	return fallback
}

func zparam(h *Header, keyword string, fallback int64) int64 {
	if v, ok := h.GetInt(keyword); ok && v != 0 {
		return v
	}

	return fallback
}

// tileGrid returns the number of tiles along each axis.
func (ci *CompressedImage) tileGrid() []int {
	grid := make([]int, len(ci.ZNaxis))
	for i, n := range ci.ZNaxis {
		t := ci.TileSize[i]
		if t <= 0 {
			t = n
		}
		grid[i] = (n + t - 1) / t
	}

	return grid
}

// GetFrame decodes the full image plane by decoding every tile row,
// placing it at its row-major position (clipping edge tiles to the
// image bounds), and applying the ZSCALE/ZZERO dequantize-and-dither
// reconstruction.
func (ci *CompressedImage) GetFrame() (Frame, error) {
	if len(ci.ZNaxis) < 2 {
		return Frame{}, errs.NewValidationError("fits", "ZNAXIS", "compressed image requires at least 2 axes")
	}

	width, height := ci.ZNaxis[0], ci.ZNaxis[1]
	total := 1
	for _, n := range ci.ZNaxis {
		total *= n
	}

	floats := make([]float64, total)

	tileW := ci.TileSize[0]
	tileH := ci.TileSize[1]
	if tileH <= 0 {
		tileH = 1
	}
	tileIndex := 0

	for ty := 0; ty*tileH < height; ty++ {
		for tx := 0; tx*tileW < width; tx++ {
			row := tileIndex
			cw := tileW
			if tx*tileW+cw > width {
				cw = width - tx*tileW
			}
			ch := tileH
			if ty*tileH+ch > height {
				ch = height - ty*tileH
			}

			values, err := ci.decodeTile(row, cw, ch)
			if err != nil {
				return Frame{}, err
			}

			for y := 0; y < ch; y++ {
				for x := 0; x < cw; x++ {
					px := (ty*tileH+y)*width + (tx*tileW + x)
					floats[px] = values[y*cw+x]
				}
			}

			tileIndex++
		}
	}

	return Frame{Kind: FrameFloat64, Floats: floats, Shape: append([]int(nil), ci.ZNaxis...)}, nil
}

// decodeTile decodes row's tile, returning its (possibly dithered)
// floating-point pixel values in row-major order within the tile.
func (ci *CompressedImage) decodeTile(row, width, height int) ([]float64, error) {
	if ci.uncompDataCol != -1 {
		cell, err := ci.Table.Field(row, ci.uncompDataCol)
		if err == nil && (len(cell.Ints) > 0 || len(cell.Floats) > 0) {
			out := make([]float64, width*height)
			for i := range out {
				if len(cell.Floats) > 0 {
					out[i] = cell.Floats[i%len(cell.Floats)]
				} else {
					out[i] = float64(cell.Ints[i%len(cell.Ints)])
				}
			}

			return out, nil
		}
	}

	cell, err := ci.Table.Field(row, ci.compDataCol)
	if err != nil {
		return nil, err
	}

	compressed := make([]byte, len(cell.Ints))
	for i, v := range cell.Ints {
		compressed[i] = byte(v)
	}

	raw, err := ci.Registry.Decode(ci.Algorithm, compressed, tiles.Params{
		Width:     width,
		Height:    height,
		Bitpix:    ci.Bitpix,
		BlockSize: ci.BlockSize,
		Bytepix:   ci.Bytepix,
		Smooth:    ci.Smooth,
	})
	if err != nil {
		return nil, err
	}

	scale, zero := ci.ZScale, ci.ZZero
	if ci.zscaleCol != -1 {
		if c, err := ci.Table.Field(row, ci.zscaleCol); err == nil && len(c.Floats) > 0 {
			scale = c.Floats[0]
		}
	}
	if ci.zzeroCol != -1 {
		if c, err := ci.Table.Field(row, ci.zzeroCol); err == nil && len(c.Floats) > 0 {
			zero = c.Floats[0]
		}
	}

	var sequence [dither.SequenceLength]float64
	var seedOffset int
	if ci.DitherMethod != 0 {
		table := dither.Table()
		seedIdx := dither.StartIndex(row, ci.DitherOffset)
		seedOffset = dither.StartOffset(seedIdx)
		sequence = table
	}

	out := make([]float64, len(raw))
	for i, v := range raw {
		switch {
		case v == nanSentinel:
			out[i] = math.NaN()
		case v == zeroSentinel:
			out[i] = 0
		case ci.DitherMethod != 0:
			r := sequence[(seedOffset+i)%dither.SequenceLength]
			out[i] = (float64(v)-r+0.5)*scale + zero
		default:
			out[i] = float64(v)*scale + zero
		}
	}

	return out, nil
}

// nanSentinel and zeroSentinel are the reserved raw tile values that
// decode directly to NaN/0 regardless of the scale/zero transform,
// reserved so quantized floating-point tiles can represent those two
// values exactly.
const (
	nanSentinel  int64 = -2147483647
	zeroSentinel int64 = -2147483646
)
