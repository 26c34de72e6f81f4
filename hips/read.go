package hips

import (
	"bytes"
	"math"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/storage"
)

// ReadTile finds and decodes NorderK/DirM/NpixJ.<ext>, returning its
// decoded pixel plane (pipeline's "hips_tile" read request).
func ReadTile(store storage.Target, order, npix int, ext string) (Tile, error) {
	raw, err := store.ReadBinary(TilePath(order, npix, ext))
	if err != nil {
		return Tile{}, err
	}

	return decodeFITSTile(order, npix, raw)
}

func decodeFITSTile(order, npix int, raw []byte) (Tile, error) {
	file, err := fits.Parse(bytes.NewReader(raw), fits.ParseOptions{})
	if err != nil {
		return Tile{}, err
	}
	if len(file.HDUs) == 0 {
		return Tile{}, errs.NewFormatError("hips", "tile file carries no HDU")
	}

	img, ok := file.HDUs[0].Data.(*fits.Image)
	if !ok {
		return Tile{}, errs.NewFormatError("hips", "tile's primary HDU is not an image")
	}

	frame, err := img.GetFrame(0)
	if err != nil {
		return Tile{}, err
	}
	width := dimOf(img.Naxis, 0)

	return Tile{Order: order, Npix: npix, Width: width, Pixels: frameToFloats(frame)}, nil
}

// CutoutOptions parameterizes a sky-position cutout request.
type CutoutOptions struct {
	RA, Dec, FovDeg float64
	OutputWidth     int
	Order           int // order to read tiles from, used as given (0 reads order-0 tiles)
	Healpix         HealpixOracle
	Interpolation   Projector
	BlankValue      float64
}

// Cutout builds a target WCS from {ra, dec, fov} and reprojects the
// union of contributing tiles into a single output plane (the
// pipeline's "cutout" read request).
func Cutout(store storage.Target, opts CutoutOptions) (SourceGrid, error) {
	radius := opts.FovDeg / 2 * math.Sqrt2
	pad := opts.Healpix.MaxPixRad(opts.Order)
	candidates := opts.Healpix.QueryDiscInclusive(opts.Order, opts.RA, opts.Dec, radius+pad)

	out := SourceGrid{Width: opts.OutputWidth, Height: opts.OutputWidth, Blank: opts.BlankValue}
	out.Data = make([]float64, out.Width*out.Height)
	for i := range out.Data {
		out.Data[i] = opts.BlankValue
	}

	outScale := opts.FovDeg / float64(opts.OutputWidth)
	outWCS := WCS{
		CRPIX1: float64(opts.OutputWidth) / 2, CRPIX2: float64(opts.OutputWidth) / 2,
		CRVAL1: opts.RA, CRVAL2: opts.Dec,
		CD11: -outScale, CD22: outScale,
		CTYPE1: "RA---TAN", CTYPE2: "DEC--TAN",
	}

	for _, npix := range candidates {
		tile, err := ReadTile(store, opts.Order, npix, "fits")
		if err != nil {
			continue // tile absent from a sparse dataset; leave blank
		}
		srcGrid := SourceGrid{Width: tile.Width, Height: tile.Width, Blank: opts.BlankValue, Data: tile.Pixels}
		srcWCS := tileWCS(opts.Healpix, opts.Order, npix, tile.Width)

		for y := 0; y < out.Height; y++ {
			for x := 0; x < out.Width; x++ {
				ra, dec := outWCS.PixToSky(float64(x)+1, float64(y)+1)
				u, v := srcWCS.SkyToPix(ra, dec)
				if value, ok := opts.Interpolation.Sample(srcGrid, u-1, v-1); ok {
					out.Data[y*out.Width+x] = value
				}
			}
		}
	}

	return out, nil
}

// ExportMap walks every pixel at order and builds a 1-D array of
// 12*nside^2 samples (the pipeline's "map" export), one sample per
// tile (its mean pixel value). ring selects the RING-like ordering;
// since RingHealpix's own pixel numbering is already a row-major
// simplification of NESTED rather than the official Morton scheme,
// "ring" here means ordered by declination band, the closest coarse
// analogue available without a full HEALPix library.
func ExportMap(store storage.Target, h HealpixOracle, order int, ext string, ring bool) ([]float64, error) {
	npix := h.Npix(order)
	out := make([]float64, npix)
	for p := 0; p < npix; p++ {
		tile, err := ReadTile(store, order, p, ext)
		if err != nil {
			out[p] = math.NaN()

			continue
		}
		out[p] = meanOf(tile.Pixels)
	}

	if !ring {
		return out, nil
	}

	return reorderByDeclination(h, order, out), nil
}

func meanOf(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}

func reorderByDeclination(h HealpixOracle, order int, vals []float64) []float64 {
	type entry struct {
		npix int
		dec  float64
	}
	entries := make([]entry, len(vals))
	for p := range vals {
		_, dec := h.PixToAng(order, p)
		entries[p] = entry{npix: p, dec: dec}
	}
	// Descending declination (north to south), matching RING's
	// convention of sweeping latitude bands pole to pole.
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].dec > entries[j-1].dec; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}

	out := make([]float64, len(vals))
	for i, e := range entries {
		out[i] = vals[e.npix]
	}

	return out
}
