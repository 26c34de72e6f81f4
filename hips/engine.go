package hips

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/storage"
)

// DatasetProperties carries the required and compatibility-alias keys
// for the dataset's "properties" file.
type DatasetProperties struct {
	CreatorDID      string
	ObsTitle        string
	DataProductType string
	HipsFrame       string // e.g. "equatorial"
}

// BuildOptions configures one BuildHiPS run.
type BuildOptions struct {
	// MinOrder/MaxOrder pin the pyramid range; zero values mean
	// "derive both from the source pixel scale".
	MinOrder, MaxOrder int
	TileWidth          int // default 512 if zero
	Formats            []string
	Interpolation      Projector
	Healpix            HealpixOracle
	BlankValue         float64
	EmitMOC            bool
	Properties         DatasetProperties
	Cache              *TileCache
}

func (o BuildOptions) tileWidth() int {
	if o.TileWidth > 0 {
		return o.TileWidth
	}

	return 512
}

func (o BuildOptions) formats() []string {
	if len(o.Formats) > 0 {
		return o.Formats
	}

	return []string{"fits"}
}

// WCSFromHeader reads CRPIX/CRVAL/CD (falling back to CDELT) from a
// FITS header, the linear WCS the build pipeline's first step needs.
func WCSFromHeader(h *fits.Header) (WCS, error) {
	crpix1, ok1 := h.GetFloat("CRPIX1")
	crpix2, ok2 := h.GetFloat("CRPIX2")
	crval1, ok3 := h.GetFloat("CRVAL1")
	crval2, ok4 := h.GetFloat("CRVAL2")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return WCS{}, errs.NewValidationError("hips", "CRPIX/CRVAL", "header carries no linear WCS")
	}

	w := WCS{CRPIX1: crpix1, CRPIX2: crpix2, CRVAL1: crval1, CRVAL2: crval2, CTYPE1: "RA---TAN", CTYPE2: "DEC--TAN"}

	cd11, hasCD := h.GetFloat("CD1_1")
	if hasCD {
		cd12, _ := h.GetFloat("CD1_2")
		cd21, _ := h.GetFloat("CD2_1")
		cd22, _ := h.GetFloat("CD2_2")
		w.CD11, w.CD12, w.CD21, w.CD22 = cd11, cd12, cd21, cd22

		return w, nil
	}

	cdelt1, _ := h.GetFloat("CDELT1")
	cdelt2, _ := h.GetFloat("CDELT2")
	w.CD11, w.CD22 = cdelt1, cdelt2

	return w, nil
}

// pixelScaleDeg estimates the source image's pixel scale in degrees
// from the WCS's CD matrix determinant (the area of one pixel cell).
func pixelScaleDeg(w WCS) float64 {
	det := w.CD11*w.CD22 - w.CD12*w.CD21

	return math.Sqrt(math.Abs(det))
}

// deriveOrderRange picks [minOrder, maxOrder] so that one HEALPix cell
// at maxOrder, split into tileWidth sub-samples, has roughly the
// source's pixel scale.
func deriveOrderRange(h HealpixOracle, sourceScaleDeg float64, tileWidth int) (minOrder, maxOrder int) {
	const capOrder = 20
	maxOrder = 0
	for order := 0; order <= capOrder; order++ {
		cellSize := math.Sqrt(4*math.Pi/float64(h.Npix(order))) * 180 / math.Pi
		if cellSize/float64(tileWidth) <= sourceScaleDeg {
			maxOrder = order

			break
		}
		maxOrder = order
	}

	minOrder = maxOrder - 3
	if minOrder < 0 {
		minOrder = 0
	}

	return minOrder, maxOrder
}

// footprint returns a source image's angular center and the maximum
// corner-to-center angular distance, per pipeline step 3.
func footprint(w WCS, width, height int) (centerRA, centerDec, radiusDeg float64) {
	centerRA, centerDec = w.PixToSky(float64(width)/2, float64(height)/2)

	corners := [4][2]float64{{0, 0}, {float64(width), 0}, {0, float64(height)}, {float64(width), float64(height)}}
	for _, c := range corners {
		ra, dec := w.PixToSky(c[0], c[1])
		sep := angularSeparation(centerRA, centerDec, ra, dec)
		if sep > radiusDeg {
			radiusDeg = sep
		}
	}

	return centerRA, centerDec, radiusDeg
}

// tileWCS builds the local tangent-plane WCS for one HEALPix tile: its
// tangent point is the pixel's sky center, and its pixel scale matches
// the cell's angular size split across tileWidth sub-samples.
func tileWCS(h HealpixOracle, order, npix, tileWidth int) WCS {
	ra, dec := h.PixToAng(order, npix)
	cellSize := math.Sqrt(4*math.Pi/float64(h.Npix(order))) * 180 / math.Pi
	scale := cellSize / float64(tileWidth)

	return WCS{
		CRPIX1: float64(tileWidth) / 2, CRPIX2: float64(tileWidth) / 2,
		CRVAL1: ra, CRVAL2: dec,
		CD11: -scale, CD22: scale,
		CTYPE1: "RA---TAN", CTYPE2: "DEC--TAN",
	}
}

// reprojectTile fills one tileWidth x tileWidth buffer by mapping each
// output pixel's sky position through the source WCS and sampling src
// via opts.Interpolation (pipeline step 5).
func reprojectTile(src SourceGrid, srcWCS WCS, order, npix int, opts BuildOptions) Tile {
	width := opts.tileWidth()
	out := tileWCS(opts.Healpix, order, npix, width)
	pixels := make([]float64, width*width)

	for y := 0; y < width; y++ {
		for x := 0; x < width; x++ {
			ra, dec := out.PixToSky(float64(x)+1, float64(y)+1)
			u, v := srcWCS.SkyToPix(ra, dec)
			value, ok := opts.Interpolation.Sample(src, u-1, v-1)
			if !ok {
				value = opts.BlankValue
			}
			pixels[y*width+x] = value
		}
	}

	return Tile{Order: order, Npix: npix, Width: width, Pixels: pixels}
}

// encodeTileFITS wraps a Tile as a minimal float64 FITS primary HDU.
func encodeTileFITS(t Tile) ([]byte, error) {
	h := fits.NewHeader()
	if err := h.SetBool("SIMPLE", true); err != nil {
		return nil, err
	}
	if err := h.SetInt("BITPIX", -64); err != nil {
		return nil, err
	}
	if err := h.SetInt("NAXIS", 2); err != nil {
		return nil, err
	}
	if err := h.SetInt("NAXIS1", int64(t.Width)); err != nil {
		return nil, err
	}
	if err := h.SetInt("NAXIS2", int64(t.Width)); err != nil {
		return nil, err
	}

	raw := fits.EncodeImageFloats(-64, t.Pixels)

	buf := &countingWriter{}
	if err := fits.WriteHeader(buf, h); err != nil {
		return nil, err
	}
	if err := fits.WriteData(buf, raw); err != nil {
		return nil, err
	}

	return buf.data, nil
}

// encodeTile dispatches to the configured raster codec per pipeline
// step 6. FITS is always available; PNG/JPEG use the standard image
// package the same way the corpus's own raster codec module does,
// since a Tile is already a decoded plane rather than a compressed
// format needing its own third-party codec.
func encodeTile(t Tile, format string) ([]byte, error) {
	switch format {
	case "png":
		return encodeTileRaster(t, encodePNG)
	case "jpg", "jpeg":
		return encodeTileRaster(t, encodeJPEG)
	default:
		return encodeTileFITS(t)
	}
}

func encodeTileRaster(t Tile, encode func(*image.Gray) ([]byte, error)) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, t.Width, t.Width))
	for y := 0; y < t.Width; y++ {
		for x := 0; x < t.Width; x++ {
			v := t.at(x, y)
			if math.IsNaN(v) {
				v = 0
			}
			img.SetGray(x, y, color.Gray{Y: clampByte(v)})
		}
	}

	return encode(img)
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}

	return uint8(v)
}

func encodePNG(img *image.Gray) ([]byte, error) {
	buf := &countingWriter{}
	if err := png.Encode(buf, img); err != nil {
		return nil, err
	}

	return buf.data, nil
}

func encodeJPEG(img *image.Gray) ([]byte, error) {
	buf := &countingWriter{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.data, nil
}

type countingWriter struct{ data []byte }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)

	return len(p), nil
}

// downsampleAllsky builds the order-3 sparse mosaic: every order-3
// tile is shrunk to a 64x64 cell and paged into a ceil(sqrt(Ntiles))
// square grid, NaN filling any tile that wasn't rendered.
func downsampleAllsky(tiles map[int]Tile, h HealpixOracle) Tile {
	const cell = 64
	order := 3
	npix := h.Npix(order)
	gridDim := int(math.Ceil(math.Sqrt(float64(npix))))
	width := gridDim * cell
	pixels := make([]float64, width*width)
	for i := range pixels {
		pixels[i] = math.NaN()
	}

	for p := 0; p < npix; p++ {
		gx, gy := (p%gridDim)*cell, (p/gridDim)*cell

		t, ok := tiles[p]
		if !ok {
			continue
		}
		shrinkInto(pixels, width, gx, gy, cell, t)
	}

	return Tile{Order: order, Npix: -1, Width: width, Pixels: pixels}
}

// shrinkInto box-averages t down to cell x cell and writes it into out
// (a width x width buffer) at (gx, gy).
func shrinkInto(out []float64, width, gx, gy, cell int, t Tile) {
	box := t.Width / cell
	if box < 1 {
		box = 1
	}

	for cy := 0; cy < cell; cy++ {
		for cx := 0; cx < cell; cx++ {
			sum, n := 0.0, 0
			for by := 0; by < box; by++ {
				for bx := 0; bx < box; bx++ {
					sx, sy := cx*box+bx, cy*box+by
					if sx >= t.Width || sy >= t.Width {
						continue
					}
					v := t.at(sx, sy)
					if math.IsNaN(v) {
						continue
					}
					sum += v
					n++
				}
			}
			val := math.NaN()
			if n > 0 {
				val = sum / float64(n)
			}
			out[(gy+cy)*width+(gx+cx)] = val
		}
	}
}

// BuildHiPS runs the full nine-step tile-pyramid build pipeline over
// one source FITS image, writing every artifact through store.
func BuildHiPS(img *fits.Image, srcWCS WCS, store storage.Target, opts BuildOptions) error {
	if _, bicubic := opts.Interpolation.(BicubicProjector); bicubic {
		return ErrUnsupported
	}

	frame, err := img.GetFrame(0)
	if err != nil {
		return err
	}
	width, height := dimOf(img.Naxis, 0), dimOf(img.Naxis, 1)
	src := SourceGrid{Width: width, Height: height, Blank: opts.BlankValue, Data: frameToFloats(frame)}

	minOrder, maxOrder := opts.MinOrder, opts.MaxOrder
	if maxOrder == 0 {
		minOrder, maxOrder = deriveOrderRange(opts.Healpix, pixelScaleDeg(srcWCS), opts.tileWidth())
	}

	centerRA, centerDec, footRadius := footprint(srcWCS, width, height)

	order3Tiles := map[int]Tile{}
	var maxOrderNpix []int

	for order := minOrder; order <= maxOrder; order++ {
		pad := opts.Healpix.MaxPixRad(order)
		candidates := opts.Healpix.QueryDiscInclusive(order, centerRA, centerDec, footRadius+pad)

		for _, npix := range candidates {
			tile := reprojectTile(src, srcWCS, order, npix, opts)
			if order == 3 {
				order3Tiles[npix] = tile
			}
			if order == maxOrder {
				maxOrderNpix = append(maxOrderNpix, npix)
			}

			for _, format := range opts.formats() {
				if (format == "png" || format == "jpg" || format == "jpeg") && img.Bitpix != 8 {
					continue // raster encoding is depth-1 only
				}
				data, cached := (([]byte)(nil)), false
				if opts.Cache != nil {
					data, cached = opts.Cache.Get(order, npix, format)
				}
				if !cached {
					var err error
					data, err = encodeTile(tile, format)
					if err != nil {
						return err
					}
					if opts.Cache != nil {
						opts.Cache.Put(order, npix, format, data)
					}
				}
				if err := store.WriteBinary(TilePath(order, npix, format), data); err != nil {
					return err
				}
			}
		}
	}

	allsky := downsampleAllsky(order3Tiles, opts.Healpix)
	allskyBytes, err := encodeTileFITS(allsky)
	if err != nil {
		return err
	}
	if err := store.WriteBinary(AllskyPath("fits"), allskyBytes); err != nil {
		return err
	}

	if opts.EmitMOC {
		mocHeader, mocRaw, err := BuildMOC(maxOrder, maxOrderNpix)
		if err != nil {
			return err
		}
		if err := writeMOCFile(store, mocHeader, mocRaw); err != nil {
			return err
		}
	}

	return store.WriteText(PropertiesPath, buildPropertiesText(opts, minOrder, maxOrder))
}

// writeMOCFile serializes an empty primary HDU followed by the MOC
// binary table extension.
func writeMOCFile(store storage.Target, tableHeader *fits.Header, tableRaw []byte) error {
	primary := fits.NewHeader()
	if err := primary.SetBool("SIMPLE", true); err != nil {
		return err
	}
	if err := primary.SetInt("BITPIX", 8); err != nil {
		return err
	}
	if err := primary.SetInt("NAXIS", 0); err != nil {
		return err
	}

	buf := &countingWriter{}
	if err := fits.WriteHeader(buf, primary); err != nil {
		return err
	}
	if err := fits.WriteHeader(buf, tableHeader); err != nil {
		return err
	}
	if err := fits.WriteData(buf, tableRaw); err != nil {
		return err
	}

	return store.WriteBinary(MOCPath, buf.data)
}

func buildPropertiesText(opts BuildOptions, minOrder, maxOrder int) string {
	p := opts.Properties

	return fmt.Sprintf(
		"creator_did         = %s\n"+
			"obs_title           = %s\n"+
			"dataproduct_type    = %s\n"+
			"hips_version        = 1.4\n"+
			"hips_frame          = %s\n"+
			"hips_order          = %d\n"+
			"hips_order_min      = %d\n"+
			"hips_tile_width     = %d\n"+
			"hips_tile_format    = %s\n"+
			"coordsys            = %s\n"+
			"maxOrder            = %d\n"+
			"format              = %s\n",
		p.CreatorDID, p.ObsTitle, p.DataProductType, p.HipsFrame,
		maxOrder, minOrder, opts.tileWidth(), firstOrDefault(opts.formats(), "fits"),
		coordsysAlias(p.HipsFrame), maxOrder, firstOrDefault(opts.formats(), "fits"),
	)
}

func firstOrDefault(vals []string, def string) string {
	if len(vals) == 0 {
		return def
	}

	return vals[0]
}

func coordsysAlias(frame string) string {
	if frame == "galactic" {
		return "G"
	}

	return "C"
}

func dimOf(naxis []int, i int) int {
	if i < 0 || i >= len(naxis) {
		return 0
	}

	return naxis[i]
}

func frameToFloats(f fits.Frame) []float64 {
	out := make([]float64, f.Len())
	for i := range out {
		out[i] = f.At(i)
	}

	return out
}
