// Package astrofmt provides typed facades over the FITS, XISF, and SER
// astronomical image container formats, plus cross-format conversion
// and HiPS tile-pyramid generation.
//
// # Core Features
//
//   - FITS parse/write (images, tables, compressed images, WCS cards)
//   - XISF monolithic container parse/write with checksum and signature
//     verification
//   - SER frame-sequence parse/write
//   - Lossless FITS<->XISF<->SER conversion preserving header metadata
//   - HiPS tile-pyramid construction and cutout/map queries
//
// # Basic Usage
//
// Reading a FITS file and converting it to XISF:
//
//	import "github.com/arlobase/astrofmt"
//
//	data, _ := os.ReadFile("frame.fits")
//	file, err := astrofmt.ParseFITS(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	unit, err := astrofmt.FITSToXISF(file, astrofmt.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := astrofmt.WriteXISF(unit, astrofmt.XISFWriteOptions{})
//
// # Package Structure
//
// This package is a thin convenience layer over the fits, xisf, ser,
// convert, hips, and storage packages. For advanced usage — custom
// parse options, table field access, per-HDU walking — use those
// packages directly.
package astrofmt

import (
	"io"

	"github.com/arlobase/astrofmt/convert"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/hips"
	"github.com/arlobase/astrofmt/ser"
	"github.com/arlobase/astrofmt/storage"
	"github.com/arlobase/astrofmt/xisf"
)

// Options controls how lenient a conversion is about data it cannot
// round-trip exactly. It is a re-export of convert.Options so callers
// of this package never need to import the convert package directly.
type Options = convert.Options

// XISFWriteOptions controls XISF unit serialization. Re-export of
// xisf.WriteOptions.
type XISFWriteOptions = xisf.WriteOptions

// XISFWriteResult carries a written unit's header, attachment region,
// and (when distributed) XISB sidecar bytes.
type XISFWriteResult = xisf.WriteResult

// SERWriteOptions controls SER frame-sequence serialization.
type SERWriteOptions = ser.WriteOptions

// ParseFITS parses a FITS file (primary HDU plus any extensions) from
// its raw bytes using default, non-strict parse options.
//
// Parameters:
//   - data: the complete FITS file contents
//
// Returns:
//   - *fits.File: the parsed header/data-unit list
//   - error: a *errs.FormatError (or similar) if the bytes are not
//     valid FITS
//
// Example:
//
//	file, err := astrofmt.ParseFITS(raw)
func ParseFITS(data []byte) (*fits.File, error) {
	return fits.ParseBytes(data, fits.ParseOptions{})
}

// WriteFITS serializes a fits.File and its per-HDU raw data planes
// back to wire bytes, 2880-byte block padded.
//
// Parameters:
//   - w: destination writer
//   - file: the parsed/assembled FITS file
//   - rawData: one raw data-unit byte slice per HDU in file.HDUs, in
//     order (nil entries are allowed for header-only HDUs)
func WriteFITS(w io.Writer, file *fits.File, rawData [][]byte) error {
	return fits.WriteFile(w, file, rawData)
}

// ParseXISF parses a monolithic XISF file (header + inline/attached
// data blocks in one byte stream) into a Unit, its higher-level view
// of images, tables, and metadata properties.
//
// Parameters:
//   - data: the complete .xisf file contents
//   - opts: governs checksum/signature verification strictness
//
// Returns:
//   - *xisf.Unit: images, tables, and metadata ready for access
//   - error: a *errs.FormatError/*errs.ChecksumError/*errs.SignatureError
//     depending on what failed
func ParseXISF(data []byte, opts xisf.UnitOptions) (*xisf.Unit, error) {
	container, err := xisf.ParseMonolithic(data)
	if err != nil {
		return nil, err
	}

	return xisf.BuildUnit(container, opts)
}

// WriteXISF serializes a Unit to monolithic XISF bytes.
//
// Example:
//
//	result, err := astrofmt.WriteXISF(unit, astrofmt.XISFWriteOptions{})
//	full := append(result.Header, result.Attachments...)
func WriteXISF(u *xisf.Unit, opts XISFWriteOptions) (XISFWriteResult, error) {
	return xisf.WriteUnit(u, opts)
}

// ParseSER parses a SER frame-sequence file into a File ready for
// per-frame lazy decoding via File.GetFrame / File.GetFrameRGB.
func ParseSER(data []byte, opts ser.ParseOptions) (*ser.File, error) {
	return ser.Parse(data, opts)
}

// WriteSER serializes a SER header, frame planes, and optional
// trailer timestamps back to wire bytes.
func WriteSER(h ser.Header, frames [][]int64, timestamps []int64, opts SERWriteOptions) ([]byte, error) {
	return ser.Write(h, frames, timestamps, opts)
}

// FITSToXISF converts a parsed FITS file to an XISF Unit: image HDUs
// become XISF images, and the header cards of every non-image HDU are
// kept in the "FITS:PreservedHDULayout" metadata property so
// XISFToFITS can restore them.
func FITSToXISF(file *fits.File, opts Options) (*xisf.Unit, error) {
	return convert.FITSToXISF(file, opts)
}

// XISFToFITS converts an XISF Unit back to a FITS file. When the unit
// carries a preserved FITS layout property (written by FITSToXISF) the
// original header cards and HDU order are restored; otherwise a fresh
// FITS file is synthesized from the unit's images.
func XISFToFITS(u *xisf.Unit, opts Options) (*fits.File, [][]byte, error) {
	return convert.XISFToFITS(u, opts)
}

// SERToFITS converts a SER frame sequence to a FITS file, per layout.
func SERToFITS(f *ser.File, layout convert.SERLayout, opts Options) (*fits.File, [][]byte, error) {
	return convert.SERToFITS(f, layout, opts)
}

// FITSToSER converts a multi-HDU or cube FITS file to a SER frame
// sequence, using h as the template header (color ID, frame
// dimensions) for the output.
func FITSToSER(file *fits.File, h ser.Header, opts Options) (*ser.File, error) {
	return convert.FITSToSER(file, h, opts)
}

// SERToXISF converts a SER frame sequence directly to an XISF Unit,
// as a single image holding every frame, without an intermediate FITS
// representation.
func SERToXISF(f *ser.File, opts Options) (*xisf.Unit, error) {
	return convert.SERToXISF(f, opts)
}

// XISFToSER converts an XISF Unit's images back to a SER frame
// sequence.
func XISFToSER(u *xisf.Unit, opts Options) (*ser.File, error) {
	return convert.XISFToSER(u, opts)
}

// NewLocalStorage returns a storage.Target rooted at a local
// filesystem directory, the one concrete storage backend this module
// ships (ZIP and OPFS targets are left to external collaborators
// implementing storage.Target).
func NewLocalStorage(root string) storage.Target {
	return storage.NewFS(root)
}

// BuildHiPSOptions re-exports hips.BuildOptions.
type BuildHiPSOptions = hips.BuildOptions

// BuildHiPS runs the full tile-pyramid build pipeline over a source
// FITS image, writing every tile, the allsky mosaic, the optional MOC
// coverage map, and the properties file through store.
//
// Parameters:
//   - img: the source image, with a WCS read via hips.WCSFromHeader
//   - srcWCS: the source image's linear tangent-plane WCS
//   - store: destination (e.g. NewLocalStorage("./my-survey"))
//   - opts: tile width, order range, interpolation kernel, formats
func BuildHiPS(img *fits.Image, srcWCS hips.WCS, store storage.Target, opts BuildHiPSOptions) error {
	return hips.BuildHiPS(img, srcWCS, store, opts)
}

// HiPSTile fetches and decodes one tile from a built HiPS dataset.
func HiPSTile(store storage.Target, order, npix int, ext string) (hips.Tile, error) {
	return hips.ReadTile(store, order, npix, ext)
}

// HiPSCutout builds a reprojected image around (ra, dec) with the
// requested field of view from the tiles of a built HiPS dataset.
func HiPSCutout(store storage.Target, opts hips.CutoutOptions) (hips.SourceGrid, error) {
	return hips.Cutout(store, opts)
}

// HiPSMap exports every tile at order as a flat 12*nside^2 sample
// array, one mean value per tile.
func HiPSMap(store storage.Target, h hips.HealpixOracle, order int, ext string, ring bool) ([]float64, error) {
	return hips.ExportMap(store, h, order, ext, ring)
}
