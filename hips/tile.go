// Package hips builds and reads Hierarchical Progressive Survey tile
// trees from FITS source images: HEALPix tile enumeration, per-tile
// reprojection, allsky/MOC emission, and the read-side hips_tile/cutout/
// map operations. Follows astrofmt's house style throughout (flat
// functions over small structs, typed errs, explicit Options).
package hips

import "fmt"

// TilePath returns the directory-sharded path for one HiPS tile,
// "NorderK/DirM/NpixJ.<ext>" where M = floor(J/10000)*10000.
func TilePath(order, npix int, ext string) string {
	dir := (npix / 10000) * 10000

	return fmt.Sprintf("Norder%d/Dir%d/Npix%d.%s", order, dir, npix, ext)
}

// AllskyPath returns the path of the order-3 sparse allsky mosaic.
func AllskyPath(ext string) string {
	return fmt.Sprintf("Norder3/Allsky.%s", ext)
}

// MOCPath is the conventional location of the optional coverage map.
const MOCPath = "Moc.fits"

// PropertiesPath is the conventional location of the dataset's
// key=value metadata file.
const PropertiesPath = "properties"

// Tile is one reprojected HEALPix cell: a square buffer of physical
// pixel values (NaN marks a blank sample) ready for encoding.
type Tile struct {
	Order  int
	Npix   int
	Width  int // tileWidth x tileWidth
	Pixels []float64
}

func (t Tile) at(x, y int) float64 { return t.Pixels[y*t.Width+x] }
