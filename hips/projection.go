package hips

import (
	"math"

	"github.com/arlobase/astrofmt/errs"
)

// WCS is a linear, tangent-plane (gnomonic/TAN) world coordinate
// system: the subset of the FITS WCS standard the build pipeline's
// first step needs (CRPIX, CRVAL, CD/CDELT, CTYPE).
type WCS struct {
	CRPIX1, CRPIX2 float64
	CRVAL1, CRVAL2 float64 // degrees
	CD11, CD12     float64 // degrees per pixel
	CD21, CD22     float64
	CTYPE1, CTYPE2 string
}

// NewLinearWCS builds a WCS from CDELT1/CDELT2 (no rotation/skew), the
// common case for unrotated source images.
func NewLinearWCS(crpix1, crpix2, crval1, crval2, cdelt1, cdelt2 float64) WCS {
	return WCS{
		CRPIX1: crpix1, CRPIX2: crpix2,
		CRVAL1: crval1, CRVAL2: crval2,
		CD11: cdelt1, CD22: cdelt2,
		CTYPE1: "RA---TAN", CTYPE2: "DEC--TAN",
	}
}

// PixToSky deprojects a 1-indexed pixel coordinate to (ra, dec) in
// degrees via the standard gnomonic/TAN equations.
func (w WCS) PixToSky(x, y float64) (ra, dec float64) {
	dx, dy := x-w.CRPIX1, y-w.CRPIX2
	xiDeg := w.CD11*dx + w.CD12*dy
	etaDeg := w.CD21*dx + w.CD22*dy

	const d2r = math.Pi / 180
	xi, eta := xiDeg*d2r, etaDeg*d2r
	ra0, dec0 := w.CRVAL1*d2r, w.CRVAL2*d2r

	denom := math.Cos(dec0) - eta*math.Sin(dec0)
	raRad := ra0 + math.Atan2(xi, denom)
	decRad := math.Asin(clampUnit((math.Sin(dec0) + eta*math.Cos(dec0)) / math.Sqrt(1+xi*xi+eta*eta)))

	ra = raRad * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	dec = decRad * 180 / math.Pi

	return ra, dec
}

// SkyToPix is the forward gnomonic/TAN projection, the inverse of
// PixToSky.
func (w WCS) SkyToPix(raDeg, decDeg float64) (x, y float64) {
	const d2r = math.Pi / 180
	ra0, dec0 := w.CRVAL1*d2r, w.CRVAL2*d2r
	ra, dec := raDeg*d2r, decDeg*d2r

	cosc := math.Sin(dec0)*math.Sin(dec) + math.Cos(dec0)*math.Cos(dec)*math.Cos(ra-ra0)
	xi := math.Cos(dec) * math.Sin(ra-ra0) / cosc
	eta := (math.Cos(dec0)*math.Sin(dec) - math.Sin(dec0)*math.Cos(dec)*math.Cos(ra-ra0)) / cosc

	xiDeg, etaDeg := xi*180/math.Pi, eta*180/math.Pi

	det := w.CD11*w.CD22 - w.CD12*w.CD21
	if det == 0 {
		return w.CRPIX1, w.CRPIX2
	}
	dx := (w.CD22*xiDeg - w.CD12*etaDeg) / det
	dy := (w.CD11*etaDeg - w.CD21*xiDeg) / det

	return w.CRPIX1 + dx, w.CRPIX2 + dy
}

// SourceGrid is a rectangular plane of physical pixel values, the
// source a Projector samples from at fractional coordinates.
type SourceGrid struct {
	Width, Height int
	Data          []float64 // row-major, length Width*Height
	Blank         float64
}

func (g SourceGrid) at(x, y int) float64 {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return g.Blank
	}

	return g.Data[y*g.Width+x]
}

// Projector resamples a SourceGrid at a fractional (u, v) source pixel
// coordinate (0-indexed, u along Width, v along Height). ok is false
// when (u, v) falls entirely outside the source, in which case the
// caller should write the configured blank value.
type Projector interface {
	Name() string
	Sample(src SourceGrid, u, v float64) (value float64, ok bool)
}

// NearestProjector rounds to the closest source pixel.
type NearestProjector struct{}

func (NearestProjector) Name() string { return "nearest" }

func (NearestProjector) Sample(src SourceGrid, u, v float64) (float64, bool) {
	x, y := int(math.Round(u)), int(math.Round(v))
	if x < 0 || y < 0 || x >= src.Width || y >= src.Height {
		return src.Blank, false
	}

	return src.at(x, y), true
}

// BilinearProjector interpolates among the four surrounding samples.
type BilinearProjector struct{}

func (BilinearProjector) Name() string { return "bilinear" }

func (BilinearProjector) Sample(src SourceGrid, u, v float64) (float64, bool) {
	x0, y0 := math.Floor(u), math.Floor(v)
	if x0 < -1 || y0 < -1 || x0 > float64(src.Width) || y0 > float64(src.Height) {
		return src.Blank, false
	}

	fx, fy := u-x0, v-y0
	ix0, iy0 := int(x0), int(y0)

	v00 := src.at(ix0, iy0)
	v10 := src.at(ix0+1, iy0)
	v01 := src.at(ix0, iy0+1)
	v11 := src.at(ix0+1, iy0+1)

	top := v00*(1-fx) + v10*fx
	bot := v01*(1-fx) + v11*fx

	return top*(1-fy) + bot*fy, true
}

// BicubicProjector is a documented stub: bicubic is one of the
// configurable interpolation kernels, but the reprojection step only
// needs nearest/bilinear to exercise the tile pipeline end to end.
type BicubicProjector struct{}

func (BicubicProjector) Name() string { return "bicubic" }

func (BicubicProjector) Sample(SourceGrid, float64, float64) (float64, bool) {
	return 0, false
}

// ErrUnsupported is returned by BuildHiPS when BicubicProjector is
// selected.
var ErrUnsupported = errs.ErrUnsupported
