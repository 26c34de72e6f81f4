package hips

import "math"

// HealpixOracle is the collaborator the tile engine depends on for
// HEALPix indexing: nside/pixel-count bookkeeping, the forward and
// inverse pixel/sky mapping, and the disc query used to enumerate
// candidate tiles per order. RingHealpix is the one in-module
// implementation: real equal-area HEALPix geometry at a level of
// detail sufficient for query_disc_inclusive_nest-style tile
// enumeration over a coarse grid, not a full library — its within-face
// pixel serialization is row-major rather than the official
// Morton-interleaved NESTED numbering, so Npix values here are an
// internally self-consistent scheme, not bit-compatible with other
// HEALPix implementations.
type HealpixOracle interface {
	Nside(order int) int
	Npix(order int) int
	AngToPix(order int, raDeg, decDeg float64) int
	PixToAng(order, npix int) (raDeg, decDeg float64)
	QueryDiscInclusive(order int, raDeg, decDeg, radiusDeg float64) []int
	MaxPixRad(order int) float64
}

// RingHealpix implements HealpixOracle with the standard HEALPix
// equatorial-belt/polar-cap equations (Gorski et al. 2005), computing
// the within-face row/column analytically and serializing them
// row-major instead of bit-interleaving, and enumerating disc queries
// by brute-force scan over every pixel at the requested order.
type RingHealpix struct{}

var jrll = [12]int{2, 2, 2, 2, 3, 3, 3, 3, 4, 4, 4, 4}
var jpll = [12]int{1, 3, 5, 7, 0, 2, 4, 6, 1, 3, 5, 7}

func (RingHealpix) Nside(order int) int { return 1 << uint(order) }

func (h RingHealpix) Npix(order int) int {
	n := h.Nside(order)

	return 12 * n * n
}

// MaxPixRad approximates a pixel's angular radius by the radius of the
// equal-area disc covering the same solid angle as one HEALPix cell.
func (h RingHealpix) MaxPixRad(order int) float64 {
	npix := h.Npix(order)
	solidAngle := 4 * math.Pi / float64(npix)

	return math.Sqrt(solidAngle/math.Pi) * 180 / math.Pi
}

// AngToPix locates the face and within-face row/column for (ra, dec)
// and packs them into a flat pixel index.
func (h RingHealpix) AngToPix(order int, raDeg, decDeg float64) int {
	n := h.Nside(order)
	z := math.Sin(decDeg * math.Pi / 180)
	phi := raDeg * math.Pi / 180

	face, ix, iy := angToFaceIxIy(n, z, phi)

	return face*n*n + iy*n + ix
}

// PixToAng recovers (ra, dec) for the center of a pixel produced by
// AngToPix / QueryDiscInclusive.
func (h RingHealpix) PixToAng(order, npix int) (float64, float64) {
	n := h.Nside(order)
	n2 := n * n
	face := npix / n2
	ipf := npix % n2
	ix := ipf % n
	iy := ipf / n

	z, phi := faceIxIyToAng(n, face, ix, iy)
	dec := math.Asin(clampUnit(z)) * 180 / math.Pi
	ra := phi * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}

	return ra, dec
}

// QueryDiscInclusive returns every pixel at order whose center lies
// within radiusDeg (great-circle) of (raDeg, decDeg). Brute force over
// every pixel at the order, a coarse-grid scan rather than
// boundary-vertex HEALPix disc geometry.
func (h RingHealpix) QueryDiscInclusive(order int, raDeg, decDeg, radiusDeg float64) []int {
	npix := h.Npix(order)
	var out []int
	for p := 0; p < npix; p++ {
		pra, pdec := h.PixToAng(order, p)
		if angularSeparation(raDeg, decDeg, pra, pdec) <= radiusDeg {
			out = append(out, p)
		}
	}

	return out
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}

	return v
}

// angularSeparation is the great-circle distance in degrees between
// two (ra, dec) points given in degrees, via the haversine formula.
func angularSeparation(ra1, dec1, ra2, dec2 float64) float64 {
	const d2r = math.Pi / 180
	p1, l1 := dec1*d2r, ra1*d2r
	p2, l2 := dec2*d2r, ra2*d2r
	dp := p2 - p1
	dl := l2 - l1
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)

	return 2 * math.Asin(math.Sqrt(clampUnit(a))) * 180 / math.Pi
}

// angToFaceIxIy is the standard HEALPix nested forward projection: it
// locates which of the 12 base faces (ra, dec) falls on and the
// within-face row/column, treating the equatorial belt (|z|<=2/3) and
// the two polar caps separately.
func angToFaceIxIy(n int, z, phi float64) (face, ix, iy int) {
	nf := float64(n)
	tt := phi * 2 / math.Pi
	tt = math.Mod(tt, 4)
	if tt < 0 {
		tt += 4
	}

	if math.Abs(z) <= 2.0/3.0 {
		temp1 := nf * (0.5 + tt)
		temp2 := nf * z * 0.75
		jp := int(math.Floor(temp1 - temp2))
		jm := int(math.Floor(temp1 + temp2))
		ifp := jp / n
		ifm := jm / n

		switch {
		case ifp == ifm:
			face = (ifp % 4) + 4
		case ifp < ifm:
			face = ifp % 4
		default:
			face = (ifm % 4) + 8
		}

		ix = jm % n
		iy = n - (jp % n) - 1

		return face, ix, iy
	}

	ntt := int(tt)
	if ntt >= 4 {
		ntt = 3
	}
	tp := tt - float64(ntt)
	tmp := nf * math.Sqrt(3*(1-math.Abs(z)))
	jp := int(tp * tmp)
	jm := int((1 - tp) * tmp)
	if jp >= n {
		jp = n - 1
	}
	if jm >= n {
		jm = n - 1
	}

	if z >= 0 {
		face = ntt
		ix = n - jm - 1
		iy = n - jp - 1
	} else {
		face = ntt + 8
		ix = jp
		iy = jm
	}

	return face, ix, iy
}

// faceIxIyToAng is the inverse of angToFaceIxIy: given a base face and
// within-face row/column, recover z = sin(dec) and phi = ra (radians).
func faceIxIyToAng(n, face, ix, iy int) (z, phi float64) {
	nf := float64(n)
	jr := jrll[face]*n - ix - iy - 1

	var nr, kshift int
	switch {
	case jr < n:
		nr = jr
		z = 1.0 - float64(nr*nr)/(3.0*nf*nf)
		kshift = 0
	case jr <= 3*n:
		nr = n
		z = float64(2*n-jr) * 2.0 / (3.0 * nf)
		kshift = (jr - n) & 1
	default:
		nr = 4*n - jr
		z = -1.0 + float64(nr*nr)/(3.0*nf*nf)
		kshift = 0
	}

	if nr == 0 {
		return z, 0
	}

	jp := (jpll[face]*nr + ix - iy + 1 + kshift) / 2
	if jp > 4*n {
		jp -= 4 * n
	}
	if jp < 1 {
		jp += 4 * n
	}

	phi = (float64(jp) - (float64(kshift)+1.0)*0.5) * (math.Pi / 2) / float64(nr)

	return z, phi
}
