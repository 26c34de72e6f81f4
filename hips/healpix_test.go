package hips

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNsideAndNpix(t *testing.T) {
	h := RingHealpix{}
	require.Equal(t, 8, h.Nside(3))
	require.Equal(t, 768, h.Npix(3))
}

func TestAngToPixPixToAngRoundTrip(t *testing.T) {
	h := RingHealpix{}
	order := 4

	cases := []struct{ ra, dec float64 }{
		{0, 0}, {90, 30}, {180, -45}, {270, 60}, {10, -80}, {350, 85},
	}
	for _, c := range cases {
		p := h.AngToPix(order, c.ra, c.dec)
		gotRA, gotDec := h.PixToAng(order, p)

		// Resolving back to sky must land within one pixel's angular
		// radius of the original point, not bit-exact (it's a pixel
		// center, not the original continuous coordinate).
		sep := angularSeparation(c.ra, c.dec, gotRA, gotDec)
		require.LessOrEqual(t, sep, h.MaxPixRad(order)*2)
	}
}

func TestQueryDiscInclusiveContainsCenterPixel(t *testing.T) {
	h := RingHealpix{}
	order := 3
	ra, dec := 45.0, 20.0

	centerPix := h.AngToPix(order, ra, dec)
	hits := h.QueryDiscInclusive(order, ra, dec, h.MaxPixRad(order)*1.5)

	found := false
	for _, p := range hits {
		if p == centerPix {
			found = true

			break
		}
	}
	require.True(t, found)
}

func TestAngularSeparationZeroForIdenticalPoints(t *testing.T) {
	require.InDelta(t, 0, angularSeparation(12.5, -33.2, 12.5, -33.2), 1e-9)
}

func TestAngularSeparationAntipodal(t *testing.T) {
	require.InDelta(t, 180, angularSeparation(0, 0, 180, 0), 1e-6)
	require.InDelta(t, 180, angularSeparation(0, 90, 0, -90), 1e-6)
}
