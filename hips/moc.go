package hips

import (
	"fmt"

	"github.com/arlobase/astrofmt/fits"
)

// uniq is the standard MOC NUNIQ packing: uniq = npix + 4*4^order,
// collapsing (order, npix) into one sortable 64-bit identifier.
func uniq(order, npix int) int64 {
	return int64(npix) + 4*ipow4(order)
}

func ipow4(n int) int64 {
	r := int64(1)
	for i := 0; i < n; i++ {
		r *= 4
	}

	return r
}

// BuildMOC builds the BINTABLE extension header and big-endian UNIQ
// rows of a Multi-Order Coverage map over the given set of tile pixel
// indices, all at the same order (the tile centers at the pyramid's
// max order).
func BuildMOC(order int, npixList []int) (*fits.Header, []byte, error) {
	uniqs := make([]int64, len(npixList))
	for i, p := range npixList {
		uniqs[i] = uniq(order, p)
	}

	h := fits.NewHeader()
	cards := []struct {
		key string
		val any
	}{
		{"XTENSION", "BINTABLE"}, {"BITPIX", int64(8)}, {"NAXIS", int64(2)},
		{"NAXIS1", int64(8)}, {"NAXIS2", int64(len(uniqs))},
		{"PCOUNT", int64(0)}, {"GCOUNT", int64(1)}, {"TFIELDS", int64(1)},
		{"TTYPE1", "UNIQ"}, {"TFORM1", "1K"},
		{"PIXTYPE", "HEALPIX"}, {"ORDERING", "NUNIQ"}, {"COORDSYS", "C"},
		{"MOCORDER", int64(order)},
	}
	for _, c := range cards {
		var err error
		switch v := c.val.(type) {
		case string:
			err = h.SetString(c.key, v)
		case int64:
			err = h.SetInt(c.key, v)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("hips: building MOC header: %w", err)
		}
	}

	raw := make([]byte, len(uniqs)*8)
	for i, u := range uniqs {
		b := uint64(u)
		off := i * 8
		for j := 7; j >= 0; j-- {
			raw[off+j] = byte(b)
			b >>= 8
		}
	}

	return h, raw, nil
}
