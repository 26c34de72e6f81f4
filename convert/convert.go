// Package convert implements the lossless interconversion algebra
// between FITS, XISF, and SER: FITS<->XISF (with a JSON side-channel
// preserving non-image HDUs the XISF model cannot represent directly),
// FITS<->SER (cube and multi-hdu layouts), and SER<->XISF.
//
// Cross-format conversion follows the rest of astrofmt's style: flat
// functions over the existing fits/xisf/ser types, typed errors from
// errs, no class hierarchy.
package convert

import (
	"encoding/json"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
)

// Options configures every conversion entry point in this package:
// whether to fail hard on lossy mappings (StrictValidation) and where
// to report recoverable issues.
type Options struct {
	StrictValidation bool
	OnWarning        errs.WarningFunc
}

func (o Options) warn(subsystem, detail string) error {
	if o.StrictValidation {
		return errs.NewConversionError(subsystem, "convert", detail)
	}
	errs.Warn(o.OnWarning, errs.Warning{Subsystem: subsystem, Detail: detail})

	return nil
}

// preservedLayout is the JSON structure recorded in the
// "FITS:PreservedHDULayout" metadata property, carrying every FITS HDU
// that cannot round-trip as an XISF image: extra binary/ASCII tables,
// or HDUs of a kind the converter doesn't otherwise emit.
type preservedLayout struct {
	ImageSourceIndices []int          `json:"imageSourceIndices"`
	NonImageHDUs       []preservedHDU `json:"nonImageHDUs"`
}

type preservedHDU struct {
	Index      int             `json:"index"`
	Cards      []preservedCard `json:"cards"`
	DataBase64 string          `json:"dataBase64"`
}

type preservedCard struct {
	Keyword string  `json:"keyword"`
	Type    string  `json:"type"` // "string"|"bool"|"int"|"float"
	Str     string  `json:"str,omitempty"`
	Bool    bool    `json:"bool,omitempty"`
	Int     int64   `json:"int,omitempty"`
	Float   float64 `json:"float,omitempty"`
	Comment string  `json:"comment,omitempty"`
}

func cardToPreserved(c fits.Card) preservedCard {
	pc := preservedCard{Keyword: c.Keyword, Comment: c.Comment}
	switch c.Type {
	case fits.ValueString:
		pc.Type = "string"
		pc.Str = c.Str
	case fits.ValueBool:
		pc.Type = "bool"
		pc.Bool = c.Bool
	case fits.ValueInt:
		pc.Type = "int"
		pc.Int = c.Int
	case fits.ValueFloat:
		pc.Type = "float"
		pc.Float = c.Float
	default:
		pc.Type = "none"
	}

	return pc
}

func preservedToCard(pc preservedCard) fits.Card {
	c := fits.Card{Keyword: pc.Keyword, Comment: pc.Comment}
	switch pc.Type {
	case "string":
		c.Type = fits.ValueString
		c.Str = pc.Str
	case "bool":
		c.Type = fits.ValueBool
		c.Bool = pc.Bool
	case "int":
		c.Type = fits.ValueInt
		c.Int = pc.Int
	case "float":
		c.Type = fits.ValueFloat
		c.Float = pc.Float
	default:
		c.Type = fits.ValueNone
	}

	return c
}

func marshalLayout(l preservedLayout) (string, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return "", errs.NewConversionError("fits", "xisf", "failed to marshal PreservedHDULayout: "+err.Error())
	}

	return string(b), nil
}

func unmarshalLayout(s string) (preservedLayout, error) {
	var l preservedLayout
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return preservedLayout{}, errs.NewConversionError("xisf", "fits", "failed to parse PreservedHDULayout: "+err.Error())
	}

	return l, nil
}

// dim reads a geometry element, defaulting to 0 out of range; xisf.Image
// keeps the equivalent helper unexported, so conversions that walk raw
// []int geometry slices carry their own copy.
func dim(geometry []int, i int) int {
	if i < 0 || i >= len(geometry) {
		return 0
	}

	return geometry[i]
}

// hduRawBytes reconstructs the exact data-unit bytes for hdu.Data,
// regardless of kind, for capture into a PreservedHDULayout entry.
func hduRawBytes(hdu fits.HDU) []byte {
	switch d := hdu.Data.(type) {
	case *fits.Image:
		return d.Raw
	case *fits.AsciiTable:
		return d.RowData
	case *fits.BinaryTable:
		return append(append([]byte{}, d.RowData...), d.Heap...)
	case *fits.CompressedImage:
		if d.Table == nil {
			return nil
		}

		return append(append([]byte{}, d.Table.RowData...), d.Table.Heap...)
	default:
		return nil
	}
}
