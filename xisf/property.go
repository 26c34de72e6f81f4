package xisf

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// Property is the flat sum-type decode result for one <Property>
// element: scalar fields are used directly; vector/matrix types fill
// the slice fields, avoiding a class hierarchy for this kind of
// dynamically-typed access (the same shape as fits.Cell).
type Property struct {
	ID   string
	Type string // raw XISF type token, e.g. "Int32", "F64Vector"

	Bool    bool
	Int     int64
	UInt    uint64
	Float   float64
	Complex [2]float64
	Str     string

	Ints      []int64
	UInts     []uint64
	Floats    []float64
	Complexes [][2]float64

	Rows, Cols int // set for Matrix types
}

// scalarElementSize returns the byte width of one element of a scalar
// or vector/matrix base type (stripping the "Vector" suffix).
func scalarElementSize(base string) int {
	switch base {
	case "Boolean", "Int8", "UInt8":
		return 1
	case "Int16", "UInt16":
		return 2
	case "Int32", "UInt32", "Float32":
		return 4
	case "Int64", "UInt64", "Float64", "Complex32":
		return 8
	case "Complex64":
		return 16
	default:
		return 0
	}
}

func baseType(typ string) (base string, isVector bool, isMatrix bool) {
	switch {
	case strings.HasSuffix(typ, "Vector"):
		return strings.TrimSuffix(typ, "Vector"), true, false
	case strings.HasSuffix(typ, "Matrix"):
		return strings.TrimSuffix(typ, "Matrix"), false, true
	default:
		return typ, false, false
	}
}

// ParseProperty decodes one <Property> element, resolving its value
// from an inline "value" attribute, element text (String/TimePoint),
// or an associated DataBlock (vector/matrix payloads).
func ParseProperty(c *Container, e Element, resolver ResourceResolver, headerDir string) (Property, error) {
	p := Property{ID: e.Attr("id"), Type: e.Attr("type")}
	base, isVector, isMatrix := baseType(p.Type)

	if v := e.Attr("value"); v != "" {
		return decodeScalarText(p, base, v)
	}

	if (base == "String" || base == "TimePoint") && e.Attr("location") == "" {
		p.Str = strings.TrimSpace(e.Content)

		return p, nil
	}

	data, err := decodeDataBlock(c, e, resolver, headerDir)
	if err != nil {
		return Property{}, err
	}
	if data == nil {
		// Scalar with no attribute/text/DataBlock decodes to the zero value.
		return p, nil
	}

	if base == "String" || base == "TimePoint" {
		p.Str = string(data)

		return p, nil
	}

	if isMatrix {
		rows, _ := strconv.Atoi(e.Attr("rows"))
		cols, _ := strconv.Atoi(e.Attr("columns"))
		p.Rows, p.Cols = rows, cols

		return decodeVectorBytes(p, base, rows*cols, data)
	}
	if isVector {
		length, _ := strconv.Atoi(e.Attr("length"))

		return decodeVectorBytes(p, base, length, data)
	}

	return decodeVectorBytes(p, base, 1, data)
}

func decodeScalarText(p Property, base, v string) (Property, error) {
	switch base {
	case "Boolean":
		p.Bool = v == "1" || strings.EqualFold(v, "true")
	case "Int8", "Int16", "Int32", "Int64":
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Property{}, errs.NewValidationError("xisf", "Property", "bad integer value: "+v)
		}
		p.Int = n
	case "UInt8", "UInt16", "UInt32", "UInt64":
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Property{}, errs.NewValidationError("xisf", "Property", "bad unsigned value: "+v)
		}
		p.UInt = n
	case "Float32", "Float64":
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Property{}, errs.NewValidationError("xisf", "Property", "bad float value: "+v)
		}
		p.Float = f
	case "String", "TimePoint":
		p.Str = v
	default:
		p.Str = v
	}

	return p, nil
}

// decodeVectorBytes decodes count elements of base type from data, as
// either the scalar fields (count==1) or the appropriate slice.
func decodeVectorBytes(p Property, base string, count int, data []byte) (Property, error) {
	size := scalarElementSize(base)
	if size == 0 {
		return Property{}, errs.NewValidationError("xisf", "Property", "unknown scalar type: "+base)
	}
	if count*size > len(data) {
		return Property{}, errs.NewValidationError("xisf", "Property", "DataBlock shorter than declared length")
	}

	switch base {
	case "Boolean", "Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64":
		signed := strings.HasPrefix(base, "Int") || base == "Boolean"
		ints := make([]int64, count)
		uints := make([]uint64, count)
		for i := 0; i < count; i++ {
			chunk := data[i*size : i*size+size]
			// XISF binary payloads are little-endian on the wire.
			u := readLE(chunk)
			uints[i] = u
			ints[i] = signExtend(u, size)
		}
		if signed {
			p.Ints = ints
			if count == 1 {
				p.Int = ints[0]
			}
		} else {
			p.UInts = uints
			if count == 1 {
				p.UInt = uints[0]
			}
		}
	case "Float32":
		floats := make([]float64, count)
		for i := 0; i < count; i++ {
			floats[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4])))
		}
		p.Floats = floats
		if count == 1 {
			p.Float = floats[0]
		}
	case "Float64":
		floats := make([]float64, count)
		for i := 0; i < count; i++ {
			floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
		}
		p.Floats = floats
		if count == 1 {
			p.Float = floats[0]
		}
	case "Complex32":
		cs := make([][2]float64, count)
		for i := 0; i < count; i++ {
			re := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8 : i*8+4]))
			im := math.Float32frombits(binary.LittleEndian.Uint32(data[i*8+4 : i*8+8]))
			cs[i] = [2]float64{float64(re), float64(im)}
		}
		p.Complexes = cs
		if count == 1 {
			p.Complex = cs[0]
		}
	case "Complex64":
		cs := make([][2]float64, count)
		for i := 0; i < count; i++ {
			re := math.Float64frombits(binary.LittleEndian.Uint64(data[i*16 : i*16+8]))
			im := math.Float64frombits(binary.LittleEndian.Uint64(data[i*16+8 : i*16+16]))
			cs[i] = [2]float64{re, im}
		}
		p.Complexes = cs
		if count == 1 {
			p.Complex = cs[0]
		}
	default:
		return Property{}, errs.NewValidationError("xisf", "Property", "unsupported type: "+base)
	}

	return p, nil
}

func readLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}

	return v
}

func signExtend(u uint64, size int) int64 {
	bits := uint(size * 8)
	if bits >= 64 {
		return int64(u)
	}
	shift := 64 - bits

	return int64(u<<shift) >> shift
}

// decodeEmbeddedText decodes an inline/embedded DataBlock's base64 or
// hex element text.
func decodeEmbeddedText(encoding, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	switch encoding {
	case "hex":
		return decodeHex(text)
	default:
		return base64.StdEncoding.DecodeString(text)
	}
}

func decodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errs.NewFormatError("xisf", "odd-length hex DataBlock")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}

	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errs.NewFormatError("xisf", "invalid hex digit")
	}
}
