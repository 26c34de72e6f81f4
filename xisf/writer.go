package xisf

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// WriteOptions configures XISF header emission.
type WriteOptions struct {
	// MaxInlineBlockSize is the largest DataBlock payload (after any
	// compression) written inline as base64 element text; larger
	// payloads go to the attachment region (monolithic mode) or the
	// distributed XISB sidecar (distributed mode).
	MaxInlineBlockSize int

	// AttachmentAlignment rounds each attachment DataBlock's starting
	// offset up to a multiple of this value. 0 defaults to 4096.
	AttachmentAlignment int

	// Distributed, when true, routes every non-inline DataBlock into a
	// separate XISB sidecar instead of the monolithic attachment
	// region; the header records location "path(@header_dir/blocks.xisb)"
	// plus an "indexId" attribute naming the block's XISB entry.
	Distributed bool
}

func (o WriteOptions) maxInline() int {
	if o.MaxInlineBlockSize <= 0 {
		return 3072
	}

	return o.MaxInlineBlockSize
}

func (o WriteOptions) alignment() int64 {
	if o.AttachmentAlignment <= 0 {
		return 4096
	}

	return int64(o.AttachmentAlignment)
}

// WriteResult holds the pieces produced by WriteUnit: the monolithic
// file is header+Attachments concatenated; distributed mode also
// returns the XISB sidecar bytes.
type WriteResult struct {
	Header      []byte
	Attachments []byte
	XISB        []byte // non-nil only when WriteOptions.Distributed
}

// blockPlacement accumulates a pending DataBlock before it is written
// into the header tree.
type blockPlacement struct {
	uniqueID uint64
	data     []byte
}

// WriteUnit serializes a Unit into a monolithic or distributed XISF
// file per opts. Properties/Images/Tables are emitted in the order
// they appear on the Unit.
func WriteUnit(u *Unit, opts WriteOptions) (WriteResult, error) {
	root := Element{XMLName: xml.Name{Local: "xisf"}}
	root.Attrs = append(root.Attrs, xml.Attr{Name: xml.Name{Local: "version"}, Value: firstNonEmpty(u.Version, "1.0")})
	root.Attrs = append(root.Attrs, xml.Attr{Name: xml.Name{Local: "xmlns"}, Value: "http://www.pixinsight.com/xisf"})

	w := &writerState{opts: opts}

	if len(u.Metadata) > 0 {
		md := Element{XMLName: xml.Name{Local: "Metadata"}}
		for _, p := range u.Metadata {
			el, err := w.emitProperty(p)
			if err != nil {
				return WriteResult{}, err
			}
			md.Children = append(md.Children, el)
		}
		root.Children = append(root.Children, md)
	}

	for _, img := range u.Images {
		el, err := w.emitImage(img)
		if err != nil {
			return WriteResult{}, err
		}
		root.Children = append(root.Children, el)
	}

	for _, p := range u.Properties {
		el, err := w.emitProperty(p)
		if err != nil {
			return WriteResult{}, err
		}
		root.Children = append(root.Children, el)
	}

	for _, t := range u.Tables {
		el, err := w.emitTable(t)
		if err != nil {
			return WriteResult{}, err
		}
		root.Children = append(root.Children, el)
	}

	body, err := xml.Marshal(root)
	if err != nil {
		return WriteResult{}, err
	}

	// Attachment "location" attributes were written with a fixed-width,
	// zero-padded placeholder holding the offset relative to the start
	// of the attachment region; patch them to absolute file positions
	// now that the header's total length (and therefore where the
	// attachment region begins) is known. The replacement string has
	// identical width, so this cannot perturb len(body).
	headerTotal := 16 + len(body)
	for _, rel := range w.attachmentRefs {
		oldTok := []byte(fmt.Sprintf("attachment:%012d:%012d", rel.relPos, rel.size))
		newTok := []byte(fmt.Sprintf("attachment:%012d:%012d", int64(headerTotal)+rel.relPos, rel.size))
		body = bytes.Replace(body, oldTok, newTok, 1)
	}

	header := make([]byte, 16+len(body))
	copy(header[0:8], Signature)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(body)))
	copy(header[16:], body)

	result := WriteResult{Header: header, Attachments: w.attachments}
	if opts.Distributed {
		result.XISB = encodeXISB(w.placements)
	}

	return result, nil
}

type writerState struct {
	opts          WriteOptions
	attachments   []byte
	placements    []blockPlacement
	attachmentRefs []attachmentRef
	nextUID       uint64
}

// attachmentRef records a pending attachment placeholder so WriteUnit
// can patch it to an absolute file position once the header's total
// length is known.
type attachmentRef struct {
	relPos int64
	size   int64
}

// placeBlock decides inline/attachment/distributed placement for data
// and returns the "location" attribute, plus "encoding" (inline text)
// and "indexId" (distributed) attributes to add to the owning element
// when non-empty.
func (w *writerState) placeBlock(data []byte) (location, encoding, indexID string) {
	if w.opts.Distributed {
		w.nextUID++
		uid := w.nextUID
		w.placements = append(w.placements, blockPlacement{uniqueID: uid, data: data})

		return "path(@header_dir/blocks.xisb)", "", strconv.FormatUint(uid, 10)
	}

	if len(data) <= w.opts.maxInline() {
		return "inline", "base64", ""
	}

	relPos := alignUp(int64(len(w.attachments)), w.opts.alignment())
	if pad := relPos - int64(len(w.attachments)); pad > 0 {
		w.attachments = append(w.attachments, make([]byte, pad)...)
	}
	w.attachments = append(w.attachments, data...)
	w.attachmentRefs = append(w.attachmentRefs, attachmentRef{relPos: relPos, size: int64(len(data))})

	return fmt.Sprintf("attachment:%012d:%012d", relPos, len(data)), "", ""
}

func alignUp(v, align int64) int64 {
	if align <= 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}

	return v + (align - rem)
}

func (w *writerState) emitProperty(p Property) (Element, error) {
	el := Element{XMLName: xml.Name{Local: "Property"}}
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: p.ID})
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "type"}, Value: p.Type})

	base, isVector, isMatrix := baseType(p.Type)

	if base == "String" || base == "TimePoint" {
		raw := []byte(p.Str)
		if len(raw) <= w.opts.maxInline() {
			el.Content = p.Str

			return el, nil
		}
		loc, enc, idx := w.placeBlock(raw)
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "location"}, Value: loc})
		if enc != "" {
			el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "encoding"}, Value: enc})
			el.Content = base64.StdEncoding.EncodeToString(raw)
		}
		if idx != "" {
			el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "indexId"}, Value: idx})
		}

		return el, nil
	}

	if !isVector && !isMatrix {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "value"}, Value: encodeScalarText(p, base)})

		return el, nil
	}

	data, count, err := encodeVectorBytes(p, base)
	if err != nil {
		return Element{}, err
	}
	if isMatrix {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "rows"}, Value: strconv.Itoa(p.Rows)})
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "columns"}, Value: strconv.Itoa(p.Cols)})
	} else {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "length"}, Value: strconv.Itoa(count)})
	}

	loc, enc, idx := w.placeBlock(data)
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "location"}, Value: loc})
	if enc != "" {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "encoding"}, Value: enc})
		el.Content = base64.StdEncoding.EncodeToString(data)
	}
	if idx != "" {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "indexId"}, Value: idx})
	}

	return el, nil
}

func (w *writerState) emitImage(img Image) (Element, error) {
	// A parsed Image (from ParseImage) already carries a complete
	// element, DataBlock reference included; pass it through unchanged.
	// A freshly built Image (convert package, test fixtures) carries
	// Pixels instead and needs its DataBlock placed fresh.
	if img.Pixels == nil {
		el := img.Element
		el.XMLName = xml.Name{Local: "Image"}

		return el, nil
	}

	el := Element{XMLName: xml.Name{Local: "Image"}}
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: img.ID})
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "geometry"}, Value: joinInts(img.Geometry)})
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "sampleFormat"}, Value: img.Sample.String()})
	if img.Storage == StoragePlanar {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "pixelStorage"}, Value: "Planar"})
	}
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "colorSpace"}, Value: firstNonEmpty(img.ColorSpace, "Gray")})
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "bounds"}, Value: fmt.Sprintf("%g:%g", img.Bounds[0], img.Bounds[1])})

	data := EncodePixelBytes(img.Sample, img.Pixels)
	loc, enc, idx := w.placeBlock(data)
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "location"}, Value: loc})
	if enc != "" {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "encoding"}, Value: enc})
		el.Content = base64.StdEncoding.EncodeToString(data)
	}
	if idx != "" {
		el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "indexId"}, Value: idx})
	}

	for _, p := range img.Properties {
		pe, err := w.emitProperty(p)
		if err != nil {
			return Element{}, err
		}
		el.Children = append(el.Children, pe)
	}

	return el, nil
}

func joinInts(vals []int) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.Itoa(v)
	}

	return strings.Join(s, ":")
}

func (w *writerState) emitTable(t Table) (Element, error) {
	el := Element{XMLName: xml.Name{Local: "Table"}}
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "id"}, Value: t.ID})
	el.Attrs = append(el.Attrs, xml.Attr{Name: xml.Name{Local: "rows"}, Value: strconv.Itoa(t.Rows)})
	for _, col := range t.Columns {
		ce := col.Element
		ce.XMLName = xml.Name{Local: "Column"}
		el.Children = append(el.Children, ce)
	}

	return el, nil
}

func encodeScalarText(p Property, base string) string {
	switch base {
	case "Boolean":
		if p.Bool {
			return "1"
		}

		return "0"
	case "Int8", "Int16", "Int32", "Int64":
		return strconv.FormatInt(p.Int, 10)
	case "UInt8", "UInt16", "UInt32", "UInt64":
		return strconv.FormatUint(p.UInt, 10)
	case "Float32", "Float64":
		return strconv.FormatFloat(p.Float, 'g', -1, 64)
	default:
		return p.Str
	}
}

// encodeVectorBytes is the inverse of decodeVectorBytes: it packs a
// Property's slice fields into little-endian bytes.
func encodeVectorBytes(p Property, base string) ([]byte, int, error) {
	switch base {
	case "Boolean", "Int8", "UInt8", "Int16", "UInt16", "Int32", "UInt32", "Int64", "UInt64":
		size := scalarElementSize(base)
		signed := len(p.Ints) > 0 || base == "Boolean"
		count := len(p.Ints)
		if !signed {
			count = len(p.UInts)
		}
		out := make([]byte, count*size)
		for i := 0; i < count; i++ {
			var u uint64
			if signed {
				u = uint64(p.Ints[i])
			} else {
				u = p.UInts[i]
			}
			writeLE(out[i*size:i*size+size], u)
		}

		return out, count, nil
	case "Float32":
		out := make([]byte, len(p.Floats)*4)
		for i, f := range p.Floats {
			binary.LittleEndian.PutUint32(out[i*4:i*4+4], math.Float32bits(float32(f)))
		}

		return out, len(p.Floats), nil
	case "Float64":
		out := make([]byte, len(p.Floats)*8)
		for i, f := range p.Floats {
			binary.LittleEndian.PutUint64(out[i*8:i*8+8], math.Float64bits(f))
		}

		return out, len(p.Floats), nil
	case "Complex32":
		out := make([]byte, len(p.Complexes)*8)
		for i, z := range p.Complexes {
			binary.LittleEndian.PutUint32(out[i*8:i*8+4], math.Float32bits(float32(z[0])))
			binary.LittleEndian.PutUint32(out[i*8+4:i*8+8], math.Float32bits(float32(z[1])))
		}

		return out, len(p.Complexes), nil
	case "Complex64":
		out := make([]byte, len(p.Complexes)*16)
		for i, z := range p.Complexes {
			binary.LittleEndian.PutUint64(out[i*16:i*16+8], math.Float64bits(z[0]))
			binary.LittleEndian.PutUint64(out[i*16+8:i*16+16], math.Float64bits(z[1]))
		}

		return out, len(p.Complexes), nil
	default:
		return nil, 0, errs.NewValidationError("xisf", "Property", "unsupported type for encode: "+base)
	}
}

func writeLE(b []byte, v uint64) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}

	return b
}

// encodeXISB packs pending distributed blocks into a single-node
// XISB0100 buffer matching ParseXISB's layout. Each entry's block
// position is an absolute offset into the returned buffer, whose data
// region follows the entry table.
func encodeXISB(placements []blockPlacement) []byte {
	const nodeHeaderSize = 16
	entriesLen := int64(len(placements)) * xisbEntrySize

	buf := make([]byte, 8+nodeHeaderSize+entriesLen)
	copy(buf[0:8], DistributedSignature)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(entriesLen))
	binary.LittleEndian.PutUint64(buf[16:24], 0) // no next node

	dataRegionStart := int64(len(buf))
	var data []byte
	const pos = 24 // 8-byte signature + 16-byte node header
	for i, pl := range placements {
		entryOff := pos + int64(i)*xisbEntrySize
		binary.LittleEndian.PutUint64(buf[entryOff:entryOff+8], pl.uniqueID)
		binary.LittleEndian.PutUint64(buf[entryOff+8:entryOff+16], uint64(dataRegionStart+int64(len(data))))
		binary.LittleEndian.PutUint64(buf[entryOff+16:entryOff+24], uint64(len(pl.data)))
		binary.LittleEndian.PutUint64(buf[entryOff+24:entryOff+32], uint64(len(pl.data)))
		binary.LittleEndian.PutUint64(buf[entryOff+32:entryOff+40], 0)
		data = append(data, pl.data...)
	}

	return append(buf, data...)
}
