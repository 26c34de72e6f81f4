package fits

import (
	"regexp"
	"strconv"

	"github.com/arlobase/astrofmt/errs"
)

// tformPattern matches a binary table TFORMn value: an optional repeat
// count, an optional P/Q variable-length prefix, and a single type
// code letter.
var tformPattern = regexp.MustCompile(`^(\d*)([PQ]?)([LXBIJKAEDCM])$`)

// ColumnDescriptor describes one binary-table column, parsed from its
// TFORMi/TTYPEi/TUNITi cards.
type ColumnDescriptor struct {
	Name       string
	TypeCode   byte // L,X,B,I,J,K,A,E,D,C,M
	Repeat     int  // fixed element count (ignored when VarLength)
	VarLength  bool
	Wide       bool // 'Q' (64-bit heap descriptor) vs 'P' (32-bit)
	ByteOffset int  // offset of this column within one row
	ByteWidth  int  // fixed width of this column's row-area field
	Unit       string
}

// elementSize returns the on-disk byte width of a single element of
// this column's type code (ignoring repeat count).
func elementSize(code byte) int {
	switch code {
	case 'L', 'B', 'A', 'X':
		return 1
	case 'I':
		return 2
	case 'J', 'E':
		return 4
	case 'K', 'D', 'C':
		return 8
	case 'M':
		return 16
	default:
		return 0
	}
}

// ParseTForm parses one TFORMi value into a partial ColumnDescriptor
// (Name/Unit/ByteOffset/ByteWidth left for the caller to fill in).
func ParseTForm(tform string) (ColumnDescriptor, error) {
	m := tformPattern.FindStringSubmatch(tform)
	if m == nil {
		return ColumnDescriptor{}, errs.NewValidationError("fits", "TFORM", "pattern mismatch: "+tform)
	}

	col := ColumnDescriptor{TypeCode: m[3][0]}
	if m[2] != "" {
		col.VarLength = true
		col.Wide = m[2] == "Q"
		col.ByteWidth = 8 // two 32-bit (P) or two 64-bit (Q) descriptor words
		if col.Wide {
			col.ByteWidth = 16
		}

		return col, nil
	}

	repeat := 1
	if m[1] != "" {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return ColumnDescriptor{}, errs.NewValidationError("fits", "TFORM", "bad repeat count: "+tform)
		}
		repeat = n
	}
	col.Repeat = repeat

	if col.TypeCode == 'X' {
		col.ByteWidth = (repeat + 7) / 8
	} else {
		col.ByteWidth = repeat * elementSize(col.TypeCode)
	}

	return col, nil
}

// BinaryTable is a FITS BINTABLE data unit: a fixed-width row area plus
// a PCOUNT-byte heap referenced by {length, heapOffset} descriptor
// pairs stored inline for variable-length columns.
type BinaryTable struct {
	Header    *Header
	Columns   []ColumnDescriptor
	RowBytes  int
	RowCount  int
	RowData   []byte // RowBytes * RowCount
	Heap      []byte // PCOUNT bytes following the row area
	engine    endianer
}

// endianer is the subset of endian.EndianEngine this package needs;
// defined locally to avoid importing the engine package into every
// file that only reads big-endian table bytes.
type endianer interface {
	Uint16([]byte) uint16
	Uint32([]byte) uint32
	Uint64([]byte) uint64
}

type bigEndian struct{}

func (bigEndian) Uint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }
func (bigEndian) Uint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func (bigEndian) Uint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}

	return v
}

// NewBinaryTableFromHeader builds a BinaryTable view over raw (which
// must contain at least RowBytes*RowCount + PCOUNT bytes).
func NewBinaryTableFromHeader(h *Header, raw []byte) (*BinaryTable, error) {
	rowBytes, _ := h.GetInt("NAXIS1")
	rowCount, _ := h.GetInt("NAXIS2")
	tfields, _ := h.GetInt("TFIELDS")
	pcount, _ := h.GetInt("PCOUNT")

	cols := make([]ColumnDescriptor, 0, tfields)
	offset := 0
	for i := 1; i <= int(tfields); i++ {
		tform := h.GetString(indexedKeyword("TFORM", i))
		col, err := ParseTForm(tform)
		if err != nil {
			return nil, err
		}
		col.Name = h.GetString(indexedKeyword("TTYPE", i))
		col.Unit = h.GetString(indexedKeyword("TUNIT", i))
		col.ByteOffset = offset
		offset += col.ByteWidth
		cols = append(cols, col)
	}

	rowArea := int(rowBytes) * int(rowCount)
	if rowArea > len(raw) {
		return nil, errs.NewValidationError("fits", "NAXIS1", "row area exceeds available data")
	}
	heapEnd := rowArea + int(pcount)
	if heapEnd > len(raw) {
		heapEnd = len(raw)
	}

	return &BinaryTable{
		Header:   h,
		Columns:  cols,
		RowBytes: int(rowBytes),
		RowCount: int(rowCount),
		RowData:  raw[:rowArea],
		Heap:     raw[rowArea:heapEnd],
		engine:   bigEndian{},
	}, nil
}

// Cell is the tagged-union accessor result for one table field: a flat
// sum type for dynamic typed-array access.
type Cell struct {
	Bools   []bool
	Ints    []int64
	Floats  []float64
	Str     string
	IsVar   bool
	VarLen  int
}

func (t *BinaryTable) rowSlice(row int) []byte {
	return t.RowData[row*t.RowBytes : (row+1)*t.RowBytes]
}

// Field reads column col of row and returns its decoded Cell.
func (t *BinaryTable) Field(row, col int) (Cell, error) {
	if row < 0 || row >= t.RowCount {
		return Cell{}, errs.NewValidationError("fits", "row", "row index out of range")
	}
	if col < 0 || col >= len(t.Columns) {
		return Cell{}, errs.NewValidationError("fits", "col", "column index out of range")
	}

	desc := t.Columns[col]
	data := t.rowSlice(row)[desc.ByteOffset : desc.ByteOffset+desc.ByteWidth]

	if desc.VarLength {
		return t.readVarLength(desc, data)
	}

	return t.readFixed(desc, data)
}

func (t *BinaryTable) readVarLength(desc ColumnDescriptor, data []byte) (Cell, error) {
	var length, heapOffset int64
	if desc.Wide {
		length = int64(t.engine.Uint64(data[0:8]))
		heapOffset = int64(t.engine.Uint64(data[8:16]))
	} else {
		length = int64(t.engine.Uint32(data[0:4]))
		heapOffset = int64(t.engine.Uint32(data[4:8]))
	}

	elemSize := elementSize(desc.TypeCode)
	if desc.TypeCode == 'X' {
		byteLen := (int(length) + 7) / 8
		if int(heapOffset)+byteLen > len(t.Heap) {
			return Cell{}, errs.NewValidationError("fits", "heap", "variable-length descriptor exceeds heap bounds")
		}
		bits := decodeBits(t.Heap[heapOffset:heapOffset+int64(byteLen)], int(length))

		return Cell{Bools: bits, IsVar: true, VarLen: int(length)}, nil
	}

	byteLen := int(length) * elemSize
	if int(heapOffset)+byteLen > len(t.Heap) {
		return Cell{}, errs.NewValidationError("fits", "heap", "variable-length descriptor exceeds heap bounds")
	}
	slice := t.Heap[heapOffset : int(heapOffset)+byteLen]

	cell, err := decodeArray(t.engine, desc.TypeCode, int(length), slice)
	if err != nil {
		return Cell{}, err
	}
	cell.IsVar = true
	cell.VarLen = int(length)

	return cell, nil
}

func (t *BinaryTable) readFixed(desc ColumnDescriptor, data []byte) (Cell, error) {
	if desc.TypeCode == 'X' {
		return Cell{Bools: decodeBits(data, desc.Repeat)}, nil
	}
	if desc.TypeCode == 'A' {
		return Cell{Str: trimTableString(data)}, nil
	}

	return decodeArray(t.engine, desc.TypeCode, desc.Repeat, data)
}

func decodeBits(data []byte, count int) []bool {
	bits := make([]bool, count)
	for i := 0; i < count; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		bits[i] = (data[byteIdx]>>uint(bitIdx))&1 != 0
	}

	return bits
}

func trimTableString(data []byte) string {
	end := len(data)
	for end > 0 && (data[end-1] == ' ' || data[end-1] == 0) {
		end--
	}

	return string(data[:end])
}

func decodeArray(e endianer, code byte, count int, data []byte) (Cell, error) {
	switch code {
	case 'L':
		bools := make([]bool, count)
		ints := make([]int64, count)
		for i := 0; i < count; i++ {
			bools[i] = data[i] == 'T'
			if bools[i] {
				ints[i] = 1
			}
		}

		return Cell{Bools: bools, Ints: ints}, nil
	case 'B':
		ints := make([]int64, count)
		for i := 0; i < count; i++ {
			ints[i] = int64(data[i])
		}

		return Cell{Ints: ints}, nil
	case 'I':
		ints := make([]int64, count)
		for i := 0; i < count; i++ {
			ints[i] = int64(int16(e.Uint16(data[i*2 : i*2+2])))
		}

		return Cell{Ints: ints}, nil
	case 'J':
		ints := make([]int64, count)
		for i := 0; i < count; i++ {
			ints[i] = int64(int32(e.Uint32(data[i*4 : i*4+4])))
		}

		return Cell{Ints: ints}, nil
	case 'K':
		ints := make([]int64, count)
		for i := 0; i < count; i++ {
			ints[i] = int64(e.Uint64(data[i*8 : i*8+8]))
		}

		return Cell{Ints: ints}, nil
	case 'E':
		floats := make([]float64, count)
		for i := 0; i < count; i++ {
			floats[i] = float64(float32FromBits(e.Uint32(data[i*4 : i*4+4])))
		}

		return Cell{Floats: floats}, nil
	case 'D':
		floats := make([]float64, count)
		for i := 0; i < count; i++ {
			floats[i] = float64FromBits(e.Uint64(data[i*8 : i*8+8]))
		}

		return Cell{Floats: floats}, nil
	case 'C':
		floats := make([]float64, count*2)
		for i := 0; i < count; i++ {
			floats[i*2] = float64(float32FromBits(e.Uint32(data[i*8 : i*8+4])))
			floats[i*2+1] = float64(float32FromBits(e.Uint32(data[i*8+4 : i*8+8])))
		}

		return Cell{Floats: floats}, nil
	case 'M':
		floats := make([]float64, count*2)
		for i := 0; i < count; i++ {
			floats[i*2] = float64FromBits(e.Uint64(data[i*16 : i*16+8]))
			floats[i*2+1] = float64FromBits(e.Uint64(data[i*16+8 : i*16+16]))
		}

		return Cell{Floats: floats}, nil
	default:
		return Cell{}, errs.NewValidationError("fits", "TFORM", "unsupported type code")
	}
}
