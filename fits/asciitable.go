package fits

import (
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// AsciiColumn describes one ASCII-table column: a 1-based TBCOL start
// position (when present) and a converter selected by the TFORM
// prefix letter (A/I/F/E/D).
type AsciiColumn struct {
	Name   string
	TBCol  int // 1-based; 0 means "not specified, fall back to whitespace split"
	Width  int
	Format byte // 'A','I','F','E','D'
}

// AsciiTable is a FITS ASCII TABLE data unit. Columns are located by
// 1-based TBCOLn positions when present; otherwise fields are
// recovered by whitespace-splitting each row as a fallback.
type AsciiTable struct {
	Header   *Header
	Columns  []AsciiColumn
	RowBytes int
	RowCount int
	RowData  []byte
}

// NewAsciiTableFromHeader builds an AsciiTable view over raw.
func NewAsciiTableFromHeader(h *Header, raw []byte) (*AsciiTable, error) {
	rowBytes, _ := h.GetInt("NAXIS1")
	rowCount, _ := h.GetInt("NAXIS2")
	tfields, _ := h.GetInt("TFIELDS")

	cols := make([]AsciiColumn, 0, tfields)
	for i := 1; i <= int(tfields); i++ {
		tform := strings.TrimSpace(h.GetString(indexedKeyword("TFORM", i)))
		tbcol, _ := h.GetInt(indexedKeyword("TBCOL", i))
		name := h.GetString(indexedKeyword("TTYPE", i))

		var format byte
		width := 0
		if len(tform) > 0 {
			format = tform[0]
			digits := strings.TrimLeft(tform[1:], "")
			// width is the leading integer run after the format letter,
			// up to a '.' (decimal count) if present.
			end := 0
			for end < len(digits) && digits[end] != '.' {
				end++
			}
			if end > 0 {
				if n, err := strconv.Atoi(digits[:end]); err == nil {
					width = n
				}
			}
		}

		cols = append(cols, AsciiColumn{Name: name, TBCol: int(tbcol), Width: width, Format: format})
	}

	rowArea := int(rowBytes) * int(rowCount)
	if rowArea > len(raw) {
		return nil, errs.NewValidationError("fits", "NAXIS1", "row area exceeds available data")
	}

	return &AsciiTable{
		Header:   h,
		Columns:  cols,
		RowBytes: int(rowBytes),
		RowCount: int(rowCount),
		RowData:  raw[:rowArea],
	}, nil
}

// Field returns column col of row, converted per its format letter:
// A -> trimmed string, I -> integer, F/E/D -> float.
func (t *AsciiTable) Field(row, col int) (Cell, error) {
	if row < 0 || row >= t.RowCount || col < 0 || col >= len(t.Columns) {
		return Cell{}, errs.NewValidationError("fits", "row/col", "index out of range")
	}

	line := t.RowData[row*t.RowBytes : (row+1)*t.RowBytes]
	desc := t.Columns[col]

	var field string
	if desc.TBCol > 0 && desc.Width > 0 {
		start := desc.TBCol - 1
		end := start + desc.Width
		if end > len(line) {
			end = len(line)
		}
		if start > len(line) {
			start = len(line)
		}
		field = string(line[start:end])
	} else {
		fields := strings.Fields(string(line))
		if col >= len(fields) {
			return Cell{}, errs.NewValidationError("fits", "col", "whitespace-split fallback ran out of fields")
		}
		field = fields[col]
	}
	field = strings.TrimSpace(field)

	switch desc.Format {
	case 'A', 0:
		return Cell{Str: field}, nil
	case 'I':
		n, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return Cell{}, errs.NewValidationError("fits", "TFORM", "bad integer field: "+field)
		}

		return Cell{Ints: []int64{n}}, nil
	case 'F', 'E', 'D':
		f, err := strconv.ParseFloat(strings.ReplaceAll(field, "D", "E"), 64)
		if err != nil {
			return Cell{}, errs.NewValidationError("fits", "TFORM", "bad float field: "+field)
		}

		return Cell{Floats: []float64{f}}, nil
	default:
		return Cell{Str: field}, nil
	}
}
