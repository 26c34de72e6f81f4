package xisf

import (
	"strconv"

	"github.com/arlobase/astrofmt/errs"
)

// Column is one column of a standalone XISF <Table>: a name, a base
// scalar type (reusing Property's type vocabulary), and its own
// DataBlock — XISF tables are column-oriented, each column addressed
// independently rather than packed into row records the way a FITS
// BINTABLE is.
type Column struct {
	ID      string
	Type    string
	Element Element
}

// Table is a decoded XISF <Table> element: a row count and its
// columns. There is no FITS analogue to reuse; fits.BinaryTable is
// row-major with a fixed-width row descriptor, while XISF tables are
// columnar and attribute-driven like everything else in the header.
type Table struct {
	ID      string
	Rows    int
	Columns []Column
}

// ParseTable decodes a <Table> element's attributes and its <Column>
// children. It does not resolve column data; call DecodeColumn for
// that once checksum/resolver policy is configured.
func ParseTable(e Element) (Table, error) {
	t := Table{ID: e.Attr("id")}

	rows, err := strconv.Atoi(e.Attr("rows"))
	if err != nil {
		return Table{}, errs.NewValidationError("xisf", "rows", "missing or malformed rows attribute")
	}
	t.Rows = rows

	for _, ce := range e.ChildrenNamed("Column") {
		t.Columns = append(t.Columns, Column{
			ID:      ce.Attr("id"),
			Type:    ce.Attr("type"),
			Element: ce,
		})
	}

	return t, nil
}

// DecodeColumn resolves one column's DataBlock and decodes it as
// t.Rows elements of the column's scalar type.
func (t Table) DecodeColumn(c *Container, col Column, resolver ResourceResolver, headerDir string) (Property, error) {
	base, _, _ := baseType(col.Type)

	data, err := decodeDataBlock(c, col.Element, resolver, headerDir)
	if err != nil {
		return Property{}, err
	}
	if data == nil {
		return Property{}, errs.NewValidationError("xisf", "Column", "column has no DataBlock: "+col.ID)
	}

	return decodeVectorBytes(Property{ID: col.ID, Type: col.Type}, base, t.Rows, data)
}
