package fits

// DataUnit is implemented by every concrete data unit kind (Image,
// AsciiTable, BinaryTable, CompressedImage). It carries nothing itself;
// it exists so HDU.Data can hold any of them and callers type-switch,
// a flat sum type in place of a deep class hierarchy.
type DataUnit interface {
	isDataUnit()
}

func (*Image) isDataUnit()           {}
func (*AsciiTable) isDataUnit()      {}
func (*BinaryTable) isDataUnit()     {}
func (*CompressedImage) isDataUnit() {}

// HDU is one Header-Data Unit: a header and its (possibly absent) data
// unit. The first HDU of a file must be primary (Header.IsPrimary);
// every subsequent HDU must be an extension (Header.IsExtension).
type HDU struct {
	Header *Header
	Data   DataUnit
}
