package fits

import (
	"io"

	"github.com/arlobase/astrofmt/errs"
)

// File is a fully parsed FITS file: the primary HDU followed by zero
// or more extension HDUs, in file order.
type File struct {
	HDUs []HDU
}

// ParseOptions configures Parse's tolerance for malformed input,
// mirroring Header.StrictValidation/OnWarning.
type ParseOptions struct {
	StrictValidation bool
	OnWarning        errs.WarningFunc
}

// Parse reads a complete FITS file from r, scanning 2880-byte blocks,
// assembling each HDU's header up to its END card, and dispatching the
// following data unit to the Image/AsciiTable/BinaryTable/
// CompressedImage constructor selected by Header.DataType.
func Parse(r io.Reader, opts ParseOptions) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return ParseBytes(data, opts)
}

// ParseBytes parses a complete FITS file already held in memory.
func ParseBytes(data []byte, opts ParseOptions) (*File, error) {
	file := &File{}
	pos := 0

	for pos < len(data) {
		if allBlank(data[pos:]) {
			break
		}

		h, consumed, err := parseHeader(data[pos:], opts)
		if err != nil {
			return nil, err
		}
		pos += consumed

		dataLen := h.DataLength()
		paddedLen := padToBlock(dataLen)
		if int64(pos)+paddedLen > int64(len(data)) {
			if h.StrictValidation {
				return nil, errs.NewFormatError("fits", "data unit extends past end of file")
			}
			paddedLen = int64(len(data) - pos)
			if dataLen > paddedLen {
				dataLen = paddedLen
			}
		}

		raw := data[pos : pos+int(dataLen)]
		pos += int(paddedLen)

		dataUnit, err := buildDataUnit(h, raw)
		if err != nil {
			return nil, err
		}

		file.HDUs = append(file.HDUs, HDU{Header: h, Data: dataUnit})
	}

	if len(file.HDUs) == 0 {
		return nil, errs.NewFormatError("fits", "no HDUs found")
	}

	return file, nil
}

func allBlank(data []byte) bool {
	for _, b := range data {
		if b != 0 && b != ' ' {
			return false
		}
	}

	return true
}

func padToBlock(n int64) int64 {
	if n%BlockSize == 0 {
		return n
	}

	return n + (BlockSize - n%BlockSize)
}

// parseHeader reads one header's cards (across as many 2880-byte
// blocks as needed) up to and including the END card, and returns the
// number of bytes consumed (always a multiple of BlockSize).
func parseHeader(data []byte, opts ParseOptions) (*Header, int, error) {
	h := NewHeader()
	h.StrictValidation = opts.StrictValidation
	h.OnWarning = opts.OnWarning

	pos := 0
	found := false
	for !found {
		if pos+BlockSize > len(data) {
			return nil, 0, errs.NewFormatError("fits", "truncated header block")
		}
		block := data[pos : pos+BlockSize]
		pos += BlockSize

		for rec := 0; rec < BlockSize/CardSize; rec++ {
			record := block[rec*CardSize : (rec+1)*CardSize]
			keyword := trimRightSpace(record[0:KeywordSize])
			if keyword == "END" {
				found = true

				break
			}

			c, err := ParseCard(record)
			if err != nil {
				return nil, 0, err
			}
			if err := h.Set(c); err != nil {
				return nil, 0, err
			}
		}
	}

	return h, pos, nil
}

func trimRightSpace(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}

	return string(b[:end])
}

// buildDataUnit dispatches to the data-unit constructor selected by
// Header.DataType. A DataNone header yields a nil DataUnit.
func buildDataUnit(h *Header, raw []byte) (DataUnit, error) {
	switch h.DataType() {
	case DataImage:
		return NewImageFromHeader(h, raw)
	case DataTable:
		return NewAsciiTableFromHeader(h, raw)
	case DataBinTable:
		return NewBinaryTableFromHeader(h, raw)
	case DataCompressedImage:
		return NewCompressedImageFromHeader(h, raw)
	default:
		return nil, nil
	}
}
