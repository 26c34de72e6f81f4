package fits

import (
	"bytes"
	"io"
)

// WriteHeader serializes h's cards (including its COMMENT/HISTORY
// lists, each re-synthesized as its own card) followed by the END
// card, padded to a BlockSize boundary with ASCII spaces.
func WriteHeader(w io.Writer, h *Header) error {
	var buf bytes.Buffer

	for _, c := range h.Cards() {
		buf.Write(c.Bytes())
	}
	for _, comment := range h.Comments {
		buf.Write(Card{Keyword: "COMMENT", Str: comment}.Bytes())
	}
	for _, hist := range h.History {
		buf.Write(Card{Keyword: "HISTORY", Str: hist}.Bytes())
	}

	end := make([]byte, CardSize)
	for i := range end {
		end[i] = ' '
	}
	copy(end, "END")
	buf.Write(end)

	padHeaderBlock(&buf)

	_, err := w.Write(buf.Bytes())

	return err
}

// padHeaderBlock pads buf with space-filled 80-byte records up to the
// next BlockSize boundary.
func padHeaderBlock(buf *bytes.Buffer) {
	rem := buf.Len() % BlockSize
	if rem == 0 {
		return
	}
	fill := make([]byte, BlockSize-rem)
	for i := range fill {
		fill[i] = ' '
	}
	buf.Write(fill)
}

// WriteData writes raw (the exact data-unit byte length, per
// Header.DataLength) followed by zero padding up to the next
// BlockSize boundary.
func WriteData(w io.Writer, raw []byte) error {
	if len(raw) == 0 {
		return nil
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}

	rem := len(raw) % BlockSize
	if rem == 0 {
		return nil
	}
	pad := make([]byte, BlockSize-rem)

	_, err := w.Write(pad)

	return err
}

// WriteFile serializes every HDU's header and data unit in order.
// Data bytes are supplied alongside each HDU via rawData (same length
// and order as file.HDUs); callers that only mutated headers can pass
// the original raw bytes straight through.
func WriteFile(w io.Writer, file *File, rawData [][]byte) error {
	for i, hdu := range file.HDUs {
		if err := WriteHeader(w, hdu.Header); err != nil {
			return err
		}
		var raw []byte
		if i < len(rawData) {
			raw = rawData[i]
		}
		if err := WriteData(w, raw); err != nil {
			return err
		}
	}

	return nil
}
