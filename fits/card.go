// Package fits implements the FITS container: 80-character card
// headers, image/ASCII-table/binary-table/compressed-image data units,
// and a block-oriented parser and writer built around a variable-length
// ordered card list rather than a fixed packed struct.
package fits

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// CardSize is the fixed width of one FITS header record.
const CardSize = 80

// BlockSize is the FITS physical block size; headers and data are
// always padded to a multiple of this.
const BlockSize = 2880

// KeywordSize is the fixed width of the keyword field within a card.
const KeywordSize = 8

// ValueType discriminates the Go type stored in a Card's Value field.
type ValueType uint8

const (
	ValueNone ValueType = iota
	ValueString
	ValueBool
	ValueInt
	ValueFloat
	ValueComplex
)

// Complex is a minimal complex value for FITS cards that carry one
// (rare, but legal per the standard's 'C'/'M' forms).
type Complex struct {
	Real, Imag float64
}

// Card is one parsed 80-character FITS header record: a keyword, a
// typed value (absent for commentary/blank cards), and a trailing
// comment.
type Card struct {
	Keyword string
	Type    ValueType
	Str     string
	Bool    bool
	Int     int64
	Float   float64
	Cplx    Complex
	Comment string
}

// bareKeyword strips a trailing numeric index from an indexed keyword,
// e.g. "NAXIS3" -> "NAXIS", "ZTILE2" -> "ZTILE". Used by the validation
// table keyed on bare keyword name.
func bareKeyword(keyword string) string {
	i := len(keyword)
	for i > 0 && keyword[i-1] >= '0' && keyword[i-1] <= '9' {
		i--
	}

	return keyword[:i]
}

// ParseCard parses one 80-byte (or shorter, zero-padded) record.
func ParseCard(record []byte) (Card, error) {
	if len(record) > CardSize {
		record = record[:CardSize]
	}
	buf := make([]byte, CardSize)
	copy(buf, record)
	for i := len(record); i < CardSize; i++ {
		buf[i] = ' '
	}

	keyword := strings.TrimRight(string(buf[0:KeywordSize]), " ")
	c := Card{Keyword: keyword}

	if keyword == "COMMENT" || keyword == "HISTORY" || keyword == "" {
		c.Type = ValueString
		c.Str = strings.TrimRight(string(buf[KeywordSize:]), " ")

		return c, nil
	}

	// value-bearing cards carry a literal "= " at bytes 8-9.
	if len(buf) < 10 || buf[8] != '=' {
		// keyword present but no value (e.g. blank card, END handled by caller)
		c.Type = ValueString
		c.Str = strings.TrimRight(string(buf[KeywordSize:]), " ")

		return c, nil
	}

	rest := string(buf[10:])

	value, comment, err := splitValueComment(rest)
	if err != nil {
		return Card{}, err
	}
	c.Comment = comment

	if err := assignValue(&c, value); err != nil {
		return Card{}, err
	}

	return c, nil
}

// splitValueComment separates the value token from the trailing " / comment",
// respecting quoted-string boundaries (a '/' inside quotes is not a comment
// delimiter).
func splitValueComment(s string) (value string, comment string, err error) {
	trimmed := strings.TrimLeft(s, " ")

	if strings.HasPrefix(trimmed, "'") {
		// scan for the closing quote, doubled '' is an escaped quote.
		i := 1
		for i < len(trimmed) {
			if trimmed[i] == '\'' {
				if i+1 < len(trimmed) && trimmed[i+1] == '\'' {
					i += 2

					continue
				}

				break
			}
			i++
		}
		if i >= len(trimmed) {
			return "", "", errs.NewFormatError("fits", "unterminated quoted string in card value")
		}
		value = trimmed[:i+1]
		remainder := trimmed[i+1:]
		if idx := strings.Index(remainder, "/"); idx >= 0 {
			comment = strings.TrimSpace(remainder[idx+1:])
		}

		return value, comment, nil
	}

	if idx := strings.Index(trimmed, "/"); idx >= 0 {
		value = strings.TrimSpace(trimmed[:idx])
		comment = strings.TrimSpace(trimmed[idx+1:])

		return value, comment, nil
	}

	return strings.TrimSpace(trimmed), "", nil
}

func assignValue(c *Card, value string) error {
	if value == "" {
		c.Type = ValueNone

		return nil
	}

	if strings.HasPrefix(value, "'") {
		c.Type = ValueString
		c.Str = unquoteFitsString(value)

		return nil
	}

	switch value {
	case "T":
		c.Type = ValueBool
		c.Bool = true

		return nil
	case "F":
		c.Type = ValueBool
		c.Bool = false

		return nil
	}

	if strings.Contains(value, "(") && strings.Contains(value, ",") && strings.HasSuffix(value, ")") {
		var re, im float64
		if _, err := fmt.Sscanf(value, "(%g,%g)", &re, &im); err == nil {
			c.Type = ValueComplex
			c.Cplx = Complex{Real: re, Imag: im}

			return nil
		}
	}

	fv, ferr := strconv.ParseFloat(strings.ReplaceAll(value, "D", "E"), 64)
	if ferr == nil {
		if iv, ierr := strconv.ParseInt(value, 10, 64); ierr == nil {
			c.Type = ValueInt
			c.Int = iv

			return nil
		}
		c.Type = ValueFloat
		c.Float = fv

		return nil
	}

	// Permissive fallback: keep as string.
	c.Type = ValueString
	c.Str = value

	return nil
}

// unquoteFitsString strips the surrounding single quotes and collapses
// the doubled-quote escape ('' -> ').
func unquoteFitsString(value string) string {
	if len(value) < 2 || value[0] != '\'' || value[len(value)-1] != '\'' {
		return value
	}
	inner := value[1 : len(value)-1]

	return strings.ReplaceAll(inner, "''", "'")
}

// Bytes formats the card back into an 80-byte record. Quoted strings
// are padded to at least 8 characters of content per FITS convention
// and '' escaping is re-applied.
func (c Card) Bytes() []byte {
	buf := make([]byte, CardSize)
	for i := range buf {
		buf[i] = ' '
	}

	if c.Keyword == "COMMENT" || c.Keyword == "HISTORY" {
		copy(buf[0:KeywordSize], padKeyword(c.Keyword))
		copy(buf[KeywordSize:], []byte(c.Str))

		return buf
	}

	copy(buf[0:KeywordSize], padKeyword(c.Keyword))

	if c.Type == ValueNone {
		return buf
	}

	buf[8] = '='
	buf[9] = ' '

	valueStr := c.formatValue()
	comment := c.Comment

	content := valueStr
	if comment != "" {
		content = valueStr + " / " + comment
	}

	rest := []byte(content)
	if len(rest) > CardSize-10 {
		rest = rest[:CardSize-10]
	}
	copy(buf[10:], rest)

	return buf
}

func padKeyword(keyword string) []byte {
	b := make([]byte, KeywordSize)
	for i := range b {
		b[i] = ' '
	}
	copy(b, keyword)

	return b
}

func (c Card) formatValue() string {
	switch c.Type {
	case ValueString:
		escaped := strings.ReplaceAll(c.Str, "'", "''")
		s := "'" + escaped + "'"
		for len(s) < 10 { // 8 chars of content + 2 quotes minimum
			s = s[:len(s)-1] + " '"
		}

		return s
	case ValueBool:
		if c.Bool {
			return "T"
		}

		return "F"
	case ValueInt:
		return strconv.FormatInt(c.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(c.Float, 'G', -1, 64)
	case ValueComplex:
		return fmt.Sprintf("(%G,%G)", c.Cplx.Real, c.Cplx.Imag)
	default:
		return ""
	}
}
