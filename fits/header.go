package fits

import (
	"strings"

	"github.com/arlobase/astrofmt/errs"
)

// DataType discriminates the data unit that follows a Header.
type DataType uint8

const (
	DataNone DataType = iota
	DataImage
	DataTable
	DataBinTable
	DataCompressedImage
)

// Header is the insertion-ordered keyword -> card mapping for one HDU:
// an ordered slice plus a lookup index rather than a bare map, so that
// card order is preserved for round-tripping and the COMMENT/HISTORY
// lists stay append-only.
type Header struct {
	cards    []Card
	index    map[string]int // last-wins index into cards, by keyword
	Comments []string
	History  []string

	// StrictValidation controls whether Set and Parse report hard
	// validation errors (true, default) or recover heuristically and
	// report a Warning instead (false).
	StrictValidation bool
	OnWarning        errs.WarningFunc
}

// NewHeader returns an empty header with strict validation enabled.
func NewHeader() *Header {
	return &Header{
		cards:            make([]Card, 0, 32),
		index:            make(map[string]int),
		StrictValidation: true,
	}
}

// Cards returns the ordered card list. The returned slice must not be
// mutated by the caller.
func (h *Header) Cards() []Card { return h.cards }

// Get returns the card for keyword and whether it was found.
func (h *Header) Get(keyword string) (Card, bool) {
	i, ok := h.index[keyword]
	if !ok {
		return Card{}, false
	}

	return h.cards[i], true
}

// GetString returns the string value of keyword, or "" if absent or
// non-string.
func (h *Header) GetString(keyword string) string {
	c, ok := h.Get(keyword)
	if !ok || c.Type != ValueString {
		return ""
	}

	return c.Str
}

// GetInt returns the integer value of keyword (a Float card is
// accepted and truncated toward zero), and whether it was present and
// numeric.
func (h *Header) GetInt(keyword string) (int64, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch c.Type {
	case ValueInt:
		return c.Int, true
	case ValueFloat:
		return int64(c.Float), true
	default:
		return 0, false
	}
}

// GetFloat returns the floating-point value of keyword.
func (h *Header) GetFloat(keyword string) (float64, bool) {
	c, ok := h.Get(keyword)
	if !ok {
		return 0, false
	}
	switch c.Type {
	case ValueFloat:
		return c.Float, true
	case ValueInt:
		return float64(c.Int), true
	default:
		return 0, false
	}
}

// GetBool returns the boolean value of keyword.
func (h *Header) GetBool(keyword string) (bool, bool) {
	c, ok := h.Get(keyword)
	if !ok || c.Type != ValueBool {
		return false, false
	}

	return c.Bool, true
}

// Set appends or replaces the card for keyword and runs the validation
// table. COMMENT/HISTORY are special: every Set call on those keywords
// appends to their own ordered list rather than replacing a prior card.
func (h *Header) Set(c Card) error {
	if c.Keyword == "COMMENT" {
		h.Comments = append(h.Comments, c.Str)

		return nil
	}
	if c.Keyword == "HISTORY" {
		h.History = append(h.History, c.Str)

		return nil
	}

	if i, ok := h.index[c.Keyword]; ok {
		h.cards[i] = c
	} else {
		h.index[c.Keyword] = len(h.cards)
		h.cards = append(h.cards, c)
	}

	return h.validate(c.Keyword)
}

// SetString/SetInt/SetFloat/SetBool are convenience wrappers around Set.
func (h *Header) SetString(keyword, value string) error {
	return h.Set(Card{Keyword: keyword, Type: ValueString, Str: value})
}

func (h *Header) SetInt(keyword string, value int64) error {
	return h.Set(Card{Keyword: keyword, Type: ValueInt, Int: value})
}

func (h *Header) SetFloat(keyword string, value float64) error {
	return h.Set(Card{Keyword: keyword, Type: ValueFloat, Float: value})
}

func (h *Header) SetBool(keyword string, value bool) error {
	return h.Set(Card{Keyword: keyword, Type: ValueBool, Bool: value})
}

// IsPrimary reports whether this header carries the primary HDU marker
// (SIMPLE = T).
func (h *Header) IsPrimary() bool {
	v, ok := h.GetBool("SIMPLE")

	return ok && v
}

// IsExtension reports whether this header carries an extension marker
// (XTENSION).
func (h *Header) IsExtension() bool {
	return h.GetString("XTENSION") != ""
}

// Bitpix returns the BITPIX value.
func (h *Header) Bitpix() int {
	v, _ := h.GetInt("BITPIX")

	return int(v)
}

// Naxis returns the axis extents in NAXIS1..NAXISn order.
func (h *Header) Naxis() []int {
	n, _ := h.GetInt("NAXIS")
	axes := make([]int, n)
	for i := 1; i <= int(n); i++ {
		v, _ := h.GetInt(indexedKeyword("NAXIS", i))
		axes[i-1] = int(v)
	}

	return axes
}

// DataLength returns |BITPIX|/8 * prod(NAXISi) + PCOUNT, or 0 if NAXIS
// is 0 or any NAXISi is 0.
func (h *Header) DataLength() int64 {
	naxis := h.Naxis()
	if len(naxis) == 0 {
		return 0
	}

	bitpix := h.Bitpix()
	if bitpix < 0 {
		bitpix = -bitpix
	}

	total := int64(bitpix / 8)
	for _, n := range naxis {
		if n == 0 {
			return 0
		}
		total *= int64(n)
	}

	pcount, _ := h.GetInt("PCOUNT")

	return total + pcount
}

// DataType discriminates Image / Table / BinTable / CompressedImage
// from the XTENSION/ZIMAGE keywords.
func (h *Header) DataType() DataType {
	xtension := strings.TrimSpace(h.GetString("XTENSION"))

	switch xtension {
	case "", "IMAGE":
		if h.DataLength() == 0 && xtension == "" && !h.IsPrimary() {
			return DataNone
		}

		return DataImage
	case "TABLE":
		return DataTable
	case "BINTABLE":
		if zimage, ok := h.GetBool("ZIMAGE"); ok && zimage {
			return DataCompressedImage
		}

		return DataBinTable
	default:
		return DataNone
	}
}

func indexedKeyword(base string, n int) string {
	return base + itoa(n)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b [20]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		b[i] = '-'
	}

	return string(b[i:])
}

// validate runs the keyword-name (bare, suffix-stripped) validation
// table: BITPIX membership, NAXIS range, ZCMPTYPE membership, and a
// non-negative PCOUNT. GCOUNT's value and the PCOUNT/GCOUNT pairing a
// given extension type allows are not checked.
func (h *Header) validate(keyword string) error {
	bare := bareKeyword(keyword)

	switch bare {
	case "BITPIX":
		bp := h.Bitpix()
		switch bp {
		case 8, 16, 32, 64, -32, -64:
		default:
			return h.fail("BITPIX", "must be one of {8,16,32,64,-32,-64}, got "+itoa(bp))
		}
	case "NAXIS":
		n, _ := h.GetInt("NAXIS")
		if n < 0 || n > 999 {
			return h.fail("NAXIS", "out of range [0,999]")
		}
	case "ZCMPTYPE":
		v := h.GetString("ZCMPTYPE")
		switch v {
		case "RICE_1", "GZIP_1", "PLIO_1", "HCOMPRESS_1":
		default:
			return h.fail("ZCMPTYPE", "unknown compression algorithm "+v)
		}
	case "PCOUNT", "GCOUNT":
		pcount, _ := h.GetInt("PCOUNT")
		if pcount < 0 {
			return h.fail(bare, "PCOUNT must be >= 0")
		}
	}

	return nil
}

func (h *Header) fail(keyword, detail string) error {
	if h.StrictValidation {
		return errs.NewValidationError("fits", keyword, detail)
	}
	errs.Warn(h.OnWarning, errs.Warning{Subsystem: "fits", Detail: keyword + ": " + detail})

	return nil
}
