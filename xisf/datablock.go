package xisf

import (
	"strconv"
	"strings"

	"github.com/arlobase/astrofmt/compress"
	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/format"
)

// ResourceResolver fetches the bytes of an external resource addressed
// by a DataBlock's "url" or "path" location, the extension point for
// loading data that lives outside the parsed byte buffer.
type ResourceResolver interface {
	Resolve(location string) ([]byte, error)
}

// nopResolver is the zero-value ResourceResolver: it errors on first
// use, so a Container built without a configured resolver fails
// loudly the moment it actually needs external I/O rather than
// silently returning empty data.
type nopResolver struct{}

func (nopResolver) Resolve(location string) ([]byte, error) {
	return nil, errs.NewResourceError(location, "no ResourceResolver configured")
}

// DefaultResolver is used by resolveDataBlock when the caller passes a
// nil ResourceResolver.
var DefaultResolver ResourceResolver = nopResolver{}

// location is a parsed DataBlock "location" attribute value.
type location struct {
	Kind     string // "inline", "embedded", "attachment", "url", "path"
	Target   string // the url(...) / path(...) payload, @header_dir-relative
	Position int64
	Size     int64
}

// parseLocation parses the location attribute grammar:
//
//	inline
//	embedded
//	attachment:position:size
//	url(encoded-url):position:size
//	path(encoded-path):position:size
func parseLocation(s string) (location, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "inline":
		return location{Kind: "inline"}, nil
	case s == "embedded":
		return location{Kind: "embedded"}, nil
	case strings.HasPrefix(s, "attachment:"):
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 {
			return location{}, errs.NewFormatError("xisf", "malformed attachment location: "+s)
		}
		pos, err1 := strconv.ParseInt(parts[1], 10, 64)
		size, err2 := strconv.ParseInt(parts[2], 10, 64)
		if err1 != nil || err2 != nil {
			return location{}, errs.NewFormatError("xisf", "malformed attachment offsets: "+s)
		}

		return location{Kind: "attachment", Position: pos, Size: size}, nil
	case strings.HasPrefix(s, "url(") || strings.HasPrefix(s, "path("):
		kind := "url"
		rest := strings.TrimPrefix(s, "url(")
		if strings.HasPrefix(s, "path(") {
			kind = "path"
			rest = strings.TrimPrefix(s, "path(")
		}
		close := strings.Index(rest, ")")
		if close < 0 {
			return location{}, errs.NewFormatError("xisf", "unterminated "+kind+"() location: "+s)
		}
		target := rest[:close]
		tail := rest[close+1:]

		loc := location{Kind: kind, Target: target}
		if strings.HasPrefix(tail, ":") {
			parts := strings.SplitN(strings.TrimPrefix(tail, ":"), ":", 2)
			if len(parts) == 2 {
				pos, err1 := strconv.ParseInt(parts[0], 10, 64)
				size, err2 := strconv.ParseInt(parts[1], 10, 64)
				if err1 == nil && err2 == nil {
					loc.Position, loc.Size = pos, size
				}
			}
		}

		return loc, nil
	default:
		return location{}, errs.NewFormatError("xisf", "unknown location kind: "+s)
	}
}

// resolveHeaderDir expands an "@header_dir/..." path against dir,
// supporting both URL-style and filesystem-style roots.
func resolveHeaderDir(target, dir string) string {
	const prefix = "@header_dir/"
	if !strings.HasPrefix(target, prefix) {
		return target
	}
	rest := strings.TrimPrefix(target, prefix)
	if dir == "" {
		return rest
	}
	if strings.HasSuffix(dir, "/") {
		return dir + rest
	}

	return dir + "/" + rest
}

// resolveDataBlock returns the raw bytes addressed by e's own
// "location" attribute, honoring an "indexId" attribute (distributed
// XISB index lookup) and a "byteOrder"/"compression"/"checksum"
// pipeline applied by the caller (property/image/table decode), which
// this function deliberately does not itself apply: it only produces
// the resolved byte span.
func resolveDataBlock(c *Container, e Element, resolver ResourceResolver, headerDir string) ([]byte, error) {
	loc := e.Attr("location")
	if loc == "" {
		return nil, nil
	}
	if resolver == nil {
		resolver = DefaultResolver
	}

	parsed, err := parseLocation(loc)
	if err != nil {
		return nil, err
	}

	var raw []byte       // the resolved location's bytes (an XISB index, when indexId is set)
	var blockSource []byte // the file the index's block positions are relative to
	switch parsed.Kind {
	case "inline", "embedded":
		raw, err = decodeEmbeddedText(e.Attr("encoding"), e.Content)
		if err != nil {
			return nil, err
		}
		blockSource = c.Attachments
	case "attachment":
		end := parsed.Position + parsed.Size
		if end > int64(len(c.Attachments)) {
			return nil, errs.NewResourceError("attachment", "range exceeds file size")
		}
		raw = c.Attachments[parsed.Position:end]
		blockSource = c.Attachments
	case "url", "path":
		target := resolveHeaderDir(parsed.Target, headerDir)
		fetched, ferr := resolver.Resolve(target)
		if ferr != nil {
			return nil, ferr
		}
		if parsed.Size > 0 {
			end := parsed.Position + parsed.Size
			if end > int64(len(fetched)) {
				return nil, errs.NewResourceError(target, "range exceeds resource size")
			}
			raw = fetched[parsed.Position:end]
		} else {
			raw = fetched
		}
		// A distributed index's block positions are relative to the
		// same external file the index itself was read from.
		blockSource = fetched
	}

	return sliceByIndex(c, e, raw, blockSource)
}

func sliceByIndex(c *Container, e Element, raw, blockSource []byte) ([]byte, error) {
	if indexID := e.Attr("indexId"); indexID != "" {
		idx, err := ParseXISB(raw)
		if err != nil {
			return nil, err
		}
		entry, ok := idx.Lookup(indexID)
		if !ok {
			return nil, errs.NewValidationError("xisf", "indexId", "unique id not found in distributed index: "+indexID)
		}
		end := entry.BlockPosition + entry.BlockLength
		if end > int64(len(blockSource)) {
			return nil, errs.NewResourceError("indexId", "block range exceeds source size")
		}

		return blockSource[entry.BlockPosition:end], nil
	}

	return raw, nil
}

// decodeDataBlock runs the full DataBlock resolution pipeline: resolve
// location (and indexId), verify the optional "checksum" attribute
// against the resolved bytes, then decompress per the optional
// "compression" attribute. Property, Image, and Table decode all route
// through this so checksum/compression apply uniformly regardless of
// which element owns the DataBlock.
func decodeDataBlock(c *Container, e Element, resolver ResourceResolver, headerDir string) ([]byte, error) {
	raw, err := resolveDataBlock(c, e, resolver, headerDir)
	if err != nil || raw == nil {
		return raw, err
	}

	if sum := e.Attr("checksum"); sum != "" {
		if err := VerifyChecksum(sum, raw); err != nil {
			return nil, err
		}
	}

	comp := e.Attr("compression")
	if comp == "" {
		return raw, nil
	}

	return decompressBlock(comp, raw)
}

// decompressBlock parses a "compression" attribute of the form
// "codec:uncompressedSize" or "codec+sh:uncompressedSize:itemSize" and
// runs the matching codec, undoing the byte-shuffle transform last.
func decompressBlock(attr string, data []byte) ([]byte, error) {
	parts := strings.Split(attr, ":")
	if len(parts) < 2 {
		return nil, errs.NewFormatError("xisf", "malformed compression attribute: "+attr)
	}

	token := parts[0]
	shuffled := strings.HasSuffix(token, "+sh")
	token = strings.TrimSuffix(token, "+sh")

	codecID, ok := format.ParseCompressionCodec(token)
	if !ok {
		return nil, errs.NewDecompressionError(token, "unsupported compression codec")
	}

	uncompressedSize, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, errs.NewFormatError("xisf", "malformed compression size: "+attr)
	}

	codec, err := compress.CreateCodec(codecID)
	if err != nil {
		return nil, err
	}

	out, err := codec.Decompress(data, uncompressedSize)
	if err != nil {
		return nil, err
	}

	if !shuffled {
		return out, nil
	}
	if len(parts) < 3 {
		return nil, errs.NewFormatError("xisf", "shuffled compression missing item size: "+attr)
	}
	itemSize, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, errs.NewFormatError("xisf", "malformed shuffle item size: "+attr)
	}

	return compress.Unshuffle(out, itemSize)
}
