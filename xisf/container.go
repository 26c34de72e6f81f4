// Package xisf implements the Extensible Image Serialization Format
// container: an 8-byte signature, a UTF-8 XML header describing
// Image/Table/Property elements, and pixel data addressed either
// inline in the XML, embedded as base64/hex text, or as raw
// attachment bytes at an absolute file position.
//
// The fixed-offset signature/length read follows the same "read a few
// fixed fields, then a variable region" shape this module uses for its
// other packed binary headers, generalized to a short ASCII/binary
// preamble followed by XML instead of more packed binary fields.
package xisf

import (
	"encoding/binary"
	"encoding/xml"

	"github.com/arlobase/astrofmt/errs"
)

// Signature is the monolithic XISF 1.0 container's fixed 8-byte magic.
const Signature = "XISF0100"

// DistributedSignature is the XISB distributed block-index magic.
const DistributedSignature = "XISB0100"

// Container is a parsed monolithic XISF file: the XML header tree plus
// the raw attachment region it addresses into.
type Container struct {
	Root        Element
	Attachments []byte // the complete file bytes, header included; DataBlocks slice into this by absolute position
	uidIndex    map[string]*Element
}

// Element is a generic XML tree node used to walk the XISF header
// without a fixed Go struct per element kind (the schema is attribute-
// driven and open-ended — new element kinds and attributes appear
// across XISF versions). Dispatch is by LocalName, per the
// specification's "children are discovered by local name" rule.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",innerxml"`
	Children []Element  `xml:",any"`
}

// LocalName returns the element's tag name without XML namespace prefix.
func (e Element) LocalName() string { return e.XMLName.Local }

// Attr returns the value of attribute name, or "" if absent.
func (e Element) Attr(name string) string {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}

	return ""
}

// ChildrenNamed returns all direct children whose local name is name.
func (e Element) ChildrenNamed(name string) []Element {
	var out []Element
	for _, c := range e.Children {
		if c.LocalName() == name {
			out = append(out, c)
		}
	}

	return out
}

// ParseMonolithic parses a complete in-memory monolithic XISF file.
func ParseMonolithic(data []byte) (*Container, error) {
	if len(data) < 16 || string(data[0:8]) != Signature {
		return nil, errs.NewFormatError("xisf", "missing XISF0100 signature")
	}

	headerLen := binary.LittleEndian.Uint32(data[8:12])
	// bytes 12:16 are reserved.
	headerStart := 16
	headerEnd := headerStart + int(headerLen)
	if headerEnd > len(data) {
		return nil, errs.NewFormatError("xisf", "header length exceeds file size")
	}

	var root Element
	if err := xml.Unmarshal(data[headerStart:headerEnd], &root); err != nil {
		return nil, errs.NewFormatError("xisf", "malformed XML header: "+err.Error())
	}
	if root.LocalName() != "xisf" {
		return nil, errs.NewFormatError("xisf", "root element is not <xisf>")
	}

	c := &Container{Root: root, Attachments: data}
	c.buildUIDIndex()

	return c, nil
}

// buildUIDIndex walks the tree collecting every element carrying a
// "uid" attribute, used to resolve <Reference ref="..."> elements.
func (c *Container) buildUIDIndex() {
	c.uidIndex = make(map[string]*Element)
	var walk func(e *Element)
	walk = func(e *Element) {
		if uid := e.Attr("uid"); uid != "" {
			c.uidIndex[uid] = e
		}
		for i := range e.Children {
			walk(&e.Children[i])
		}
	}
	walk(&c.Root)
}

// Resolve follows a <Reference ref="uid"> element to its target,
// rejecting chained references (a reference pointing to another
// reference) in strict mode.
func (c *Container) Resolve(e Element, strict bool) (Element, error) {
	seen := map[string]bool{}
	cur := e
	for cur.LocalName() == "Reference" {
		ref := cur.Attr("ref")
		if seen[ref] {
			return Element{}, errs.NewValidationError("xisf", "ref", "cyclic reference chain")
		}
		seen[ref] = true

		target, ok := c.uidIndex[ref]
		if !ok {
			return Element{}, errs.NewValidationError("xisf", "ref", "unresolved reference: "+ref)
		}
		if strict && target.LocalName() == "Reference" {
			return Element{}, errs.NewValidationError("xisf", "ref", "chained reference not allowed in strict mode")
		}
		cur = *target
	}

	return cur, nil
}
