package xisf

import (
	"encoding/binary"
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildMonolithic(t *testing.T, xmlHeader string) []byte {
	t.Helper()
	header := []byte(xmlHeader)
	buf := make([]byte, 16+len(header))
	copy(buf[0:8], Signature)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(len(header)))
	copy(buf[16:], header)

	return buf
}

func TestParseMonolithicRejectsBadSignature(t *testing.T) {
	_, err := ParseMonolithic([]byte("not-a-xisf-file-------"))
	assert.Error(t, err)
}

func TestParseMonolithicReadsRoot(t *testing.T) {
	data := buildMonolithic(t, `<xisf version="1.0"><Property id="X:Test" type="Int32" value="7"/></xisf>`)

	c, err := ParseMonolithic(data)
	require.NoError(t, err)
	assert.Equal(t, "xisf", c.Root.LocalName())
	assert.Equal(t, "1.0", c.Root.Attr("version"))

	props := c.Root.ChildrenNamed("Property")
	require.Len(t, props, 1)
	assert.Equal(t, "X:Test", props[0].Attr("id"))
}

func TestResolveFollowsReference(t *testing.T) {
	data := buildMonolithic(t, `<xisf version="1.0">
		<Property id="A" type="Int32" value="1" uid="u1"/>
		<Property id="B" type="Int32"><Reference ref="u1"/></Property>
	</xisf>`)

	c, err := ParseMonolithic(data)
	require.NoError(t, err)

	b := c.Root.ChildrenNamed("Property")[1]
	ref := b.Children[0]
	resolved, err := c.Resolve(ref, true)
	require.NoError(t, err)
	assert.Equal(t, "A", resolved.Attr("id"))
}

func TestResolveRejectsCycle(t *testing.T) {
	c := &Container{}
	a := Element{XMLName: xml.Name{Local: "Reference"}, Attrs: []xml.Attr{{Name: xml.Name{Local: "ref"}, Value: "b"}}}
	b := Element{XMLName: xml.Name{Local: "Reference"}, Attrs: []xml.Attr{{Name: xml.Name{Local: "ref"}, Value: "a"}}}
	c.uidIndex = map[string]*Element{"a": &a, "b": &b}

	_, err := c.Resolve(a, true)
	assert.Error(t, err)
}
