package xisf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fileResolver resolves the single distributed-sidecar path used in
// these tests, ignoring the header directory prefix.
type fileResolver struct {
	path string
	data []byte
}

func (r fileResolver) Resolve(location string) ([]byte, error) {
	if location == r.path {
		return r.data, nil
	}

	return nil, assertUnreachable()
}

func assertUnreachable() error {
	return errUnexpectedResolve
}

var errUnexpectedResolve = &unexpectedResolveError{}

type unexpectedResolveError struct{}

func (*unexpectedResolveError) Error() string { return "unexpected resolver path" }

func TestWriteUnitDistributedLongStringRoundTrip(t *testing.T) {
	original := strings.Repeat("distributed-property-payload-", 5)
	u := &Unit{
		Version: "1.0",
		Metadata: []Property{
			{ID: "Test:LongString", Type: "String", Str: original},
		},
	}

	result, err := WriteUnit(u, WriteOptions{MaxInlineBlockSize: 32, Distributed: true})
	require.NoError(t, err)
	require.NotNil(t, result.XISB)

	monolithic := result.Header // distributed mode: no attachment region needed
	c, err := ParseMonolithic(monolithic)
	require.NoError(t, err)

	resolver := fileResolver{path: "/tmp/blocks.xisb", data: result.XISB}
	unit, err := BuildUnit(c, UnitOptions{Resolver: resolver, HeaderDir: "/tmp", StrictValidation: true})
	require.NoError(t, err)

	require.Len(t, unit.Metadata, 1)
	assert.Equal(t, original, unit.Metadata[0].Str)
}

func TestWriteUnitMonolithicAttachmentPlacement(t *testing.T) {
	u := &Unit{
		Version: "1.0",
		Properties: []Property{
			{ID: "Data:Samples", Type: "Int32Vector", Ints: make([]int64, 2000)},
		},
	}
	for i := range u.Properties[0].Ints {
		u.Properties[0].Ints[i] = int64(i)
	}

	result, err := WriteUnit(u, WriteOptions{MaxInlineBlockSize: 32})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Attachments)

	full := append(append([]byte{}, result.Header...), result.Attachments...)
	c, err := ParseMonolithic(full)
	require.NoError(t, err)

	unit, err := BuildUnit(c, UnitOptions{StrictValidation: true})
	require.NoError(t, err)
	require.Len(t, unit.Properties, 1)
	assert.Equal(t, u.Properties[0].Ints, unit.Properties[0].Ints)
}
