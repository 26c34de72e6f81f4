package dither

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableLengthAndRange(t *testing.T) {
	tbl := Table()
	assert.Len(t, tbl, SequenceLength)
	for _, v := range tbl {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestTableDeterministic(t *testing.T) {
	a := Table()
	b := Table()
	assert.Equal(t, a, b)
}

func TestStartIndexWraps(t *testing.T) {
	idx := StartIndex(0, 1)
	assert.GreaterOrEqual(t, idx, 0)
	assert.Less(t, idx, SequenceLength)
}

func TestStartOffsetInRange(t *testing.T) {
	off := StartOffset(0)
	assert.GreaterOrEqual(t, off, 0)
	assert.Less(t, off, 500)
}
