package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatErrorIs(t *testing.T) {
	err := NewFormatError("fits", "bad END card")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "fits")
	assert.Contains(t, err.Error(), "bad END card")
}

func TestChecksumErrorIs(t *testing.T) {
	err := NewChecksumError("sha256", "aa", "bb")
	assert.True(t, errors.Is(err, ErrChecksum))
	assert.Contains(t, err.Error(), "sha256")
}

func TestWarnNilSinkDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Warn(nil, Warning{Subsystem: "fits", Detail: "test"})
	})
}

func TestWarnInvokesSink(t *testing.T) {
	var got Warning
	Warn(func(w Warning) { got = w }, Warning{Subsystem: "xisf", Detail: "x"})
	assert.Equal(t, "xisf", got.Subsystem)
	assert.Equal(t, "xisf: x", got.String())
}
