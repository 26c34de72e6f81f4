package ser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/errs"
)

func buildMonoFile(t *testing.T, w, h int32, frames [][]int64, timestamps []int64) []byte {
	t.Helper()

	hdr := Header{
		FileID:     "LUCAM-RECORDER",
		ColorID:    ColorMono,
		Width:      w,
		Height:     h,
		PixelDepth: 8,
	}
	data, err := Write(hdr, frames, timestamps, WriteOptions{LittleEndian: true})
	require.NoError(t, err)

	return data
}

func TestParseMonoFileWithTimestamps(t *testing.T) {
	frames := [][]int64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1},
	}
	const ticksPerSecond = 1e7
	timestamps := []int64{638000000000000000, 638000000000000000 + int64(0.01*ticksPerSecond)}

	data := buildMonoFile(t, 4, 3, frames, timestamps)

	f, err := Parse(data, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, f.FrameCount())
	assert.Equal(t, int64(0.01*ticksPerSecond), f.DurationTicks())
	assert.InDelta(t, 100.0, f.EstimatedFPS(), 0.01)
	assert.True(t, f.Monotonic)

	got0, err := f.GetFrame(0)
	require.NoError(t, err)
	assert.Equal(t, frames[0], got0)

	got1, err := f.GetFrame(1)
	require.NoError(t, err)
	assert.Equal(t, frames[1], got1)
}

func TestParseRejectsOutOfOrderTimestampsAsWarning(t *testing.T) {
	frames := [][]int64{
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}
	timestamps := []int64{200, 100}
	data := buildMonoFile(t, 4, 3, frames, timestamps)

	var warnings []errs.Warning
	f, err := Parse(data, ParseOptions{OnWarning: func(w errs.Warning) {
		warnings = append(warnings, w)
	}})
	require.NoError(t, err)
	assert.False(t, f.Monotonic)
	assert.NotEmpty(t, warnings)
}

func TestGetFrameRGBSwapsBGR(t *testing.T) {
	hdr := Header{FileID: "LUCAM-RECORDER", ColorID: ColorBGR, Width: 2, Height: 1, PixelDepth: 8}
	frames := [][]int64{{10, 20, 30, 40, 50, 60}} // two pixels, B,G,R,B,G,R
	data, err := Write(hdr, frames, nil, WriteOptions{LittleEndian: true})
	require.NoError(t, err)

	f, err := Parse(data, ParseOptions{})
	require.NoError(t, err)

	rgb, err := f.GetFrameRGB(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{30, 20, 10, 60, 50, 40}, rgb)
}

func TestGetFrameRGBRejectsMono(t *testing.T) {
	hdr := Header{FileID: "LUCAM-RECORDER", ColorID: ColorMono, Width: 2, Height: 1, PixelDepth: 8}
	data, err := Write(hdr, [][]int64{{1, 2}}, nil, WriteOptions{LittleEndian: true})
	require.NoError(t, err)

	f, err := Parse(data, ParseOptions{})
	require.NoError(t, err)

	_, err = f.GetFrameRGB(0)
	assert.Error(t, err)
}

func Test16BitFrameRoundTrip(t *testing.T) {
	hdr := Header{FileID: "LUCAM-RECORDER", ColorID: ColorMono, Width: 3, Height: 2, PixelDepth: 16}
	frame := []int64{100, 200, 300, 40000, 50000, 60000}
	data, err := Write(hdr, [][]int64{frame}, nil, WriteOptions{LittleEndian: true})
	require.NoError(t, err)

	f, err := Parse(data, ParseOptions{})
	require.NoError(t, err)

	got, err := f.GetFrame(0)
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}
