package ser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleHeader() Header {
	return Header{
		FileID:     "LUCAM-RECORDER",
		LuID:       1,
		ColorID:    ColorMono,
		Width:      4,
		Height:     3,
		PixelDepth: 8,
		FrameCount: 2,
		Observer:   "obs",
		Instrument: "inst",
		Telescope:  "scope",
	}
}

func TestHeaderRoundTrip(t *testing.T) {
	h := sampleHeader()
	data := h.Bytes()
	require.Len(t, data, HeaderSize)

	got, err := ParseHeader(data)
	require.NoError(t, err)
	assert.Equal(t, h.FileID, got.FileID)
	assert.Equal(t, h.LuID, got.LuID)
	assert.Equal(t, h.ColorID, got.ColorID)
	assert.Equal(t, h.Width, got.Width)
	assert.Equal(t, h.Height, got.Height)
	assert.Equal(t, h.PixelDepth, got.PixelDepth)
	assert.Equal(t, h.FrameCount, got.FrameCount)
	assert.Equal(t, h.Observer, got.Observer)
	assert.Equal(t, h.Instrument, got.Instrument)
	assert.Equal(t, h.Telescope, got.Telescope)
}

func TestHeaderRejectsShortData(t *testing.T) {
	_, err := ParseHeader(make([]byte, 100))
	assert.Error(t, err)
}

func TestHeaderRejectsBadColorID(t *testing.T) {
	h := sampleHeader()
	h.ColorID = 7
	_, err := ParseHeader(h.Bytes())
	assert.Error(t, err)
}

func TestHeaderRejectsBadPixelDepth(t *testing.T) {
	h := sampleHeader()
	h.PixelDepth = 20
	_, err := ParseHeader(h.Bytes())
	assert.Error(t, err)
}

func TestChannelCount(t *testing.T) {
	assert.Equal(t, 1, ColorMono.ChannelCount())
	assert.Equal(t, 1, ColorBayerRGGB.ChannelCount())
	assert.Equal(t, 3, ColorRGB.ChannelCount())
	assert.Equal(t, 3, ColorBGR.ChannelCount())
}

func TestBytesPerSample(t *testing.T) {
	h := sampleHeader()
	h.PixelDepth = 8
	assert.Equal(t, 1, h.BytesPerSample())
	h.PixelDepth = 16
	assert.Equal(t, 2, h.BytesPerSample())
	h.PixelDepth = 12
	assert.Equal(t, 2, h.BytesPerSample())
}

func TestResolveLittleEndianCompatVsSpec(t *testing.T) {
	h := sampleHeader()
	h.LittleEndianFlag = 0
	assert.True(t, h.ResolveLittleEndian(EndianCompat))
	assert.False(t, h.ResolveLittleEndian(EndianSpec))

	h.LittleEndianFlag = 1
	assert.False(t, h.ResolveLittleEndian(EndianCompat))
	assert.True(t, h.ResolveLittleEndian(EndianSpec))
}

func TestTicksRoundTrip(t *testing.T) {
	ticks := int64(638000000000000000)
	tm := TicksToTime(ticks)
	got := TimeToTicks(tm)
	assert.Equal(t, ticks, got)
}
