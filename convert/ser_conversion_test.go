package convert

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/ser"
)

func buildSERFile(t *testing.T, frames [][]int64, timestamps []int64) *ser.File {
	t.Helper()

	h := ser.Header{
		ColorID:    ser.ColorMono,
		Width:      3,
		Height:     2,
		PixelDepth: 16,
		Observer:   "tester",
	}

	data, err := ser.Write(h, frames, timestamps, ser.WriteOptions{Endianness: ser.EndianCompat, LittleEndian: true})
	require.NoError(t, err)

	f, err := ser.Parse(data, ser.ParseOptions{})
	require.NoError(t, err)

	return f
}

func TestSERToXISFRoundTrip(t *testing.T) {
	frames := [][]int64{
		{0, 100, 200, 300, 400, 500},
		{1, 101, 201, 301, 401, 501},
	}
	f := buildSERFile(t, frames, []int64{1000, 2000})

	u, err := SERToXISF(f, Options{})
	require.NoError(t, err)
	require.Len(t, u.Images, 1)

	img := u.Images[0]
	require.Equal(t, []int{3, 2, 2}, img.Geometry)
	require.Len(t, img.Pixels, 12)
	require.Equal(t, append(append([]int64{}, frames[0]...), frames[1]...), img.Pixels)

	back, err := XISFToSER(u, Options{})
	require.NoError(t, err)
	require.Equal(t, int32(2), back.Header.FrameCount)
	require.Equal(t, f.Header.Width, back.Header.Width)
	require.Equal(t, f.Header.Height, back.Header.Height)
	require.Equal(t, f.Header.Observer, back.Header.Observer)

	gotFrame0, err := back.GetFrame(0)
	require.NoError(t, err)
	require.Equal(t, frames[0], gotFrame0)
}

func TestSERToFITSCubeRoundTrip(t *testing.T) {
	frames := [][]int64{
		{10, 20, 30, 40, 50, 60},
		{11, 21, 31, 41, 51, 61},
		{12, 22, 32, 42, 52, 62},
	}
	f := buildSERFile(t, frames, nil)

	file, rawData, err := SERToFITS(f, LayoutCube, Options{})
	require.NoError(t, err)
	require.Len(t, file.HDUs, 1)
	require.Len(t, rawData, 1)

	img, err := fits.NewImageFromHeader(file.HDUs[0].Header, rawData[0])
	require.NoError(t, err)
	file.HDUs[0].Data = img

	back, err := FITSToSER(file, f.Header, Options{})
	require.NoError(t, err)
	require.Equal(t, int32(3), back.Header.FrameCount)

	for i, want := range frames {
		got, err := back.GetFrame(i)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestSERToFITSMultiHDURoundTrip(t *testing.T) {
	frames := [][]int64{
		{10, 20, 30, 40, 50, 60},
		{11, 21, 31, 41, 51, 61},
	}
	f := buildSERFile(t, frames, []int64{500, 900})

	file, rawData, err := SERToFITS(f, LayoutMultiHDU, Options{})
	require.NoError(t, err)
	require.Len(t, file.HDUs, 3) // 2 frames + timestamp table

	for i := 0; i < 2; i++ {
		img, err := fits.NewImageFromHeader(file.HDUs[i].Header, rawData[i])
		require.NoError(t, err)
		file.HDUs[i].Data = img
	}
	file.HDUs[2].Data = &fits.BinaryTable{Header: file.HDUs[2].Header, RowData: rawData[2]}

	back, err := FITSToSER(file, f.Header, Options{})
	require.NoError(t, err)
	require.Equal(t, int32(2), back.Header.FrameCount)
	require.Equal(t, []int64{500, 900}, back.Timestamps)
}
