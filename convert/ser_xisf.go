package convert

import (
	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/format"
	"github.com/arlobase/astrofmt/ser"
	"github.com/arlobase/astrofmt/xisf"
)

const (
	propSERColorID      = "SER:ColorID"
	propSERPixelDepth   = "SER:PixelDepth"
	propSERFrameCount   = "SER:FrameCount"
	propSERChannels     = "SER:ChannelCount"
	propSERLittleEndian = "SER:LittleEndian"
	propSERLuID         = "SER:LuID"
	propSERObserver     = "SER:Observer"
	propSERInstrument   = "SER:Instrument"
	propSERTelescope    = "SER:Telescope"
	propSERStartTime    = "SER:StartTime"
	propSERStartUTC     = "SER:StartTimeUTC"
	propSERFrameTstamp  = "SER:FrameTimestamps"
)

// SERToXISF converts a parsed SER file into a single XISF image, one
// sample per physical pixel across every frame (geometry [w, h,
// frameCount] for mono, [w, h, channels, frameCount] for RGB/BGR),
// carrying every SER header field the XISF model has no native slot
// for as "SER:*" metadata properties. This trailing-frameCount axis
// means Image.Channels() (which reads the last geometry element) does
// not apply to a frame stack the way it would for a plain 2D image;
// callers converting multi-frame SER video read channel count from
// the SER:ChannelCount property instead.
func SERToXISF(f *ser.File, opts Options) (*xisf.Unit, error) {
	h := f.Header
	frameCount := int(h.FrameCount)
	channels := h.ColorID.ChannelCount()

	sample := format.SampleUInt16
	if h.PixelDepth <= 8 {
		sample = format.SampleUInt8
	}

	storage := xisf.StorageNormal
	geometry := []int{int(h.Width), int(h.Height), frameCount}
	if channels > 1 {
		geometry = []int{int(h.Width), int(h.Height), channels, frameCount}
	}

	pixels := make([]int64, 0, int(h.Width)*int(h.Height)*channels*frameCount)
	for fi := 0; fi < frameCount; fi++ {
		frame, err := f.GetFrame(fi)
		if err != nil {
			return nil, err
		}
		pixels = append(pixels, frame...)
	}

	img := xisf.Image{
		ID:         "SER_IMG",
		Geometry:   geometry,
		Sample:     sample,
		Storage:    storage,
		ColorSpace: colorSpaceFor(h.ColorID),
		Bounds:     [2]float64{0, 1},
		Pixels:     pixels,
		Properties: serMetadataProperties(f),
	}

	return &xisf.Unit{Version: "1.0", Images: []xisf.Image{img}}, nil
}

func colorSpaceFor(c ser.ColorID) string {
	if c.ChannelCount() == 3 {
		return "RGB"
	}

	return "Gray"
}

func serMetadataProperties(f *ser.File) []xisf.Property {
	h := f.Header
	props := []xisf.Property{
		{ID: propSERColorID, Type: "Int32", Int: int64(h.ColorID)},
		{ID: propSERPixelDepth, Type: "Int32", Int: int64(h.PixelDepth)},
		{ID: propSERFrameCount, Type: "Int32", Int: int64(h.FrameCount)},
		{ID: propSERChannels, Type: "Int32", Int: int64(h.ColorID.ChannelCount())},
		{ID: propSERLittleEndian, Type: "Boolean", Bool: h.LittleEndianFlag == 0},
		{ID: propSERLuID, Type: "Int32", Int: int64(h.LuID)},
		{ID: propSERObserver, Type: "String", Str: h.Observer},
		{ID: propSERInstrument, Type: "String", Str: h.Instrument},
		{ID: propSERTelescope, Type: "String", Str: h.Telescope},
		{ID: propSERStartTime, Type: "Int64", Int: h.DateTime},
		{ID: propSERStartUTC, Type: "Int64", Int: h.DateTimeUTC},
	}

	if len(f.Timestamps) > 0 {
		uints := make([]uint64, len(f.Timestamps))
		for i, v := range f.Timestamps {
			uints[i] = uint64(v)
		}
		props = append(props, xisf.Property{ID: propSERFrameTstamp, Type: "UI64Vector", UInts: uints})
	}

	return props
}

// XISFToSER converts a SER-sourced XISF image back into a SER file,
// replaying the "SER:*" metadata properties to restore the original
// header fields that have no XISF equivalent.
func XISFToSER(u *xisf.Unit, opts Options) (*ser.File, error) {
	if len(u.Images) == 0 {
		return nil, errs.NewConversionError("xisf", "ser", "unit has no image to convert")
	}
	img := u.Images[0]

	byID := make(map[string]xisf.Property, len(img.Properties))
	for _, p := range img.Properties {
		byID[p.ID] = p
	}

	h := ser.Header{
		ColorID:     ser.ColorID(propInt(byID, propSERColorID, 0)),
		PixelDepth:  int32(propInt(byID, propSERPixelDepth, 16)),
		Width:       int32(img.Width()),
		Height:      int32(img.Height()),
		LuID:        int32(propInt(byID, propSERLuID, 0)),
		Observer:    propStr(byID, propSERObserver),
		Instrument:  propStr(byID, propSERInstrument),
		Telescope:   propStr(byID, propSERTelescope),
		DateTime:    propInt(byID, propSERStartTime, 0),
		DateTimeUTC: propInt(byID, propSERStartUTC, 0),
	}
	if h.ColorID == 0 && img.ColorSpace == "RGB" {
		h.ColorID = ser.ColorRGB
	}

	channels := h.ColorID.ChannelCount()
	frameCount := img.Geometry[len(img.Geometry)-1]
	h.FrameCount = int32(frameCount)
	if h.Width == 0 {
		h.Width = int32(dim(img.Geometry, 0))
	}
	if h.Height == 0 {
		h.Height = int32(dim(img.Geometry, 1))
	}

	planeLen := int(h.Width) * int(h.Height) * channels
	frames := make([][]int64, frameCount)
	for fi := 0; fi < frameCount; fi++ {
		frames[fi] = img.Pixels[fi*planeLen : (fi+1)*planeLen]
	}

	var timestamps []int64
	if p, ok := byID[propSERFrameTstamp]; ok {
		timestamps = make([]int64, len(p.UInts))
		for i, v := range p.UInts {
			timestamps[i] = int64(v)
		}
	}

	littleEndian := true
	if p, ok := byID[propSERLittleEndian]; ok {
		littleEndian = p.Bool
	}

	data, err := ser.Write(h, frames, timestamps, ser.WriteOptions{Endianness: ser.EndianCompat, LittleEndian: littleEndian})
	if err != nil {
		return nil, err
	}

	return ser.Parse(data, ser.ParseOptions{OnWarning: opts.OnWarning})
}

func propInt(props map[string]xisf.Property, id string, def int64) int64 {
	if p, ok := props[id]; ok {
		return p.Int
	}

	return def
}

func propStr(props map[string]xisf.Property, id string) string {
	if p, ok := props[id]; ok {
		return p.Str
	}

	return ""
}
