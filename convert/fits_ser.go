package convert

import (
	"fmt"

	"github.com/arlobase/astrofmt/errs"
	"github.com/arlobase/astrofmt/fits"
	"github.com/arlobase/astrofmt/ser"
)

// SERLayout selects how SERToFITS arranges frames into HDUs.
type SERLayout int

const (
	// LayoutCube stacks every frame as the trailing axis of one image
	// HDU (NAXIS3 = frame count for mono; for RGB/BGR, NAXIS1 =
	// channels, NAXIS2/NAXIS3 = width/height, NAXIS4 = frame count).
	LayoutCube SERLayout = iota
	// LayoutMultiHDU emits one image HDU per frame, each tagged with a
	// SERFRAME card recording its source frame index.
	LayoutMultiHDU
)

const cardSERFrame = "SERFRAME"

// SERToFITS converts a parsed SER file into a FITS file under the
// requested layout. Frame timestamps, if present, are recorded in a
// SER_TSTP binary table extension with one 64-bit column.
func SERToFITS(f *ser.File, layout SERLayout, opts Options) (*fits.File, [][]byte, error) {
	switch layout {
	case LayoutMultiHDU:
		return serToFITSMultiHDU(f, opts)
	default:
		return serToFITSCube(f, opts)
	}
}

func serToFITSCube(f *ser.File, opts Options) (*fits.File, [][]byte, error) {
	h := f.Header
	channels := h.ColorID.ChannelCount()
	frameCount := int(h.FrameCount)

	// Pixel samples come out of ser.File.GetFrame channel-interleaved
	// (RGBRGB...), so the channel axis has to be NAXIS1, the fastest
	// moving one, for the flattened sample order below to line up with
	// FITS's fastest-axis-first convention.
	naxis := []int{int(h.Width), int(h.Height)}
	if channels > 1 {
		naxis = []int{channels, int(h.Width), int(h.Height)}
	}
	naxis = append(naxis, frameCount)

	bitpix := 16
	if h.PixelDepth <= 8 {
		bitpix = 8
	}

	header := fits.NewHeader()
	if err := setAll(header,
		kv{"SIMPLE", true},
		kv{"BITPIX", int64(bitpix)},
		kv{"NAXIS", int64(len(naxis))},
	); err != nil {
		return nil, nil, err
	}
	for i, n := range naxis {
		if err := header.SetInt(fmt.Sprintf("NAXIS%d", i+1), int64(n)); err != nil {
			return nil, nil, err
		}
	}
	if err := setAll(header,
		kv{"SERCOLID", int64(h.ColorID)},
		kv{"SERLAYOUT", "cube"},
	); err != nil {
		return nil, nil, err
	}
	if err := addUnsignedBZERO(header, bitpix); err != nil {
		return nil, nil, err
	}

	samples := make([]int64, 0, int(h.Width)*int(h.Height)*channels*frameCount)
	for fi := 0; fi < frameCount; fi++ {
		frame, err := f.GetFrame(fi)
		if err != nil {
			return nil, nil, err
		}
		samples = append(samples, shiftToWire(frame, bitpix)...)
	}
	raw := fits.EncodeImageSamples(bitpix, samples)

	file := &fits.File{HDUs: []fits.HDU{{Header: header}}}
	rawData := [][]byte{raw}

	if len(f.Timestamps) > 0 {
		tsHeader, tsRaw, err := timestampTableHDU(f.Timestamps)
		if err != nil {
			return nil, nil, err
		}
		file.HDUs = append(file.HDUs, fits.HDU{Header: tsHeader})
		rawData = append(rawData, tsRaw)
	}

	return file, rawData, nil
}

func serToFITSMultiHDU(f *ser.File, opts Options) (*fits.File, [][]byte, error) {
	h := f.Header
	channels := h.ColorID.ChannelCount()
	frameCount := int(h.FrameCount)

	naxis := []int{int(h.Width), int(h.Height)}
	if channels > 1 {
		naxis = []int{channels, int(h.Width), int(h.Height)}
	}

	bitpix := 16
	if h.PixelDepth <= 8 {
		bitpix = 8
	}

	file := &fits.File{}
	var rawData [][]byte

	for fi := 0; fi < frameCount; fi++ {
		frame, err := f.GetFrame(fi)
		if err != nil {
			return nil, nil, err
		}

		header := fits.NewHeader()
		if fi == 0 {
			if err := header.SetBool("SIMPLE", true); err != nil {
				return nil, nil, err
			}
		} else {
			if err := header.SetString("XTENSION", "IMAGE"); err != nil {
				return nil, nil, err
			}
		}
		if err := setAll(header,
			kv{"BITPIX", int64(bitpix)},
			kv{"NAXIS", int64(len(naxis))},
		); err != nil {
			return nil, nil, err
		}
		for i, n := range naxis {
			if err := header.SetInt(fmt.Sprintf("NAXIS%d", i+1), int64(n)); err != nil {
				return nil, nil, err
			}
		}
		if fi > 0 {
			if err := setAll(header, kv{"PCOUNT", int64(0)}, kv{"GCOUNT", int64(1)}); err != nil {
				return nil, nil, err
			}
		}
		if err := setAll(header,
			kv{cardSERFrame, int64(fi)},
			kv{"SERCOLID", int64(h.ColorID)},
			kv{"SERLAYOUT", "multi-hdu"},
		); err != nil {
			return nil, nil, err
		}
		if err := addUnsignedBZERO(header, bitpix); err != nil {
			return nil, nil, err
		}

		file.HDUs = append(file.HDUs, fits.HDU{Header: header})
		rawData = append(rawData, fits.EncodeImageSamples(bitpix, shiftToWire(frame, bitpix)))
	}

	if len(f.Timestamps) > 0 {
		tsHeader, tsRaw, err := timestampTableHDU(f.Timestamps)
		if err != nil {
			return nil, nil, err
		}
		file.HDUs = append(file.HDUs, fits.HDU{Header: tsHeader})
		rawData = append(rawData, tsRaw)
	}

	return file, rawData, nil
}

// addUnsignedBZERO records the BZERO/BSCALE pair that lets a BITPIX=16
// image carry SER's unsigned 9-16 bit samples (0..65535) without sign
// overflow, mirroring bitpixFor's UInt16 case; 8-bit SER samples need
// no shift since BITPIX=8 is already conventionally unsigned.
func addUnsignedBZERO(h *fits.Header, bitpix int) error {
	if bitpix != 16 {
		return nil
	}

	if err := h.SetFloat("BZERO", 32768); err != nil {
		return err
	}

	return h.SetFloat("BSCALE", 1)
}

// shiftToWire converts physical (unsigned) samples to the wire values
// EncodeImageSamples should write, the inverse of addUnsignedBZERO.
func shiftToWire(samples []int64, bitpix int) []int64 {
	if bitpix != 16 {
		return samples
	}

	out := make([]int64, len(samples))
	for i, v := range samples {
		out[i] = v - 32768
	}

	return out
}

// extractFrameSamples flattens a decoded Frame to a flat int64 slice
// regardless of its backing Kind, the physical-value counterpart of
// shiftToWire.
func extractFrameSamples(frame fits.Frame) []int64 {
	out := make([]int64, frame.Len())
	switch frame.Kind {
	case fits.FrameUint64:
		for i, v := range frame.UInts {
			out[i] = int64(v)
		}
	case fits.FrameFloat64:
		for i, v := range frame.Floats {
			out[i] = int64(v)
		}
	default:
		copy(out, frame.Ints)
	}

	return out
}

// timestampTableHDU builds the SER_TSTP binary table extension: one
// 64-bit integer column ("TICKS"), one row per frame.
func timestampTableHDU(timestamps []int64) (*fits.Header, []byte, error) {
	h := fits.NewHeader()
	if err := setAll(h,
		kv{"XTENSION", "BINTABLE"},
		kv{"BITPIX", int64(8)},
		kv{"NAXIS", int64(2)},
		kv{"NAXIS1", int64(8)},
		kv{"NAXIS2", int64(len(timestamps))},
		kv{"PCOUNT", int64(0)},
		kv{"GCOUNT", int64(1)},
		kv{"TFIELDS", int64(1)},
		kv{"TTYPE1", "TICKS"},
		kv{"TFORM1", "1K"},
		kv{"EXTNAME", "SER_TSTP"},
	); err != nil {
		return nil, nil, err
	}

	raw := make([]byte, len(timestamps)*8)
	for i, ts := range timestamps {
		writeBEInt64(raw[i*8:i*8+8], ts)
	}

	return h, raw, nil
}

func writeBEInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 7; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
}

func readBEInt64(b []byte) int64 {
	var u uint64
	for i := 0; i < 8; i++ {
		u = u<<8 | uint64(b[i])
	}

	return int64(u)
}

// FITSToSER converts a FITS file back into a SER file, inferring the
// layout from each image HDU's SERLAYOUT card: an HDU marked "cube", or
// the only HDU of a file without that card, is split into h.FrameCount
// frames, and every other image HDU becomes one frame. SERFRAME cards
// and HDU shapes are not consulted. The frame timestamp trailer is
// rebuilt from a SER_TSTP table extension if one is present.
func FITSToSER(file *fits.File, h ser.Header, opts Options) (*ser.File, error) {
	var frames [][]int64
	var timestamps []int64

	for _, hdu := range file.HDUs {
		if hdu.Header.GetString("EXTNAME") == "SER_TSTP" {
			table, ok := hdu.Data.(*fits.BinaryTable)
			if !ok {
				continue
			}
			count := len(table.RowData) / 8
			timestamps = make([]int64, count)
			for i := range timestamps {
				timestamps[i] = readBEInt64(table.RowData[i*8 : i*8+8])
			}

			continue
		}

		img, ok := hdu.Data.(*fits.Image)
		if !ok {
			continue
		}

		layout := hdu.Header.GetString("SERLAYOUT")
		if layout == "cube" || layout == "" && len(file.HDUs) == 1 {
			frameCount := int(h.FrameCount)
			if frameCount == 0 {
				frameCount = 1
			}
			// img.Naxis spans the whole cube including the trailing
			// frame axis, so a single GetFrame(0) decodes every frame
			// at once; split the flat result into per-frame chunks
			// rather than calling GetFrame per index.
			frame, err := img.GetFrame(0)
			if err != nil {
				return nil, err
			}
			all := extractFrameSamples(frame)
			if frameCount > 0 && len(all)%frameCount == 0 {
				chunk := len(all) / frameCount
				for fi := 0; fi < frameCount; fi++ {
					frames = append(frames, all[fi*chunk:(fi+1)*chunk])
				}
			} else {
				frames = append(frames, all)
			}

			continue
		}

		frame, err := img.GetFrame(0)
		if err != nil {
			return nil, err
		}
		frames = append(frames, extractFrameSamples(frame))
	}

	if len(frames) == 0 {
		return nil, errs.NewConversionError("fits", "ser", "no image HDU found to convert")
	}

	h.FrameCount = int32(len(frames))
	data, err := ser.Write(h, frames, timestamps, ser.WriteOptions{Endianness: ser.EndianCompat, LittleEndian: true})
	if err != nil {
		return nil, err
	}

	return ser.Parse(data, ser.ParseOptions{OnWarning: opts.OnWarning})
}
