package ser

import (
	"github.com/arlobase/astrofmt/endian"
)

// WriteOptions configures Write's endian-flag wire encoding: which flag
// value to emit for little-endian samples, following the same compat-
// vs-spec split Header.ResolveLittleEndian reads back.
type WriteOptions struct {
	Endianness   EndiannessPolicy
	LittleEndian bool // samples are little-endian on the wire
}

func (o WriteOptions) flagValue() int32 {
	if o.Endianness == EndianSpec {
		if o.LittleEndian {
			return 1
		}

		return 0
	}

	// EndianCompat (and EndianAuto, which has no write-side meaning):
	// the de facto convention inverts the literal spec mapping.
	if o.LittleEndian {
		return 0
	}

	return 1
}

// Write serializes header, raw frame samples (flat int64 per sample,
// frame-major then pixel-major, in the header's declared channel
// order), and optional trailer timestamps into one SER file buffer.
func Write(h Header, frames [][]int64, timestamps []int64, opts WriteOptions) ([]byte, error) {
	h.FrameCount = int32(len(frames))
	h.LittleEndianFlag = opts.flagValue()

	stride := h.FrameStride()
	bps := h.BytesPerSample()
	samplesPerFrame := int(stride) / bps

	out := make([]byte, 0, int64(HeaderSize)+stride*int64(len(frames))+int64(len(timestamps))*8)
	out = append(out, h.Bytes()...)

	engine := endian.GetLittleEndianEngine()
	if !opts.LittleEndian {
		engine = endian.GetBigEndianEngine()
	}

	for _, frame := range frames {
		buf := make([]byte, stride)
		for s := 0; s < samplesPerFrame && s < len(frame); s++ {
			if bps == 1 {
				buf[s] = byte(frame[s])
			} else {
				engine.PutUint16(buf[s*2:s*2+2], uint16(frame[s]))
			}
		}
		out = append(out, buf...)
	}

	if len(timestamps) > 0 {
		le := endian.GetLittleEndianEngine()
		buf := make([]byte, 8)
		for _, ts := range timestamps {
			le.PutUint64(buf, uint64(ts))
			out = append(out, buf...)
		}
	}

	return out, nil
}
