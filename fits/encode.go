package fits

// EncodeImageSamples packs raw (already BZERO/BSCALE-shifted-to-wire)
// integer samples as big-endian bytes of the given BITPIX width. Used
// by the conversion layer to synthesize FITS image data units from a
// source format's decoded samples (e.g. XISF/SER pixel buffers) without
// going through a Header/Image round trip.
func EncodeImageSamples(bitpix int, samples []int64) []byte {
	sb := bitpix
	if sb < 0 {
		sb = -sb
	}
	sb /= 8

	out := make([]byte, len(samples)*sb)
	for i, s := range samples {
		writeBE(out[i*sb:i*sb+sb], bitpix, s)
	}

	return out
}

// EncodeImageFloats packs float64 samples as big-endian IEEE-754 bytes
// of the given negative BITPIX width (-32 or -64).
func EncodeImageFloats(bitpix int, samples []float64) []byte {
	sb := -bitpix / 8
	out := make([]byte, len(samples)*sb)
	for i, s := range samples {
		writeBEFloat(out[i*sb:i*sb+sb], bitpix, s)
	}

	return out
}
