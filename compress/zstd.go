package compress

// ZstdCodec implements the XISF "zstd" DataBlock compression codec.
//
// Two bodies are provided behind build tags, splitting a cgo-
// accelerated backend from a pure-Go fallback:
// zstd_cgo.go (build tag cgo) uses github.com/valyala/gozstd;
// zstd_pure.go (build tag !cgo) uses github.com/klauspost/compress/zstd.
// Both satisfy the same Codec interface so callers never branch on it.
type ZstdCodec struct{}

var _ Codec = ZstdCodec{}
