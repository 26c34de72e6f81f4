package fits

import "math"

func float32FromBits(u uint32) float32 { return math.Float32frombits(u) }
func float64FromBits(u uint64) float64 { return math.Float64frombits(u) }
