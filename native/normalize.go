package native

import "math"

// Denormalize maps a normalized axis value in [-1,1] onto a target's native
// axis range [min,max], per SPEC_FULL.md / spec.md §4.2's target rendering
// rule: mid + normal*(max-mid) for positive values, mid + |normal|*(min-mid)
// for negative values, where mid=(min+max)/2.
func Denormalize(normal float64, min, max int32) int32 {
	mid := float64(min+max) / 2
	if normal >= 0 {
		return int32(math.Round(mid + normal*(float64(max)-mid)))
	}
	return int32(math.Round(mid + (-normal)*(float64(min)-mid)))
}

// Normalize is the inverse of Denormalize, used by the normalization
// round-trip property (spec.md §8).
func Normalize(raw int32, min, max int32) float64 {
	mid := float64(min+max) / 2
	if float64(raw) >= mid {
		if float64(max)-mid == 0 {
			return 0
		}
		return (float64(raw) - mid) / (float64(max) - mid)
	}
	if mid-float64(min) == 0 {
		return 0
	}
	return -(mid - float64(raw)) / (mid - float64(min))
}

// Clamp01 clamps a value into [0,1], used for trigger/analog normalization.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampSigned clamps a value into [-1,1], used for bipolar axis normalization.
func ClampSigned(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
