// internal/math/saturate.go
package math

// The tick core computes everything in explicit integer widths with
// saturation instead of wraparound. These helpers centralize the clamping
// and shift-approximated division used across the detectors and the
// inference pipeline.

// ClampU8 clamps a 32-bit value into [0, 255].
func ClampU8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ClampI8Biased clamps a signed delta to ±127 and rebases it to the
// unsigned 0..255 range with 128 as zero (feature-vector encoding).
func ClampI8Biased(v int32) uint8 {
	if v > 127 {
		v = 127
	}
	if v < -127 {
		v = -127
	}
	return uint8(v + 128)
}

// SatIncU16 increments a 16-bit counter, saturating at the maximum
// instead of wrapping.
func SatIncU16(v uint16) uint16 {
	if v == 0xFFFF {
		return v
	}
	return v + 1
}

// AbsDiffU16 returns |a - b| without signed conversion.
func AbsDiffU16(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

// sigmaTable maps variance upper bounds to sigma. A coarse integer sqrt
// is all the adaptive threshold unit needs: thresholds are 3-4x sigma
// with floors, so sub-integer precision is noise.
var sigmaTable = [...]struct {
	varBound uint32
	sigma    uint16
}{
	{1, 1}, {4, 2}, {9, 3}, {16, 4}, {36, 6}, {64, 8},
	{121, 11}, {256, 16}, {484, 22}, {1024, 32}, {2025, 45},
	{4096, 64}, {8100, 90}, {16384, 128}, {32761, 181},
}

// SigmaFromVariance returns the table-approximated square root of a
// variance estimate. Values beyond the last table entry saturate.
func SigmaFromVariance(variance uint32) uint16 {
	for _, e := range sigmaTable {
		if variance <= e.varBound {
			return e.sigma
		}
	}
	return 255
}
