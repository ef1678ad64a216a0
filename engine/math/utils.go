package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// MipDimension scales a base texture dimension down to the given mip level,
// never going below one texel.
func MipDimension[T constraints.Integer](base T, mipLevel uint32) T {
	return Max(base>>T(mipLevel), 1)
}
