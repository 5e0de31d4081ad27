package util

import "math"

func MulUint64(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64, false
	}
	return a * b, true
}

// ScaleCeil 计算 ceil(v*num/den), 溢出返回false
func ScaleCeil(v, num, den uint64) (uint64, bool) {
	if den == 0 {
		return 0, false
	}
	p, ok := MulUint64(v, num)
	if !ok {
		return math.MaxUint64, false
	}
	q := p / den
	if p%den != 0 {
		q++
	}
	return q, true
}

func GcdUint64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
