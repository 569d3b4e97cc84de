package wheel

import "math"

// PointerAngle は針の位置（12時方向、度数）
const PointerAngle = -90.0

// SliceAngle returns the angular width of one option in degrees.
func SliceAngle(n int) float64 {
	if n <= 0 {
		return 0
	}
	return 360.0 / float64(n)
}

// SliceStart returns the start angle of slice i before any rotation.
// 区画0の中心が回転0で針の真下に来るよう半区画ずらす。
func SliceStart(i, n int) float64 {
	slice := SliceAngle(n)
	return PointerAngle - slice/2 + float64(i)*slice
}

// TargetAngle returns the resting rotation (degrees, in (-360, 0]) that puts slice i under the pointer.
func TargetAngle(i, n int) float64 {
	angle := math.Mod(-float64(i)*SliceAngle(n), 360)
	if angle <= -360 {
		angle += 360
	}
	if angle == 0 {
		return 0
	}
	return angle
}

// SpinRotation is the visual rotation including extra full turns.
func SpinRotation(i, n, extraTurns int) float64 {
	return TargetAngle(i, n) - float64(extraTurns)*360
}

// IndexAt returns the slice under the pointer for a given rotation.
func IndexAt(rotation float64, n int) int {
	if n <= 0 {
		return 0
	}
	slice := SliceAngle(n)
	// 回転rで区画iの中心は PointerAngle + i*slice + r に来る
	offset := math.Mod(-rotation, 360)
	if offset < 0 {
		offset += 360
	}
	return int(math.Floor(offset/slice+0.5)) % n
}
